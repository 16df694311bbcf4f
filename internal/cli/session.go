package cli

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/grimoire/internal/config"
	"github.com/roach88/grimoire/internal/dbc"
	"github.com/roach88/grimoire/internal/store"
)

// session holds what a command needs from config: the logger, the source
// of reference tables and, when a database path is set, the store.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
}

// openSession loads config, builds the logger and opens the database.
// dbPath overrides the configured store path when non-empty.
func openSession(opts *RootOptions, cmd *cobra.Command, dbPath string) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}

	logger := newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	s := &session{cfg: cfg, logger: logger}
	if cfg.Store.Path != "" {
		logger.Debug("opening database", "path", cfg.Store.Path)
		st, err := store.Open(cfg.Store.Path, store.WithLogger(logger))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		s.store = st
	}
	return s, nil
}

// requireStore fails when no database is configured.
func (s *session) requireStore() error {
	if s.store == nil {
		return NewExitError(ExitCommandError, "no database: pass --db or set store.path")
	}
	return nil
}

func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// source returns the configured table source. HTTP sources are cached in
// the database when one is open; a local directory is read directly.
func (s *session) source() dbc.Source {
	src := s.cfg.Source
	if src.Dir != "" {
		return dbc.DirSource{Dir: src.Dir}
	}

	var upstream dbc.Source = dbc.NewHTTPSource(src.BaseURL, src.Build,
		dbc.WithHTTPClient(&http.Client{Timeout: src.Timeout}),
		dbc.WithRateLimit(src.RequestsPerSecond, src.Burst),
		dbc.WithHTTPLogger(s.logger),
	)
	if s.store == nil {
		return upstream
	}
	return &dbc.CachedSource{Upstream: upstream, Cache: s.store, Logger: s.logger}
}

// tables returns a memoizing table store over the configured source.
func (s *session) tables() *dbc.Store {
	return dbc.NewStore(s.source(), s.logger)
}

func newLogger(cfg config.LogConfig, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
