package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/grimoire/internal/catalog"
	"github.com/roach88/grimoire/internal/enrichers"
)

// ValidationError is one catalog problem, with its source line when known.
// Field is set only for problems found after compiling.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Name      string            `json:"name,omitempty"`
	Entities  int               `json:"entities"`
	Enrichers []string          `json:"enrichers,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a catalog without enriching it",
		Long: `Compile a CUE entity catalog and report every error with its source
position. The catalog's enricher list is checked against the registry.

Examples:
  grimoire validate ./catalogs/mage
  grimoire validate ./catalogs/mage --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cat, errs := catalog.Load(dir, catalog.CollectAll)

	result := ValidationResult{Valid: true}
	for _, err := range errs {
		result.Errors = append(result.Errors, toValidationError(err))
	}
	if cat != nil {
		result.Name = cat.Name
		result.Entities = len(cat.Entities)
		result.Enrichers = cat.Enrichers
		formatter.VerboseLog("Compiled %d entities", len(cat.Entities))
		if len(cat.Enrichers) > 0 {
			if _, err := enrichers.Select(cat.Enrichers); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Code:    catalog.ErrCodeEnrichers,
					Field:   "catalog.enrichers",
					Message: err.Error(),
				})
			}
		}
	}
	result.Valid = len(result.Errors) == 0

	if err := formatter.Success(result, formatValidateText(dir, result)); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func toValidationError(err error) ValidationError {
	var le *catalog.LoadError
	if errors.As(err, &le) {
		v := ValidationError{Code: le.Code, Message: le.Message}
		if le.Pos.IsValid() {
			v.File, v.Line = le.Pos.Filename(), le.Pos.Line()
		}
		return v
	}
	return ValidationError{Code: catalog.ErrCodeGeneric, Message: err.Error()}
}

func formatValidateText(dir string, r ValidationResult) string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "✓ %s: %d entities valid\n", dir, r.Entities)
		return b.String()
	}
	fmt.Fprintf(&b, "✗ %s: %d error(s)\n", dir, len(r.Errors))
	for _, e := range r.Errors {
		loc := ""
		if e.File != "" {
			loc = fmt.Sprintf("%s:%d: ", e.File, e.Line)
		}
		fmt.Fprintf(&b, "  %s[%s] %s\n", loc, e.Code, e.Message)
	}
	return b.String()
}
