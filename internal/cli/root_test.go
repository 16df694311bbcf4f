package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "grimoire", cmd.Use)
	assert.Contains(t, cmd.Long, "Enrich")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"enrich", "plan", "validate", "fetch", "runs", "export", "cache"}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "Command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	config := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "", config.DefValue)
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, err := execute(t, NewRootCommand(), "--format", "xml", "plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRoot_RequiredDBFlags(t *testing.T) {
	for _, args := range [][]string{{"runs"}, {"export", "run-1"}, {"cache"}} {
		t.Run(args[0], func(t *testing.T) {
			_, err := execute(t, NewRootCommand(), args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "required flag")
		})
	}
}
