package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// fixture is a working directory with reference tables, a catalog and a
// config file pointing at the tables.
type fixture struct {
	Tables  string
	Catalog string
	Config  string
	DB      string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	f := fixture{
		Tables:  filepath.Join(dir, "tables"),
		Catalog: filepath.Join(dir, "catalog"),
		Config:  filepath.Join(dir, "grimoire.toml"),
		DB:      filepath.Join(dir, "grimoire.db"),
	}

	writeFiles(t, f.Tables, map[string]string{
		"SpellName.csv": "ID,Name_lang\n133,Fireball\n2948,Scorch\n",
		"SpellMisc.csv": "ID,SpellID,Attributes_0,Attributes_8\n1,133,0,0\n2,2948,64,0\n",
	})
	writeFiles(t, f.Catalog, map[string]string{
		"catalog.cue": `package mage

catalog: {
	name:      "fire"
	enrichers: ["name", "passive"]
}

entity: fireball: {id: 133, type: "baseline"}
entity: scorch: {id: 2948, type: "baseline"}
`,
	})
	writeFiles(t, dir, map[string]string{
		"grimoire.toml": fmt.Sprintf("[source]\ndir = %q\n\n[log]\nlevel = \"error\"\n", f.Tables),
	})
	return f
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
