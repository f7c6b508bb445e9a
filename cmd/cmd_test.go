package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/templit/internal/config"
)

func TestAddOutputFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addOutputFlags(fs)

	flag := fs.Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)
	assert.Equal(t, "o", flag.Shorthand)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"resolve", "cache", "init", "list", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestInitCommandWritesStarterConfig(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	require.NoError(t, runInitCommand(initCmd, nil))

	data, err := os.ReadFile(filepath.Join(dir, ".templit.yml"))
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, float64(config.DefaultTTLHours), cfg.Cache.TTLHours)
	assert.NotEmpty(t, cfg.Cache.Dir)

	// A second run without --force must refuse to overwrite.
	err = runInitCommand(initCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestVersionCommandRejectsUnknownFormat(t *testing.T) {
	versionFormat = "xml"
	t.Cleanup(func() { versionFormat = "text" })

	err := runVersionCommand(versionCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
