package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"serve", "extract", "fields", "render", "migrate", "submissions", "export"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "inspection-review", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "root should have --%s", name)
	}
	assert.True(t, rootCmd.SilenceUsage)
}

func TestLoadConfig_FileAndLevelOverride(t *testing.T) {
	withConfig(t, cfg)
	path := filepath.Join(t.TempDir(), "inspect.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\nlog:\n  level: info\n"), 0o644))

	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().String("config", path, "")
	cmd.Flags().String("log-level", "debug", "")

	require.NoError(t, loadConfig(cmd, nil))
	require.NotNil(t, cfg)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	withConfig(t, cfg)
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().String("config", filepath.Join(t.TempDir(), "absent.yaml"), "")
	cmd.Flags().String("log-level", "", "")

	err := loadConfig(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestExtractCommand_HintFlags(t *testing.T) {
	for _, name := range []string{"facility", "address", "permit", "date", "inspector", "weather"} {
		assert.NotNil(t, extractCmd.Flags().Lookup(name), "extract should have --%s", name)
	}
}

func TestRenderCommand_Flags(t *testing.T) {
	flag := renderCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "pages", flag.DefValue)
	require.NotNil(t, renderCmd.Flags().Lookup("scale"))
}

func TestSubmissionsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range submissionsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "get", "stats"} {
		assert.True(t, names[name], "expected submissions subcommand %q", name)
	}
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "submissions.xlsx", flag.DefValue)
	flag = exportCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "1000", flag.DefValue)
}
