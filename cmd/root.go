package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "inspection-review",
	Short: "Stormwater inspection form extraction and review",
	Long: `Turns uploaded inspection PDFs into structured records.

Pages are rasterized with pdftoppm, AcroForm values become hints, and Claude
vision returns a checklist record that a reviewer edits before it is saved
together with the original PDF. Settings come from config.yaml (or --config)
and INSPECT_* environment variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
}

// loadConfig reads settings, applies flag overrides, and installs the
// global logger before any subcommand runs.
func loadConfig(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	c, err := config.LoadFrom(path)
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		c.Log.Level = lvl
	}
	cfg = c

	if err := config.InitLogger(cfg.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	zap.L().Debug("config loaded",
		zap.String("command", cmd.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.String("blob", cfg.Blob.Provider),
	)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
