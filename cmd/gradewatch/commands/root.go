package commands

import (
	"context"
	"errors"
	"fmt"
	"gradewatch/internal/components/telemetry"
	"gradewatch/lib/configutil"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dryRun     bool
	dumpDir    string

	otel telemetry.Otel
)

var rootCmd = &cobra.Command{
	Use:   "gradewatch",
	Short: "gradewatch checks the grade and content portals and emails what changed.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		config, err := readTelemetryConfig()
		if err != nil {
			return err
		}
		otel, err = telemetry.Setup(cmd.Context(), "gradewatch", config)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := otel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gradewatch.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages.")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print emails instead of sending them and never write to the stores.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump-http", "", "Write every http exchange with the portals to this directory.")
}

// readTelemetryConfig reads the telemetry.json5 next to the config file, no
// file means no exporters.
func readTelemetryConfig() (telemetry.Config, error) {
	config, err := configutil.ReadConfig[telemetry.Config](
		filepath.Join(filepath.Dir(configPath), "telemetry.json5"),
	)
	if errors.Is(err, os.ErrNotExist) {
		return telemetry.Config{}, nil
	}
	return config, err
}

func loadApp() (*app, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(config, dryRun, dumpDir)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
