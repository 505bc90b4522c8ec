// Command camtool calibrates the local camera and previews live distance
// estimates without running the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"facedistance/internal/config"
	"facedistance/internal/logger"

	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:          "camtool",
	Short:        "Camera calibration and preview for the face distance estimator",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			var err error
			if cfg, err = config.LoadFile(envFile); err != nil {
				return err
			}
		} else {
			cfg = config.Load()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := logger.LevelWarning
		if verbose {
			level = logger.LevelDebug
		}
		log = logger.NewWriter(os.Stderr, level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log camera probing and detection details")
	rootCmd.AddCommand(calibrateCmd, previewCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
