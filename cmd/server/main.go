package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"facedistance/internal/app"
	"facedistance/internal/config"
	"facedistance/internal/logger"

	"github.com/spf13/cobra"
)

// Version is the server version.
const Version = "0.1.0"

var (
	port     int
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "facedistance-server",
	Short:        "Streams webcam frames annotated with face distance estimates over WebSocket",
	Version:      Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg *config.Config
		if envFile != "" {
			var err error
			if cfg, err = config.LoadFile(envFile); err != nil {
				return err
			}
		} else {
			cfg = config.Load()
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		log, err := logger.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer log.Close()

		application, err := app.NewApp(cfg, log)
		if err != nil {
			log.Error("Failed to start server: %v", err)
			return err
		}
		return application.Run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().IntVarP(&port, "port", "p", 8000, "HTTP port (overrides PORT)")
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env when present)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warning or error (overrides LOG_LEVEL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
