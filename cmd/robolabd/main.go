package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"robolab/config"
	daemonruntime "robolab/daemon"
	"robolab/internal/logging"
	"robolab/internal/support/buildinfo"

	"github.com/spf13/cobra"
)

func main() {
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var listen string
	var relayListen string
	var debug bool

	cmd := &cobra.Command{
		Use:     "robolabd",
		Short:   "Robolab session daemon",
		Version: buildinfo.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("relay-listen") {
				cfg.RelayListen = relayListen
			}

			level := cfg.LogLevel
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return daemonruntime.Run(ctx, cfg)
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVar(&configPath, "config", "/etc/robolab/config.yaml", "Config file path")
	cmd.Flags().StringVar(&listen, "listen", defaults.Listen, "Command websocket listen address")
	cmd.Flags().StringVar(&relayListen, "relay-listen", defaults.RelayListen, "Telemetry relay listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}
