package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/ivana-meshed/mmm-app-sub001/internal/cmd/client"
	serverrun "github.com/ivana-meshed/mmm-app-sub001/internal/cmd/server"
	cfgpkg "github.com/ivana-meshed/mmm-app-sub001/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tickq",
		Short: "tickq job queue CLI",
		Long:  "tickq sequences batch-job launches from an object-store-resident queue document. This CLI manages the server and queue operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the tickq server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			httpAddr, _ := cmd.Flags().GetString("http")
			backend, _ := cmd.Flags().GetString("store")
			bucket, _ := cmd.Flags().GetString("bucket")
			prefix, _ := cmd.Flags().GetString("prefix")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			fsync, _ := cmd.Flags().GetString("fsync")
			launchLagMs, _ := cmd.Flags().GetInt("launch-lag-ms")
			tickInterval, _ := cmd.Flags().GetInt("tick-interval")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.ListenAddr = httpAddr
			}
			if backend != "" {
				cfg.Store.Backend = backend
			}
			if bucket != "" {
				cfg.Store.Bucket = bucket
			}
			if prefix != "" {
				cfg.Store.Prefix = prefix
			}
			if dataDir != "" {
				cfg.Store.DataDir = dataDir
			}
			if fsync != "" {
				cfg.Store.Fsync = fsync
			}
			if cmd.Flags().Changed("launch-lag-ms") {
				cfg.Batch.LaunchLagMs = launchLagMs
			}
			if cmd.Flags().Changed("tick-interval") {
				cfg.TickIntervalSeconds = tickInterval
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, cfg); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", os.Getenv("TICKQ_CONFIG"), "Path to JSON config file")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	serverStartCmd.Flags().String("store", "", "Store backend: gcs|pebble|memory")
	serverStartCmd.Flags().String("bucket", "", "GCS bucket (store=gcs)")
	serverStartCmd.Flags().String("prefix", "", "Object key prefix, e.g. tickq/")
	serverStartCmd.Flags().String("data-dir", "", "Pebble data directory (store=pebble; defaults to OS data dir)")
	serverStartCmd.Flags().String("fsync", "", "Pebble durability: always|interval|never")
	serverStartCmd.Flags().Int("launch-lag-ms", 0, "Settling delay after a launch before its record is queryable")
	serverStartCmd.Flags().Int("tick-interval", 0, "Seconds between self-triggered ticks; 0 disables the loop")
	serverStartCmd.Flags().String("log-level", os.Getenv("TICKQ_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("TICKQ_LOG_FORMAT"), "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// client commands (HTTP API)
	rootCmd.AddCommand(clientcmd.NewTickCommand(clientcmd.BaseURLFromEnv))
	rootCmd.AddCommand(clientcmd.NewQueueCommand(clientcmd.BaseURLFromEnv))
	rootCmd.AddCommand(clientcmd.NewHistoryCommand(clientcmd.BaseURLFromEnv))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
