// Package main is the entry point for the weathergate CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weathergate/weathergate/internal/config"
	"github.com/weathergate/weathergate/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weathergate",
		Short:         "A caching, rate-limiting front for an LLM weather assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("weathergate %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the weathergate server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("verbose")

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}

			return app.Run(app.RunParams{
				ConfigPath: cfgPath,
				Version:    version,
				Commit:     commit,
				Date:       date,
				LogLevel:   level,
			})
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			fmt.Printf("Configuration OK\n")
			fmt.Printf("  bind: %s\n", cfg.Server.Bind)
			fmt.Printf("  max_concurrent: %d\n", cfg.Concurrency.MaxConcurrent)
			fmt.Printf("  cache_ttl: %s\n", cfg.Cache.TTL.Std())
			fmt.Printf("  session_idle_ttl: %s\n", cfg.Session.IdleTTL.Std())
			if cfg.Redis.Configured() {
				fmt.Printf("  redis: configured\n")
			} else {
				fmt.Printf("  redis: not configured (in-process stores)\n")
			}
			return nil
		},
	})
	return cmd
}
