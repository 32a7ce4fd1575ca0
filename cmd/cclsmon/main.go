package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/cclsmon/internal/config"
	"github.com/npratt/cclsmon/internal/daemon"
	"github.com/npratt/cclsmon/internal/logview"
	"github.com/npratt/cclsmon/internal/target"
	"github.com/npratt/cclsmon/internal/workspace"
)

var version = "dev"

// getDaemonClient creates a control client by finding daemon.json in the project.
func getDaemonClient() (*daemon.Client, error) {
	info, err := daemon.FindInfo("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", daemon.ErrNotRunning, err)
	}
	return daemon.NewClient(info.SocketPath), nil
}

// resolveLogPath returns the log of the running monitor, or the configured
// log path when none is running.
func resolveLogPath() string {
	if info, err := daemon.FindInfo(""); err == nil && info.LogPath != "" {
		return info.LogPath
	}

	root := workspace.FindProjectRoot("")
	logPath := config.Default().Paths.Log
	if viper.GetString(FlagLogFile) != "" {
		logPath = viper.GetString(FlagLogFile)
	} else if cfg, err := config.NewLoader(viper.GetViper(), root).Load(); err == nil {
		logPath = cfg.Paths.Log
	}

	resolved, err := daemon.ResolvePaths(config.PathsConfig{Log: logPath}, root)
	if err != nil {
		return logPath
	}
	return resolved.Log
}

func main() {
	logLevel := &slog.LevelVar{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	viper.SetEnvPrefix("CCLSMON")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "cclsmon",
		Short: "Show ccls indexing status",
		Long: `cclsmon starts the ccls language server for a C/C++ project and keeps
a live status line showing indexing progress: completed and enqueued jobs,
the active compilation database and the size of the index.

Run "cclsmon watch" in a terminal for the interactive view, or with --daemon
to keep a background monitor that the status, refresh and stop commands talk to.`,
		SilenceUsage: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .cclsmon/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Log file path")
	rootCmd.PersistentFlags().String(FlagSocketPath, "", "Unix socket path for monitor control")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cclsmon %s\n", version)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch [root...]",
		Short: "Start ccls and show its indexing status",
		Long: `Start ccls for the workspace and poll it for indexing status.

The first root is sent to ccls as the workspace root; without arguments the
project root is found by walking up from the current directory to a
.ccls, compile_commands.json or .git entry.

The status is shown in a terminal UI when stdout is a terminal, otherwise as
one line per change. Use --daemon to run in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, logLevel, logger)
		},
	}

	watchCmd.Flags().Bool(FlagDaemon, false, "Run as a background daemon")
	watchCmd.Flags().Bool(FlagTUI, false, "Enable terminal UI")
	watchCmd.Flags().Bool(FlagDetail, false, "Print the detail text under each status line")
	watchCmd.Flags().Duration(FlagInterval, time.Second, "Status poll interval")
	watchCmd.Flags().Bool(FlagImmediate, false, "Poll once at startup instead of after the first interval")
	watchCmd.Flags().Bool(FlagNoWatch, false, "Do not refresh on compilation database or config changes")
	watchCmd.Flags().String(FlagCCLSCommand, "ccls", "ccls executable")
	watchCmd.Flags().String(FlagCompilationDatabaseDir, "", "Directory containing compile_commands.json")
	watchCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show monitor status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient()
			if err != nil {
				return err
			}

			status, err := client.Status()
			if err != nil {
				return err
			}

			if viper.GetBool(FlagJSON) {
				return printJSON(cmd.OutOrStdout(), status)
			}

			printStatus(cmd.OutOrStdout(), status, time.Now())
			return nil
		},
	}
	statusCmd.Flags().Bool(FlagJSON, false, "Output status as JSON")
	_ = viper.BindPFlag(FlagJSON, statusCmd.Flags().Lookup(FlagJSON))

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Poll ccls now instead of waiting for the next interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient()
			if err != nil {
				return err
			}

			queued, err := client.Refresh()
			if err != nil {
				return err
			}
			if !viper.GetBool(FlagWait) {
				fmt.Println("Refresh requested")
				return nil
			}

			status, err := client.WaitForPoll(queued.Polls, viper.GetDuration(FlagWaitTimeout))
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status, time.Now())
			return nil
		},
	}
	refreshCmd.Flags().Bool(FlagWait, false, "Wait for the refreshed status and print it")
	refreshCmd.Flags().Duration(FlagWaitTimeout, 30*time.Second, "How long --wait waits for a poll")
	refreshCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the monitor and its ccls server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient()
			if err != nil {
				return err
			}

			stopped, err := client.Stop()
			if err != nil {
				return err
			}

			fmt.Printf("Stop requested (pid %d)\n", stopped.PID)
			return nil
		},
	}

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "View recent log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := resolveLogPath()

			if viper.GetBool(FlagFollow) {
				ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer cancel()

				fmt.Println("Following log (Ctrl+C to stop)...")
				return logview.Follow(ctx, cmd.OutOrStdout(), logPath)
			}
			return logview.Tail(cmd.OutOrStdout(), logPath, viper.GetInt(FlagCount))
		},
	}

	logsCmd.Flags().Bool(FlagFollow, false, "Follow the log (like tail -f)")
	logsCmd.Flags().Int(FlagCount, 20, "Number of recent entries to show")
	logsCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	targetCmd := &cobra.Command{
		Use:   "target [root...]",
		Short: "Print the active compilation database label",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := workspace.Discover("", args...)
			cfg, err := config.NewLoader(viper.GetViper(), ws.Primary()).Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dir, _ := cmd.Flags().GetString(FlagCompilationDatabaseDir); dir != "" {
				cfg.CCLS.Misc.CompilationDatabaseDirectory = dir
			}

			store := config.NewStore(cfg, nil)
			resolver := target.New(store, ws, target.WithLogger(logger))
			return printTarget(cmd.OutOrStdout(), resolver)
		},
	}
	targetCmd.Flags().String(FlagCompilationDatabaseDir, "", "Directory containing compile_commands.json")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(viper.GetViper(), workspace.FindProjectRoot(""))
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return writeConfig(cmd.OutOrStdout(), cfg, loader.Files())
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
