package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/npratt/cclsmon/internal/config"
	"github.com/npratt/cclsmon/internal/daemon"
	"github.com/npratt/cclsmon/internal/lsp"
	"github.com/npratt/cclsmon/internal/monitor"
	"github.com/npratt/cclsmon/internal/runner"
	"github.com/npratt/cclsmon/internal/shutdown"
	"github.com/npratt/cclsmon/internal/surface"
	"github.com/npratt/cclsmon/internal/target"
	"github.com/npratt/cclsmon/internal/tui"
	"github.com/npratt/cclsmon/internal/watch"
	"github.com/npratt/cclsmon/internal/workspace"
)

// shutdownTimeout bounds ccls shutdown and socket teardown on exit.
const shutdownTimeout = 10 * time.Second

// flagOverrides returns a function applying explicitly set flags to a
// loaded config. It is re-applied after every config reload.
func flagOverrides(flags *pflag.FlagSet, v *viper.Viper) func(*config.Config) {
	return func(cfg *config.Config) {
		if flags.Changed(FlagLogFile) {
			cfg.Paths.Log = v.GetString(FlagLogFile)
		}
		if flags.Changed(FlagSocketPath) {
			cfg.Paths.Socket = v.GetString(FlagSocketPath)
		}
		if flags.Changed(FlagCCLSCommand) {
			cfg.CCLS.Command = v.GetString(FlagCCLSCommand)
		}
		if flags.Changed(FlagCompilationDatabaseDir) {
			cfg.CCLS.Misc.CompilationDatabaseDirectory = v.GetString(FlagCompilationDatabaseDir)
		}
		if flags.Changed(FlagInterval) {
			cfg.Status.UpdateInterval = v.GetDuration(FlagInterval)
		}
		if flags.Changed(FlagImmediate) {
			cfg.Status.Immediate = v.GetBool(FlagImmediate)
		}
		if flags.Changed(FlagNoWatch) && v.GetBool(FlagNoWatch) {
			cfg.Watch.Enabled = false
		}
	}
}

// resolveTUIMode picks the display mode: an explicit --tui wins, otherwise
// the TUI is used when stdout is a terminal and not running as a daemon.
func resolveTUIMode(tuiChanged, tuiFlag, daemonMode, isTerminal bool) (bool, error) {
	enabled := tuiFlag
	if !tuiChanged && !daemonMode {
		enabled = isTerminal
	}
	if enabled && daemonMode {
		return false, fmt.Errorf("--tui and --daemon flags are incompatible")
	}
	return enabled, nil
}

// loadWatchConfig loads, overrides and validates the configuration for the
// project at root and returns a store that reloads it the same way.
func loadWatchConfig(flags *pflag.FlagSet, v *viper.Viper, root string) (*config.Config, *config.Store, error) {
	loader := config.NewLoader(v, root)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	overrides := flagOverrides(flags, v)
	overrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	store := config.NewStore(cfg, loader.Load)
	store.SetOverrides(overrides)
	return cfg, store, nil
}

// runWatch implements the watch command: it starts ccls, polls it for
// indexing status and shows the result until quit, signal or a stop request.
func runWatch(cmd *cobra.Command, args []string, logLevel *slog.LevelVar, logger *slog.Logger) error {
	daemonMode := viper.GetBool(FlagDaemon)
	tuiEnabled, err := resolveTUIMode(
		cmd.Flags().Changed(FlagTUI),
		viper.GetBool(FlagTUI),
		daemonMode,
		term.IsTerminal(int(os.Stdout.Fd())),
	)
	if err != nil {
		return err
	}

	verbose := viper.GetBool(FlagVerbose)
	if verbose {
		logLevel.Set(slog.LevelDebug)
	}

	ws := workspace.Discover("", args...)
	projectRoot := ws.Primary()

	cfg, store, err := loadWatchConfig(cmd.Flags(), viper.GetViper(), projectRoot)
	if err != nil {
		return err
	}

	paths, err := daemon.ResolvePaths(cfg.Paths, projectRoot)
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg.Paths = paths

	if daemonMode {
		if daemon.NewClient(paths.Socket).IsRunning() {
			return fmt.Errorf("monitor already running (socket: %s)", paths.Socket)
		}
		shouldExit, _, err := daemon.Daemonize(paths.Socket, paths.Log, os.Stdout)
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		if shouldExit {
			return nil
		}
	}

	pidFile := daemon.NewPIDFile(paths.PID)
	stale := pidFile.CleanupStale(paths.Socket)
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer func() { _ = pidFile.Remove() }()

	// Logs always go to the rotating file so the revealer can show them.
	// Verbose foreground runs mirror them to stderr.
	var mirror io.Writer
	if verbose && !tuiEnabled && !daemonMode {
		mirror = os.Stderr
	}
	logResult, err := SetupFileLogger(paths.Log, logLevel, cfg.LogRotation, mirror)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer func() { _ = logResult.Close() }()
	logger = logResult.Logger
	slog.SetDefault(logger)

	logger.Info("cclsmon starting",
		"version", version,
		"root", projectRoot,
		"roots", ws.Roots(),
		"log_file", paths.Log,
		"socket", paths.Socket,
		"tui", tuiEnabled,
		"daemon_mode", daemonMode,
	)

	if stale.CCLS > 0 && daemon.IsProcessRunning(stale.CCLS) {
		logger.Warn("ccls from a previous monitor is still running",
			"ccls_pid", stale.CCLS,
			"monitor_pid", stale.Monitor,
		)
	}

	infoPath := daemon.InfoPath(projectRoot)
	if err := daemon.WriteInfo(infoPath, &daemon.Info{
		SocketPath: paths.Socket,
		PIDPath:    paths.PID,
		LogPath:    paths.Log,
		Root:       projectRoot,
		StartTime:  time.Now(),
		PID:        os.Getpid(),
	}); err != nil {
		logger.Warn("failed to write monitor info", "error", err)
	}
	defer func() { _ = daemon.RemoveInfo(infoPath) }()

	ctx := cmd.Context()

	proc := runner.NewExecProcessRunner()
	client, err := lsp.Start(ctx, proc, lsp.Options{
		Command: runner.Command{
			Name: cfg.CCLS.Command,
			Args: cfg.CCLS.Args,
		},
		RootDir:                      projectRoot,
		InitOptions:                  cfg.CCLS.InitOptions,
		CompilationDatabaseDirectory: cfg.CCLS.Misc.CompilationDatabaseDirectory,
		RequestTimeout:               cfg.CCLS.RequestTimeout,
		Logger:                       logger.With("source", "ccls"),
	})
	if err != nil {
		return fmt.Errorf("start ccls: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("ccls shutdown failed", "error", err)
		}
	}()

	if err := pidFile.SetCCLS(proc.PID()); err != nil {
		logger.Warn("failed to record ccls pid", "error", err)
	}

	resolver := target.New(store, ws, target.WithLogger(logger))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var mon *monitor.Monitor
	var tuiApp *tui.TUI
	var display monitor.Surface
	var revealer monitor.Revealer

	// Status changes always go to the debug log, so a daemon's history is
	// visible through "cclsmon logs".
	statusLog := surface.NewLog(logger)
	logReveal := surface.RevealerFunc(func() {
		logger.Warn("ccls status unavailable", "log_file", paths.Log)
	})

	switch {
	case tuiEnabled:
		tuiApp = tui.New(
			tui.WithOnQuit(stop),
			tui.WithOnRefresh(func() { mon.Trigger() }),
			tui.WithLogPath(paths.Log),
		)
		display = surface.Multi{tuiApp.Surface(), statusLog}
		revealer = surface.Revealers{logReveal, tuiApp.Revealer()}
	case !daemonMode:
		display = surface.Multi{
			surface.NewLine(os.Stdout, surface.WithDetail(viper.GetBool(FlagDetail))),
			statusLog,
		}
		revealer = surface.Revealers{logReveal, surface.NewTailRevealer(os.Stderr, paths.Log, surface.DefaultTailLines, logger)}
	default:
		display = statusLog
		revealer = logReveal
	}

	monOpts := []monitor.Option{monitor.WithLogger(logger)}
	if cfg.Status.Immediate {
		monOpts = append(monOpts, monitor.WithImmediatePoll())
	}
	mon = monitor.New(client, display, revealer, resolver, cfg.Status.UpdateInterval, monOpts...)
	defer mon.Dispose()

	configDir := filepath.Join(projectRoot, config.ProjectConfigDir)
	var watcher *watch.Watcher
	onChange := func(name string) {
		if filepath.Base(name) == config.ProjectConfigFile {
			if err := store.Reload(); err != nil {
				logger.Warn("config reload failed", "error", err)
			} else {
				logger.Info("config reloaded", "path", name)
				// The database directory may have moved.
				dirs := watch.ProjectDirs(resolver.DatabaseDirectory(), configDir)
				if err := watcher.SetDirs(dirs); err != nil {
					logger.Warn("cannot watch new directories", "error", err)
				}
			}
		}
		mon.Trigger()
	}

	run := func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)

		dmn := daemon.New(cfg, mon, stop, logger)
		g.Go(func() error {
			if err := dmn.Start(gctx); err != nil {
				if daemonMode {
					return fmt.Errorf("control socket: %w", err)
				}
				logger.Warn("control socket unavailable", "error", err)
			}
			return nil
		})

		if cfg.Watch.Enabled {
			dirs := watch.ProjectDirs(resolver.DatabaseDirectory(), configDir)
			watcher = watch.New(dirs, onChange,
				watch.WithDebounce(cfg.Watch.Debounce),
				watch.WithLogger(logger),
			)
			g.Go(func() error {
				if err := watcher.Run(gctx); err != nil {
					logger.Warn("file watching disabled", "error", err)
				}
				return nil
			})
		}

		if tuiApp != nil {
			g.Go(func() error {
				defer stop()
				return tuiApp.Run()
			})
		}

		g.Go(func() error {
			select {
			case <-client.Done():
				logger.Warn("ccls process exited", "command", cfg.CCLS.Command)
			case <-gctx.Done():
			}
			return nil
		})

		// Disposing the monitor also closes the TUI.
		g.Go(func() error {
			<-gctx.Done()
			mon.Dispose()
			return nil
		})

		return g.Wait()
	}

	err = shutdown.RunWithGracefulShutdown(runCtx, logger, shutdownTimeout, run,
		func(context.Context) error {
			stop()
			return nil
		},
	)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	stats := mon.Stats()
	logger.Info("cclsmon stopping", "polls", stats.Polls, "failures", stats.Failures)
	return err
}
