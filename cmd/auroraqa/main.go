package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"auroraqa/internal/channel"
	"auroraqa/internal/config"
	"auroraqa/internal/logging"
	"auroraqa/internal/pipeline"
	"auroraqa/internal/refresh"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:          "auroraqa",
		Short:        "AuroraQA: answers questions about member messages",
		Long:         "AuroraQA answers natural-language questions about member messages with a rule-based pipeline, over HTTP, Telegram or the terminal.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.auroraqa/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(askCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config and switches the global logger to its
// settings. With lenient set a missing or invalid file falls back to the
// defaults.
func loadConfig(lenient bool) (*config.Config, io.Closer, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !lenient {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		logger.Warn("config not loaded, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.General.DataDir = config.ExpandPath(cfg.General.DataDir)
		cfg.Store.DBPath = config.ExpandPath(cfg.Store.DBPath)
	}

	l, closer, err := logging.New(cfg.General.LogLevel, cfg.General.LogFormat, cfg.General.LogFile)
	if err != nil {
		return nil, nil, err
	}
	logger = l
	return cfg, closer, nil
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			dataDir := config.ExpandPath(cfg.General.DataDir)
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "data_dir", dataDir)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")
	return cmd
}

func askCmd() *cobra.Command {
	var asJSON, debug bool
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig(true)
			if err != nil {
				return err
			}
			defer closer.Close()

			question, err := pipeline.ValidateQuestion(strings.Join(args, " "))
			if err != nil {
				return err
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := a.pipeline.AnswerQuestion(pipeline.WithChannel(ctx, "cli"), question)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), channel.FormatAnswer(result, debug))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&debug, "debug", false, "print analysis details")
	return cmd
}

func chatCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig(true)
			if err != nil {
				return err
			}
			defer closer.Close()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.watch(ctx)

			cli := channel.NewCLI(channel.CLIConfig{
				Answerer: a.pipeline,
				Corpus:   a.corpus,
				Debug:    debug,
				Logger:   logger,
			})
			return cli.Start(ctx)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "start with analysis details shown")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the full corpus and store the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig(false)
			if err != nil {
				return err
			}
			defer closer.Close()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.syncer()
			if err != nil {
				return err
			}
			if s == nil {
				return errors.New("nothing to sync from: set corpus.baseURL or corpus.filePath")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := s.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d messages (stored: %t) in %s\n", res.Messages, res.Stored, res.Took.Round(time.Millisecond))
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and question log statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig(true)
			if err != nil {
				return err
			}
			defer closer.Close()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := a.corpus.Stats(ctx)
			if err != nil {
				return err
			}

			out := map[string]any{"corpus": st}
			if a.store != nil {
				qs, err := a.store.QAStats(ctx)
				if err != nil {
					return err
				}
				out["questions"] = qs
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), channel.FormatStats(st))
			if qs, ok := out["questions"]; ok {
				data, _ := json.MarshalIndent(qs, "", "  ")
				fmt.Fprintf(cmd.OutOrStdout(), "Questions: %s\n", data)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. corpus.pageSize)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. refresh.interval 10m)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath())
		},
	})

	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, Telegram bot and corpus refresh",
		Long:  "Starts every enabled channel and the periodic corpus sync. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadConfig(false)
	if err != nil {
		return err
	}
	defer closer.Close()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.watch(ctx)

	// Warm the cache so the first question does not pay for the full fetch.
	if _, err := a.corpus.FetchAll(ctx, false); err != nil {
		logger.Warn("initial corpus load failed", "err", err)
	}

	var syncer *refresh.Syncer
	if cfg.Refresh.Enabled {
		syncer, err = a.syncer()
		if err != nil {
			return err
		}
		if syncer != nil {
			if err := syncer.Start(ctx); err != nil {
				return err
			}
		} else {
			logger.Warn("refresh enabled but there is no upstream to sync from")
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	started := 0

	if cfg.API.Enabled {
		apiCfg := channel.APIConfig{
			Host:               cfg.API.Host,
			Port:               cfg.API.Port,
			RateLimitPerMinute: cfg.API.RateLimitPerMinute,
			MetricsPath:        cfg.Metrics.Path,
			Answerer:           a.pipeline,
			Corpus:             a.corpus,
			Ping:               a.ping,
			Logger:             logger,
		}
		if a.store != nil {
			apiCfg.History = a.store
		}
		if cfg.Metrics.Enabled {
			apiCfg.Metrics = a.metrics
		}
		api := channel.NewAPI(apiCfg)
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := api.Start(ctx); err != nil {
				errCh <- fmt.Errorf("http api: %w", err)
			}
		}()
	}

	if cfg.Telegram.Enabled {
		tg := channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Telegram.Token,
			AllowFrom: cfg.Telegram.AllowFrom,
			Answerer:  a.pipeline,
			Corpus:    a.corpus,
			Logger:    logger,
		})
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tg.Start(ctx); err != nil {
				errCh <- fmt.Errorf("telegram: %w", err)
			}
		}()
		logger.Info("telegram channel enabled")
	}

	if started == 0 {
		return errors.New("no channel enabled: enable api or telegram in the config")
	}
	logger.Info("auroraqa started. Press Ctrl+C to stop.", "version", version)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("channel failed, shutting down", "err", runErr)
		stop()
	}
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	done := make(chan struct{})
	go func() {
		defer close(done)
		if syncer != nil {
			if err := syncer.Stop(); err != nil {
				logger.Warn("stop refresh", "err", err)
			}
		}
		wg.Wait()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out, forcing exit")
		if runErr == nil {
			runErr = errors.New("shutdown timed out")
		}
	}
	return runErr
}
