package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"voxdesk/internal/backend"
	"voxdesk/internal/bus"
	"voxdesk/internal/channel"
	"voxdesk/internal/config"
	"voxdesk/internal/domain"
	"voxdesk/internal/engine"
	"voxdesk/internal/history"
	"voxdesk/internal/metrics"
	"voxdesk/internal/provider"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "voxdesk",
		Short: "voxdesk: voice and text front end for a conversational assistant",
		Long:  "voxdesk drives a remote assistant service from the terminal, Telegram, and a transcription push endpoint, with spoken input and replies.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.voxdesk/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(friendsCmd())
	root.AddCommand(versionCmd())

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

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the interactive session",
		RunE:  run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	setLogLevel(cfg.General.LogLevel)

	lexicon := config.DefaultLexicon()
	if cfg.General.LexiconPath != "" {
		lexicon, err = config.LoadLexicon(cfg.General.LexiconPath)
		if err != nil {
			return fmt.Errorf("load lexicon: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdBus := bus.New(100, logger)
	defer cmdBus.Close()
	events := bus.NewEventBus(logger)
	collector := metrics.NewCollector()

	speech, err := provider.NewSpeechHost(cfg.Speech, logger)
	if err != nil {
		return err
	}

	client := backend.NewClient(backend.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Logger:  logger,
	})

	session := engine.NewSession(engine.Config{
		Client:        client,
		Flows:         client,
		Recognizer:    speech.Recognizer,
		Speaker:       speech.Speaker,
		Events:        events,
		Metrics:       collector,
		Logger:        logger,
		Lexicon:       lexicon,
		MaxReprompts:  cfg.Engine.MaxReprompts,
		SpeakMaxChars: cfg.Engine.SpeakMaxChars,
	})
	defer session.Close()

	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()
		recorder := history.NewRecorder(store, events, logger)
		defer recorder.Close()
	}

	go session.Run(ctx, cmdBus)

	if cfg.Channels.WebSocket.Enabled {
		ws := channel.NewWebSocketChannel(channel.WSConfig{
			Host:   cfg.Channels.WebSocket.Host,
			Port:   cfg.Channels.WebSocket.Port,
			Path:   cfg.Channels.WebSocket.Path,
			Logger: logger,
		})
		go func() {
			if err := ws.Start(ctx, cmdBus); err != nil {
				logger.Error("websocket channel stopped", "err", err)
			}
		}()
	}

	if cfg.Channels.Telegram.Enabled {
		tg := channel.NewTelegram(channel.TelegramConfig{
			Token:       cfg.Channels.Telegram.Token,
			AllowFrom:   cfg.Channels.Telegram.AllowFrom,
			Transcriber: speech.Transcriber,
			Logger:      logger,
		})
		go func() {
			if err := tg.Start(ctx, cmdBus); err != nil {
				logger.Error("telegram channel stopped", "err", err)
			}
		}()
	}

	if !cfg.Channels.CLI.Enabled {
		logger.Info("cli disabled, running headless")
		<-ctx.Done()
		return nil
	}

	cli := channel.NewCLI(channel.CLIConfig{Engine: session, Logger: logger})
	return cli.Start(ctx, cmdBus)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the backend service and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			logger.Info("speech", "mode", cfg.Speech.Mode, "tts", cfg.Speech.TTS.Provider)

			client := backend.NewClient(backend.ClientConfig{
				BaseURL: cfg.Backend.BaseURL,
				APIKey:  cfg.Backend.APIKey,
				Logger:  logger,
			})
			result, err := client.Submit(cmd.Context(), "help", nil)
			if err != nil {
				logger.Info("backend", "url", cfg.Backend.BaseURL, "reachable", false, "err", err)
				return nil
			}
			logger.Info("backend", "url", cfg.Backend.BaseURL, "reachable", true, "action", result.Action)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the recorded command history",
	}

	openStore := func() (*history.SQLiteStore, error) {
		cfg, err := config.Load(resolveConfigPath())
		if err != nil {
			cfg = config.Defaults()
		}
		return history.NewSQLiteStore(cfg.History.DBPath, logger)
	}

	printEntries := func(entries []history.Entry) {
		for _, e := range entries {
			mark := "ok"
			if !e.Success {
				mark = "fail"
			}
			fmt.Printf("%s  [%s] %s\n  -> %s\n", e.CreatedAt.Format("2006-01-02 15:04"), mark, e.Command, firstLine(e.Response, e.ErrorMsg))
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "recent [n]",
		Short: "Show the newest entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := 20
			if len(args) == 1 {
				limit, _ = strconv.Atoi(args[0])
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search [query]",
		Short: "Search commands and responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.Search(cmd.Context(), args[0], 50)
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("total: %d  succeeded: %d\n", st.Total, st.Succeeded)
			for action, count := range st.TopActions {
				fmt.Printf("  %-20s %d\n", action, count)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("history cleared", "deleted", n)
			return nil
		},
	})

	return cmd
}

func friendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Manage the recipient directory on the assistant service",
	}

	newClient := func() *backend.Client {
		cfg, err := config.Load(resolveConfigPath())
		if err != nil {
			cfg = config.Defaults()
		}
		return backend.NewClient(backend.ClientConfig{
			BaseURL: cfg.Backend.BaseURL,
			APIKey:  cfg.Backend.APIKey,
			Logger:  logger,
		})
	}

	printFriends := func(friends []domain.Friend) {
		if len(friends) == 0 {
			fmt.Println("(no entries)")
			return
		}
		for _, f := range friends {
			fmt.Printf("%-24s %s\n", f.Name, f.Email)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List directory entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			friends, err := newClient().ListFriends(cmd.Context())
			if err != nil {
				return err
			}
			printFriends(friends)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [name] [email]",
		Short: "Add a directory entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := newClient().AddFriend(cmd.Context(), domain.Friend{Name: args[0], Email: args[1]})
			if err != nil {
				return err
			}
			if !reply.Success {
				return fmt.Errorf("add friend: %s", reply.Message)
			}
			logger.Info("friend added", "name", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a directory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := newClient().DeleteFriend(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !reply.Success {
				return fmt.Errorf("remove friend: %s", reply.Message)
			}
			logger.Info("friend removed", "id", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search [query]",
		Short: "Search the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			friends, err := newClient().SearchFriends(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printFriends(friends)
			return nil
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("voxdesk", version)
		},
	}
}

func setLogLevel(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func firstLine(s, fallback string) string {
	if s == "" {
		s = fallback
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
