package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sivanlab/mazkir/internal/assistant"
	"github.com/sivanlab/mazkir/internal/config"
	"github.com/sivanlab/mazkir/internal/mcp"
	"github.com/sivanlab/mazkir/internal/scheduler"
	"github.com/sivanlab/mazkir/internal/store"
	"github.com/sivanlab/mazkir/internal/telegram"
	"github.com/sivanlab/mazkir/pkg/types"
)

var version = "0.1.0"

var (
	configPath string
	logLevel   string
	logFormat  string
)

// cliUserID is the store user for the interactive terminal session.
const cliUserID = "cli_user"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mazkir",
	Short: "Personal task assistant with reminders",
	Long: `mazkir is a personal task assistant. It keeps per-user task lists in a
JSON file, attaches reminders (one-shot, daily, or repeating) to tasks,
and delivers them over Telegram. Conversations go through an
OpenAI-compatible chat model that manages tasks via tool calls, and the
same task tools are available to MCP clients over stdio.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Local .env files are a convenient place for tokens in dev.
		godotenv.Load()
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mazkir %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant on the terminal",
	Run: func(cmd *cobra.Command, args []string) {
		runChat()
	},
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot with the reminder scheduler",
	Run: func(cmd *cobra.Command, args []string) {
		runTelegram()
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run only the reminder scheduler",
	Long:  `Run the reminder loop without the chat transports. Reminders for Telegram users are delivered; other users are evaluated but not notified.`,
	Run: func(cmd *cobra.Command, args []string) {
		runRemind()
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single reminder scan and print due notifications",
	Run: func(cmd *cobra.Command, args []string) {
		runScan()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if path == "" {
			path = config.DefaultConfigFile
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "config file %s already exists\n", path)
			os.Exit(1)
		}
		if err := config.Save(path, config.DefaultConfig()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, warnings, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, w := range warnings {
			fmt.Printf("warning: %s\n", w)
		}
		errs := config.Validate(cfg)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "invalid: %v\n", e)
		}
		if len(errs) > 0 {
			os.Exit(1)
		}
		fmt.Println("Config OK")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default mazkir.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(telegramCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func loadConfig() *config.Config {
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Debug(w)
	}
	return cfg
}

func newAssistant(cfg *config.Config, st *store.Store) *assistant.Assistant {
	return assistant.New(assistant.Config{
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Store:   st,
	})
}

func runChat() {
	cfg := loadConfig()
	st := store.New(cfg.Store.Path)
	a := newAssistant(cfg, st)
	ctx := context.Background()

	fmt.Println("Mazkir task assistant. Type 'exit' or 'quit' to leave.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, err := a.Process(ctx, cliUserID, input)
		if err != nil {
			slog.Error("assistant failed", "error", err)
			fmt.Println("Assistant: Sorry, something went wrong.")
			continue
		}
		fmt.Printf("Assistant: %s\n", reply)
	}
	fmt.Println("Goodbye!")
}

func runTelegram() {
	cfg := loadConfig()
	if cfg.Telegram.Token == "" {
		fmt.Fprintln(os.Stderr, "telegram token missing: set telegram.token or TELEGRAM_BOT_TOKEN")
		os.Exit(1)
	}

	st := store.New(cfg.Store.Path)
	a := newAssistant(cfg, st)
	bot := telegram.NewBot(cfg.Telegram.Token, a, cfg.Telegram.PollTimeout)

	sched := scheduler.New(scheduler.Config{
		Store:       st,
		Sender:      bot,
		Interval:    cfg.Scheduler.Interval,
		StopTimeout: cfg.Scheduler.StopTimeout,
		WatchStore:  cfg.Scheduler.WatchStore,
	})
	sched.Start()
	defer sched.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	slog.Info("telegram bot starting")
	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("telegram bot stopped", "error", err)
		os.Exit(1)
	}
}

func runRemind() {
	cfg := loadConfig()
	st := store.New(cfg.Store.Path)

	var sender scheduler.Sender
	if cfg.Telegram.Token != "" {
		sender = telegram.NewBot(cfg.Telegram.Token, nil, cfg.Telegram.PollTimeout)
	} else {
		slog.Warn("no telegram token, reminders will be evaluated but not delivered")
	}

	sched := scheduler.New(scheduler.Config{
		Store:       st,
		Sender:      sender,
		Interval:    cfg.Scheduler.Interval,
		StopTimeout: cfg.Scheduler.StopTimeout,
		WatchStore:  cfg.Scheduler.WatchStore,
	})
	sched.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("received shutdown signal", "signal", sig)
	sched.Stop()
}

func runScan() {
	cfg := loadConfig()
	st := store.New(cfg.Store.Path)

	sched := scheduler.New(scheduler.Config{Store: st, Clock: types.RealClock{}})
	notifications := sched.RunCycle()
	if len(notifications) == 0 {
		fmt.Println("No reminders due.")
		return
	}
	for _, n := range notifications {
		fmt.Printf("%s: %s\n", n.UserID, n.Message)
	}
}

func runServe() {
	cfg := loadConfig()
	st := store.New(cfg.Store.Path)

	srv := mcp.New(mcp.Config{Store: st})
	slog.Info("MCP server starting on stdio")
	if err := srv.ServeStdio(); err != nil {
		slog.Error("MCP server stopped", "error", err)
		os.Exit(1)
	}
}
