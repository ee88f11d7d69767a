package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todo-assistant/internal/assistant"
	"todo-assistant/internal/bot"
	"todo-assistant/internal/config"
	"todo-assistant/internal/llm"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
	"todo-assistant/internal/web"
)

const (
	reminderJobTimeout = 30 * time.Second
	shutdownTimeout    = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot and the reminder scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.ListenAddr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides LISTEN_ADDR")
}

func runServe(ctx context.Context, cfg config.Config) error {
	db, err := repository.NewDB(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	accountRepo := repository.NewAccountRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	conversationRepo := repository.NewConversationRepository(db)

	authSvc := service.NewAuthService(accountRepo, service.AuthConfig{
		SecretKey: cfg.Auth.SecretKey,
		TokenTTL:  cfg.Auth.TokenTTL(),
	})
	taskSvc := service.NewTaskService(taskRepo, service.NewRecurrenceEngine(taskRepo))
	conversationSvc := service.NewConversationService(conversationRepo)
	reminderSvc := service.NewReminderService(taskRepo)

	var provider llm.Provider
	if cfg.Completion.Enabled() {
		provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:      cfg.Completion.APIKey,
			BaseURL:     cfg.Completion.BaseURL,
			Model:       cfg.Completion.Model,
			Temperature: float32(cfg.Completion.Temperature),
			MaxTokens:   cfg.Completion.MaxTokens,
		})
	} else {
		log.Println("[warn] GROQ_API_KEY is not set, chat is disabled")
	}
	chat := assistant.NewOrchestrator(conversationSvc, assistant.NewDispatcher(taskSvc), provider)

	errCh := make(chan error, 2)

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           web.NewServer(authSvc, taskSvc, conversationSvc, chat, cfg.Server.CORSOrigins).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Telegram.Token != "" {
		telegramBot, err := bot.New(cfg.Telegram.Token, accountRepo, authSvc, taskSvc, reminderSvc, chat)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}

		scheduler := service.NewSchedulerService(time.Local, reminderJobTimeout)
		if interval := cfg.Telegram.ReminderInterval(); interval > 0 {
			if _, err := scheduler.ScheduleInterval(interval, "reminders", telegramBot.SendReminders); err != nil {
				return fmt.Errorf("schedule reminders: %w", err)
			}
		}
		if cfg.Telegram.ReminderTime != "" {
			if _, err := scheduler.ScheduleDaily(cfg.Telegram.ReminderTime, "daily-reminders", telegramBot.SendReminders); err != nil {
				return fmt.Errorf("schedule daily reminders: %w", err)
			}
		}
		if scheduler.Entries() > 0 {
			scheduler.Start()
			defer scheduler.Stop()
		}

		go func() {
			log.Println("[info] telegram bot started")
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("bot: %w", err)
			}
		}()
	} else {
		log.Println("[info] TELEGRAM_TOKEN is not set, bot is disabled")
	}

	go func() {
		log.Printf("[info] http listening on %s", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[warn] http shutdown: %v", err)
	}
	log.Println("[info] shutdown complete")
	return runErr
}
