package main

import (
	"GroupMeBot/internal/adapter/chat/twitch"
	gmadapter "GroupMeBot/internal/adapter/groupme"
	"GroupMeBot/internal/ai"
	"GroupMeBot/internal/app/relay"
	"GroupMeBot/internal/config"
	"GroupMeBot/internal/service/agent"
	"GroupMeBot/internal/service/events"
	"GroupMeBot/internal/service/events/groupme"
	"GroupMeBot/internal/service/history"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	logger, err := newLogger(cfg.DebugMode)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, sugar); err != nil {
		sugar.Errorw("Server failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, sugar *zap.SugaredLogger) error {
	client, err := ai.New(cfg)
	if err != nil {
		return err
	}

	// история живёт столько же, сколько процесс
	store := history.New(cfg.MaxHistory)
	bot := agent.New(store, client, agent.Options{
		BotName:   cfg.BotName,
		Model:     cfg.AIModel,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.CompletionTimeout,
	}, sugar)
	rl := relay.New(bot, sugar)
	notifier := gmadapter.NewNotifier(cfg.GroupMePostURL, cfg.GroupMeBotID, cfg.NotifyTimeout, sugar)

	// один вебхук может ждать модель и затем GroupMe; этим же бюджетом ограничена остановка
	budget := groupme.HandlerBudget(cfg.CompletionTimeout, cfg.NotifyTimeout)
	var srv events.EventServer = groupme.NewCallbackServer(groupme.Config{
		BindAddr:       cfg.BindAddr,
		BotName:        cfg.BotName,
		BotIDSet:       cfg.BotIDSet(),
		APIKeySet:      cfg.APIKeySet(),
		HandlerTimeout: budget,
	}, rl, notifier, store, sugar)

	// Graceful shutdown on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	sugar.Infow("GroupMe AI Bot starting",
		"bot_name", cfg.BotName,
		"bot_id_set", cfg.BotIDSet(),
		"api_key_set", cfg.APIKeySet(),
		"backend", cfg.AIBackend,
		"model", cfg.AIModel,
		"max_history", store.Max(),
		"callback", "POST http://"+srv.Addr()+groupme.CallbackPath,
	)

	twitchDone := make(chan struct{})
	go func() {
		defer close(twitchDone)
		err := twitch.Run(ctx, sugar, twitch.Config{
			Username: cfg.Twitch.Username,
			OAuth:    cfg.Twitch.OAuthToken,
			Channel:  cfg.Twitch.Channel,
		}, rl)
		if err != nil && !errors.Is(err, context.Canceled) {
			sugar.Warnw("Twitch bridge stopped", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("Shutting down...")

	shutdownCtx, cancel := context.WithTimeoutCause(context.Background(), budget+5*time.Second, errors.New("shutdown timeout"))
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		sugar.Warnw("graceful shutdown error", "error", err)
	}
	// twitch.Run возвращается, когда отправлены ответы на уже принятые сообщения
	select {
	case <-twitchDone:
	case <-shutdownCtx.Done():
		sugar.Warnw("Twitch bridge did not finish in time", "cause", context.Cause(shutdownCtx))
	}
	sugar.Infow("server stopped")
	return nil
}
