package main

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kovalyov-valentin/newspulse/internal/api"
	"github.com/kovalyov-valentin/newspulse/internal/bot"
	"github.com/kovalyov-valentin/newspulse/internal/bot/middleware"
	"github.com/kovalyov-valentin/newspulse/internal/botkit"
	"github.com/kovalyov-valentin/newspulse/internal/notifier"
	"github.com/kovalyov-valentin/newspulse/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run background workers, REST API and the Telegram bot",
	Long: `Applies the schema, seeds sources from the sources file and starts:

  - the fetcher, which walks enabled sources every fetch_interval
  - the classifier worker, which processes pending articles every classify_interval
  - the content extractor, when extract_interval is set
  - the REST API on http_addr
  - the Telegram bot and channel notifier, when telegram_bot_token is set`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close resources", "error", err)
		}
	}()

	if err := storage.Migrate(ctx, a.db); err != nil {
		return err
	}

	// Без файла источников сервис все равно работает, источники можно добавить через api
	if added, err := a.seed(ctx, cfg.SourcesFile); err != nil {
		logger.Warn("sources were not seeded", "file", cfg.SourcesFile, "error", err)
	} else {
		logger.Info("sources seeded", "file", cfg.SourcesFile, "added", added)
	}

	analyticsCache, err := a.newCache(ctx, cfg)
	if err != nil {
		return err
	}

	server := api.New(api.Deps{
		Articles:  a.articles,
		Sources:   a.sources,
		Fetcher:   a.fetcher,
		Processor: a.processor,
		Extractor: a.extractor,
		Cache:     analyticsCache,
		CacheTTL:  cfg.CacheTTL,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)

	// Воркер fetcher
	g.Go(worker("fetcher", func() error { return a.fetcher.Start(ctx) }))
	// Воркер классификатора
	g.Go(worker("processor", func() error { return a.processor.Start(ctx) }))

	if cfg.ExtractInterval > 0 {
		g.Go(worker("extractor", func() error {
			return a.extractor.Start(ctx, cfg.ExtractInterval, cfg.ExtractBatchSize)
		}))
	}

	if cfg.TelegramBotToken != "" {
		if err := startTelegram(ctx, g, a); err != nil {
			return err
		}
	} else {
		logger.Info("telegram token is not set, bot and notifier are disabled")
	}

	g.Go(worker("http server", func() error { return server.Run(ctx, cfg.HTTPAddr) }))

	return g.Wait()
}

// startTelegram поднимает бота с командами и, если задан канал, notifier
func startTelegram(ctx context.Context, g *errgroup.Group, a *app) error {
	// Создаем бота, используя токен из конфига
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	newsBot := botkit.New(botAPI, logger)
	newsBot.RegisterCmdView("listsources", bot.ViewCmdListSources(a.sources))
	newsBot.RegisterCmdView("stats", bot.ViewCmdStats(a.articles))

	if cfg.TelegramChannelID == 0 {
		logger.Warn("telegram channel is not set, admin commands and notifier are disabled")
		g.Go(worker("bot", func() error { return newsBot.Run(ctx) }))
		return nil
	}

	// Обернуть middleware все view где нужно дать доступ только админу
	newsBot.RegisterCmdView(
		"addsource",
		middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdAddSource(a.sources)),
	)
	newsBot.RegisterCmdView(
		"fetch",
		middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdFetch(a.fetcher)),
	)

	n := notifier.New(
		a.articles,
		a.summarizer,
		botAPI,
		cfg.TelegramChannelID,
		notifier.Options{
			SendInterval: cfg.NotificationInterval,
			LookupWindow: cfg.NotifyLookupWindow,
			MinRelevance: cfg.NotifyMinRelevance,
			BatchSize:    cfg.NotifyBatchSize,
		},
		logger,
	)

	g.Go(worker("bot", func() error { return newsBot.Run(ctx) }))
	// Воркер notifier
	g.Go(worker("notifier", func() error { return n.Start(ctx) }))

	return nil
}

// worker превращает остановку по отмене контекста в штатное завершение
func worker(name string, run func() error) func() error {
	return func() error {
		if err := run(); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", name, err)
		}

		logger.Info(name + " stopped")
		return nil
	}
}
