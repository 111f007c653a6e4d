package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/sashabaranov/go-openai"

	"github.com/kovalyov-valentin/newspulse/internal/cache"
	"github.com/kovalyov-valentin/newspulse/internal/classifier"
	"github.com/kovalyov-valentin/newspulse/internal/config"
	"github.com/kovalyov-valentin/newspulse/internal/events"
	"github.com/kovalyov-valentin/newspulse/internal/extractor"
	"github.com/kovalyov-valentin/newspulse/internal/fetcher"
	"github.com/kovalyov-valentin/newspulse/internal/model"
	"github.com/kovalyov-valentin/newspulse/internal/processor"
	"github.com/kovalyov-valentin/newspulse/internal/source"
	"github.com/kovalyov-valentin/newspulse/internal/storage"
	"github.com/kovalyov-valentin/newspulse/internal/summary"
)

// app собирает зависимости, общие для всех команд
type app struct {
	db       *sqlx.DB
	articles *storage.ArticlePostgresStorage
	sources  *storage.SourcePostgresStorage
	runs     *storage.RunPostgresStorage

	fetcher    *fetcher.Fetcher
	processor  *processor.Processor
	extractor  *extractor.Extractor
	summarizer summary.Summarizer

	// Закрываем в обратном порядке
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	db, err := storage.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	a := &app{
		db:       db,
		articles: storage.NewArticleStorage(db),
		sources:  storage.NewSourcePostgresStorage(db),
		runs:     storage.NewRunStorage(db),
		closers:  []func() error{db.Close},
	}

	// Без ключа openai не используем вовсе
	var openaiClient *openai.Client
	if cfg.OpenAIKey != "" {
		openaiClient = openai.NewClient(cfg.OpenAIKey)
	}

	publisher, err := a.newPublisher(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	client := source.NewClient(source.Options{
		Timeout:        cfg.FetchTimeout,
		MaxRetries:     cfg.FetchMaxRetries,
		BackoffBase:    cfg.FetchBackoffBase,
		UserAgent:      cfg.UserAgent,
		FilterKeywords: cfg.FilterKeywords,
	}, logger)

	a.fetcher = fetcher.NewFetcher(
		a.articles,
		a.sources,
		a.runs,
		publisher,
		func(m model.Source) fetcher.Source { return client.Source(m) },
		fetcher.Options{
			Interval:    cfg.FetchInterval,
			Concurrency: cfg.FetchConcurrency,
		},
		logger,
	)

	a.processor = processor.New(
		a.articles,
		newClassifier(openaiClient, cfg.OpenAIModel, logger),
		cfg.ClassifyInterval,
		cfg.ClassifyBatchSize,
		logger,
	)

	a.summarizer = summary.NewOpenAISummarizer(openaiClient, cfg.OpenAIModel, cfg.OpenAIPrompt, logger)

	// Выжимку при извлечении берем из начала текста, openai оставляем для канала
	a.extractor = extractor.New(
		a.articles,
		summary.NewLeadSummarizer(summary.DefaultWords),
		extractor.Options{
			Timeout:   cfg.FetchTimeout,
			UserAgent: cfg.UserAgent,
		},
		logger,
	)

	return a, nil
}

func (a *app) newPublisher(cfg config.Config, logger *slog.Logger) (fetcher.EventPublisher, error) {
	if cfg.NATSURL == "" {
		return events.Noop{}, nil
	}

	conn, err := events.Connect(cfg.NATSURL, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		return conn.Drain()
	})

	return events.NewNATSPublisher(conn, logger), nil
}

// newCache отдает redis, если он настроен, иначе кэш в памяти процесса
func (a *app) newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL), nil
	}

	client, err := cache.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	return cache.NewRedisCache(client, "newspulse:"), nil
}

func newClassifier(client *openai.Client, model string, logger *slog.Logger) classifier.Classifier {
	keywords := classifier.NewKeywordClassifier()
	if client == nil {
		return keywords
	}

	return classifier.NewOpenAIClassifier(client, model, keywords, logger)
}

// seed добавляет источники из yaml файла, существующие не трогает
func (a *app) seed(ctx context.Context, path string) (int, error) {
	sources, err := config.LoadSeedSources(path)
	if err != nil {
		return 0, err
	}

	added, err := a.sources.Seed(ctx, sources)
	if err != nil {
		return 0, fmt.Errorf("seed sources: %w", err)
	}

	return added, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
