package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kovalyov-valentin/newspulse/internal/metrics"
	"github.com/kovalyov-valentin/newspulse/internal/model"
	"github.com/kovalyov-valentin/newspulse/internal/source"
)

// Запуск уже идет: по таймеру или по ручному триггеру
var ErrAlreadyRunning = errors.New("fetch is already running")

// Хранилище статей. Транзакция живет в контексте,
// поэтому ExistsByHash и Store внутри fn работают в ней же
type ArticleStorage interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	// При совпадении content_hash возвращает model.ErrDuplicateArticle
	Store(ctx context.Context, article model.Article) error
}

type SourceProvider interface {
	EnabledSources(ctx context.Context) ([]model.Source, error)
	MarkScraped(ctx context.Context, id int64, at time.Time) error
}

// Журнал обходов источников
type RunRecorder interface {
	SaveRun(ctx context.Context, run model.SourceRun) error
}

type EventPublisher interface {
	FetchCompleted(ctx context.Context, summary model.FetchSummary) error
}

// Интерфейс источника. Id и имя берем из model.Source, от клиента нужна только лента
type Source interface {
	Fetch(ctx context.Context) (source.Result, error)
}

// Из модели источника делает клиент, который умеет его обойти
type SourceFactory func(m model.Source) Source

// Структура сборщика
type Fetcher struct {
	// Хранилище статей
	articles ArticleStorage
	// Хранилище источников
	sources SourceProvider
	runs    RunRecorder
	events  EventPublisher

	newSource SourceFactory

	// Как часто нам надо обходить источники
	fetchInterval time.Duration
	// Сколько источников обходим одновременно
	concurrency int

	running sync.Mutex
	now     func() time.Time
	logger  *slog.Logger
}

type Options struct {
	Interval    time.Duration
	Concurrency int
}

// Все зависимости передаем в конструктор и прячем в неэкспортируемые поля,
// чтобы их нельзя было поменять извне
func NewFetcher(
	articles ArticleStorage,
	sources SourceProvider,
	runs RunRecorder,
	events EventPublisher,
	newSource SourceFactory,
	opts Options,
	logger *slog.Logger,
) *Fetcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if events == nil {
		events = noopPublisher{}
	}

	return &Fetcher{
		articles:      articles,
		sources:       sources,
		runs:          runs,
		events:        events,
		newSource:     newSource,
		fetchInterval: opts.Interval,
		concurrency:   opts.Concurrency,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger.With("component", "fetcher"),
	}
}

// Start запускает сборщик как самостоятельный воркер.
// Первый обход сразу, дальше по fetchInterval, пока не отменят контекст.
func (f *Fetcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(f.fetchInterval)
	defer ticker.Stop()

	f.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.runOnce(ctx)
		}
	}
}

func (f *Fetcher) runOnce(ctx context.Context) {
	if _, err := f.Fetch(ctx); err != nil && ctx.Err() == nil {
		f.logger.Error("fetch run failed", "error", err)
	}
}

// Fetch обходит все включенные источники, не больше concurrency одновременно.
// Ошибка одного источника попадает в сводку и не мешает остальным.
// Ошибкой всего запуска считается только недоступное хранилище.
func (f *Fetcher) Fetch(ctx context.Context) (model.FetchSummary, error) {
	if !f.running.TryLock() {
		return model.FetchSummary{}, ErrAlreadyRunning
	}
	defer f.running.Unlock()

	summary := model.FetchSummary{StartedAt: f.now(), Errors: []string{}}

	sources, err := f.sources.EnabledSources(ctx)
	if err != nil {
		return summary, fmt.Errorf("load enabled sources: %w", err)
	}

	f.logger.Info("fetch started", "sources", len(sources), "concurrency", f.concurrency)
	metrics.FetchRunsTotal.Inc()

	var mu sync.Mutex

	// Первая фатальная ошибка отменяет gctx для остальных
	g, gctx := errgroup.WithContext(ctx)
	// Ограничение на число одновременных запросов к удаленным хостам
	g.SetLimit(f.concurrency)

	for _, src := range sources {
		g.Go(func() error {
			// Хранилище уже отвалилось, новые источники не начинаем
			if gctx.Err() != nil {
				return nil
			}

			run, err := f.processSource(gctx, src)

			mu.Lock()
			summary.Add(run)
			mu.Unlock()

			return err
		})
	}

	err = g.Wait()
	summary.CompletedAt = f.now()
	metrics.FetchRunDuration.Observe(summary.CompletedAt.Sub(summary.StartedAt).Seconds())

	if err != nil {
		return summary, err
	}

	f.logger.Info("fetch completed",
		"sources", summary.TotalSources,
		"successful", summary.SuccessfulSources,
		"failed", summary.FailedSources,
		"skipped", summary.SkippedSources,
		"new", summary.TotalNew,
		"duplicates", summary.TotalDuplicates,
	)

	if err := f.events.FetchCompleted(ctx, summary); err != nil {
		f.logger.Warn("failed to publish fetch summary", "error", err)
	}

	return summary, nil
}

// processSource обходит один источник и сохраняет новые статьи в своей транзакции.
// Возвращает ошибку только если хранилище недоступно.
func (f *Fetcher) processSource(ctx context.Context, src model.Source) (model.SourceRun, error) {
	logger := f.logger.With("source", src.Name, "source_id", src.ID)

	run := model.SourceRun{
		SourceID:   src.ID,
		SourceName: src.Name,
		StartedAt:  f.now(),
		Status:     model.RunRunning,
	}

	metrics.FetchesInFlight.Inc()
	result, err := f.newSource(src).Fetch(ctx)
	metrics.FetchesInFlight.Dec()

	run.Found = len(result.Articles)
	run.Warnings = result.Warnings

	var fatal error

	switch {
	case errors.Is(err, source.ErrNoFeedURL):
		// Не ошибка: источник просто пропускаем
		logger.Warn("source has no feed url, skipped")
		run.Status = model.RunSkipped

	case err != nil:
		logger.Error("failed to fetch source", "error", err)
		run.Fail(err)

	default:
		for _, w := range result.Warnings {
			logger.Warn("feed warning", "warning", w)
		}

		if err := f.persist(ctx, &run, result.Articles); err != nil {
			logger.Error("failed to store articles", "error", err)
			run.Fail(err)

			if errors.Is(err, model.ErrStorageUnavailable) {
				fatal = err
			}
		} else {
			run.Status = model.RunCompleted
		}
	}

	run.CompletedAt = f.now()
	metrics.SourceRunsTotal.WithLabelValues(src.Name, string(run.Status)).Inc()

	if fatal != nil {
		return run, fmt.Errorf("source %s: %w", src.Name, fatal)
	}

	if err := f.finish(ctx, run); err != nil {
		return run, err
	}

	logger.Info("source processed",
		"status", run.Status,
		"found", run.Found,
		"new", run.New,
		"duplicates", run.Duplicate,
	)

	return run, nil
}

// persist сохраняет кандидатов: уже известные по content_hash пропускаем,
// конфликт уникальности при вставке считаем таким же дубликатом
func (f *Fetcher) persist(ctx context.Context, run *model.SourceRun, articles []model.Article) error {
	var added, duplicates int

	err := f.articles.InTransaction(ctx, func(ctx context.Context) error {
		added, duplicates = 0, 0

		for _, article := range articles {
			exists, err := f.articles.ExistsByHash(ctx, article.ContentHash)
			if err != nil {
				return err
			}
			if exists {
				duplicates++
				continue
			}

			if err := f.articles.Store(ctx, article); err != nil {
				if errors.Is(err, model.ErrDuplicateArticle) {
					duplicates++
					continue
				}
				return err
			}
			added++
		}

		return nil
	})
	if err != nil {
		return err
	}

	run.New = added
	run.Duplicate = duplicates
	metrics.ArticlesStoredTotal.WithLabelValues("new").Add(float64(added))
	metrics.ArticlesStoredTotal.WithLabelValues("duplicate").Add(float64(duplicates))

	return nil
}

// finish отмечает время обхода и пишет запись о нем.
// Пропущенный источник не обходился, поэтому last_scraped у него не трогаем.
func (f *Fetcher) finish(ctx context.Context, run model.SourceRun) error {
	if run.Status != model.RunSkipped {
		if err := f.sources.MarkScraped(ctx, run.SourceID, run.CompletedAt); err != nil {
			if errors.Is(err, model.ErrStorageUnavailable) {
				return fmt.Errorf("mark source %d scraped: %w", run.SourceID, err)
			}
			f.logger.Error("failed to mark source scraped", "source_id", run.SourceID, "error", err)
		}
	}

	if err := f.runs.SaveRun(ctx, run); err != nil {
		if errors.Is(err, model.ErrStorageUnavailable) {
			return fmt.Errorf("save run of source %d: %w", run.SourceID, err)
		}
		f.logger.Error("failed to save source run", "source_id", run.SourceID, "error", err)
	}

	return nil
}

type noopPublisher struct{}

func (noopPublisher) FetchCompleted(context.Context, model.FetchSummary) error { return nil }
