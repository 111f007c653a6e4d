package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kovalyov-valentin/newspulse/internal/classifier"
	"github.com/kovalyov-valentin/newspulse/internal/metrics"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

type ArticleStorage interface {
	List(ctx context.Context, filter model.ArticleFilter) ([]model.Article, error)
	Get(ctx context.Context, id string) (model.Article, error)
	// Пишет только поля классификации, текст статьи параллельно меняет extractor
	UpdateClassification(ctx context.Context, article model.Article) error
}

// Processor пачками забирает неклассифицированные статьи и проставляет им категории
type Processor struct {
	articles   ArticleStorage
	classifier classifier.Classifier

	interval  time.Duration
	batchSize int

	now    func() time.Time
	logger *slog.Logger
}

func New(articles ArticleStorage, c classifier.Classifier, interval time.Duration, batchSize int, logger *slog.Logger) *Processor {
	if batchSize < 1 {
		batchSize = 50
	}

	return &Processor{
		articles:   articles,
		classifier: c,
		interval:   interval,
		batchSize:  batchSize,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With("component", "processor"),
	}
}

// Start классифицирует по пачке каждые interval, пока не отменят контекст
func (p *Processor) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessBatch(ctx, p.batchSize); err != nil && ctx.Err() == nil {
			p.logger.Error("classification batch failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessBatch берет до limit статей без отметки о классификации в порядке добавления.
// Ошибка одной статьи не останавливает пачку: статья остается неклассифицированной
// и попадет в следующий запуск.
func (p *Processor) ProcessBatch(ctx context.Context, limit int) (model.BatchStats, error) {
	if limit < 1 {
		limit = p.batchSize
	}

	articles, err := p.articles.List(ctx, model.ArticleFilter{Unclassified: true, Limit: limit})
	if err != nil {
		return model.BatchStats{}, fmt.Errorf("list unclassified articles: %w", err)
	}

	var stats model.BatchStats

	for _, article := range articles {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		stats.Total++

		if _, err := p.classify(ctx, article); err != nil {
			p.logger.Error("failed to classify article", "article_id", article.ID, "error", err)
			metrics.ClassifiedTotal.WithLabelValues(metrics.StatusError).Inc()
			stats.Failed++
			continue
		}

		metrics.ClassifiedTotal.WithLabelValues(metrics.StatusSuccess).Inc()
		stats.Succeeded++
	}

	if stats.Total > 0 {
		p.logger.Info("classification batch done",
			"total", stats.Total,
			"succeeded", stats.Succeeded,
			"failed", stats.Failed,
		)
	}

	return stats, nil
}

// ClassifyArticle переклассифицирует одну статью, даже если она уже классифицирована
func (p *Processor) ClassifyArticle(ctx context.Context, id string) (model.Article, error) {
	article, err := p.articles.Get(ctx, id)
	if err != nil {
		return model.Article{}, err
	}

	return p.classify(ctx, article)
}

func (p *Processor) classify(ctx context.Context, article model.Article) (model.Article, error) {
	result, err := p.safeClassify(ctx, article)
	if err != nil {
		return article, err
	}

	article.Apply(result, p.now())

	if err := p.articles.UpdateClassification(ctx, article); err != nil {
		return article, fmt.Errorf("save classification: %w", err)
	}

	return article, nil
}

// Паника внутри классификатора не должна уронить всю пачку
func (p *Processor) safeClassify(ctx context.Context, article model.Article) (result model.Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()

	return p.classifier.ClassifyArticle(ctx, article)
}
