package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/kovalyov-valentin/newspulse/internal/model"
	"github.com/kovalyov-valentin/newspulse/internal/summary"
)

var (
	ErrNoText = errors.New("page has no readable text")

	redundantNewLines = regexp.MustCompile(`\n{3,}`)
)

// Страницы больше этого не читаем
const maxPageSize = 5 << 20

type ArticleStorage interface {
	List(ctx context.Context, filter model.ArticleFilter) ([]model.Article, error)
	Get(ctx context.Context, id string) (model.Article, error)
	// Пишет только текст, выжимку и отметку об извлечении
	UpdateContent(ctx context.Context, article model.Article) error
	// Учитывает неудачную попытку, такие статьи уходят в конец очереди
	MarkExtractionFailed(ctx context.Context, id string) error
}

// Extraction - то, что удалось достать со страницы статьи
type Extraction struct {
	Text    string   `json:"content"`
	Summary string   `json:"summary"`
	Authors []string `json:"authors"`
	Title   string   `json:"title"`
	Success bool     `json:"success"`
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// Extractor скачивает страницу статьи и вытаскивает из нее основной текст
type Extractor struct {
	http       *http.Client
	userAgent  string
	articles   ArticleStorage
	summarizer summary.Summarizer
	logger     *slog.Logger
}

func New(articles ArticleStorage, summarizer summary.Summarizer, opts Options, logger *slog.Logger) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if summarizer == nil {
		summarizer = summary.NewLeadSummarizer(summary.DefaultWords)
	}

	return &Extractor{
		http:       &http.Client{Timeout: opts.Timeout},
		userAgent:  opts.UserAgent,
		articles:   articles,
		summarizer: summarizer,
		logger:     logger.With("component", "extractor"),
	}
}

// Extract скачивает страницу по ссылке и достает из нее текст, авторов и выжимку
func (e *Extractor) Extract(ctx context.Context, link string) (Extraction, error) {
	pageURL, err := url.Parse(link)
	if err != nil || pageURL.Host == "" {
		return Extraction{}, fmt.Errorf("bad article url %q", link)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Extraction{}, err
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("get %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Extraction{}, fmt.Errorf("get %s: unexpected status %d", link, resp.StatusCode)
	}

	doc, err := readability.FromReader(io.LimitReader(resp.Body, maxPageSize), pageURL)
	if err != nil {
		return Extraction{}, fmt.Errorf("parse page %s: %w", link, err)
	}

	text := cleanText(doc.TextContent)
	if text == "" {
		return Extraction{}, ErrNoText
	}

	lead, err := e.summarizer.Summarize(ctx, text)
	if err != nil {
		return Extraction{}, fmt.Errorf("summarize %s: %w", link, err)
	}

	return Extraction{
		Text:    text,
		Summary: lead,
		Authors: authors(doc.Byline),
		Title:   strings.TrimSpace(doc.Title),
		Success: true,
	}, nil
}

// Backfill дописывает в статью полный текст, а выжимку только если ее не было.
// Статус обработки не трогаем: извлечение и классификация независимы.
func (e *Extractor) Backfill(ctx context.Context, article *model.Article) (Extraction, error) {
	result, err := e.Extract(ctx, article.Link)
	if err != nil {
		return result, err
	}

	article.Content = result.Text
	if strings.TrimSpace(article.Summary) == "" {
		article.Summary = result.Summary
	}
	article.ContentExtracted = true

	return result, nil
}

// ExtractArticle извлекает текст для одной статьи и сохраняет ее
func (e *Extractor) ExtractArticle(ctx context.Context, id string) (model.Article, Extraction, error) {
	article, err := e.articles.Get(ctx, id)
	if err != nil {
		return model.Article{}, Extraction{}, err
	}

	result, err := e.Backfill(ctx, &article)
	if err != nil {
		e.markFailed(ctx, article.ID)
		return article, result, err
	}

	if err := e.articles.UpdateContent(ctx, article); err != nil {
		return article, result, fmt.Errorf("save extracted content: %w", err)
	}

	return article, result, nil
}

// Start извлекает текст пачками по batchSize каждые interval, пока не отменят контекст
func (e *Extractor) Start(ctx context.Context, interval time.Duration, batchSize int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.BackfillBatch(ctx, batchSize); err != nil && ctx.Err() == nil {
				e.logger.Error("content backfill failed", "error", err)
			}
		}
	}
}

// BackfillBatch проходит по статьям без полного текста.
// Неудачная статья остается без текста и уходит в конец очереди, чтобы не загораживать новые.
func (e *Extractor) BackfillBatch(ctx context.Context, limit int) (model.BatchStats, error) {
	articles, err := e.articles.List(ctx, model.ArticleFilter{NeedsContent: true, Limit: limit})
	if err != nil {
		return model.BatchStats{}, fmt.Errorf("list articles without content: %w", err)
	}

	var stats model.BatchStats

	for _, article := range articles {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Total++

		if _, err := e.Backfill(ctx, &article); err != nil {
			stats.Failed++
			e.logger.Warn("content extraction failed", "article_id", article.ID, "link", article.Link, "error", err)
			e.markFailed(ctx, article.ID)
			continue
		}

		if err := e.articles.UpdateContent(ctx, article); err != nil {
			stats.Failed++
			e.logger.Error("failed to save extracted content", "article_id", article.ID, "error", err)
			continue
		}

		stats.Succeeded++
	}

	e.logger.Info("content backfill finished", "total", stats.Total, "succeeded", stats.Succeeded, "failed", stats.Failed)

	return stats, nil
}

// Попытку, прерванную отменой контекста, не считаем
func (e *Extractor) markFailed(ctx context.Context, id string) {
	if ctx.Err() != nil {
		return
	}
	if err := e.articles.MarkExtractionFailed(ctx, id); err != nil {
		e.logger.Error("failed to record extraction attempt", "article_id", id, "error", err)
	}
}

// Убираем лишние пустые строки, которые остаются от разметки
func cleanText(text string) string {
	return strings.TrimSpace(redundantNewLines.ReplaceAllString(text, "\n"))
}

func authors(byline string) []string {
	result := []string{}
	for _, name := range strings.Split(byline, ",") {
		if name = strings.TrimSpace(name); name != "" {
			result = append(result, name)
		}
	}
	return result
}
