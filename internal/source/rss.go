package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/newspulse/internal/dedup"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

var (
	ErrNoFeedURL = errors.New("source has no feed url")

	errBadRequest = errors.New("bad feed request")
)

// Больше этого из ленты не читаем
const maxFeedSize = 10 << 20

// Настройки клиента, через который ходим за лентами
type Options struct {
	Timeout time.Duration
	// Сколько всего попыток делаем при временных ошибках
	MaxRetries int
	// Пауза перед второй попыткой, дальше удваивается: 2s, 4s, ...
	BackoffBase time.Duration
	UserAgent   string
	// Статьи с этими словами в заголовке или категориях пропускаем
	FilterKeywords []string
}

func DefaultOptions() Options {
	return Options{
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		BackoffBase: 2 * time.Second,
		UserAgent:   "NewsPulse/1.0 (News Intelligence Platform)",
	}
}

// HTTP статус, отличный от 2xx
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d %s", e.Code, http.StatusText(e.Code))
}

// 408, 429 и 5xx имеет смысл повторить, остальное - постоянная ошибка источника
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests ||
		e.Code >= http.StatusInternalServerError
}

// Client общий для всех источников: http клиент, парсер и настройки
type Client struct {
	http   *http.Client
	parser *Parser
	opts   Options
	logger *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	return &Client{
		http:   &http.Client{Timeout: opts.Timeout},
		parser: NewParser(),
		opts:   opts,
		logger: logger.With("component", "source"),
	}
}

// RSS клиент для одного источника
type RSSSource struct {
	// URL откуда мы забираем данные
	URL string
	// Его id
	SourceID   int64
	SourceName string

	client *Client
}

// Результат обхода ленты: кандидаты в статьи (еще не сохранены) и предупреждения
type Result struct {
	Articles []model.Article
	// Сколько записей отброшено фильтром по ключевым словам
	Filtered int
	Warnings []string
}

// Source создает из модели источника клиент для его RSS ленты
func (c *Client) Source(m model.Source) RSSSource {
	return RSSSource{
		URL:        m.FeedURL,
		SourceID:   m.ID,
		SourceName: m.Name,
		client:     c,
	}
}

// Fetch загружает ленту с повторами, разбирает ее и считает отпечатки статей
func (s RSSSource) Fetch(ctx context.Context) (Result, error) {
	if strings.TrimSpace(s.URL) == "" {
		return Result{}, ErrNoFeedURL
	}

	data, err := s.loadFeed(ctx)
	if err != nil {
		return Result{}, err
	}

	feed, err := s.client.parser.Parse(data)
	if err != nil {
		return Result{}, err
	}

	result := s.candidates(feed.Items)
	result.Warnings = append(feed.Warnings, result.Warnings...)

	// Записи в ленте были, но ни одна не годится
	if len(feed.Items) > 0 && len(result.Articles) == 0 && result.Filtered == 0 {
		return result, model.ErrEmptyFeed
	}

	return result, nil
}

func (s RSSSource) candidates(items []model.Item) Result {
	var (
		result   Result
		keywords = s.client.opts.FilterKeywords
	)

	for i, item := range items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)

		hash, err := dedup.Key(title, link, s.SourceID)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %d skipped: %v", i, err))
			continue
		}

		if itemShouldBeSkipped(item, keywords) {
			result.Filtered++
			continue
		}

		result.Articles = append(result.Articles, model.Article{
			SourceID:    s.SourceID,
			Title:       title,
			Link:        link,
			Summary:     item.Summary,
			PublishedAt: item.Date,
			ContentHash: hash,
			Processed:   model.StatusPending,
		})
	}

	return result
}

// Проходимся по категориям статьи и заголовку.
// Если встречается ключевое слово из стоп-листа, статью пропускаем
func itemShouldBeSkipped(item model.Item, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}

	categories := make([]string, 0, len(item.Categories))
	for _, c := range item.Categories {
		categories = append(categories, strings.ToLower(c))
	}
	categoriesSet := set.New(categories...)
	title := strings.ToLower(item.Title)

	for _, keyword := range keywords {
		keyword = strings.ToLower(keyword)
		if categoriesSet.Contains(keyword) || strings.Contains(title, keyword) {
			return true
		}
	}

	return false
}

// loadFeed делает GET с повторами: временные ошибки повторяем с экспоненциальной паузой,
// постоянные (4xx) сразу возвращаем
func (s RSSSource) loadFeed(ctx context.Context) ([]byte, error) {
	var (
		data    []byte
		attempt int
	)

	operation := func() error {
		attempt++

		body, err := s.get(ctx)
		if err != nil {
			if !isTransient(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}

		data = body
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.client.logger.Warn("feed fetch failed, retrying",
			"source", s.SourceName,
			"attempt", attempt,
			"max_attempts", s.client.opts.MaxRetries,
			"wait", wait,
			"error", err,
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(s.client.newBackOff(), uint64(s.client.opts.MaxRetries-1)),
		ctx,
	)

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("fetch %s (%d attempts): %w", s.URL, attempt, err)
	}

	return data, nil
}

func (s RSSSource) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	req.Header.Set("User-Agent", s.client.opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := s.client.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
}

func (c *Client) newBackOff() backoff.BackOff {
	if c.opts.BackoffBase <= 0 {
		return &backoff.ZeroBackOff{}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.BackoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.opts.BackoffBase << 6
	b.MaxElapsedTime = 0

	return b
}

// Ошибки транспорта (таймаут, отказ в соединении) и 408/429/5xx считаем временными.
// Отмену со стороны вызывающего не повторяем.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, errBadRequest) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}

	return true
}
