package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/newspulse/internal/botkit/markup"
	"github.com/kovalyov-valentin/newspulse/internal/model"
	"github.com/kovalyov-valentin/newspulse/internal/summary"
)

type ArticleProvider interface {
	AllNotPosted(ctx context.Context, since time.Time, minRelevance int, limit uint64) ([]model.Article, error)
	MarkPosted(ctx context.Context, id string) error
}

type Options struct {
	// Интервал, с которым notifier будет проверять есть ли новые статьи
	SendInterval time.Duration
	// Насколько далеко в прошлое смотрим, более старые статьи не публикуем
	LookupWindow time.Duration
	// Статьи с меньшей релевантностью в канал не попадают
	MinRelevance int
	// Сколько статей публикуем за один проход
	BatchSize int
}

// Notifier публикует в канал самые релевантные статьи, которые еще не публиковались
type Notifier struct {
	articles   ArticleProvider
	summarizer summary.Summarizer
	// Инстанс клиента botAPI
	bot *tgbotapi.BotAPI
	// id канала куда мы будем постить статьи
	channelID int64
	opts      Options
	now       func() time.Time
	logger    *slog.Logger
}

func New(
	articles ArticleProvider,
	summarizer summary.Summarizer,
	bot *tgbotapi.BotAPI,
	channelID int64,
	opts Options,
	logger *slog.Logger,
) *Notifier {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.LookupWindow <= 0 {
		opts.LookupWindow = 24 * time.Hour
	}

	return &Notifier{
		articles:   articles,
		summarizer: summarizer,
		bot:        bot,
		channelID:  channelID,
		opts:       opts,
		now:        time.Now,
		logger:     logger.With("component", "notifier"),
	}
}

// Start публикует статьи каждые SendInterval, пока не отменят контекст.
// Ошибка одного прохода не останавливает публикацию
func (n *Notifier) Start(ctx context.Context) error {
	ticker := time.NewTicker(n.opts.SendInterval)
	defer ticker.Stop()

	for {
		if _, err := n.SelectAndSendArticles(ctx); err != nil && ctx.Err() == nil {
			n.logger.Error("failed to send articles", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SelectAndSendArticles выбирает до BatchSize статей и публикует их по одной.
// Статья отмечается опубликованной только после успешной отправки
func (n *Notifier) SelectAndSendArticles(ctx context.Context) (int, error) {
	articles, err := n.articles.AllNotPosted(
		ctx,
		n.now().Add(-n.opts.LookupWindow),
		n.opts.MinRelevance,
		uint64(n.opts.BatchSize),
	)
	if err != nil {
		return 0, fmt.Errorf("select articles to post: %w", err)
	}

	var (
		sent    int
		lastErr error
	)

	for _, article := range articles {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		// Статью, которую телеграм не принимает, пропускаем, иначе она загородит остальные
		if err := n.sendArticle(ctx, article); err != nil {
			n.logger.Warn("failed to send article", "article_id", article.ID, "error", err)
			lastErr = fmt.Errorf("send article %s: %w", article.ID, err)
			continue
		}

		if err := n.articles.MarkPosted(ctx, article.ID); err != nil {
			return sent, err
		}
		sent++
	}

	// Не ушло ни одной статьи - скорее всего недоступен сам телеграм
	if sent == 0 && lastErr != nil {
		return 0, lastErr
	}

	return sent, nil
}

// Текст для пересказа: полный текст, если его уже извлекли, иначе выжимка из ленты
func (n *Notifier) extractSummary(ctx context.Context, article model.Article) string {
	text := article.Content
	if strings.TrimSpace(text) == "" {
		text = article.Summary
	}

	result, err := n.summarizer.Summarize(ctx, text)
	if err != nil {
		n.logger.Warn("summary failed, using feed summary", "article_id", article.ID, "error", err)
		return summary.Lead(article.Summary, summary.DefaultWords)
	}

	return result
}

func (n *Notifier) sendArticle(ctx context.Context, article model.Article) error {
	msg := tgbotapi.NewMessage(n.channelID, formatArticle(article, n.extractSummary(ctx, article)))
	// Даем понять телеграм, чтобы это сообщение парсилось как markdown сообщение
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	_, err := n.bot.Send(msg)
	return err
}

// Сначала идет жирным заголовок, потом категория с оценкой, summary и ссылка на статью.
// Все аргументы экранируем, т.к. в заголовках часто встречаются спец символы markdown
func formatArticle(article model.Article, text string) string {
	var b strings.Builder

	b.WriteString(markup.Bold(article.Title))

	if article.PrimaryCategory != "" {
		b.WriteString("\n" + markup.EscapeForMarkdown(fmt.Sprintf(
			"#%s · relevance %d", article.PrimaryCategory, article.RelevanceScore,
		)))
	}

	if text = strings.TrimSpace(text); text != "" {
		b.WriteString("\n\n" + markup.EscapeForMarkdown(text))
	}

	b.WriteString("\n\n" + markup.EscapeForMarkdown(article.Link))

	return b.String()
}
