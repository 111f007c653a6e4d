package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kovalyov-valentin/newspulse/internal/metrics"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// Тема, в которую уходит сводка после каждого запуска сборщика
const SubjectFetchCompleted = "newspulse.fetch.completed"

// Все, что нам нужно от соединения с nats
type publisher interface {
	Publish(subject string, data []byte) error
}

// Событие о завершенном запуске сборщика
type FetchCompleted struct {
	Summary     model.FetchSummary `json:"summary"`
	PublishedAt time.Time          `json:"published_at"`
}

type NATSPublisher struct {
	conn   publisher
	logger *slog.Logger
}

func NewNATSPublisher(conn *nats.Conn, logger *slog.Logger) *NATSPublisher {
	return newPublisher(conn, logger)
}

func newPublisher(conn publisher, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:   conn,
		logger: logger.With("component", "events"),
	}
}

// Connect подключается к nats с переподключением без ограничения попыток
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("newspulse"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}

	return conn, nil
}

// FetchCompleted публикует сводку запуска. Ошибка публикации не влияет на сам запуск,
// ее возвращаем только для логов.
func (p *NATSPublisher) FetchCompleted(_ context.Context, summary model.FetchSummary) error {
	data, err := json.Marshal(FetchCompleted{
		Summary:     summary,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode fetch summary: %w", err)
	}

	if err := p.conn.Publish(SubjectFetchCompleted, data); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(SubjectFetchCompleted, metrics.StatusError).Inc()
		return fmt.Errorf("publish %s: %w", SubjectFetchCompleted, err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(SubjectFetchCompleted, metrics.StatusSuccess).Inc()
	p.logger.Debug("fetch summary published", "new_articles", summary.TotalNew)

	return nil
}

// Noop используется, когда nats не настроен
type Noop struct{}

func (Noop) FetchCompleted(context.Context, model.FetchSummary) error {
	return nil
}
