package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

const sourceColumns = `id, name, website_url, rss_url, region, language, priority, enabled, last_scraped, created_at, updated_at`

type SourcePostgresStorage struct {
	conn
}

func NewSourcePostgresStorage(db *sqlx.DB) *SourcePostgresStorage {
	return &SourcePostgresStorage{conn: conn{db: db}}
}

// Sources возвращает все источники: сначала с большим приоритетом, дальше по имени
func (s *SourcePostgresStorage) Sources(ctx context.Context) ([]model.Source, error) {
	return s.selectSources(ctx, `SELECT `+sourceColumns+` FROM news_sources ORDER BY priority DESC, name`)
}

func (s *SourcePostgresStorage) EnabledSources(ctx context.Context) ([]model.Source, error) {
	return s.selectSources(ctx, `SELECT `+sourceColumns+` FROM news_sources WHERE enabled ORDER BY priority DESC, name`)
}

func (s *SourcePostgresStorage) selectSources(ctx context.Context, query string) ([]model.Source, error) {
	var sources []dbSource
	if err := s.from(ctx).SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("select sources: %w", err)
	}

	return lo.Map(sources, func(source dbSource, _ int) model.Source {
		return source.toModel()
	}), nil
}

// Метод для получения источника по его id
func (s *SourcePostgresStorage) SourceByID(ctx context.Context, id int64) (model.Source, error) {
	var source dbSource
	err := s.from(ctx).GetContext(ctx, &source, `SELECT `+sourceColumns+` FROM news_sources WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Source{}, model.ErrNotFound
	}
	if err != nil {
		return model.Source{}, fmt.Errorf("get source %d: %w", id, err)
	}

	return source.toModel(), nil
}

// Метод для добавления источника. Имя уникально
func (s *SourcePostgresStorage) Add(ctx context.Context, source model.Source) (int64, error) {
	var id int64

	err := s.from(ctx).QueryRowxContext(
		ctx,
		`INSERT INTO news_sources (name, website_url, rss_url, region, language, priority, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		source.Name,
		source.WebsiteURL,
		source.FeedURL,
		source.Region,
		source.Language,
		source.Priority,
		source.Enabled,
	).Scan(&id)
	if pqCode(err) == uniqueViolation {
		return 0, model.ErrSourceExists
	}
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}

	return id, nil
}

// Update перезаписывает редактируемые поля источника
func (s *SourcePostgresStorage) Update(ctx context.Context, source model.Source) error {
	res, err := s.from(ctx).ExecContext(
		ctx,
		`UPDATE news_sources
		SET name = $1, website_url = $2, rss_url = $3, region = $4, language = $5,
			priority = $6, enabled = $7, updated_at = NOW()
		WHERE id = $8`,
		source.Name,
		source.WebsiteURL,
		source.FeedURL,
		source.Region,
		source.Language,
		source.Priority,
		source.Enabled,
		source.ID,
	)
	if pqCode(err) == uniqueViolation {
		return model.ErrSourceExists
	}
	if err != nil {
		return fmt.Errorf("update source %d: %w", source.ID, err)
	}

	return expectOne(res)
}

// Метод для удаления источника. Источник со статьями удалить нельзя, его надо выключить
func (s *SourcePostgresStorage) Delete(ctx context.Context, id int64) error {
	var articles int
	if err := s.from(ctx).GetContext(ctx, &articles, `SELECT COUNT(*) FROM articles WHERE source_id = $1`, id); err != nil {
		return fmt.Errorf("count source articles: %w", err)
	}
	if articles > 0 {
		return model.ErrSourceHasArticles
	}

	res, err := s.from(ctx).ExecContext(ctx, `DELETE FROM news_sources WHERE id = $1`, id)
	// Статья могла появиться между проверкой и удалением
	if pqCode(err) == foreignKeyViolation {
		return model.ErrSourceHasArticles
	}
	if err != nil {
		return fmt.Errorf("delete source %d: %w", id, err)
	}

	return expectOne(res)
}

// MarkScraped запоминает время последнего обхода
func (s *SourcePostgresStorage) MarkScraped(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.from(ctx).ExecContext(ctx, `UPDATE news_sources SET last_scraped = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("mark source %d scraped: %w", id, err)
	}
	return nil
}

// Seed добавляет источники из конфига. Существующие с тем же именем не трогаем.
// Возвращает сколько источников добавлено.
func (s *SourcePostgresStorage) Seed(ctx context.Context, sources []model.Source) (int, error) {
	var added int

	err := s.InTransaction(ctx, func(ctx context.Context) error {
		for _, source := range sources {
			res, err := s.from(ctx).ExecContext(
				ctx,
				`INSERT INTO news_sources (name, website_url, rss_url, region, language, priority, enabled)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (name) DO NOTHING`,
				source.Name,
				source.WebsiteURL,
				source.FeedURL,
				source.Region,
				source.Language,
				source.Priority,
				source.Enabled,
			)
			if err != nil {
				return fmt.Errorf("seed source %q: %w", source.Name, err)
			}

			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}
		return nil
	})

	return added, err
}

// Stats по каждому источнику: сколько статей и когда пришла последняя
func (s *SourcePostgresStorage) Stats(ctx context.Context) ([]model.SourceStats, error) {
	var rows []dbSourceStats

	err := s.from(ctx).SelectContext(ctx, &rows, `
		SELECT s.id, s.name, s.website_url, s.rss_url, s.region, s.language, s.priority, s.enabled,
			s.last_scraped, s.created_at, s.updated_at,
			COUNT(a.id) AS article_count,
			MAX(a.created_at) AS last_article_at
		FROM news_sources s
		LEFT JOIN articles a ON a.source_id = s.id
		GROUP BY s.id
		ORDER BY s.priority DESC, s.name`)
	if err != nil {
		return nil, fmt.Errorf("select source stats: %w", err)
	}

	return lo.Map(rows, func(row dbSourceStats, _ int) model.SourceStats {
		return model.SourceStats{
			Source:        row.dbSource.toModel(),
			ArticleCount:  row.ArticleCount,
			LastArticleAt: row.LastArticleAt,
		}
	}), nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Внутренняя модель для работы с БД, чтобы правильно мапить его на колонки в таблице
type dbSource struct {
	ID          int64      `db:"id"`
	Name        string     `db:"name"`
	WebsiteURL  string     `db:"website_url"`
	FeedURL     string     `db:"rss_url"`
	Region      string     `db:"region"`
	Language    string     `db:"language"`
	Priority    int        `db:"priority"`
	Enabled     bool       `db:"enabled"`
	LastScraped *time.Time `db:"last_scraped"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (s dbSource) toModel() model.Source {
	return model.Source(s)
}

type dbSourceStats struct {
	dbSource
	ArticleCount  int        `db:"article_count"`
	LastArticleAt *time.Time `db:"last_article_at"`
}
