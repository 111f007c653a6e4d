package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// После стольких неудачных попыток извлечения статью больше не берем в фоновую выборку
const maxExtractionAttempts = 5

var articleColumns = []string{
	"id", "source_id", "title", "link", "summary", "content", "published_date", "content_hash",
	"relevance_score", "primary_category", "confidence_level",
	"secondary_categories", "geographic_tags", "industry_segments",
	"processed", "classified_at", "content_extracted", "posted_at", "created_at",
}

type ArticlePostgresStorage struct {
	conn
}

func NewArticleStorage(db *sqlx.DB) *ArticlePostgresStorage {
	return &ArticlePostgresStorage{conn: conn{db: db}}
}

// Store вставляет новую статью. Если статья с таким content_hash уже есть,
// существующая строка не меняется, а возвращается model.ErrDuplicateArticle
func (s *ArticlePostgresStorage) Store(ctx context.Context, article model.Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.Processed == "" {
		article.Processed = model.StatusPending
	}

	row, err := toDBArticle(article)
	if err != nil {
		return err
	}

	res, err := s.from(ctx).ExecContext(
		ctx,
		`INSERT INTO articles (id, source_id, title, link, summary, published_date, content_hash, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (content_hash) DO NOTHING`,
		row.ID,
		row.SourceID,
		row.Title,
		row.Link,
		row.Summary,
		row.PublishedAt,
		row.ContentHash,
		row.Processed,
	)
	if pqCode(err) == uniqueViolation {
		return model.ErrDuplicateArticle
	}
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrDuplicateArticle
	}

	return nil
}

func (s *ArticlePostgresStorage) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.from(ctx).GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM articles WHERE content_hash = $1)`, hash)
	if err != nil {
		return false, fmt.Errorf("check article hash: %w", err)
	}
	return exists, nil
}

func (s *ArticlePostgresStorage) Get(ctx context.Context, id string) (model.Article, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Article{}, model.ErrNotFound
	}

	query, args, err := psql.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Article{}, err
	}

	var row dbArticle
	err = s.from(ctx).GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Article{}, model.ErrNotFound
	}
	if err != nil {
		return model.Article{}, fmt.Errorf("get article %s: %w", id, err)
	}

	return row.toModel()
}

// List возвращает статьи по фильтру. Выборки для фоновой обработки идут в порядке добавления,
// остальные - сначала свежие
func (s *ArticlePostgresStorage) List(ctx context.Context, filter model.ArticleFilter) ([]model.Article, error) {
	q := applyFilter(psql.Select(articleColumns...).From("articles"), filter)

	switch {
	case filter.NeedsContent:
		// Сначала статьи без неудачных попыток, потом те, что падали давно
		q = q.OrderBy("extraction_failed_at NULLS FIRST", "created_at", "id")
	case filter.Unclassified:
		q = q.OrderBy("created_at", "id")
	default:
		q = q.OrderBy("published_date DESC NULLS LAST", "created_at DESC")
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Skip > 0 {
		q = q.Offset(uint64(filter.Skip))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []dbArticle
	if err := s.from(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}

	return toModels(rows)
}

// Count считает статьи по тому же фильтру, без пагинации
func (s *ArticlePostgresStorage) Count(ctx context.Context, filter model.ArticleFilter) (int, error) {
	query, args, err := applyFilter(psql.Select("COUNT(*)").From("articles"), filter).ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.from(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

func applyFilter(q sq.SelectBuilder, filter model.ArticleFilter) sq.SelectBuilder {
	if filter.Category != "" {
		q = q.Where(sq.Eq{"primary_category": filter.Category})
	}
	if filter.SourceID != 0 {
		q = q.Where(sq.Eq{"source_id": filter.SourceID})
	}
	if filter.MinRelevance > 0 {
		q = q.Where(sq.GtOrEq{"relevance_score": filter.MinRelevance})
	}
	if filter.ProcessedOnly != nil {
		if *filter.ProcessedOnly {
			q = q.Where(sq.Eq{"processed": model.StatusProcessed})
		} else {
			q = q.Where(sq.NotEq{"processed": model.StatusProcessed})
		}
	}
	if filter.Unclassified {
		q = q.Where(sq.Eq{"classified_at": nil})
	}
	if filter.NeedsContent {
		q = q.Where(sq.Eq{"content_extracted": false}).
			Where(sq.Lt{"extraction_attempts": maxExtractionAttempts})
	}
	return q
}

// UpdateClassification сохраняет только результат классификации.
// Текст статьи и отметку об извлечении не трогает, их пишет UpdateContent
func (s *ArticlePostgresStorage) UpdateClassification(ctx context.Context, article model.Article) error {
	row, err := toDBArticle(article)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("articles").
		Set("relevance_score", row.RelevanceScore).
		Set("primary_category", row.PrimaryCategory).
		Set("confidence_level", row.ConfidenceLevel).
		Set("secondary_categories", string(row.SecondaryCategories)).
		Set("geographic_tags", string(row.GeographicTags)).
		Set("industry_segments", string(row.IndustrySegments)).
		Set("processed", row.Processed).
		Set("classified_at", row.ClassifiedAt).
		Where(sq.Eq{"id": row.ID}).
		ToSql()
	if err != nil {
		return err
	}

	return s.exec(ctx, article.ID, query, args...)
}

// UpdateContent сохраняет извлеченный текст и выжимку.
// Поля классификации и статус обработки не трогает
func (s *ArticlePostgresStorage) UpdateContent(ctx context.Context, article model.Article) error {
	query, args, err := psql.Update("articles").
		Set("content", article.Content).
		Set("summary", article.Summary).
		Set("content_extracted", article.ContentExtracted).
		Where(sq.Eq{"id": article.ID}).
		ToSql()
	if err != nil {
		return err
	}

	return s.exec(ctx, article.ID, query, args...)
}

// MarkExtractionFailed учитывает неудачную попытку извлечения.
// Такие статьи уходят в конец очереди, после maxExtractionAttempts их больше не выбираем
func (s *ArticlePostgresStorage) MarkExtractionFailed(ctx context.Context, id string) error {
	return s.exec(
		ctx,
		id,
		`UPDATE articles SET extraction_attempts = extraction_attempts + 1, extraction_failed_at = $1 WHERE id = $2`,
		time.Now().UTC(),
		id,
	)
}

func (s *ArticlePostgresStorage) exec(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := s.from(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article %s: %w", id, err)
	}

	return expectOne(res)
}

// AllNotPosted возвращает статьи, которые еще не публиковались в канал
// и набрали не меньше minRelevance
func (s *ArticlePostgresStorage) AllNotPosted(ctx context.Context, since time.Time, minRelevance int, limit uint64) ([]model.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"posted_at": nil}).
		Where(sq.NotEq{"classified_at": nil}).
		Where(sq.GtOrEq{"relevance_score": minRelevance}).
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("relevance_score DESC", "created_at").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []dbArticle
	if err := s.from(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select not posted articles: %w", err)
	}

	return toModels(rows)
}

func (s *ArticlePostgresStorage) MarkPosted(ctx context.Context, id string) error {
	_, err := s.from(ctx).ExecContext(ctx, `UPDATE articles SET posted_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark article %s posted: %w", id, err)
	}
	return nil
}

// CategoryCounts считает статьи по основной категории, без категории не учитываются
func (s *ArticlePostgresStorage) CategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	var rows []dbCategoryCount

	err := s.from(ctx).SelectContext(ctx, &rows, `
		SELECT primary_category AS name, COUNT(*) AS count
		FROM articles
		WHERE primary_category IS NOT NULL
		GROUP BY primary_category
		ORDER BY count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}

	return lo.Map(rows, func(row dbCategoryCount, _ int) model.CategoryCount {
		return model.CategoryCount(row)
	}), nil
}

// PlatformStats собирает общие счетчики для аналитики
func (s *ArticlePostgresStorage) PlatformStats(ctx context.Context) (model.PlatformStats, error) {
	var row struct {
		TotalArticles     int     `db:"total_articles"`
		ProcessedArticles int     `db:"processed"`
		PendingArticles   int     `db:"pending"`
		FailedArticles    int     `db:"failed"`
		Unclassified      int     `db:"unclassified"`
		ArticlesLast24h   int     `db:"last_24h"`
		AverageRelevance  float64 `db:"avg_relevance"`
		TotalSources      int     `db:"total_sources"`
		EnabledSources    int     `db:"enabled_sources"`
	}

	err := s.from(ctx).GetContext(ctx, &row, `
		SELECT
			COUNT(*) AS total_articles,
			COUNT(*) FILTER (WHERE processed = 'processed') AS processed,
			COUNT(*) FILTER (WHERE processed = 'pending') AS pending,
			COUNT(*) FILTER (WHERE processed = 'failed') AS failed,
			COUNT(*) FILTER (WHERE classified_at IS NULL) AS unclassified,
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '24 hours') AS last_24h,
			COALESCE(AVG(relevance_score) FILTER (WHERE classified_at IS NOT NULL), 0) AS avg_relevance,
			(SELECT COUNT(*) FROM news_sources) AS total_sources,
			(SELECT COUNT(*) FROM news_sources WHERE enabled) AS enabled_sources
		FROM articles`)
	if err != nil {
		return model.PlatformStats{}, fmt.Errorf("platform stats: %w", err)
	}

	categories, err := s.CategoryCounts(ctx)
	if err != nil {
		return model.PlatformStats{}, err
	}

	return model.PlatformStats{
		TotalArticles:     row.TotalArticles,
		TotalSources:      row.TotalSources,
		EnabledSources:    row.EnabledSources,
		ProcessedArticles: row.ProcessedArticles,
		PendingArticles:   row.PendingArticles,
		FailedArticles:    row.FailedArticles,
		ArticlesLast24h:   row.ArticlesLast24h,
		Unclassified:      row.Unclassified,
		AverageRelevance:  row.AverageRelevance,
		CategoryBreakdown: lo.Associate(categories, func(c model.CategoryCount) (string, int) {
			return c.Name, c.Count
		}),
	}, nil
}

// Внутренняя модель статьи для БД. Детали классификации лежат в JSONB колонках
type dbArticle struct {
	ID                  string         `db:"id"`
	SourceID            int64          `db:"source_id"`
	Title               string         `db:"title"`
	Link                string         `db:"link"`
	Summary             string         `db:"summary"`
	Content             string         `db:"content"`
	PublishedAt         *time.Time     `db:"published_date"`
	ContentHash         string         `db:"content_hash"`
	RelevanceScore      int            `db:"relevance_score"`
	PrimaryCategory     sql.NullString `db:"primary_category"`
	ConfidenceLevel     sql.NullString `db:"confidence_level"`
	SecondaryCategories []byte         `db:"secondary_categories"`
	GeographicTags      []byte         `db:"geographic_tags"`
	IndustrySegments    []byte         `db:"industry_segments"`
	Processed           string         `db:"processed"`
	ClassifiedAt        *time.Time     `db:"classified_at"`
	ContentExtracted    bool           `db:"content_extracted"`
	PostedAt            *time.Time     `db:"posted_at"`
	CreatedAt           time.Time      `db:"created_at"`
}

type dbCategoryCount struct {
	Name  string `db:"name"`
	Count int    `db:"count"`
}

func toDBArticle(a model.Article) (dbArticle, error) {
	secondary, err := json.Marshal(lo.Ternary(a.SecondaryCategories == nil, map[string]float64{}, a.SecondaryCategories))
	if err != nil {
		return dbArticle{}, err
	}
	geo, err := json.Marshal(lo.Ternary(a.GeographicTags == nil, map[string][]string{}, a.GeographicTags))
	if err != nil {
		return dbArticle{}, err
	}
	segments, err := json.Marshal(lo.Ternary(a.IndustrySegments == nil, []string{}, a.IndustrySegments))
	if err != nil {
		return dbArticle{}, err
	}

	return dbArticle{
		ID:                  a.ID,
		SourceID:            a.SourceID,
		Title:               a.Title,
		Link:                a.Link,
		Summary:             a.Summary,
		Content:             a.Content,
		PublishedAt:         a.PublishedAt,
		ContentHash:         a.ContentHash,
		RelevanceScore:      a.RelevanceScore,
		PrimaryCategory:     sql.NullString{String: a.PrimaryCategory, Valid: a.PrimaryCategory != ""},
		ConfidenceLevel:     sql.NullString{String: string(a.ConfidenceLevel), Valid: a.ConfidenceLevel != ""},
		SecondaryCategories: secondary,
		GeographicTags:      geo,
		IndustrySegments:    segments,
		Processed:           string(a.Processed),
		ClassifiedAt:        a.ClassifiedAt,
		ContentExtracted:    a.ContentExtracted,
		PostedAt:            a.PostedAt,
		CreatedAt:           a.CreatedAt,
	}, nil
}

func (r dbArticle) toModel() (model.Article, error) {
	a := model.Article{
		ID:                  r.ID,
		SourceID:            r.SourceID,
		Title:               r.Title,
		Link:                r.Link,
		Summary:             r.Summary,
		Content:             r.Content,
		PublishedAt:         r.PublishedAt,
		ContentHash:         r.ContentHash,
		RelevanceScore:      r.RelevanceScore,
		PrimaryCategory:     r.PrimaryCategory.String,
		ConfidenceLevel:     model.ConfidenceLevel(r.ConfidenceLevel.String),
		SecondaryCategories: map[string]float64{},
		GeographicTags:      map[string][]string{},
		IndustrySegments:    []string{},
		Processed:           model.ProcessingStatus(r.Processed),
		ClassifiedAt:        r.ClassifiedAt,
		ContentExtracted:    r.ContentExtracted,
		PostedAt:            r.PostedAt,
		CreatedAt:           r.CreatedAt,
	}

	if err := unmarshalJSONB(r.SecondaryCategories, &a.SecondaryCategories); err != nil {
		return model.Article{}, fmt.Errorf("article %s secondary categories: %w", r.ID, err)
	}
	if err := unmarshalJSONB(r.GeographicTags, &a.GeographicTags); err != nil {
		return model.Article{}, fmt.Errorf("article %s geographic tags: %w", r.ID, err)
	}
	if err := unmarshalJSONB(r.IndustrySegments, &a.IndustrySegments); err != nil {
		return model.Article{}, fmt.Errorf("article %s industry segments: %w", r.ID, err)
	}

	return a, nil
}

func toModels(rows []dbArticle) ([]model.Article, error) {
	articles := make([]model.Article, 0, len(rows))
	for _, row := range rows {
		article, err := row.toModel()
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func unmarshalJSONB(raw []byte, dst interface{}) error {
	// null оставляет пустое значение, а не nil
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
