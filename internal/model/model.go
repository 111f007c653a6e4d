package model

import (
	"errors"
	"time"
)

var (
	// Статья с таким content_hash уже есть в хранилище
	ErrDuplicateArticle = errors.New("article already exists")
	ErrNotFound         = errors.New("not found")
	// Хранилище недоступно целиком, дальше работать смысла нет
	ErrStorageUnavailable = errors.New("storage unavailable")
	// Источник нельзя удалить, пока у него есть статьи. Его нужно выключить
	ErrSourceHasArticles = errors.New("source has articles")
	ErrSourceExists      = errors.New("source with this name already exists")
	// У кандидата нет заголовка или ссылки
	ErrInvalidArticle = errors.New("article has no title or link")
	// Лента разобралась, но в ней нет ни одной годной записи
	ErrEmptyFeed = errors.New("feed has no parseable entries")
)

// Статья как элемент ленты
type Item struct {
	// Название статьи
	Title string
	// Категории статей из самой ленты
	Categories []string
	// Ссылка
	Link string
	// Дата публикации в источнике. nil, если в ленте ее нет или она не распарсилась
	Date *time.Time
	// Краткая выжимка
	Summary string
}

// Модель источника
type Source struct {
	ID int64
	// Имя, уникальное
	Name       string
	WebsiteURL string
	// Урл откуда забираем данные
	FeedURL  string
	Region   string
	Language string
	// Используется только для сортировки при выводе
	Priority int
	Enabled  bool
	// Время последнего завершенного обхода (успешного или нет)
	LastScraped *time.Time
	// Время создания
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusProcessed ProcessingStatus = "processed"
	StatusFailed    ProcessingStatus = "failed"
)

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Модель статьи которая используется у нас внутри а не в RSS
type Article struct {
	// Непрозрачный уникальный идентификатор (uuid)
	ID       string
	SourceID int64
	Title    string
	Link     string
	Summary  string
	// Полный текст, заполняется при извлечении контента со страницы
	Content string
	// Время публикации в источнике
	PublishedAt *time.Time
	// Отпечаток для дедупликации, уникален и не меняется после вставки
	ContentHash string

	RelevanceScore int
	// Пустая строка означает, что категория не определена
	PrimaryCategory     string
	ConfidenceLevel     ConfidenceLevel
	SecondaryCategories map[string]float64
	GeographicTags      map[string][]string
	IndustrySegments    []string

	Processed ProcessingStatus
	// Два независимых флага завершения: классификация и извлечение контента
	ClassifiedAt     *time.Time
	ContentExtracted bool

	// Время публикации в телеграм канале
	PostedAt *time.Time
	// Время создания
	CreatedAt time.Time
}

// Результат классификации. Отдельно не хранится, переносится в поля статьи
type Classification struct {
	PrimaryCategory     string              `json:"primary_category"`
	RelevanceScore      int                 `json:"relevance_score"`
	ConfidenceLevel     ConfidenceLevel     `json:"confidence_level"`
	SecondaryCategories map[string]float64  `json:"secondary_categories"`
	GeographicTags      map[string][]string `json:"geographic_tags"`
	IndustrySegments    []string            `json:"industry_segments"`
}

// Apply переносит результат классификации в статью.
// pending переходит в processed, остальные статусы не трогаем.
func (a *Article) Apply(c Classification, at time.Time) {
	a.PrimaryCategory = c.PrimaryCategory
	a.RelevanceScore = c.RelevanceScore
	a.ConfidenceLevel = c.ConfidenceLevel
	a.SecondaryCategories = c.SecondaryCategories
	a.GeographicTags = c.GeographicTags
	a.IndustrySegments = c.IndustrySegments
	a.ClassifiedAt = &at

	if a.Processed == StatusPending || a.Processed == "" {
		a.Processed = StatusProcessed
	}
}

// Фильтр для выборки статей
type ArticleFilter struct {
	Category      string
	SourceID      int64
	MinRelevance  int
	ProcessedOnly *bool
	// Только статьи без отметки о классификации
	Unclassified bool
	// Только статьи, из которых еще не извлекали полный текст
	NeedsContent bool
	Skip         int
	Limit        int
}
