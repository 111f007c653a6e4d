package api

import (
	"time"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// ArticleView - статья в ответе API. Имя источника подставляется при выдаче,
// в самой статье его нет
type ArticleView struct {
	ID                  string              `json:"id"`
	SourceID            int64               `json:"source_id"`
	SourceName          string              `json:"source_name"`
	Title               string              `json:"title"`
	Link                string              `json:"link"`
	Summary             string              `json:"summary"`
	Content             string              `json:"content,omitempty"`
	PublishedDate       *time.Time          `json:"published_date"`
	RelevanceScore      int                 `json:"relevance_score"`
	PrimaryCategory     *string             `json:"primary_category"`
	ConfidenceLevel     *string             `json:"confidence_level"`
	SecondaryCategories map[string]float64  `json:"secondary_categories"`
	GeographicTags      map[string][]string `json:"geographic_tags"`
	IndustrySegments    []string            `json:"industry_segments"`
	Processed           string              `json:"processed"`
	ContentExtracted    bool                `json:"content_extracted"`
	ClassifiedAt        *time.Time          `json:"classified_at"`
	CreatedAt           time.Time           `json:"created_at"`
}

type ArticleList struct {
	Articles []ArticleView `json:"articles"`
	Total    int           `json:"total"`
	Skip     int           `json:"skip"`
	Limit    int           `json:"limit"`
	HasMore  bool          `json:"has_more"`
}

type SourceView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	WebsiteURL  string     `json:"website_url"`
	RSSURL      string     `json:"rss_url"`
	Region      string     `json:"region"`
	Language    string     `json:"language"`
	Priority    int        `json:"priority"`
	Enabled     bool       `json:"enabled"`
	LastScraped *time.Time `json:"last_scraped"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type SourceStatsView struct {
	SourceView
	ArticleCount  int        `json:"article_count"`
	LastArticleAt *time.Time `json:"last_article_at"`
}

func newArticleView(a model.Article, sourceName string, withContent bool) ArticleView {
	view := ArticleView{
		ID:                  a.ID,
		SourceID:            a.SourceID,
		SourceName:          sourceName,
		Title:               a.Title,
		Link:                a.Link,
		Summary:             a.Summary,
		PublishedDate:       a.PublishedAt,
		RelevanceScore:      a.RelevanceScore,
		PrimaryCategory:     nullable(a.PrimaryCategory),
		ConfidenceLevel:     nullable(string(a.ConfidenceLevel)),
		SecondaryCategories: lo.Ternary(a.SecondaryCategories == nil, map[string]float64{}, a.SecondaryCategories),
		GeographicTags:      lo.Ternary(a.GeographicTags == nil, map[string][]string{}, a.GeographicTags),
		IndustrySegments:    lo.Ternary(a.IndustrySegments == nil, []string{}, a.IndustrySegments),
		Processed:           string(a.Processed),
		ContentExtracted:    a.ContentExtracted,
		ClassifiedAt:        a.ClassifiedAt,
		CreatedAt:           a.CreatedAt,
	}
	if withContent {
		view.Content = a.Content
	}
	return view
}

// newArticleViews подставляет имена источников из names, неизвестный источник дает пустое имя
func newArticleViews(articles []model.Article, names map[int64]string) []ArticleView {
	return lo.Map(articles, func(a model.Article, _ int) ArticleView {
		return newArticleView(a, names[a.SourceID], false)
	})
}

func newSourceView(s model.Source) SourceView {
	return SourceView{
		ID:          s.ID,
		Name:        s.Name,
		WebsiteURL:  s.WebsiteURL,
		RSSURL:      s.FeedURL,
		Region:      s.Region,
		Language:    s.Language,
		Priority:    s.Priority,
		Enabled:     s.Enabled,
		LastScraped: s.LastScraped,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func sourceNames(sources []model.Source) map[int64]string {
	return lo.Associate(sources, func(s model.Source) (int64, string) {
		return s.ID, s.Name
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
