package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/newspulse/internal/cache"
	"github.com/kovalyov-valentin/newspulse/internal/extractor"
	"github.com/kovalyov-valentin/newspulse/internal/fetcher"
	"github.com/kovalyov-valentin/newspulse/internal/logging"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeArticles struct {
	items      []model.Article
	lastFilter model.ArticleFilter
	statsCalls int
	err        error
}

func (f *fakeArticles) match(filter model.ArticleFilter) []model.Article {
	var result []model.Article
	for _, a := range f.items {
		if filter.Category != "" && a.PrimaryCategory != filter.Category {
			continue
		}
		if filter.SourceID != 0 && a.SourceID != filter.SourceID {
			continue
		}
		if a.RelevanceScore < filter.MinRelevance {
			continue
		}
		result = append(result, a)
	}
	return result
}

func (f *fakeArticles) List(_ context.Context, filter model.ArticleFilter) ([]model.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastFilter = filter

	matched := f.match(filter)
	if filter.Skip >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Skip:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (f *fakeArticles) Count(_ context.Context, filter model.ArticleFilter) (int, error) {
	return len(f.match(filter)), nil
}

func (f *fakeArticles) Get(_ context.Context, id string) (model.Article, error) {
	for _, a := range f.items {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Article{}, model.ErrNotFound
}

func (f *fakeArticles) CategoryCounts(context.Context) ([]model.CategoryCount, error) {
	return []model.CategoryCount{{Name: "fintech", Count: 2}}, nil
}

func (f *fakeArticles) PlatformStats(context.Context) (model.PlatformStats, error) {
	f.statsCalls++
	return model.PlatformStats{TotalArticles: len(f.items), CategoryBreakdown: map[string]int{"fintech": 2}}, nil
}

type fakeSources struct {
	items  []model.Source
	nextID int64
}

func (f *fakeSources) Sources(context.Context) ([]model.Source, error) {
	return f.items, nil
}

func (f *fakeSources) EnabledSources(context.Context) ([]model.Source, error) {
	var result []model.Source
	for _, s := range f.items {
		if s.Enabled {
			result = append(result, s)
		}
	}
	return result, nil
}

func (f *fakeSources) SourceByID(_ context.Context, id int64) (model.Source, error) {
	for _, s := range f.items {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Source{}, model.ErrNotFound
}

func (f *fakeSources) Add(_ context.Context, source model.Source) (int64, error) {
	for _, s := range f.items {
		if s.Name == source.Name {
			return 0, model.ErrSourceExists
		}
	}
	f.nextID++
	source.ID = f.nextID
	f.items = append(f.items, source)
	return source.ID, nil
}

func (f *fakeSources) Update(_ context.Context, source model.Source) error {
	for i, s := range f.items {
		if s.ID == source.ID {
			f.items[i] = source
			return nil
		}
	}
	return model.ErrNotFound
}

func (f *fakeSources) Delete(_ context.Context, id int64) error {
	if id == 1 {
		return model.ErrSourceHasArticles
	}
	return nil
}

func (f *fakeSources) Stats(context.Context) ([]model.SourceStats, error) {
	return []model.SourceStats{{Source: f.items[0], ArticleCount: 3}}, nil
}

type fakeFetcher struct {
	summary model.FetchSummary
	err     error
}

func (f *fakeFetcher) Fetch(context.Context) (model.FetchSummary, error) {
	return f.summary, f.err
}

type fakeProcessor struct {
	limit int
}

func (f *fakeProcessor) ProcessBatch(_ context.Context, limit int) (model.BatchStats, error) {
	f.limit = limit
	return model.BatchStats{Total: 2, Succeeded: 2}, nil
}

func (f *fakeProcessor) ClassifyArticle(_ context.Context, id string) (model.Article, error) {
	if id != "a1" {
		return model.Article{}, model.ErrNotFound
	}
	return model.Article{ID: "a1", SourceID: 1, PrimaryCategory: "payments", RelevanceScore: 40}, nil
}

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) ExtractArticle(_ context.Context, id string) (model.Article, extractor.Extraction, error) {
	if f.err != nil {
		return model.Article{}, extractor.Extraction{}, f.err
	}
	return model.Article{ID: id, SourceID: 1, Content: "full text", ContentExtracted: true},
		extractor.Extraction{Text: "full text", Success: true, Authors: []string{"Ann"}}, nil
}

type testEnv struct {
	articles  *fakeArticles
	sources   *fakeSources
	fetcher   *fakeFetcher
	processor *fakeProcessor
	extractor *fakeExtractor
	router    *gin.Engine
}

func newTestEnv() *testEnv {
	env := &testEnv{
		articles: &fakeArticles{items: []model.Article{
			{ID: "a1", SourceID: 1, Title: "Wallet raises", PrimaryCategory: "fintech", RelevanceScore: 80, Content: "secret"},
			{ID: "a2", SourceID: 2, Title: "Bank opens", PrimaryCategory: "banking", RelevanceScore: 30},
			{ID: "a3", SourceID: 1, Title: "Fintech week", PrimaryCategory: "fintech", RelevanceScore: 60},
		}},
		sources: &fakeSources{
			items: []model.Source{
				{ID: 1, Name: "Fintech News", FeedURL: "https://fintech.example/rss", Enabled: true, Priority: 2},
				{ID: 2, Name: "Bank Daily", FeedURL: "https://bank.example/rss", Enabled: false, Priority: 1},
			},
			nextID: 2,
		},
		fetcher:   &fakeFetcher{},
		processor: &fakeProcessor{},
		extractor: &fakeExtractor{},
	}

	server := New(Deps{
		Articles:  env.articles,
		Sources:   env.sources,
		Fetcher:   env.fetcher,
		Processor: env.processor,
		Extractor: env.extractor,
		Cache:     cache.NewMemoryCache(10, time.Minute),
		CacheTTL:  time.Minute,
	}, logging.Discard())
	env.router = server.Router()

	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	rec := newTestEnv().do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestListArticles(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/articles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ArticleList](t, rec)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 100, got.Limit)
	assert.Equal(t, 0, got.Skip)
	assert.False(t, got.HasMore)
	require.Len(t, got.Articles, 3)
	assert.Equal(t, "Fintech News", got.Articles[0].SourceName)
	assert.Equal(t, "Bank Daily", got.Articles[1].SourceName)
	// Полный текст в списках не отдаем
	assert.Empty(t, got.Articles[0].Content)
	assert.NotNil(t, got.Articles[0].IndustrySegments)
}

func TestListArticles_FiltersAndPaging(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/articles?category=FinTech&min_relevance_score=50&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ArticleList](t, rec)
	assert.Equal(t, 2, got.Total)
	assert.True(t, got.HasMore)
	require.Len(t, got.Articles, 1)
	assert.Equal(t, "a1", got.Articles[0].ID)

	assert.Equal(t, "fintech", env.articles.lastFilter.Category)
	assert.Equal(t, 50, env.articles.lastFilter.MinRelevance)
	assert.Equal(t, 1, env.articles.lastFilter.Limit)
}

func TestListArticles_ProcessedOnly(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/articles?processed_only=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.articles.lastFilter.ProcessedOnly)
	assert.True(t, *env.articles.lastFilter.ProcessedOnly)
}

func TestListArticles_Validation(t *testing.T) {
	env := newTestEnv()

	for _, query := range []string{
		"limit=0",
		"limit=1001",
		"skip=-1",
		"min_relevance_score=101",
		"category=crypto",
		"source_id=abc",
	} {
		rec := env.do(t, http.MethodGet, "/api/v1/articles?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestArticlesByCategory(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/articles/category/banking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[ArticleList](t, rec).Total)

	rec = env.do(t, http.MethodGet, "/api/v1/articles/category/unknown", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetArticle(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/articles/a1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ArticleView](t, rec)
	assert.Equal(t, "Fintech News", got.SourceName)
	assert.Equal(t, "secret", got.Content)
	require.NotNil(t, got.PrimaryCategory)
	assert.Equal(t, "fintech", *got.PrimaryCategory)

	rec = env.do(t, http.MethodGet, "/api/v1/articles/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassifyArticle(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/articles/a1/classify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 40, decode[ArticleView](t, rec).RelevanceScore)

	rec = env.do(t, http.MethodPost, "/api/v1/articles/zzz/classify", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtractContent(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/articles/a1/extract-content", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	env.extractor.err = errors.New("dial tcp: connection refused")
	rec = env.do(t, http.MethodPost, "/api/v1/articles/a1/extract-content", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")

	env.extractor.err = model.ErrNotFound
	rec = env.do(t, http.MethodPost, "/api/v1/articles/a1/extract-content", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSources(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]SourceView](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/v1/sources?enabled_only=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]SourceView](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "https://fintech.example/rss", got[0].RSSURL)
}

func TestSourceStats(t *testing.T) {
	rec := newTestEnv().do(t, http.MethodGet, "/api/v1/sources/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]SourceStatsView](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "Fintech News", got[0].Name)
	assert.Equal(t, 3, got[0].ArticleCount)
}

func TestGetSource(t *testing.T) {
	env := newTestEnv()

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/sources/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/sources/9", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/sources/x", nil).Code)
}

func TestSourceArticles(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/sources/1/articles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[ArticleList](t, rec).Total)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/sources/9/articles", nil).Code)
}

func TestCreateSource(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/sources", map[string]any{
		"name":    "Payments Weekly",
		"rss_url": "https://payments.example/feed",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decode[SourceView](t, rec)
	assert.Equal(t, int64(3), got.ID)
	assert.True(t, got.Enabled)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, 1, got.Priority)

	rec = env.do(t, http.MethodPost, "/api/v1/sources", map[string]any{"name": "Fintech News"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/sources", map[string]any{"rss_url": "https://x.example"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/sources", map[string]any{"name": "Bad", "rss_url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSource_Partial(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPut, "/api/v1/sources/1", map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[SourceView](t, rec)
	assert.False(t, got.Enabled)
	assert.Equal(t, "Fintech News", got.Name)
	assert.Equal(t, 2, got.Priority)

	rec = env.do(t, http.MethodPut, "/api/v1/sources/9", map[string]any{"enabled": false})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSource(t *testing.T) {
	env := newTestEnv()

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodDelete, "/api/v1/sources/1", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/v1/sources/2", nil).Code)
}

func TestFetch(t *testing.T) {
	env := newTestEnv()
	env.fetcher.summary = model.FetchSummary{TotalSources: 3, SuccessfulSources: 2, FailedSources: 1}

	rec := env.do(t, http.MethodPost, "/api/v1/fetch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[model.FetchSummary](t, rec).SuccessfulSources)

	env.fetcher.err = fetcher.ErrAlreadyRunning
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/v1/fetch", nil).Code)

	env.fetcher.err = errors.New("pq: password authentication failed")
	rec = env.do(t, http.MethodPost, "/api/v1/fetch", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestClassifyBatch(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/classify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, env.processor.limit)

	rec = env.do(t, http.MethodPost, "/api/v1/classify?batch_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, env.processor.limit)
	assert.Equal(t, model.BatchStats{Total: 2, Succeeded: 2}, decode[model.BatchStats](t, rec))

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/classify?batch_size=0", nil).Code)
}

func TestAnalyticsStats_Cached(t *testing.T) {
	env := newTestEnv()

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodGet, "/api/v1/analytics/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 3, decode[model.PlatformStats](t, rec).TotalArticles)
	}

	assert.Equal(t, 1, env.articles.statsCalls)
}

func TestAnalyticsCategories(t *testing.T) {
	rec := newTestEnv().do(t, http.MethodGet, "/api/v1/analytics/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"categories":[{"name":"fintech","count":2}]}`, rec.Body.String())
}

func TestStorageErrorIsHidden(t *testing.T) {
	env := newTestEnv()
	env.articles.err = errors.New("connection reset by peer")

	rec := env.do(t, http.MethodGet, "/api/v1/articles", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv()
	env.do(t, http.MethodGet, "/health", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "newspulse_http_requests_total")
}
