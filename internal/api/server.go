package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/newspulse/internal/cache"
	"github.com/kovalyov-valentin/newspulse/internal/classifier"
	"github.com/kovalyov-valentin/newspulse/internal/extractor"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

type ArticleStorage interface {
	List(ctx context.Context, filter model.ArticleFilter) ([]model.Article, error)
	Count(ctx context.Context, filter model.ArticleFilter) (int, error)
	Get(ctx context.Context, id string) (model.Article, error)
	CategoryCounts(ctx context.Context) ([]model.CategoryCount, error)
	PlatformStats(ctx context.Context) (model.PlatformStats, error)
}

type SourceStorage interface {
	Sources(ctx context.Context) ([]model.Source, error)
	EnabledSources(ctx context.Context) ([]model.Source, error)
	SourceByID(ctx context.Context, id int64) (model.Source, error)
	Add(ctx context.Context, source model.Source) (int64, error)
	Update(ctx context.Context, source model.Source) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) ([]model.SourceStats, error)
}

type Fetcher interface {
	Fetch(ctx context.Context) (model.FetchSummary, error)
}

type Processor interface {
	ProcessBatch(ctx context.Context, limit int) (model.BatchStats, error)
	ClassifyArticle(ctx context.Context, id string) (model.Article, error)
}

type Extractor interface {
	ExtractArticle(ctx context.Context, id string) (model.Article, extractor.Extraction, error)
}

// Deps - все, с чем работают обработчики
type Deps struct {
	Articles  ArticleStorage
	Sources   SourceStorage
	Fetcher   Fetcher
	Processor Processor
	Extractor Extractor

	Cache    cache.Cache
	CacheTTL time.Duration
}

type Server struct {
	deps Deps
	// Категории из таблицы классификатора, других в фильтре быть не может
	knownCategory func(string) bool
	logger        *slog.Logger
}

func New(deps Deps, logger *slog.Logger) *Server {
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = time.Hour
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache(100, deps.CacheTTL)
	}

	known := set.New(classifier.Categories()...)

	return &Server{
		deps:          deps,
		knownCategory: known.Contains,
		logger:        logger.With("component", "api"),
	}
}

// Router собирает все маршруты
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), metricsMiddleware())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/articles", s.listArticles)
		v1.GET("/articles/category/:category", s.articlesByCategory)
		v1.GET("/articles/:id", s.getArticle)
		v1.POST("/articles/:id/classify", s.classifyArticle)
		v1.POST("/articles/:id/extract-content", s.extractContent)

		v1.GET("/sources", s.listSources)
		v1.GET("/sources/stats", s.sourceStats)
		v1.GET("/sources/:id", s.getSource)
		v1.GET("/sources/:id/articles", s.sourceArticles)
		v1.POST("/sources", s.createSource)
		v1.PUT("/sources/:id", s.updateSource)
		v1.DELETE("/sources/:id", s.deleteSource)

		v1.POST("/fetch", s.fetch)
		v1.POST("/classify", s.classifyBatch)

		v1.GET("/analytics/stats", s.analyticsStats)
		v1.GET("/analytics/categories", s.analyticsCategories)
	}

	return r
}

// Run слушает addr, пока не отменят контекст, затем аккуратно останавливает сервер
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "newspulse"})
}
