package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kovalyov-valentin/newspulse/internal/cache"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

const (
	statsCacheKey      = "analytics:stats"
	categoriesCacheKey = "analytics:categories"
)

type classifyQuery struct {
	BatchSize int `form:"batch_size,default=50" binding:"min=1,max=1000"`
}

// fetch запускает обход всех включенных источников прямо сейчас.
// Запрос ждет окончания обхода и возвращает сводку
func (s *Server) fetch(c *gin.Context) {
	summary, err := s.deps.Fetcher.Fetch(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) classifyBatch(c *gin.Context) {
	var q classifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	stats, err := s.deps.Processor.ProcessBatch(c.Request.Context(), q.BatchSize)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) analyticsStats(c *gin.Context) {
	stats, err := cache.GetOrLoad(c.Request.Context(), s.deps.Cache, statsCacheKey, s.deps.CacheTTL,
		func(ctx context.Context) (model.PlatformStats, error) {
			return s.deps.Articles.PlatformStats(ctx)
		})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) analyticsCategories(c *gin.Context) {
	counts, err := cache.GetOrLoad(c.Request.Context(), s.deps.Cache, categoriesCacheKey, s.deps.CacheTTL,
		func(ctx context.Context) ([]model.CategoryCount, error) {
			return s.deps.Articles.CategoryCounts(ctx)
		})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": counts})
}
