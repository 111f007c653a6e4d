package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kovalyov-valentin/newspulse/internal/fetcher"
	"github.com/kovalyov-valentin/newspulse/internal/metrics"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// Метрики по каждому запросу. Путь берем из шаблона маршрута, чтобы id не раздували метки
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Ответ об ошибке клиента
func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

// fail превращает ошибку в ответ. Подробности внутренних ошибок клиенту не показываем, только в лог
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, model.ErrSourceExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "source with this name already exists"})
	case errors.Is(err, model.ErrSourceHasArticles):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "source has articles, disable it instead"})
	case errors.Is(err, fetcher.ErrAlreadyRunning):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "fetch is already running"})
	default:
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
