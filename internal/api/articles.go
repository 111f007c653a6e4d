package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// Параметры пагинации, общие для всех списков статей
type pageQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=100" binding:"min=1,max=1000"`
}

type articlesQuery struct {
	pageQuery
	Category      string `form:"category"`
	SourceID      int64  `form:"source_id" binding:"omitempty,min=1"`
	MinRelevance  int    `form:"min_relevance_score" binding:"omitempty,min=1,max=100"`
	ProcessedOnly *bool  `form:"processed_only"`
}

func (s *Server) listArticles(c *gin.Context) {
	var q articlesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	category := strings.ToLower(strings.TrimSpace(q.Category))
	if category != "" && !s.knownCategory(category) {
		badRequest(c, "unknown category "+q.Category)
		return
	}

	s.respondArticles(c, model.ArticleFilter{
		Category:      category,
		SourceID:      q.SourceID,
		MinRelevance:  q.MinRelevance,
		ProcessedOnly: q.ProcessedOnly,
	}, q.pageQuery)
}

func (s *Server) articlesByCategory(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	category := strings.ToLower(c.Param("category"))
	if !s.knownCategory(category) {
		badRequest(c, "unknown category "+c.Param("category"))
		return
	}

	s.respondArticles(c, model.ArticleFilter{Category: category}, q)
}

func (s *Server) respondArticles(c *gin.Context, filter model.ArticleFilter, page pageQuery) {
	ctx := c.Request.Context()

	filter.Skip = page.Skip
	filter.Limit = page.Limit

	articles, err := s.deps.Articles.List(ctx, filter)
	if err != nil {
		s.fail(c, err)
		return
	}

	total, err := s.deps.Articles.Count(ctx, filter)
	if err != nil {
		s.fail(c, err)
		return
	}

	sources, err := s.deps.Sources.Sources(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ArticleList{
		Articles: newArticleViews(articles, sourceNames(sources)),
		Total:    total,
		Skip:     page.Skip,
		Limit:    page.Limit,
		HasMore:  page.Skip+len(articles) < total,
	})
}

func (s *Server) getArticle(c *gin.Context) {
	article, err := s.deps.Articles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s.articleView(c, article))
}

func (s *Server) classifyArticle(c *gin.Context) {
	article, err := s.deps.Processor.ClassifyArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s.articleView(c, article))
}

func (s *Server) extractContent(c *gin.Context) {
	article, result, err := s.deps.Extractor.ExtractArticle(c.Request.Context(), c.Param("id"))
	if errors.Is(err, model.ErrNotFound) {
		s.fail(c, err)
		return
	}
	if err != nil {
		s.logger.Warn("content extraction failed", "article_id", c.Param("id"), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "content extraction failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": result.Success,
		"authors": result.Authors,
		"article": s.articleView(c, article),
	})
}

// Для одной статьи имя источника достаем отдельным запросом
func (s *Server) articleView(c *gin.Context, article model.Article) ArticleView {
	var name string

	source, err := s.deps.Sources.SourceByID(c.Request.Context(), article.SourceID)
	if err == nil {
		name = source.Name
	} else if !errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("failed to load article source", "source_id", article.SourceID, "error", err)
	}

	return newArticleView(article, name, true)
}
