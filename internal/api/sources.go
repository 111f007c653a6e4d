package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

type createSourceRequest struct {
	Name       string `json:"name" binding:"required"`
	WebsiteURL string `json:"website_url" binding:"omitempty,url"`
	RSSURL     string `json:"rss_url" binding:"omitempty,url"`
	Region     string `json:"region"`
	Language   string `json:"language"`
	Priority   *int   `json:"priority" binding:"omitempty,min=0"`
	Enabled    *bool  `json:"enabled"`
}

// Все поля необязательные, меняем только пришедшие
type updateSourceRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=1"`
	WebsiteURL *string `json:"website_url" binding:"omitempty,url"`
	RSSURL     *string `json:"rss_url" binding:"omitempty,url"`
	Region     *string `json:"region"`
	Language   *string `json:"language"`
	Priority   *int    `json:"priority" binding:"omitempty,min=0"`
	Enabled    *bool   `json:"enabled"`
}

func (r updateSourceRequest) apply(source *model.Source) {
	if r.Name != nil {
		source.Name = strings.TrimSpace(*r.Name)
	}
	if r.WebsiteURL != nil {
		source.WebsiteURL = *r.WebsiteURL
	}
	if r.RSSURL != nil {
		source.FeedURL = *r.RSSURL
	}
	if r.Region != nil {
		source.Region = *r.Region
	}
	if r.Language != nil {
		source.Language = *r.Language
	}
	if r.Priority != nil {
		source.Priority = *r.Priority
	}
	if r.Enabled != nil {
		source.Enabled = *r.Enabled
	}
}

func (s *Server) listSources(c *gin.Context) {
	ctx := c.Request.Context()

	load := s.deps.Sources.Sources
	if enabledOnly, _ := strconv.ParseBool(c.Query("enabled_only")); enabledOnly {
		load = s.deps.Sources.EnabledSources
	}

	sources, err := load(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, lo.Map(sources, func(src model.Source, _ int) SourceView {
		return newSourceView(src)
	}))
}

func (s *Server) sourceStats(c *gin.Context) {
	stats, err := s.deps.Sources.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, lo.Map(stats, func(st model.SourceStats, _ int) SourceStatsView {
		return SourceStatsView{
			SourceView:    newSourceView(st.Source),
			ArticleCount:  st.ArticleCount,
			LastArticleAt: st.LastArticleAt,
		}
	}))
}

func (s *Server) getSource(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}

	source, err := s.deps.Sources.SourceByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newSourceView(source))
}

func (s *Server) sourceArticles(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}

	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	if _, err := s.deps.Sources.SourceByID(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	s.respondArticles(c, model.ArticleFilter{SourceID: id}, q)
}

func (s *Server) createSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	source := model.Source{
		Name:       strings.TrimSpace(req.Name),
		WebsiteURL: req.WebsiteURL,
		FeedURL:    req.RSSURL,
		Region:     req.Region,
		Language:   lo.Ternary(req.Language == "", "en", req.Language),
		Priority:   1,
		Enabled:    true,
	}
	if req.Priority != nil {
		source.Priority = *req.Priority
	}
	if req.Enabled != nil {
		source.Enabled = *req.Enabled
	}
	if source.Name == "" {
		badRequest(c, "name must not be blank")
		return
	}

	ctx := c.Request.Context()

	id, err := s.deps.Sources.Add(ctx, source)
	if err != nil {
		s.fail(c, err)
		return
	}

	created, err := s.deps.Sources.SourceByID(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSourceView(created))
}

func (s *Server) updateSource(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}

	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	source, err := s.deps.Sources.SourceByID(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}

	req.apply(&source)
	if source.Name == "" {
		badRequest(c, "name must not be blank")
		return
	}

	if err := s.deps.Sources.Update(ctx, source); err != nil {
		s.fail(c, err)
		return
	}

	updated, err := s.deps.Sources.SourceByID(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newSourceView(updated))
}

func (s *Server) deleteSource(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}

	if err := s.deps.Sources.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "source deleted", "id": id})
}

func sourceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "source id must be a positive integer")
		return 0, false
	}
	return id, true
}
