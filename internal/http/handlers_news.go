package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/feed"
	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, v1.HealthResponse{Status: "ok"})
}

func (s *Server) handleNewsIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, v1.IndexResponse{
		Envelope: message("Welcome to the News API"),
		Endpoints: map[string]string{
			"headlines":  "/api/news/headlines",
			"search":     "/api/news/search",
			"categories": "/api/news/categories",
			"sources":    "/api/news/sources",
			"category":   "/api/news/category/:category",
			"source":     "/api/news/source/:source",
		},
	})
}

func (s *Server) handleHeadlines(c echo.Context) error {
	articles, err := s.feeds.Headlines(c.Request().Context(), currentUser(c).Preferences)
	if err != nil {
		return failed("Failed to fetch headlines", err)
	}
	return c.JSON(http.StatusOK, feedResponse(articles))
}

func (s *Server) handleSearch(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return feed.ErrQueryRequired
	}
	articles, err := s.feeds.Search(c.Request().Context(), q, currentUser(c).Preferences)
	if err != nil {
		return failed("Failed to search news", err)
	}
	resp := feedResponse(articles)
	resp.Query = q
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCategory(c echo.Context) error {
	category := c.Param("category")
	articles, err := s.feeds.ByCategory(c.Request().Context(), category)
	if err != nil {
		return failed("Failed to fetch articles by category", err)
	}
	resp := feedResponse(articles)
	resp.Category = category
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSource(c echo.Context) error {
	source := c.Param("source")
	articles, err := s.feeds.BySource(c.Request().Context(), source)
	if err != nil {
		return failed("Failed to fetch articles by source", err)
	}
	resp := feedResponse(articles)
	resp.Source = source
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCategories(c echo.Context) error {
	categories := feed.Categories()
	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = string(cat)
	}
	return c.JSON(http.StatusOK, v1.CategoriesResponse{Envelope: v1.OK(), Categories: names})
}

func (s *Server) handleSources(c echo.Context) error {
	return c.JSON(http.StatusOK, v1.SourcesResponse{Envelope: v1.OK(), Sources: feed.Sources()})
}

func feedResponse(articles []article.Article) v1.FeedResponse {
	return v1.FeedResponse{
		Envelope: v1.OK(),
		Count:    len(articles),
		Articles: toArticles(articles),
	}
}
