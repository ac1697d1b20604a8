package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/newsd/internal/account"
	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

func (s *Server) handleProfile(c echo.Context) error {
	u, err := s.accounts.Profile(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return failed("Failed to fetch user profile", err)
	}
	return c.JSON(http.StatusOK, v1.ProfileResponse{Envelope: v1.OK(), User: toProfile(u)})
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var req v1.ProfileUpdateRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	u, err := s.accounts.UpdateProfile(c.Request().Context(), currentUser(c).ID, account.ProfileUpdate{
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		return failed("Failed to update profile", err)
	}
	return c.JSON(http.StatusOK, v1.UserResponse{Envelope: v1.OK(), User: toUser(u)})
}

func (s *Server) handleUpdatePreferences(c echo.Context) error {
	var req v1.PreferencesRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	u, err := s.accounts.UpdatePreferences(c.Request().Context(), currentUser(c).ID, fromPreferences(req))
	if err != nil {
		return failed("Failed to update preferences", err)
	}
	return c.JSON(http.StatusOK, v1.UserResponse{Envelope: v1.OK(), User: toUser(u)})
}

func (s *Server) handleChangePassword(c echo.Context) error {
	var req v1.ChangePasswordRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	err := s.accounts.ChangePassword(c.Request().Context(), currentUser(c).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return failed("Failed to change password", err)
	}
	return c.JSON(http.StatusOK, message("Password changed successfully"))
}

func (s *Server) handleSaveArticle(c echo.Context) error {
	var req v1.ArticleRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	saved, err := s.accounts.SaveArticle(c.Request().Context(), currentUser(c).ID, req.ArticleID)
	if err != nil {
		return failed("Failed to save article", err)
	}
	return c.JSON(http.StatusOK, v1.SavedListResponse{
		Envelope:      message("Article saved successfully"),
		SavedArticles: nonNil(saved),
	})
}

func (s *Server) handleRemoveSaved(c echo.Context) error {
	saved, err := s.accounts.RemoveSaved(c.Request().Context(), currentUser(c).ID, c.Param("articleId"))
	if err != nil {
		return failed("Failed to remove saved article", err)
	}
	return c.JSON(http.StatusOK, v1.SavedListResponse{
		Envelope:      message("Article removed from saved"),
		SavedArticles: nonNil(saved),
	})
}

func (s *Server) handleSavedArticles(c echo.Context) error {
	articles, err := s.accounts.SavedArticles(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return failed("Failed to fetch saved articles", err)
	}
	return c.JSON(http.StatusOK, v1.ArticlesResponse{Envelope: v1.OK(), Articles: toArticles(articles)})
}

func (s *Server) handleAddHistory(c echo.Context) error {
	var req v1.ArticleRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	history, err := s.accounts.AddToHistory(c.Request().Context(), currentUser(c).ID, req.ArticleID)
	if err != nil {
		return failed("Failed to add to reading history", err)
	}
	return c.JSON(http.StatusOK, v1.HistoryResponse{
		Envelope:       message("Added to reading history"),
		ReadingHistory: toHistory(history),
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	history, err := s.accounts.History(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return failed("Failed to fetch reading history", err)
	}
	return c.JSON(http.StatusOK, v1.HistoryResponse{Envelope: v1.OK(), ReadingHistory: toHistory(history)})
}

func message(msg string) v1.Envelope {
	env := v1.OK()
	env.Message = msg
	return env
}
