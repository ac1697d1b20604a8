package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/user"
)

// ProfileUpdate changes display fields. A nil or blank Name is ignored; a
// non-nil Avatar replaces the current one, including with "".
type ProfileUpdate struct {
	Name   *string
	Avatar *string
}

// Profile returns the user.
func (s *Service) Profile(ctx context.Context, userID string) (*user.User, error) {
	return s.load(ctx, userID)
}

// UpdateProfile applies upd and returns the updated user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*user.User, error) {
	var p user.Patch
	if upd.Name != nil {
		if name := strings.TrimSpace(*upd.Name); name != "" {
			p.Name = &name
		}
	}
	p.Avatar = upd.Avatar
	return s.write(s.users.Patch(ctx, userID, p))
}

// UpdatePreferences applies a partial preferences change. Categories must be
// user-selectable.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, upd user.PreferencesUpdate) (*user.User, error) {
	if upd.Categories != nil {
		normalized := make([]article.Category, 0, len(upd.Categories))
		for _, c := range upd.Categories {
			parsed, ok := article.ParseCategory(string(c))
			if !ok || parsed == article.General {
				return nil, invalid(fmt.Sprintf("Unknown category %q", c))
			}
			normalized = append(normalized, parsed)
		}
		upd.Categories = normalized
	}
	return s.write(s.users.Patch(ctx, userID, user.Patch{Preferences: upd}))
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return invalid("Current password and new password are required")
	}
	if len(next) < MinPasswordLength {
		return invalid(fmt.Sprintf("New password must be at least %d characters", MinPasswordLength))
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !u.HasPassword() {
		return ErrNoPassword
	}
	if !s.creds.CheckPassword(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	hash, err := s.creds.HashPassword(next)
	if err != nil {
		return err
	}
	_, err = s.write(s.users.Patch(ctx, userID, user.Patch{PasswordHash: &hash}))
	return err
}

// SaveArticle appends articleID to the saved list and returns the list.
func (s *Service) SaveArticle(ctx context.Context, userID, articleID string) ([]string, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, invalid("Article ID is required")
	}
	u, err := s.write(s.users.AddSaved(ctx, userID, articleID))
	if err != nil {
		return nil, err
	}
	return u.SavedArticles, nil
}

// RemoveSaved drops articleID from the saved list and returns the list.
func (s *Service) RemoveSaved(ctx context.Context, userID, articleID string) ([]string, error) {
	u, err := s.write(s.users.RemoveSaved(ctx, userID, articleID))
	if err != nil {
		return nil, err
	}
	return u.SavedArticles, nil
}

// SavedArticles resolves the saved list to stored articles. Ids that no
// longer resolve are skipped.
func (s *Service) SavedArticles(ctx context.Context, userID string) ([]article.Article, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	articles, err := s.articles.GetMany(ctx, u.SavedArticles)
	if err != nil {
		return nil, fmt.Errorf("loading saved articles: %w", err)
	}
	return articles, nil
}

// AddToHistory records articleID as read now and returns the history.
func (s *Service) AddToHistory(ctx context.Context, userID, articleID string) ([]user.HistoryEntry, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, invalid("Article ID is required")
	}
	entry := user.HistoryEntry{ArticleID: articleID, ReadAt: s.now()}
	u, err := s.write(s.users.PushHistory(ctx, userID, entry))
	if err != nil {
		return nil, err
	}
	return u.ReadingHistory, nil
}

// History returns the reading history, most recent first.
func (s *Service) History(ctx context.Context, userID string) ([]user.HistoryEntry, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.ReadingHistory, nil
}

func (s *Service) load(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return u, nil
}

// write maps the result of a store update to service errors.
func (s *Service) write(u *user.User, err error) (*user.User, error) {
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, user.ErrNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, user.ErrAlreadySaved):
		return nil, err
	}
	return nil, fmt.Errorf("saving user: %w", err)
}
