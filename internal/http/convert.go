package http

import (
	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/user"
	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

func toUser(u *user.User) v1.User {
	return v1.User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Avatar:      u.Avatar,
		Credits:     u.Credits,
		Preferences: toPreferences(u.Preferences),
	}
}

func toProfile(u *user.User) v1.Profile {
	saved := u.SavedArticles
	if saved == nil {
		saved = []string{}
	}
	return v1.Profile{
		User:           toUser(u),
		SavedArticles:  saved,
		ReadingHistory: toHistory(u.ReadingHistory),
	}
}

func toPreferences(p user.Preferences) v1.Preferences {
	categories := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		categories[i] = string(c)
	}
	return v1.Preferences{
		Categories: categories,
		Sources:    nonNil(p.Sources),
		Languages:  nonNil(p.Languages),
		Countries:  nonNil(p.Countries),
	}
}

func fromPreferences(req v1.PreferencesRequest) user.PreferencesUpdate {
	upd := user.PreferencesUpdate{
		Sources:   req.Sources,
		Languages: req.Languages,
		Countries: req.Countries,
	}
	if req.Categories != nil {
		upd.Categories = make([]article.Category, len(req.Categories))
		for i, c := range req.Categories {
			upd.Categories[i] = article.Category(c)
		}
	}
	return upd
}

func toHistory(entries []user.HistoryEntry) []v1.HistoryEntry {
	out := make([]v1.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = v1.HistoryEntry{ArticleID: e.ArticleID, ReadAt: e.ReadAt}
	}
	return out
}

func toArticles(articles []article.Article) []v1.Article {
	out := make([]v1.Article, len(articles))
	for i := range articles {
		a := &articles[i]
		out[i] = v1.Article{
			ID:          a.ID,
			ExternalID:  a.ExternalID,
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			URL:         a.URL,
			ImageURL:    a.ImageURL,
			PublishedAt: a.PublishedAt,
			Source:      v1.Source{Name: a.Source.Name, ID: a.Source.ID},
			Category:    string(a.Category),
			Author:      a.Author,
			ReadTime:    a.ReadTime,
			Credits:     a.Credits,
			Tags:        nonNil(a.Tags),
			Language:    a.Language,
			Country:     a.Country,
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
