// Package memory is an in-process store backend for development and tests.
// It honours the same uniqueness rules as the Mongo backend.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/user"
	"github.com/google/uuid"
)

// Store holds articles and users in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	articles   map[string]*article.Article // by ID
	byExternal map[string]string           // externalId -> ID
	users      map[string]*user.User       // by ID
	byEmail    map[string]string           // email -> ID

	now func() time.Time
}

var (
	_ article.Store = (*Store)(nil)
	_ user.Store    = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		articles:   make(map[string]*article.Article),
		byExternal: make(map[string]string),
		users:      make(map[string]*user.User),
		byEmail:    make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) InsertIfAbsent(_ context.Context, a *article.Article) (*article.Article, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byExternal[a.ExternalID]; ok {
		return cloneArticle(s.articles[id]), false, nil
	}
	stored := cloneArticle(a)
	stored.ID = uuid.NewString()
	s.articles[stored.ID] = stored
	s.byExternal[stored.ExternalID] = stored.ID
	return cloneArticle(stored), true, nil
}

func (s *Store) GetByExternalID(_ context.Context, externalID string) (*article.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byExternal[externalID]
	if !ok {
		return nil, article.ErrNotFound
	}
	return cloneArticle(s.articles[id]), nil
}

func (s *Store) GetMany(_ context.Context, ids []string) ([]article.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]article.Article, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.articles[id]; ok && a.IsActive {
			out = append(out, *cloneArticle(a))
		}
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(u)
}

func (s *Store) createLocked(u *user.User) error {
	if _, taken := s.byEmail[u.Email]; taken {
		return user.ErrDuplicateEmail
	}
	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = cloneUser(u)
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) FindByIdentity(_ context.Context, email string, provider user.Provider, providerID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byEmail[email]; ok {
		return cloneUser(s.users[id]), nil
	}
	if providerID != "" {
		for _, u := range s.users {
			if u.Provider == provider && u.ProviderID == providerID {
				return cloneUser(u), nil
			}
		}
	}
	return nil, user.ErrNotFound
}

func (s *Store) UpsertDeveloper(_ context.Context, u *user.User) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Provider == user.Developer {
			return cloneUser(existing), nil
		}
	}
	created := cloneUser(u)
	if err := s.createLocked(created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) Patch(_ context.Context, id string, p user.Patch) (*user.User, error) {
	return s.modify(id, func(u *user.User) error {
		p.Apply(u)
		return nil
	})
}

func (s *Store) AddSaved(_ context.Context, id, articleID string) (*user.User, error) {
	return s.modify(id, func(u *user.User) error {
		return u.SaveArticle(articleID)
	})
}

func (s *Store) RemoveSaved(_ context.Context, id, articleID string) (*user.User, error) {
	return s.modify(id, func(u *user.User) error {
		u.RemoveSaved(articleID)
		return nil
	})
}

func (s *Store) PushHistory(_ context.Context, id string, e user.HistoryEntry) (*user.User, error) {
	return s.modify(id, func(u *user.User) error {
		u.AddToHistory(e.ArticleID, e.ReadAt)
		return nil
	})
}

// modify applies fn to the stored user under the write lock.
func (s *Store) modify(id string, fn func(*user.User) error) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	updated := cloneUser(u)
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()
	s.users[id] = updated
	return cloneUser(updated), nil
}

func cloneArticle(a *article.Article) *article.Article {
	c := *a
	c.Tags = slices.Clone(a.Tags)
	return &c
}

func cloneUser(u *user.User) *user.User {
	c := *u
	c.Preferences.Categories = slices.Clone(u.Preferences.Categories)
	c.Preferences.Sources = slices.Clone(u.Preferences.Sources)
	c.Preferences.Languages = slices.Clone(u.Preferences.Languages)
	c.Preferences.Countries = slices.Clone(u.Preferences.Countries)
	c.SavedArticles = slices.Clone(u.SavedArticles)
	c.ReadingHistory = slices.Clone(u.ReadingHistory)
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}
