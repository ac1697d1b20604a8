// Package user defines the account record, the invariants of its saved-article
// and reading-history lists, and the store contract used to persist it.
package user

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/fyrsmithlabs/newsd/internal/article"
)

// HistoryLimit caps the reading history length.
const HistoryLimit = 100

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")
	ErrAlreadySaved   = errors.New("article already saved")
)

// Provider is the identity source an account was created through.
type Provider string

const (
	Local     Provider = "local"
	Google    Provider = "google"
	Facebook  Provider = "facebook"
	Developer Provider = "developer"
	Guest     Provider = "guest"
)

// Providers lists every identity source.
var Providers = []Provider{Local, Google, Facebook, Developer, Guest}

// Preferences drive feed selection; the first entry of each list wins.
type Preferences struct {
	Categories []article.Category `json:"categories" bson:"categories" toml:"categories"`
	Sources    []string           `json:"sources" bson:"sources" toml:"sources"`
	Languages  []string           `json:"languages" bson:"languages" toml:"languages"`
	Countries  []string           `json:"countries" bson:"countries" toml:"countries"`
}

// HistoryEntry records when an article was last read.
type HistoryEntry struct {
	ArticleID string    `json:"articleId" bson:"articleId"`
	ReadAt    time.Time `json:"readAt" bson:"readAt"`
}

// User is an account. PasswordHash never leaves the process.
type User struct {
	ID             string         `json:"id" bson:"_id"`
	Email          string         `json:"email" bson:"email"`
	PasswordHash   string         `json:"-" bson:"password,omitempty"`
	Name           string         `json:"name" bson:"name"`
	Avatar         string         `json:"avatar" bson:"avatar"`
	Provider       Provider       `json:"provider" bson:"provider"`
	ProviderID     string         `json:"providerId" bson:"providerId"`
	Credits        int            `json:"credits" bson:"credits"`
	Preferences    Preferences    `json:"preferences" bson:"preferences"`
	SavedArticles  []string       `json:"savedArticles" bson:"savedArticles"`
	ReadingHistory []HistoryEntry `json:"readingHistory" bson:"readingHistory"`
	IsActive       bool           `json:"isActive" bson:"isActive"`
	LastLogin      *time.Time     `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// SaveArticle appends id to the saved list.
func (u *User) SaveArticle(id string) error {
	if slices.Contains(u.SavedArticles, id) {
		return ErrAlreadySaved
	}
	u.SavedArticles = append(u.SavedArticles, id)
	return nil
}

// RemoveSaved drops id from the saved list. Absent ids are ignored.
func (u *User) RemoveSaved(id string) {
	u.SavedArticles = slices.DeleteFunc(u.SavedArticles, func(s string) bool { return s == id })
}

// AddToHistory moves id to the front of the history with readAt, keeping at
// most HistoryLimit entries.
func (u *User) AddToHistory(id string, readAt time.Time) {
	history := make([]HistoryEntry, 0, min(len(u.ReadingHistory)+1, HistoryLimit))
	history = append(history, HistoryEntry{ArticleID: id, ReadAt: readAt})
	for _, e := range u.ReadingHistory {
		if len(history) == HistoryLimit {
			break
		}
		if e.ArticleID != id {
			history = append(history, e)
		}
	}
	u.ReadingHistory = history
}

// PreferencesUpdate is a partial preferences change; nil fields are untouched.
type PreferencesUpdate struct {
	Categories []article.Category
	Sources    []string
	Languages  []string
	Countries  []string
}

// Apply merges the non-nil fields of upd into p.
func (upd PreferencesUpdate) Apply(p *Preferences) {
	if upd.Categories != nil {
		p.Categories = upd.Categories
	}
	if upd.Sources != nil {
		p.Sources = upd.Sources
	}
	if upd.Languages != nil {
		p.Languages = upd.Languages
	}
	if upd.Countries != nil {
		p.Countries = upd.Countries
	}
}

// Patch is a partial change of an account's scalar fields; nil fields are
// untouched.
type Patch struct {
	Name         *string
	Avatar       *string
	PasswordHash *string
	IsActive     *bool
	LastLogin    *time.Time
	Preferences  PreferencesUpdate
}

// Apply merges the non-nil fields of p into u.
func (p Patch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.LastLogin != nil {
		t := *p.LastLogin
		u.LastLogin = &t
	}
	p.Preferences.Apply(&u.Preferences)
}

// Store persists users. Every write touches only the fields it names, so
// concurrent changes to one account never overwrite each other.
type Store interface {
	// Create inserts u, assigning ID and timestamps. A taken email yields
	// ErrDuplicateEmail.
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// FindByIdentity returns the user with email, or with the given provider
	// and non-empty providerID.
	FindByIdentity(ctx context.Context, email string, provider Provider, providerID string) (*User, error)
	// UpsertDeveloper atomically returns the single developer account,
	// creating it from u when none exists.
	UpsertDeveloper(ctx context.Context, u *User) (*User, error)
	// Patch applies p, bumps UpdatedAt and returns the stored user.
	Patch(ctx context.Context, id string, p Patch) (*User, error)
	// AddSaved appends articleID to the saved list. An id already present
	// yields ErrAlreadySaved.
	AddSaved(ctx context.Context, id, articleID string) (*User, error)
	// RemoveSaved drops articleID from the saved list.
	RemoveSaved(ctx context.Context, id, articleID string) (*User, error)
	// PushHistory moves e to the front of the reading history, keeping at
	// most HistoryLimit entries.
	PushHistory(ctx context.Context, id string, e HistoryEntry) (*User, error)
}
