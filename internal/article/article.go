// Package article defines the cached news article, the rules that turn a raw
// provider record into one, and the store contract used to persist it.
package article

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when no article matches a lookup.
var ErrNotFound = errors.New("article not found")

// Category is the coarse topic an article is filed under.
type Category string

const (
	Technology    Category = "Technology"
	World         Category = "World"
	Business      Category = "Business"
	Science       Category = "Science"
	Health        Category = "Health"
	Sports        Category = "Sports"
	Entertainment Category = "Entertainment"
	Politics      Category = "Politics"
	General       Category = "General"
)

// Selectable lists the categories a user may put in their preferences.
// General is assigned by classification only.
var Selectable = []Category{
	Technology, World, Business, Science, Health, Sports, Entertainment, Politics,
}

// ParseCategory matches s case-insensitively against all categories.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(General)) {
		return General, true
	}
	for _, c := range Selectable {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Source identifies the publisher as reported by the provider.
type Source struct {
	Name string `json:"name" bson:"name"`
	ID   string `json:"id,omitempty" bson:"id,omitempty"`
}

// Article is the cached, normalized form of a provider record. It is created
// on first ingestion of its ExternalID and never mutated afterwards.
type Article struct {
	ID          string    `json:"id" bson:"_id"`
	ExternalID  string    `json:"externalId" bson:"externalId"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Content     string    `json:"content" bson:"content"`
	URL         string    `json:"url,omitempty" bson:"url,omitempty"`
	ImageURL    string    `json:"imageUrl" bson:"imageUrl"`
	PublishedAt time.Time `json:"publishedAt" bson:"publishedAt"`
	Source      Source    `json:"source" bson:"source"`
	Category    Category  `json:"category" bson:"category"`
	Author      string    `json:"author" bson:"author"`
	ReadTime    int       `json:"readTime" bson:"readTime"`
	Credits     int       `json:"credits" bson:"credits"`
	Tags        []string  `json:"tags" bson:"tags"`
	Language    string    `json:"language" bson:"language"`
	Country     string    `json:"country" bson:"country"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Store persists articles keyed by ExternalID.
type Store interface {
	// InsertIfAbsent atomically stores a unless an article with the same
	// ExternalID exists. It returns the stored article and whether it was
	// created by this call.
	InsertIfAbsent(ctx context.Context, a *Article) (*Article, bool, error)
	GetByExternalID(ctx context.Context, externalID string) (*Article, error)
	// GetMany returns the active articles among ids, in ids order.
	// Unknown ids are skipped.
	GetMany(ctx context.Context, ids []string) ([]Article, error)
}
