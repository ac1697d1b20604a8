// Package reader holds the client-side reading state: the loaded article
// list, the cursor over it, the local credit balance and read-aloud playback.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

// ErrNoArticle is returned when an action needs a current article and the
// list is empty.
var ErrNoArticle = errors.New("no article selected")

// API is the subset of the newsd client the reader drives.
type API interface {
	Headlines(ctx context.Context) ([]v1.Article, error)
	Search(ctx context.Context, q string) ([]v1.Article, error)
	SaveArticle(ctx context.Context, articleID string) ([]string, error)
	MarkRead(ctx context.Context, articleID string) ([]v1.HistoryEntry, error)
}

// Reader is the reading session of one signed-in user. It is safe for
// concurrent use.
type Reader struct {
	api API

	mu       sync.Mutex
	articles []v1.Article
	cursor   int
	credits  int
	credited map[string]bool
}

// New creates a Reader starting with the user's credit balance.
func New(api API, credits int) *Reader {
	return &Reader{
		api:      api,
		credits:  credits,
		credited: make(map[string]bool),
	}
}

// Load replaces the article list and resets the cursor.
func (r *Reader) Load(articles []v1.Article) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles = articles
	r.cursor = 0
}

// Refresh loads the user's headlines.
func (r *Reader) Refresh(ctx context.Context) error {
	articles, err := r.api.Headlines(ctx)
	if err != nil {
		return fmt.Errorf("loading headlines: %w", err)
	}
	r.Load(articles)
	return nil
}

// Search replaces the list with results for q. An empty result leaves the
// current list in place and reports zero matches.
func (r *Reader) Search(ctx context.Context, q string) (int, error) {
	articles, err := r.api.Search(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("searching %q: %w", q, err)
	}
	if len(articles) > 0 {
		r.Load(articles)
	}
	return len(articles), nil
}

// Articles returns the loaded list.
func (r *Reader) Articles() []v1.Article {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.articles
}

// Index returns the cursor position.
func (r *Reader) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Current returns the article under the cursor.
func (r *Reader) Current() (v1.Article, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

func (r *Reader) currentLocked() (v1.Article, bool) {
	if len(r.articles) == 0 {
		return v1.Article{}, false
	}
	return r.articles[r.cursor], true
}

// Next moves the cursor forward, wrapping to the first article.
func (r *Reader) Next() {
	r.move(1)
}

// Previous moves the cursor back, wrapping to the last article.
func (r *Reader) Previous() {
	r.move(-1)
}

func (r *Reader) move(delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.articles)
	if n == 0 {
		return
	}
	r.cursor = ((r.cursor+delta)%n + n) % n
}

// Save adds the current article to the saved list.
func (r *Reader) Save(ctx context.Context) error {
	a, ok := r.Current()
	if !ok {
		return ErrNoArticle
	}
	if _, err := r.api.SaveArticle(ctx, a.ID); err != nil {
		return fmt.Errorf("saving %s: %w", a.ID, err)
	}
	return nil
}

// MarkRead records the current article in the reading history. The first
// time an article is read in this session its credits are added to the
// local balance.
func (r *Reader) MarkRead(ctx context.Context) error {
	a, ok := r.Current()
	if !ok {
		return ErrNoArticle
	}
	if _, err := r.api.MarkRead(ctx, a.ID); err != nil {
		return fmt.Errorf("marking %s read: %w", a.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.credited[a.ID] {
		r.credited[a.ID] = true
		r.credits += a.Credits
	}
	return nil
}

// Credits returns the local credit balance.
func (r *Reader) Credits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.credits
}

// Deduct removes amount from the local balance, stopping at zero.
func (r *Reader) Deduct(amount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credits = max(0, r.credits-amount)
}
