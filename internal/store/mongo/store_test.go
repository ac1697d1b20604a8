package mongo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to NEWSD_TEST_MONGO_URI using a throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("NEWSD_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("NEWSD_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := "newsd_test_" + uuid.NewString()[:8]
	s, err := Connect(ctx, uri, db)
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndexes(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.DropDatabase(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestIndexModels(t *testing.T) {
	assert.Len(t, articleIndexes(), 5)
	assert.Len(t, userIndexes(), 3)
	assert.True(t, *articleIndexes()[0].Options.Unique)
	assert.NotNil(t, userIndexes()[1].Options.PartialFilterExpression)
}

func TestMongo_InsertIfAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, created, err := s.InsertIfAbsent(ctx, &article.Article{ExternalID: "https://x/1", Title: "first", IsActive: true})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := s.InsertIfAbsent(ctx, &article.Article{ExternalID: "https://x/1", Title: "second"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "first", again.Title)

	got, err := s.GetMany(ctx, []string{"missing", first.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)
}

func TestMongo_InsertIfAbsent_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, _, err := s.InsertIfAbsent(ctx, &article.Article{ExternalID: "race", Title: fmt.Sprint(i)})
			assert.NoError(t, err)
			if a != nil {
				ids[i] = a.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestMongo_Users(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &user.User{Email: "ada@example.com", Name: "Ada", Provider: user.Local, IsActive: true}
	require.NoError(t, s.Create(ctx, u))
	assert.ErrorIs(t, s.Create(ctx, &user.User{Email: "ada@example.com"}), user.ErrDuplicateEmail)

	_, err := s.AddSaved(ctx, u.ID, "a1")
	require.NoError(t, err)
	_, err = s.AddSaved(ctx, u.ID, "a1")
	assert.ErrorIs(t, err, user.ErrAlreadySaved)

	readAt := time.Now().UTC().Truncate(time.Millisecond)
	_, err = s.PushHistory(ctx, u.ID, user.HistoryEntry{ArticleID: "a1", ReadAt: readAt})
	require.NoError(t, err)
	_, err = s.PushHistory(ctx, u.ID, user.HistoryEntry{ArticleID: "a2", ReadAt: readAt})
	require.NoError(t, err)
	got, err := s.PushHistory(ctx, u.ID, user.HistoryEntry{ArticleID: "a1", ReadAt: readAt.Add(time.Second)})
	require.NoError(t, err)
	require.Len(t, got.ReadingHistory, 2)
	assert.Equal(t, "a1", got.ReadingHistory[0].ArticleID)
	assert.Equal(t, "a2", got.ReadingHistory[1].ArticleID)

	name := "Countess"
	got, err = s.Patch(ctx, u.ID, user.Patch{
		Name:        &name,
		Preferences: user.PreferencesUpdate{Countries: []string{"gb"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Countess", got.Name)
	assert.Equal(t, []string{"gb"}, got.Preferences.Countries)
	assert.Equal(t, []string{"a1"}, got.SavedArticles)

	got, err = s.RemoveSaved(ctx, u.ID, "a1")
	require.NoError(t, err)
	assert.Empty(t, got.SavedArticles)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = s.Patch(ctx, "nope", user.Patch{})
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = s.AddSaved(ctx, "nope", "a1")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestMongo_HistoryLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := &user.User{Email: "h@example.com"}
	require.NoError(t, s.Create(ctx, u))

	var got *user.User
	var err error
	for i := range user.HistoryLimit + 5 {
		got, err = s.PushHistory(ctx, u.ID, user.HistoryEntry{ArticleID: fmt.Sprintf("a%d", i), ReadAt: time.Now().UTC()})
		require.NoError(t, err)
	}
	assert.Len(t, got.ReadingHistory, user.HistoryLimit)
	assert.Equal(t, fmt.Sprintf("a%d", user.HistoryLimit+4), got.ReadingHistory[0].ArticleID)
}

func TestMongo_ConcurrentSaves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := &user.User{Email: "c@example.com"}
	require.NoError(t, s.Create(ctx, u))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddSaved(ctx, u.ID, fmt.Sprintf("a%d", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, got.SavedArticles, 10)
}

func TestMongo_UpsertDeveloper_EmailHeld(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &user.User{Email: "developer@newsapp.com", Provider: user.Local}))

	_, err := s.UpsertDeveloper(ctx, &user.User{Email: "developer@newsapp.com"})
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestMongo_UpsertDeveloper(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.UpsertDeveloper(ctx, &user.User{Email: "developer@newsapp.com", Credits: 1000})
	require.NoError(t, err)
	b, err := s.UpsertDeveloper(ctx, &user.User{Email: "developer@newsapp.com", Credits: 1})
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1000, b.Credits)
}
