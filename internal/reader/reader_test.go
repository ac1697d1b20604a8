package reader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Headlines(ctx context.Context) ([]v1.Article, error) {
	args := m.Called(ctx)
	articles, _ := args.Get(0).([]v1.Article)
	return articles, args.Error(1)
}

func (m *mockAPI) Search(ctx context.Context, q string) ([]v1.Article, error) {
	args := m.Called(ctx, q)
	articles, _ := args.Get(0).([]v1.Article)
	return articles, args.Error(1)
}

func (m *mockAPI) SaveArticle(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	saved, _ := args.Get(0).([]string)
	return saved, args.Error(1)
}

func (m *mockAPI) MarkRead(ctx context.Context, id string) ([]v1.HistoryEntry, error) {
	args := m.Called(ctx, id)
	history, _ := args.Get(0).([]v1.HistoryEntry)
	return history, args.Error(1)
}

func articles(ids ...string) []v1.Article {
	out := make([]v1.Article, len(ids))
	for i, id := range ids {
		out[i] = v1.Article{ID: id, Title: "T" + id, Credits: 10}
	}
	return out
}

func TestReader_CursorWraps(t *testing.T) {
	r := New(&mockAPI{}, 0)

	r.Next()
	r.Previous()
	_, ok := r.Current()
	assert.False(t, ok)

	r.Load(articles("a", "b", "c"))
	assert.Equal(t, 0, r.Index())

	r.Previous()
	assert.Equal(t, 2, r.Index())
	r.Next()
	assert.Equal(t, 0, r.Index())
	r.Next()
	r.Next()
	cur, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "c", cur.ID)

	r.Load(articles("x"))
	assert.Equal(t, 0, r.Index())
	r.Next()
	assert.Equal(t, 0, r.Index())
}

func TestReader_RefreshAndSearch(t *testing.T) {
	api := &mockAPI{}
	ctx := context.Background()
	api.On("Headlines", ctx).Return(articles("a", "b"), nil).Once()
	api.On("Search", ctx, "none").Return([]v1.Article{}, nil).Once()
	api.On("Search", ctx, "go").Return(articles("g"), nil).Once()
	api.On("Headlines", ctx).Return(nil, errors.New("offline")).Once()

	r := New(api, 0)
	require.NoError(t, r.Refresh(ctx))
	r.Next()

	n, err := r.Search(ctx, "none")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, r.Articles(), 2)
	assert.Equal(t, 1, r.Index())

	n, err = r.Search(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, r.Index())

	err = r.Refresh(ctx)
	assert.ErrorContains(t, err, "offline")
	assert.Len(t, r.Articles(), 1)
	api.AssertExpectations(t)
}

func TestReader_SaveAndMarkRead(t *testing.T) {
	api := &mockAPI{}
	ctx := context.Background()
	api.On("SaveArticle", ctx, "a").Return([]string{"a"}, nil)
	api.On("MarkRead", ctx, "a").Return([]v1.HistoryEntry{{ArticleID: "a"}}, nil)
	api.On("MarkRead", ctx, "b").Return(nil, &v1.Error{StatusCode: 401})

	r := New(api, 100)
	assert.ErrorIs(t, r.Save(ctx), ErrNoArticle)
	assert.ErrorIs(t, r.MarkRead(ctx), ErrNoArticle)

	r.Load(articles("a", "b"))
	require.NoError(t, r.Save(ctx))

	require.NoError(t, r.MarkRead(ctx))
	require.NoError(t, r.MarkRead(ctx))
	assert.Equal(t, 110, r.Credits())

	r.Next()
	err := r.MarkRead(ctx)
	assert.ErrorIs(t, err, v1.ErrUnauthorized)
	assert.Equal(t, 110, r.Credits())

	r.Deduct(500)
	assert.Zero(t, r.Credits())
	api.AssertExpectations(t)
}
