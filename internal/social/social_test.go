package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/newsd/internal/user"
)

func TestUserInfoVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/google":
			_, _ = w.Write([]byte(`{"sub":"g-123","email":"Ada@Example.com","name":"Ada"}`))
		case "/facebook":
			_, _ = w.Write([]byte(`{"id":"fb-9","email":"ada@example.com","name":"Ada"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	v := NewUserInfoVerifier(srv.URL+"/google", srv.URL+"/facebook", time.Second)
	ctx := context.Background()

	id, err := v.Verify(ctx, user.Google, "good-token")
	require.NoError(t, err)
	assert.Equal(t, "g-123", id.Subject)
	assert.Equal(t, "ada@example.com", id.Email)

	id, err = v.Verify(ctx, user.Facebook, "good-token")
	require.NoError(t, err)
	assert.Equal(t, "fb-9", id.Subject)

	_, err = v.Verify(ctx, user.Google, "bad-token")
	assert.ErrorIs(t, err, ErrTokenRejected)

	_, err = v.Verify(ctx, user.Local, "good-token")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestUserInfoVerifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewUserInfoVerifier(srv.URL, "", time.Second)
	_, err := v.Verify(context.Background(), user.Google, "t")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenRejected)

	_, err = v.Verify(context.Background(), user.Facebook, "t")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}
