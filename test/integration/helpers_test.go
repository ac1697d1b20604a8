package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fyrsmithlabs/newsd/internal/account"
	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/cache"
	"github.com/fyrsmithlabs/newsd/internal/credential"
	"github.com/fyrsmithlabs/newsd/internal/events"
	"github.com/fyrsmithlabs/newsd/internal/feed"
	internalhttp "github.com/fyrsmithlabs/newsd/internal/http"
	"github.com/fyrsmithlabs/newsd/internal/ingest"
	"github.com/fyrsmithlabs/newsd/internal/logging"
	"github.com/fyrsmithlabs/newsd/internal/newsapi"
	"github.com/fyrsmithlabs/newsd/internal/store/memory"
	mongostore "github.com/fyrsmithlabs/newsd/internal/store/mongo"
	"github.com/fyrsmithlabs/newsd/internal/user"
	"github.com/fyrsmithlabs/newsd/pkg/client"
)

const eventPrefix = "newsd-it"

const providerBody = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {"source": {"id": "techcrunch", "name": "TechCrunch"}, "author": "Jane", "title": "Chips",
     "description": "Fabs expand", "url": "https://example.com/chips", "urlToImage": null,
     "publishedAt": "2024-05-01T10:00:00Z", "content": "one two three"},
    {"source": {"id": null, "name": "ESPN"}, "author": null, "title": "Finals",
     "description": null, "url": "https://example.com/finals", "urlToImage": "https://img/f.png",
     "publishedAt": "2024-05-01T09:00:00Z", "content": null}
  ]
}`

type backend interface {
	user.Store
	article.Store
}

// stack is a running newsd API with its collaborators.
type stack struct {
	API           *httptest.Server
	NATS          *nats.Conn
	ProviderCalls *atomic.Int32
	Cached        bool
}

// Client returns a fresh API client with no token.
func (s *stack) Client() *client.Client {
	return client.New(s.API.URL)
}

// startStack wires the full service graph. Mongo and Redis are used when
// NEWSD_TEST_MONGO_URI and NEWSD_TEST_REDIS_URL are set, otherwise the
// in-memory store and no cache. NATS always runs embedded.
func startStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	s := &stack{ProviderCalls: &atomic.Int32{}}

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.ProviderCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(providerBody))
	}))
	t.Cleanup(provider.Close)

	nc := startNATS(t)
	s.NATS = nc
	publisher := events.NewNATSPublisher(nc, eventPrefix)

	store := newBackend(t)

	var c cache.Cache = cache.Noop{}
	if url := os.Getenv("NEWSD_TEST_REDIS_URL"); url != "" {
		r, err := cache.NewRedis(ctx, url, time.Minute)
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		c = r
		s.Cached = true
	}

	logger := logging.NewNop()
	creds, err := credential.NewService("integration-secret", time.Hour, credential.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	accounts, err := account.NewService(store, store, creds, logger, account.WithPublisher(publisher))
	require.NoError(t, err)

	providerClient, err := newsapi.NewClient(newsapi.Config{
		BaseURL: provider.URL,
		APIKey:  "integration-key",
	}, logger)
	require.NoError(t, err)
	ingester, err := ingest.NewService(store, logger, ingest.WithPublisher(publisher))
	require.NoError(t, err)
	feeds := feed.NewService(providerClient, ingester, logger, feed.WithCache(c))

	server, err := internalhttp.NewServer(accounts, feeds, logger, &internalhttp.Config{
		Host:          "127.0.0.1",
		Port:          0,
		AuthRateLimit: 1000,
		Gatherer:      prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	s.API = httptest.NewServer(server.Handler())
	t.Cleanup(s.API.Close)
	return s
}

func newBackend(t *testing.T) backend {
	t.Helper()
	uri := os.Getenv("NEWSD_TEST_MONGO_URI")
	if uri == "" {
		return memory.New()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := "newsd_it_" + uuid.NewString()[:8]
	s, err := mongostore.Connect(ctx, uri, db)
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

func startNATS(t *testing.T) *nats.Conn {
	t.Helper()
	server, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)
	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	nc, err := events.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}
