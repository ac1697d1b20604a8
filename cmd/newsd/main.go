// Package main is the entry point for the newsd server.
//
// newsd serves the news REST API:
//   - Authentication (local, social, developer, guest) with bearer tokens
//   - Personalised feeds fetched from the news provider and ingested locally
//   - Profile, preferences, saved articles and reading history
//
// Configuration is loaded from environment variables (and an optional .env
// file) with sensible defaults. See internal/config for the full key list.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/newsd/internal/account"
	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/cache"
	"github.com/fyrsmithlabs/newsd/internal/config"
	"github.com/fyrsmithlabs/newsd/internal/credential"
	"github.com/fyrsmithlabs/newsd/internal/events"
	"github.com/fyrsmithlabs/newsd/internal/feed"
	internalhttp "github.com/fyrsmithlabs/newsd/internal/http"
	"github.com/fyrsmithlabs/newsd/internal/ingest"
	"github.com/fyrsmithlabs/newsd/internal/logging"
	"github.com/fyrsmithlabs/newsd/internal/newsapi"
	"github.com/fyrsmithlabs/newsd/internal/social"
	"github.com/fyrsmithlabs/newsd/internal/store/memory"
	mongostore "github.com/fyrsmithlabs/newsd/internal/store/mongo"
	"github.com/fyrsmithlabs/newsd/internal/telemetry"
	"github.com/fyrsmithlabs/newsd/internal/user"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	envFile    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "newsd",
		Short:        "Personalised news API server",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/newsd/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return run(ctx)
			},
		},
		&cobra.Command{
			Use:   "indexes",
			Short: "Create the MongoDB indexes and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIndexes(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "ingest",
			Short: "Fetch default headlines once and store them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIngest(cmd.Context(), cmd)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				cmd.Printf("newsd %s\n", version)
				cmd.Printf("  commit: %s\n", gitCommit)
				cmd.Printf("  built:  %s\n", buildDate)
			},
		},
	)
	return root
}

// loadEnvFile loads a dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// run starts the server and blocks until ctx is cancelled.
//
// This function:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Connects the store, cache and event bus
//  4. Builds the services and the HTTP server
//  5. Shuts everything down gracefully when ctx is done
func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetry.FromServiceConfig(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "starting newsd",
		zap.String("version", version),
		zap.String("commit", gitCommit),
		zap.String("store", cfg.Store.Driver),
	)
	if degraded, reason := tel.Degraded(); degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", reason))
	}

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	svcs, err := initServices(cfg, deps, tel, logger)
	if err != nil {
		return err
	}

	server, err := internalhttp.NewServer(svcs.accounts, svcs.feeds, logger, &internalhttp.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		AuthRateLimit: cfg.Server.AuthRateLimit,
		Meter:         tel.Meter("github.com/fyrsmithlabs/newsd/internal/http"),
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server listening",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
		)
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg, err := logging.FromServiceConfig(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// stores is the persistence backend; both backends implement both stores.
type stores interface {
	user.Store
	article.Store
}

// dependencies holds infrastructure connections.
type dependencies struct {
	store     stores
	mongo     *mongostore.Store
	cache     cache.Cache
	redis     *cache.Redis
	natsConn  *nats.Conn
	publisher events.Publisher
	logger    *logging.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.natsConn != nil {
		_ = d.natsConn.Drain()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.mongo.Close(ctx)
	}
}

// initDependencies connects the store and, when configured, Redis and NATS.
func initDependencies(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*dependencies, error) {
	deps := &dependencies{
		cache:     cache.Noop{},
		publisher: events.Noop{},
		logger:    logger,
	}

	switch cfg.Store.Driver {
	case "mongo":
		s, err := connectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
		deps.mongo = s
		deps.store = s
		logger.Info(ctx, "connected to mongo", zap.String("database", cfg.Store.Database))
	default:
		deps.store = memory.New()
		logger.Warn(ctx, "using in-memory store; data is lost on restart")
	}

	if cfg.Cache.RedisURL.IsSet() {
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisURL.Value(), cfg.Cache.TTL.Duration())
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.redis = r
		deps.cache = r
		logger.Info(ctx, "provider cache enabled", zap.Duration("ttl", cfg.Cache.TTL.Duration()))
	}

	if cfg.Events.NATSURL != "" {
		nc, err := events.Connect(cfg.Events.NATSURL)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.natsConn = nc
		deps.publisher = events.NewNATSPublisher(nc, cfg.Events.SubjectPrefix)
		logger.Info(ctx, "connected to nats", zap.String("url", cfg.Events.NATSURL))
	}

	return deps, nil
}

func connectMongo(ctx context.Context, cfg *config.Config) (*mongostore.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s, err := mongostore.Connect(connectCtx, cfg.Store.MongoURI.Value(), cfg.Store.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return s, nil
}

// services holds the business services behind the HTTP API.
type services struct {
	accounts *account.Service
	feeds    *feed.Service
}

func initServices(cfg *config.Config, deps *dependencies, tel *telemetry.Telemetry, logger *logging.Logger) (*services, error) {
	creds, err := credential.NewService(
		cfg.Auth.JWTSecret.Value(),
		cfg.Auth.TokenTTL.Duration(),
		credential.WithBcryptCost(cfg.Auth.BcryptCost),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential service: %w", err)
	}

	feeds, err := newFeedService(cfg, deps, tel, logger)
	if err != nil {
		return nil, err
	}

	opts := []account.Option{
		account.WithPublisher(deps.publisher),
		account.WithTracer(tel.Tracer("github.com/fyrsmithlabs/newsd/internal/account")),
	}
	if cfg.Social.VerifyTokens {
		opts = append(opts, account.WithVerifier(social.NewUserInfoVerifier(
			cfg.Social.GoogleUserInfoURL,
			cfg.Social.FacebookUserInfoURL,
			cfg.NewsAPI.Timeout.Duration(),
		)))
	}
	accounts, err := account.NewService(deps.store, deps.store, creds, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create account service: %w", err)
	}

	return &services{accounts: accounts, feeds: feeds}, nil
}

func newFeedService(cfg *config.Config, deps *dependencies, tel *telemetry.Telemetry, logger *logging.Logger) (*feed.Service, error) {
	provider, err := newsapi.NewClient(newsapi.Config{
		BaseURL:   cfg.NewsAPI.BaseURL,
		APIKey:    cfg.NewsAPI.APIKey.Value(),
		Timeout:   cfg.NewsAPI.Timeout.Duration(),
		RateLimit: cfg.NewsAPI.RateLimit,
		Burst:     cfg.NewsAPI.Burst,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create news provider client: %w", err)
	}

	ingester, err := ingest.NewService(deps.store, logger,
		ingest.WithPublisher(deps.publisher),
		ingest.WithTracer(tel.Tracer("github.com/fyrsmithlabs/newsd/internal/ingest")),
		ingest.WithMeter(tel.Meter("github.com/fyrsmithlabs/newsd/internal/ingest")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest service: %w", err)
	}

	return feed.NewService(provider, ingester, logger,
		feed.WithCache(deps.cache),
		feed.WithTracer(tel.Tracer("github.com/fyrsmithlabs/newsd/internal/feed")),
	), nil
}

// runIndexes creates the Mongo indexes without starting the server.
func runIndexes(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Driver != "mongo" {
		return fmt.Errorf("indexes requires store.driver mongo, got %q", cfg.Store.Driver)
	}
	s, err := connectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(context.Background()) }()
	if err := s.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return nil
}

// runIngest pulls the default headlines once so the article store is warm.
func runIngest(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	feeds, err := newFeedService(cfg, deps, nil, logger)
	if err != nil {
		return err
	}
	articles, err := feeds.Headlines(ctx, user.Preferences{})
	if err != nil {
		return fmt.Errorf("fetching headlines: %w", err)
	}
	cmd.Printf("ingested %d articles\n", len(articles))
	return nil
}
