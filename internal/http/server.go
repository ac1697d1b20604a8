// Package http serves the newsd REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/newsd/internal/account"
	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/logging"
	"github.com/fyrsmithlabs/newsd/internal/user"
)

// Accounts is the account service consumed by the auth and user routes.
type Accounts interface {
	Signup(ctx context.Context, in account.SignupInput) (*account.Session, error)
	Signin(ctx context.Context, email, password string) (*account.Session, error)
	Developer(ctx context.Context) (*account.Session, error)
	Guest(ctx context.Context) (*account.Session, error)
	Social(ctx context.Context, provider user.Provider, in account.SocialInput) (*account.Session, error)
	Authenticate(ctx context.Context, token string) (*user.User, error)

	Profile(ctx context.Context, userID string) (*user.User, error)
	UpdateProfile(ctx context.Context, userID string, upd account.ProfileUpdate) (*user.User, error)
	UpdatePreferences(ctx context.Context, userID string, upd user.PreferencesUpdate) (*user.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	SaveArticle(ctx context.Context, userID, articleID string) ([]string, error)
	RemoveSaved(ctx context.Context, userID, articleID string) ([]string, error)
	SavedArticles(ctx context.Context, userID string) ([]article.Article, error)
	AddToHistory(ctx context.Context, userID, articleID string) ([]user.HistoryEntry, error)
	History(ctx context.Context, userID string) ([]user.HistoryEntry, error)
}

// Feeds assembles article feeds.
type Feeds interface {
	Headlines(ctx context.Context, prefs user.Preferences) ([]article.Article, error)
	Search(ctx context.Context, q string, prefs user.Preferences) ([]article.Article, error)
	ByCategory(ctx context.Context, category string) ([]article.Article, error)
	BySource(ctx context.Context, source string) ([]article.Article, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// AuthRateLimit is the sustained per-client request rate for /api/auth.
	// Zero disables limiting.
	AuthRateLimit float64
	AuthBurst     int

	// Gatherer backs GET /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer

	// Meter records request instruments. Defaults to the global provider.
	Meter metric.Meter
}

// Server provides the newsd HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	accounts Accounts
	feeds    Feeds
	logger   *logging.Logger
	config   *Config
}

// NewServer creates a new HTTP server.
func NewServer(accounts Accounts, feeds Feeds, logger *logging.Logger, cfg *Config) (*Server, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account service cannot be nil")
	}
	if feeds == nil {
		return nil, fmt.Errorf("feed service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:          "localhost",
			Port:          3000,
			AuthRateLimit: 5,
		}
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter(httpInstrumentationName)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		accounts: accounts,
		feeds:    feeds,
		logger:   logger.Named("http"),
		config:   cfg,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestContext)
	metrics, err := newRequestMetrics(cfg.Meter)
	if err != nil {
		s.logger.Warn(context.Background(), "some http instruments unavailable", zap.Error(err))
	}
	e.Use(metrics.middleware)
	e.Use(s.accessLog)
	e.Use(middleware.CORS())

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	api := s.echo.Group("/api")
	requireUser := s.bearerAuth

	auth := api.Group("/auth", s.authRateLimiter()...)
	auth.GET("/signup", s.handleSignupInfo)
	auth.POST("/signup", s.handleSignup)
	auth.POST("/signin", s.handleSignin)
	auth.POST("/developer", s.handleDeveloper)
	auth.POST("/guest", s.handleGuest)
	auth.POST("/google", s.handleSocial(user.Google))
	auth.POST("/facebook", s.handleSocial(user.Facebook))
	auth.GET("/verify", s.handleVerify, requireUser)

	news := api.Group("/news")
	news.GET("", s.handleNewsIndex)
	news.GET("/", s.handleNewsIndex)
	news.GET("/categories", s.handleCategories)
	news.GET("/sources", s.handleSources)
	news.GET("/headlines", s.handleHeadlines, requireUser)
	news.GET("/search", s.handleSearch, requireUser)
	news.GET("/category/:category", s.handleCategory, requireUser)
	news.GET("/source/:source", s.handleSource, requireUser)

	me := api.Group("/user", requireUser)
	me.GET("/profile", s.handleProfile)
	me.PUT("/profile", s.handleUpdateProfile)
	me.PUT("/preferences", s.handleUpdatePreferences)
	me.PUT("/change-password", s.handleChangePassword)
	me.POST("/save-article", s.handleSaveArticle)
	me.DELETE("/save-article/:articleId", s.handleRemoveSaved)
	me.GET("/saved-articles", s.handleSavedArticles)
	me.POST("/reading-history", s.handleAddHistory)
	me.GET("/reading-history", s.handleHistory)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
