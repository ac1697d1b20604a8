package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/newsd/internal/account"
	"github.com/fyrsmithlabs/newsd/internal/logging"
	"github.com/fyrsmithlabs/newsd/internal/user"
)

// contextKey is the type for echo context keys.
type contextKey string

const (
	currentUserKey contextKey = "current_user"

	slowRequest = 2 * time.Second
)

// requestContext copies the request id assigned by middleware.RequestID into
// the request context so service logs carry it.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequestID(c.Request().Context(), id)
		ctx = logging.WithLogger(ctx, s.logger)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// Resolve the status before logging; the error handler would
			// otherwise run after us.
			c.Error(err)
			err = nil
		}
		duration := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", duration),
		}
		ctx := c.Request().Context()
		if duration > slowRequest {
			s.logger.Warn(ctx, "slow http request", fields...)
		} else {
			s.logger.Info(ctx, "http request", fields...)
		}
		return err
	}
}

// bearerAuth resolves the Authorization bearer token to an active user and
// stores it on the echo context.
func (s *Server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			return ErrMissingToken
		}

		ctx := c.Request().Context()
		u, err := s.accounts.Authenticate(ctx, token)
		if errors.Is(err, account.ErrUserNotFound) {
			return errTokenUserGone
		}
		if err != nil {
			return err
		}

		c.Set(string(currentUserKey), u)
		c.SetRequest(c.Request().WithContext(logging.WithUserID(ctx, u.ID)))
		return next(c)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return strings.TrimSpace(header)
}

// currentUser returns the user set by bearerAuth.
func currentUser(c echo.Context) *user.User {
	u, _ := c.Get(string(currentUserKey)).(*user.User)
	return u
}

// authRateLimiter limits sign-in attempts per client IP.
func (s *Server) authRateLimiter() []echo.MiddlewareFunc {
	if s.config.AuthRateLimit <= 0 {
		return nil
	}
	burst := s.config.AuthBurst
	if burst <= 0 {
		burst = int(s.config.AuthRateLimit * 2)
		if burst < 1 {
			burst = 1
		}
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.config.AuthRateLimit),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.logger.Warn(c.Request().Context(), "auth rate limit exceeded", zap.String("client", identifier))
			return errRateLimited
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client")
		},
	})}
}
