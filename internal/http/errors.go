package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/newsd/internal/account"
	"github.com/fyrsmithlabs/newsd/internal/credential"
	"github.com/fyrsmithlabs/newsd/internal/feed"
	"github.com/fyrsmithlabs/newsd/internal/newsapi"
	"github.com/fyrsmithlabs/newsd/internal/user"
	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

var (
	// ErrMissingToken is returned when a protected route has no bearer token.
	ErrMissingToken = errors.New("no token provided")

	errTokenUserGone = errors.New("token subject not found")
	errRateLimited   = errors.New("too many requests")
)

// opError tags a handler failure with the operation shown to the client
// when the underlying error has no public message of its own.
type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }

func (e *opError) Unwrap() error { return e.err }

func failed(op string, err error) error {
	return &opError{op: op, err: err}
}

// publicError is a known failure with a fixed client-facing message.
type publicError struct {
	target  error
	status  int
	message string
}

var publicErrors = []publicError{
	{ErrMissingToken, http.StatusUnauthorized, "Access denied. No token provided."},
	{credential.ErrTokenExpired, http.StatusUnauthorized, "Token expired."},
	{credential.ErrTokenMalformed, http.StatusUnauthorized, "Invalid token."},
	{errTokenUserGone, http.StatusUnauthorized, "Invalid token. User not found."},
	{account.ErrAccountDeactivated, http.StatusUnauthorized, "Account is deactivated."},
	{account.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{account.ErrSocialAccount, http.StatusUnauthorized, "This account was created with social login. Please use that method to sign in."},
	{account.ErrIdentityMismatch, http.StatusUnauthorized, "Social identity does not match the supplied email"},
	{account.ErrWrongPassword, http.StatusUnauthorized, "Current password is incorrect"},
	{account.ErrEmailTaken, http.StatusBadRequest, "User with this email already exists"},
	{account.ErrDeveloperEmailTaken, http.StatusConflict, "Developer account email is registered to another account"},
	{account.ErrNoPassword, http.StatusBadRequest, "This account does not have a password set. Please use your social login method."},
	{user.ErrAlreadySaved, http.StatusBadRequest, "Article already saved"},
	{feed.ErrQueryRequired, http.StatusBadRequest, "Query parameter is required"},
	{feed.ErrEmptySelector, http.StatusBadRequest, "Category or source is required"},
	{account.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{errRateLimited, http.StatusTooManyRequests, "Too many requests, please try again later."},
}

// classify maps err to a status code and the envelope sent to the client.
func classify(err error) (int, v1.Envelope) {
	var verr *account.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, v1.Envelope{Error: verr.Msg}
	}
	for _, pe := range publicErrors {
		if errors.Is(err, pe.target) {
			return pe.status, v1.Envelope{Error: pe.message}
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, v1.Envelope{Error: msg}
	}

	op := "Internal server error"
	var oe *opError
	if errors.As(err, &oe) {
		op = oe.op
	}
	if errors.Is(err, newsapi.ErrUpstream) {
		return http.StatusBadGateway, v1.Envelope{Error: op, Message: upstreamMessage(err)}
	}
	return http.StatusInternalServerError, v1.Envelope{Error: op}
}

func upstreamMessage(err error) string {
	var ue *newsapi.UpstreamError
	if errors.As(err, &ue) {
		return ue.Error()
	}
	return "news provider unavailable"
}

// handleError is the echo HTTPErrorHandler. Every failure leaves as a
// {success:false} envelope.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, env := classify(err)

	ctx := c.Request().Context()
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error(ctx, "request failed",
			zap.Int("status", status),
			zap.String("path", c.Path()),
			zap.Error(err))
	case status == http.StatusNotFound && errors.Is(err, account.ErrUserNotFound):
		s.logger.Warn(ctx, "user missing after authentication", zap.Error(err))
	default:
		s.logger.Debug(ctx, "request rejected",
			zap.Int("status", status),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, env)
	}
	if err != nil {
		s.logger.Warn(ctx, "writing error response failed", zap.Error(err))
	}
}
