// Package account implements sign-up, sign-in and profile operations on top
// of the user store and the credential service.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/events"
	"github.com/fyrsmithlabs/newsd/internal/logging"
	"github.com/fyrsmithlabs/newsd/internal/social"
	"github.com/fyrsmithlabs/newsd/internal/user"
)

const (
	instrumentationName = "github.com/fyrsmithlabs/newsd/internal/account"

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
)

// Credentials hashes passwords and issues session tokens.
type Credentials interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
	IssueToken(userID string) (string, error)
	VerifyToken(token string) (string, error)
}

// Session is the result of a successful sign-in.
type Session struct {
	Token string
	User  *user.User
}

// Service implements account operations.
type Service struct {
	users     user.Store
	articles  article.Store
	creds     Credentials
	defaults  user.Defaults
	verifier  social.Verifier
	publisher events.Publisher
	logger    *logging.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDefaults replaces the built-in per-provider defaults.
func WithDefaults(d user.Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithVerifier requires social sign-ins to present a verifiable access token.
func WithVerifier(v social.Verifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithPublisher emits user.created events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an account Service.
func NewService(users user.Store, articles article.Store, creds Credentials, logger *logging.Logger, opts ...Option) (*Service, error) {
	if users == nil || articles == nil {
		return nil, errors.New("user and article stores are required")
	}
	if creds == nil {
		return nil, errors.New("credentials are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		users:     users,
		articles:  articles,
		creds:     creds,
		defaults:  user.BuiltinDefaults(),
		publisher: events.Noop{},
		logger:    logger.Named("account"),
		tracer:    otel.Tracer(instrumentationName),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignupInput holds local registration fields.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// Signup creates a local account.
func (s *Service) Signup(ctx context.Context, in SignupInput) (_ *Session, err error) {
	ctx, span := s.tracer.Start(ctx, "account.signup")
	defer func() { endSpan(span, err) }()

	email := user.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return nil, invalid("Email, password, and name are required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	d := s.defaults[user.Local]
	u := &user.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Avatar:       d.Avatar(name),
		Provider:     user.Local,
		Credits:      d.Credits,
		Preferences:  d.NewPreferences(),
	}
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// Signin authenticates a local account and records the login time.
func (s *Service) Signin(ctx context.Context, email, password string) (_ *Session, err error) {
	ctx, span := s.tracer.Start(ctx, "account.signin")
	defer func() { endSpan(span, err) }()

	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("Email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() {
		return nil, ErrSocialAccount
	}
	if !s.creds.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}

	u, err = s.touchLogin(ctx, u)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// Developer returns the singleton developer account, creating it on first use.
func (s *Service) Developer(ctx context.Context) (_ *Session, err error) {
	ctx, span := s.tracer.Start(ctx, "account.developer")
	defer func() { endSpan(span, err) }()

	d := s.defaults[user.Developer]
	candidate := &user.User{
		Email:          user.NormalizeEmail(d.Email),
		Name:           d.Name,
		Avatar:         d.Avatar(d.Name),
		Provider:       user.Developer,
		ProviderID:     d.ProviderID,
		Credits:        d.Credits,
		Preferences:    d.NewPreferences(),
		SavedArticles:  []string{},
		ReadingHistory: []user.HistoryEntry{},
		IsActive:       true,
	}
	u, err := s.users.UpsertDeveloper(ctx, candidate)
	if errors.Is(err, user.ErrDuplicateEmail) {
		return nil, ErrDeveloperEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("upserting developer: %w", err)
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}
	return s.session(u)
}

// Guest creates a fresh throwaway account.
func (s *Service) Guest(ctx context.Context) (_ *Session, err error) {
	ctx, span := s.tracer.Start(ctx, "account.guest")
	defer func() { endSpan(span, err) }()

	d := s.defaults[user.Guest]
	guestID := "guest-" + uuid.NewString()
	u := &user.User{
		Email:       guestID + "@guest.newsapp.com",
		Name:        d.Name,
		Avatar:      d.Avatar(d.Name),
		Provider:    user.Guest,
		ProviderID:  guestID,
		Credits:     d.Credits,
		Preferences: d.NewPreferences(),
	}
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// SocialInput holds the identity a client obtained from a social provider.
type SocialInput struct {
	Email       string
	Name        string
	Picture     string
	ProviderID  string
	AccessToken string
}

// Social signs in with a Google or Facebook identity, creating the account
// on first use. An existing account is matched by email or provider id.
func (s *Service) Social(ctx context.Context, provider user.Provider, in SocialInput) (_ *Session, err error) {
	ctx, span := s.tracer.Start(ctx, "account.social",
		trace.WithAttributes(attribute.String("account.provider", string(provider))))
	defer func() { endSpan(span, err) }()

	if provider != user.Google && provider != user.Facebook {
		return nil, invalid("Unsupported social provider")
	}
	email := user.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, invalid("Email and name are required")
	}

	providerID := strings.TrimSpace(in.ProviderID)
	if s.verifier != nil {
		if in.AccessToken == "" {
			return nil, invalid("Access token is required")
		}
		id, err := s.verifier.Verify(ctx, provider, in.AccessToken)
		if err != nil {
			s.logger.Warn(ctx, "social token verification failed",
				zap.String("provider", string(provider)), zap.Error(err))
			return nil, ErrInvalidCredentials
		}
		if id.Email != email {
			return nil, ErrIdentityMismatch
		}
		if id.Subject != "" {
			providerID = id.Subject
		}
	}

	u, err := s.users.FindByIdentity(ctx, email, provider, providerID)
	switch {
	case err == nil:
		if !u.IsActive {
			return nil, ErrAccountDeactivated
		}
		if u, err = s.touchLogin(ctx, u); err != nil {
			return nil, err
		}
		return s.session(u)
	case !errors.Is(err, user.ErrNotFound):
		return nil, err
	}

	d := s.defaults[provider]
	u = &user.User{
		Email:       email,
		Name:        name,
		Avatar:      in.Picture,
		Provider:    provider,
		ProviderID:  providerID,
		Credits:     d.Credits,
		Preferences: d.NewPreferences(),
	}
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*user.User, error) {
	userID, err := s.creds.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}
	return u, nil
}

func (s *Service) create(ctx context.Context, u *user.User) error {
	// The developer address is reserved for UpsertDeveloper.
	if dev := user.NormalizeEmail(s.defaults[user.Developer].Email); dev != "" && u.Email == dev {
		return ErrEmailTaken
	}
	now := s.now()
	u.IsActive = true
	u.LastLogin = &now
	if u.SavedArticles == nil {
		u.SavedArticles = []string{}
	}
	if u.ReadingHistory == nil {
		u.ReadingHistory = []user.HistoryEntry{}
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return ErrEmailTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}

	ctx = logging.WithUserID(ctx, u.ID)
	s.logger.Info(ctx, "account created", zap.String("provider", string(u.Provider)))
	if err := s.publisher.Publish(ctx, events.TypeUserCreated, events.UserCreated{
		UserID:   u.ID,
		Provider: string(u.Provider),
	}); err != nil {
		s.logger.Warn(ctx, "publish user.created failed", zap.Error(err))
	}
	return nil
}

func (s *Service) touchLogin(ctx context.Context, u *user.User) (*user.User, error) {
	now := s.now()
	updated, err := s.users.Patch(ctx, u.ID, user.Patch{LastLogin: &now})
	if err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}
	return updated, nil
}

func (s *Service) session(u *user.User) (*Session, error) {
	token, err := s.creds.IssueToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
