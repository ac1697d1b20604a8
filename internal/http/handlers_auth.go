package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/newsd/internal/account"
	"github.com/fyrsmithlabs/newsd/internal/user"
	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

var errBadBody = echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")

// bind decodes the request body into v.
func (s *Server) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		s.logger.Debug(c.Request().Context(), "invalid request body", zap.Error(err))
		return errBadBody
	}
	return nil
}

func (s *Server) handleSignupInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success":        true,
		"message":        "Signup endpoint for creating a new user account",
		"method":         http.MethodPost,
		"requiredFields": []string{"email", "password", "name"},
		"example": v1.SignupRequest{
			Email:    "user@example.com",
			Password: "secure123",
			Name:     "John Doe",
		},
	})
}

func (s *Server) handleSignup(c echo.Context) error {
	var req v1.SignupRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	sess, err := s.accounts.Signup(c.Request().Context(), account.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return failed("Failed to create account", err)
	}
	return c.JSON(http.StatusCreated, authResponse(sess, "User created successfully"))
}

func (s *Server) handleSignin(c echo.Context) error {
	var req v1.SigninRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	sess, err := s.accounts.Signin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return failed("Failed to sign in", err)
	}
	return c.JSON(http.StatusOK, authResponse(sess, "Signed in successfully"))
}

func (s *Server) handleDeveloper(c echo.Context) error {
	sess, err := s.accounts.Developer(c.Request().Context())
	if err != nil {
		return failed("Failed to create developer account", err)
	}
	return c.JSON(http.StatusOK, authResponse(sess, "Developer account ready"))
}

func (s *Server) handleGuest(c echo.Context) error {
	sess, err := s.accounts.Guest(c.Request().Context())
	if err != nil {
		return failed("Failed to create guest account", err)
	}
	return c.JSON(http.StatusOK, authResponse(sess, "Guest account created"))
}

func (s *Server) handleSocial(provider user.Provider) echo.HandlerFunc {
	op := "Failed to authenticate with Google"
	if provider == user.Facebook {
		op = "Failed to authenticate with Facebook"
	}
	return func(c echo.Context) error {
		var req v1.SocialRequest
		if err := s.bind(c, &req); err != nil {
			return err
		}
		providerID := req.GoogleID
		if provider == user.Facebook {
			providerID = req.FacebookID
		}
		sess, err := s.accounts.Social(c.Request().Context(), provider, account.SocialInput{
			Email:       req.Email,
			Name:        req.Name,
			Picture:     string(req.Picture),
			ProviderID:  providerID,
			AccessToken: req.AccessToken,
		})
		if err != nil {
			return failed(op, err)
		}
		return c.JSON(http.StatusOK, authResponse(sess, ""))
	}
}

func (s *Server) handleVerify(c echo.Context) error {
	return c.JSON(http.StatusOK, v1.UserResponse{Envelope: v1.OK(), User: toUser(currentUser(c))})
}

func authResponse(sess *account.Session, msg string) v1.AuthResponse {
	return v1.AuthResponse{Envelope: message(msg), Token: sess.Token, User: toUser(sess.User)}
}
