package server

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/thorli9527/file-cloud/pkg/catalog"
	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
)

const sessionScheme = "Session"

type loginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// sessionMiddleware resolves the Authorization header into a session user.
// Requests without a header proceed anonymously; bucket flags decide what
// anonymous callers may do. A header that does not match a live session is
// rejected outright.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return next(ctx)
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || scheme != sessionScheme || token == "" {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{
				"error": "malformed authorization header",
			})
		}

		user, ok := s.sessions.Get(token)
		if !ok {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{
				"error": "session expired or unknown",
			})
		}

		ctx.Set("session_user", &user)
		ctx.Set("session_token", token)
		return next(ctx)
	}
}

// currentUser returns the authenticated session user, or nil for anonymous
// requests.
func currentUser(ctx echo.Context) *models.SessionUser {
	if u, ok := ctx.Get("session_user").(*models.SessionUser); ok {
		return u
	}
	return nil
}

// requireAdmin short-circuits handlers that only administrators may call.
func requireAdmin(ctx echo.Context) (*models.SessionUser, bool) {
	user := currentUser(ctx)
	if user == nil || !user.IsAdmin {
		return nil, false
	}
	return user, true
}

func (s *Server) login(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed request body",
		})
	}

	user, err := s.catalog.GetUserByName(req.UserName)
	if err != nil {
		if errors.Is(err, catalog.ErrUserNotFound) {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid credentials",
			})
		}
		return jsonError(ctx, err)
	}

	digest := PasswordDigest(req.Password)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(user.Password)) != 1 {
		log.Warn().Str("user_name", req.UserName).Msg("Login rejected")
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid credentials",
		})
	}

	token := uuid.NewString()
	s.sessions.Set(token, models.SessionUser{UserID: user.ID, IsAdmin: user.IsAdmin})

	log.Info().Int64("user_id", user.ID).Msg("Login succeeded")
	return ctx.JSON(http.StatusOK, map[string]string{
		"token": token,
	})
}

func (s *Server) logout(ctx echo.Context) error {
	token, ok := ctx.Get("session_token").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not logged in",
		})
	}

	s.sessions.Invalidate(token)
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

// PasswordDigest hashes a clear-text password the way the catalog stores
// it.
func PasswordDigest(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}
