package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
)

type createUserRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type grantRequest struct {
	UserID   int64             `json:"user_id"`
	BucketID int64             `json:"bucket_id"`
	Right    models.RightLevel `json:"right"`
}

func (s *Server) createUser(ctx echo.Context) error {
	if _, ok := requireAdmin(ctx); !ok {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "administrator access required",
		})
	}

	var req createUserRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed request body",
		})
	}
	if req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "password is required",
		})
	}

	user, err := s.catalog.CreateUser(
		req.UserName,
		PasswordDigest(req.Password),
		uuid.NewString(),
		uuid.NewString(),
		req.IsAdmin,
	)
	if err != nil {
		return jsonError(ctx, err)
	}

	log.Info().Int64("user_id", user.ID).Str("user_name", user.UserName).Msg("User created")
	return ctx.JSON(http.StatusCreated, user)
}

func (s *Server) listUsers(ctx echo.Context) error {
	if _, ok := requireAdmin(ctx); !ok {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "administrator access required",
		})
	}

	afterID, pageSize := pageParams(ctx)
	users, err := s.catalog.ListUsers(afterID, pageSize)
	if err != nil {
		return jsonError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

func (s *Server) updateUserPassword(ctx echo.Context) error {
	caller := currentUser(ctx)
	if caller == nil {
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid user id",
		})
	}
	// Users may change their own password, administrators anyone's.
	if !caller.IsAdmin && caller.UserID != id {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "cannot change another user's password",
		})
	}

	var req passwordRequest
	if err := ctx.Bind(&req); err != nil || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "password is required",
		})
	}

	if err := s.catalog.UpdateUserPassword(id, PasswordDigest(req.Password)); err != nil {
		return jsonError(ctx, err)
	}

	log.Info().Int64("user_id", id).Msg("Password updated")
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "password updated",
	})
}

func (s *Server) deleteUser(ctx echo.Context) error {
	if _, ok := requireAdmin(ctx); !ok {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "administrator access required",
		})
	}

	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid user id",
		})
	}

	if err := s.catalog.DeleteUser(id); err != nil {
		return jsonError(ctx, err)
	}

	log.Info().Int64("user_id", id).Msg("User deleted")
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "user deleted",
	})
}

func (s *Server) grantRight(ctx echo.Context) error {
	var req grantRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed request body",
		})
	}
	if !req.Right.Valid() {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "unknown right level",
		})
	}

	right, err := s.svc.GrantRight(currentUser(ctx), req.UserID, req.BucketID, req.Right)
	if err != nil {
		return jsonError(ctx, err)
	}

	log.Info().
		Int64("user_id", req.UserID).
		Int64("bucket_id", req.BucketID).
		Str("right", string(req.Right)).
		Msg("Right granted")
	return ctx.JSON(http.StatusOK, right)
}
