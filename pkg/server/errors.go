package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thorli9527/file-cloud/pkg/access"
	"github.com/thorli9527/file-cloud/pkg/catalog"
	"github.com/thorli9527/file-cloud/pkg/chunk"
	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/service"
	"github.com/thorli9527/file-cloud/pkg/vfs"
)

// jsonError maps a service error onto an HTTP status and a JSON body.
func jsonError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrBucketNotFound),
		errors.Is(err, catalog.ErrPathNotFound),
		errors.Is(err, catalog.ErrFileNotFound),
		errors.Is(err, catalog.ErrUserNotFound),
		errors.Is(err, catalog.ErrRightNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, catalog.ErrBucketExists),
		errors.Is(err, catalog.ErrUserExists):
		return ctx.JSON(http.StatusConflict, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, vfs.ErrMalformedPath),
		errors.Is(err, service.ErrInvalidInput):
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, catalog.ErrQuotaExceeded):
		return ctx.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, access.ErrPermissionDenied):
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, chunk.ErrChunkMissing):
		log.Error().Err(err).Msg("Stored chunk missing")
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	}

	log.Error().Err(err).Msg("Request failed")
	return ctx.JSON(http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
