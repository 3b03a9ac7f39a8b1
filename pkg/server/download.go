package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thorli9527/file-cloud/pkg/log"
)

func (s *Server) downloadFile(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid file id",
		})
	}

	rec, stream, err := s.svc.Download(currentUser(ctx), id)
	if err != nil {
		return jsonError(ctx, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close download stream")
		}
	}()

	log.Info().Int64("file_id", id).Str("name", rec.Name).Msg("Serving file download")

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, rec.Name))
	ctx.Response().Header().Set(echo.HeaderContentLength,
		fmt.Sprintf("%d", rec.Size))
	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, stream)
}

func (s *Server) downloadDirectory(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid directory id",
		})
	}

	name, stream, err := s.svc.DownloadDirectory(currentUser(ctx), id)
	if err != nil {
		return jsonError(ctx, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close archive stream")
		}
	}()

	log.Info().Int64("path_id", id).Str("archive", name).Msg("Serving directory archive")

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, name))
	return ctx.Stream(http.StatusOK, "application/zip", stream)
}
