package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/thorli9527/file-cloud/pkg/log"
)

// uploadFile ingests one multipart file into a bucket. Optional form
// fields: path_id (existing directory id) or path (virtual path, missing
// segments are created on the fly). Without either the file lands at the
// bucket root.
func (s *Server) uploadFile(ctx echo.Context) error {
	bucketID, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid bucket id",
		})
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		log.Error().Err(err).Msg("File parameter is required")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "file parameter is required",
		})
	}

	dirID, _ := strconv.ParseInt(ctx.FormValue("path_id"), 10, 64)
	virtualPath := ctx.FormValue("path")

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to open uploaded file",
		})
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close source file")
		}
	}()

	rec, err := s.svc.Upload(currentUser(ctx), bucketID, dirID, virtualPath, file.Filename, src)
	if err != nil {
		return jsonError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, rec)
}
