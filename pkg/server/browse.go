package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
)

type mkdirRequest struct {
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
}

func (s *Server) mkdir(ctx echo.Context) error {
	bucketID, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid bucket id",
		})
	}

	var req mkdirRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed request body",
		})
	}

	node, err := s.svc.Mkdir(currentUser(ctx), bucketID, req.ParentID, req.Name)
	if err != nil {
		return jsonError(ctx, err)
	}

	log.Info().
		Int64("bucket_id", bucketID).
		Int64("path_id", node.ID).
		Str("full_path", node.FullPath).
		Msg("Directory created")
	return ctx.JSON(http.StatusCreated, node)
}

func (s *Server) browse(ctx echo.Context) error {
	bucketID, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid bucket id",
		})
	}

	dirID, _ := strconv.ParseInt(ctx.QueryParam("path_id"), 10, 64)
	pageSize, _ := strconv.Atoi(ctx.QueryParam("page_size"))
	var cursor models.BrowseCursor
	cursor.DirAfterID, _ = strconv.ParseInt(ctx.QueryParam("dir_after_id"), 10, 64)
	cursor.FileAfterID, _ = strconv.ParseInt(ctx.QueryParam("file_after_id"), 10, 64)

	page, err := s.svc.Browse(currentUser(ctx), bucketID, dirID, cursor, pageSize)
	if err != nil {
		return jsonError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, page)
}

func (s *Server) dirSize(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid directory id",
		})
	}

	size, err := s.svc.SizeUnderPath(currentUser(ctx), id)
	if err != nil {
		return jsonError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]int64{
		"size": size,
	})
}

func (s *Server) deleteDirectory(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid directory id",
		})
	}

	taskID, err := s.svc.DeleteDirectory(currentUser(ctx), id)
	if err != nil {
		return jsonError(ctx, err)
	}

	log.Info().Int64("path_id", id).Int64("task_id", taskID).Msg("Directory delete recorded")
	return ctx.JSON(http.StatusOK, map[string]int64{
		"task_id": taskID,
	})
}
