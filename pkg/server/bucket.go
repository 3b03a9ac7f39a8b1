package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/thorli9527/file-cloud/pkg/log"
)

type bucketRequest struct {
	Name     string `json:"name"`
	Quota    int64  `json:"quota"`
	PubRead  bool   `json:"pub_read"`
	PubWrite bool   `json:"pub_write"`
}

func (s *Server) createBucket(ctx echo.Context) error {
	if _, ok := requireAdmin(ctx); !ok {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "administrator access required",
		})
	}

	var req bucketRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed request body",
		})
	}

	bucket, err := s.catalog.CreateBucket(req.Name, req.Quota, req.PubRead, req.PubWrite)
	if err != nil {
		return jsonError(ctx, err)
	}

	log.Info().Int64("bucket_id", bucket.ID).Str("name", bucket.Name).Msg("Bucket created")
	return ctx.JSON(http.StatusCreated, bucket)
}

func (s *Server) getBucket(ctx echo.Context) error {
	if _, ok := requireAdmin(ctx); !ok {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "administrator access required",
		})
	}

	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid bucket id",
		})
	}

	bucket, err := s.catalog.GetBucket(id)
	if err != nil {
		return jsonError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, bucket)
}

func (s *Server) listBuckets(ctx echo.Context) error {
	if _, ok := requireAdmin(ctx); !ok {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "administrator access required",
		})
	}

	afterID, pageSize := pageParams(ctx)
	buckets, err := s.catalog.ListBuckets(afterID, pageSize)
	if err != nil {
		return jsonError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"buckets": buckets,
	})
}

func (s *Server) updateBucket(ctx echo.Context) error {
	if _, ok := requireAdmin(ctx); !ok {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "administrator access required",
		})
	}

	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid bucket id",
		})
	}

	var req bucketRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed request body",
		})
	}

	if err := s.catalog.UpdateBucket(id, req.Name, req.Quota, req.PubRead, req.PubWrite); err != nil {
		return jsonError(ctx, err)
	}

	log.Info().Int64("bucket_id", id).Msg("Bucket updated")
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "bucket updated",
	})
}

func (s *Server) deleteBucket(ctx echo.Context) error {
	if _, ok := requireAdmin(ctx); !ok {
		return ctx.JSON(http.StatusForbidden, map[string]string{
			"error": "administrator access required",
		})
	}

	id, err := pathID(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid bucket id",
		})
	}

	if err := s.catalog.DeleteBucket(id); err != nil {
		return jsonError(ctx, err)
	}

	log.Info().Int64("bucket_id", id).Msg("Bucket deleted")
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "bucket deleted",
	})
}

// pathID parses a numeric path parameter.
func pathID(ctx echo.Context, name string) (int64, error) {
	return strconv.ParseInt(ctx.Param(name), 10, 64)
}

// pageParams reads the keyset pagination query parameters, tolerating
// absent or malformed values.
func pageParams(ctx echo.Context) (afterID int64, pageSize int) {
	afterID, _ = strconv.ParseInt(ctx.QueryParam("after_id"), 10, 64)
	size, _ := strconv.Atoi(ctx.QueryParam("page_size"))
	return afterID, size
}
