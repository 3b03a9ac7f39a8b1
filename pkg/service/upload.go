package service

import (
	"io"

	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
)

// Upload ingests a byte stream into a bucket. The destination directory is
// either an existing path node id or a virtual path string to resolve
// (creating missing segments); pass pathID 0 and an empty virtualPath for
// the bucket root.
//
// The operation is atomic from the caller's point of view: on any failure
// after chunks were flushed — quota refusal, catalog insert error — the
// flushed chunks are removed before the error is returned.
func (s *Service) Upload(user *models.SessionUser, bucketID, pathID int64, virtualPath, fileName string, body io.Reader) (*models.FileRecord, error) {
	if err := s.access.Check(user, bucketID, models.OpWrite); err != nil {
		return nil, err
	}
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}

	var dirPath string
	if virtualPath != "" {
		resolvedID, err := s.paths.Resolve(bucketID, virtualPath)
		if err != nil {
			return nil, err
		}
		pathID = resolvedID
	}
	if pathID != 0 {
		node, err := s.catalog.GetPathNode(pathID)
		if err != nil {
			return nil, err
		}
		if node.BucketID != bucketID {
			return nil, ErrInvalidInput
		}
		dirPath = node.FullPath
	}

	fullPath := fileName
	if dirPath != "" {
		fullPath = dirPath + "/" + fileName
	}

	items, size, err := s.chunks.WriteStream(body)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.ReserveQuota(bucketID, size); err != nil {
		s.chunks.RemoveChunks(items)
		return nil, err
	}

	rec := &models.FileRecord{
		BucketID: bucketID,
		PathRef:  pathID,
		Name:     fileName,
		FullPath: fullPath,
		Size:     size,
		Items:    items,
	}
	if _, err := s.catalog.InsertFile(rec); err != nil {
		s.chunks.RemoveChunks(items)
		if releaseErr := s.catalog.ReleaseQuota(bucketID, size); releaseErr != nil {
			log.Error().Err(releaseErr).Int64("bucket_id", bucketID).Msg("Failed to release quota after aborted upload")
		}
		return nil, err
	}

	log.Info().
		Int64("bucket_id", bucketID).
		Int64("file_id", rec.ID).
		Str("name", fileName).
		Int64("size", size).
		Int("chunks", len(items)).
		Msg("File uploaded")
	return rec, nil
}
