package service

import (
	"io"

	"github.com/thorli9527/file-cloud/pkg/models"
)

// Download reassembles a file from its chunk list after a read permission
// check. The caller must close the returned stream; a missing chunk
// surfaces as chunk.ErrChunkMissing on the first read that needs it.
func (s *Service) Download(user *models.SessionUser, fileID int64) (*models.FileRecord, io.ReadCloser, error) {
	rec, err := s.catalog.GetFile(fileID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.access.Check(user, rec.BucketID, models.OpRead); err != nil {
		return nil, nil, err
	}
	return rec, s.chunks.Reader(rec.Items), nil
}

// ListPathChildren returns one keyset page of child directories of
// parentID (0 = bucket root).
func (s *Service) ListPathChildren(user *models.SessionUser, bucketID, parentID, afterID int64, pageSize int) ([]models.PathNode, error) {
	if err := s.access.Check(user, bucketID, models.OpRead); err != nil {
		return nil, err
	}
	return s.catalog.ListPathChildren(bucketID, parentID, afterID, pageSize)
}

// ListFiles returns one keyset page of files directly under a path node.
func (s *Service) ListFiles(user *models.SessionUser, bucketID, pathRef, afterID int64, pageSize int) ([]models.FileRecord, error) {
	if err := s.access.Check(user, bucketID, models.OpRead); err != nil {
		return nil, err
	}
	return s.catalog.ListFilesInDir(bucketID, pathRef, afterID, pageSize)
}

// Browse returns one combined page for the console: child directories
// first, each with its aggregate sub-tree size, then files until the page
// is full. Directories and files live in separate id spaces, so the cursor
// tracks a position in each; callers pass back the returned Next cursor
// unchanged.
func (s *Service) Browse(user *models.SessionUser, bucketID, pathID int64, cursor models.BrowseCursor, pageSize int) (*models.BrowsePage, error) {
	if err := s.access.Check(user, bucketID, models.OpRead); err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	page := &models.BrowsePage{Next: cursor}

	dirs, err := s.catalog.ListPathChildren(bucketID, pathID, cursor.DirAfterID, pageSize)
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		size, err := s.catalog.SizeUnderPrefix(bucketID, dir.FullPath+"/")
		if err != nil {
			return nil, err
		}
		page.Entries = append(page.Entries, models.BrowseEntry{
			ID:         dir.ID,
			BucketID:   dir.BucketID,
			Name:       dir.Segment,
			FileType:   models.FileTypeDir,
			ImageType:  models.ImageTypeNone,
			Size:       size,
			CreateTime: dir.CreateTime,
		})
		page.Next.DirAfterID = dir.ID
	}

	remaining := pageSize - len(dirs)
	if remaining <= 0 {
		return page, nil
	}

	files, err := s.catalog.ListFilesInDir(bucketID, pathID, cursor.FileAfterID, remaining)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		page.Entries = append(page.Entries, models.BrowseEntry{
			ID:         f.ID,
			BucketID:   f.BucketID,
			Name:       f.Name,
			FileType:   f.FileType,
			ImageType:  f.ImageType,
			Size:       f.Size,
			CreateTime: f.CreateTime,
		})
		page.Next.FileAfterID = f.ID
	}

	return page, nil
}
