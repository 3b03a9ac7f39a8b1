// Package service wires access control, path resolution, the chunk store
// and the catalog into the operations the transport layer exposes.
package service

import (
	"errors"
	"strings"

	"github.com/thorli9527/file-cloud/pkg/access"
	"github.com/thorli9527/file-cloud/pkg/chunk"
	"github.com/thorli9527/file-cloud/pkg/models"
	"github.com/thorli9527/file-cloud/pkg/vfs"
)

// ErrInvalidInput is returned for malformed names, oversized paths and
// cross-bucket id mixups.
var ErrInvalidInput = errors.New("invalid input")

// Catalog is the slice of the metadata store the service needs. It is
// satisfied by *catalog.Catalog; tests substitute failing implementations
// to exercise rollback paths.
type Catalog interface {
	GetBucket(id int64) (*models.Bucket, error)
	ReserveQuota(bucketID, size int64) error
	ReleaseQuota(bucketID, size int64) error
	GetPathNode(id int64) (*models.PathNode, error)
	ListPathChildren(bucketID, parentID, afterID int64, limit int) ([]models.PathNode, error)
	DeletePathNode(pathID int64) (int64, error)
	InsertFile(rec *models.FileRecord) (int64, error)
	GetFile(id int64) (*models.FileRecord, error)
	ListFilesInDir(bucketID, pathRef, afterID int64, limit int) ([]models.FileRecord, error)
	ListFilesUnderPrefix(bucketID int64, prefix string, afterID int64, limit int) ([]models.FileRecord, error)
	SizeUnderPrefix(bucketID int64, prefix string) (int64, error)
}

// Service implements the core storage operations.
type Service struct {
	catalog    Catalog
	access     *access.Resolver
	paths      *vfs.Resolver
	chunks     *chunk.Store
	scratchDir string
}

// New creates the service.
func New(cat Catalog, accessResolver *access.Resolver, pathResolver *vfs.Resolver, chunkStore *chunk.Store, scratchDir string) *Service {
	return &Service{
		catalog:    cat,
		access:     accessResolver,
		paths:      pathResolver,
		chunks:     chunkStore,
		scratchDir: scratchDir,
	}
}

// Mkdir creates a directory under parentID (0 = bucket root) after a write
// permission check.
func (s *Service) Mkdir(user *models.SessionUser, bucketID, parentID int64, segment string) (*models.PathNode, error) {
	if err := s.access.Check(user, bucketID, models.OpWrite); err != nil {
		return nil, err
	}
	return s.paths.NewPath(bucketID, parentID, segment)
}

// DeleteDirectory removes a directory node and records a deletion task for
// the external sweeper. Physical cleanup is not this service's job; it ends
// at the task row. Returns the task id.
func (s *Service) DeleteDirectory(user *models.SessionUser, pathID int64) (int64, error) {
	node, err := s.catalog.GetPathNode(pathID)
	if err != nil {
		return 0, err
	}
	if err := s.access.Check(user, node.BucketID, models.OpWrite); err != nil {
		return 0, err
	}
	return s.catalog.DeletePathNode(pathID)
}

// GrantRight gives a user a right level on a bucket. Only administrators
// may change grants.
func (s *Service) GrantRight(user *models.SessionUser, userID, bucketID int64, level models.RightLevel) (*models.UserBucketRight, error) {
	if user == nil || !user.IsAdmin {
		return nil, access.ErrPermissionDenied
	}
	return s.access.Grant(userID, bucketID, level)
}

// SizeUnderPath sums file sizes in the sub-tree rooted at pathID.
func (s *Service) SizeUnderPath(user *models.SessionUser, pathID int64) (int64, error) {
	node, err := s.catalog.GetPathNode(pathID)
	if err != nil {
		return 0, err
	}
	if err := s.access.Check(user, node.BucketID, models.OpRead); err != nil {
		return 0, err
	}
	return s.catalog.SizeUnderPrefix(node.BucketID, node.FullPath+"/")
}

// validateFileName rejects empty, oversized and path-carrying file names.
func validateFileName(name string) error {
	if name == "" || len(name) > 64 {
		return ErrInvalidInput
	}
	if strings.ContainsAny(name, "/\\") {
		return ErrInvalidInput
	}
	return nil
}
