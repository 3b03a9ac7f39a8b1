// Package access decides whether a user may read or write a bucket.
package access

import (
	"errors"

	"github.com/thorli9527/file-cloud/pkg/catalog"
	"github.com/thorli9527/file-cloud/pkg/models"
)

// ErrPermissionDenied is returned when the user may not perform the
// requested operation. The message never reveals whether a grant row
// exists.
var ErrPermissionDenied = errors.New("permission denied")

// Catalog is the slice of the metadata store the resolver needs.
type Catalog interface {
	GetBucket(id int64) (*models.Bucket, error)
	GetRight(userID, bucketID int64) (*models.UserBucketRight, error)
	UpsertRight(userID, bucketID int64, level models.RightLevel) (*models.UserBucketRight, error)
}

// Resolver evaluates the rights model: administrators bypass all checks,
// public bucket flags come next, then per-user grant rows.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates an access resolver over the given catalog.
func NewResolver(cat Catalog) *Resolver {
	return &Resolver{catalog: cat}
}

// Check returns nil when user may perform op on the bucket, and
// ErrPermissionDenied when not. A missing bucket surfaces as the catalog's
// not-found error.
func (r *Resolver) Check(user *models.SessionUser, bucketID int64, op models.Operation) error {
	if user != nil && user.IsAdmin {
		return nil
	}

	bucket, err := r.catalog.GetBucket(bucketID)
	if err != nil {
		return err
	}

	if op == models.OpRead && bucket.PubRead {
		return nil
	}
	if op == models.OpWrite && bucket.PubWrite {
		return nil
	}

	if user == nil {
		return ErrPermissionDenied
	}

	right, err := r.catalog.GetRight(user.UserID, bucketID)
	if errors.Is(err, catalog.ErrRightNotFound) {
		return ErrPermissionDenied
	}
	if err != nil {
		return err
	}

	if !right.Right.Covers(op) {
		return ErrPermissionDenied
	}
	return nil
}

// Grant gives a user a right level on a bucket, replacing any previous
// grant for the pair.
func (r *Resolver) Grant(userID, bucketID int64, level models.RightLevel) (*models.UserBucketRight, error) {
	return r.catalog.UpsertRight(userID, bucketID, level)
}
