// Package vfs resolves bucket-scoped virtual path strings into chains of
// persisted path nodes, creating missing segments on the way.
package vfs

import (
	"errors"
	"strings"

	"github.com/thorli9527/file-cloud/pkg/cache"
	"github.com/thorli9527/file-cloud/pkg/catalog"
	"github.com/thorli9527/file-cloud/pkg/models"
)

// MaxPathLength is the longest accepted virtual path, in bytes. A
// configuration constant, not a structural limit.
const MaxPathLength = 128

// ErrMalformedPath is returned for empty, oversized or traversal-prone
// path strings.
var ErrMalformedPath = errors.New("malformed path")

// PathKey identifies one cached resolution: a full path within one bucket.
type PathKey struct {
	BucketID int64
	FullPath string
}

// Catalog is the slice of the metadata store the resolver needs.
type Catalog interface {
	EnsurePathNode(bucketID, parentID int64, segment, fullPath string) (*models.PathNode, error)
	GetPathNodeByFullPath(bucketID int64, fullPath string) (*models.PathNode, error)
	GetPathNode(id int64) (*models.PathNode, error)
}

// Resolver walks virtual paths segment by segment, memoizing resolved
// prefixes in a TTL cache keyed by (bucket, full path). The catalog's
// unique index makes concurrent creation of the same unseen path converge
// on a single node.
type Resolver struct {
	catalog Catalog
	cache   cache.Cache[PathKey, int64]
}

// NewResolver creates a resolver over the given catalog and path cache.
func NewResolver(cat Catalog, pathCache cache.Cache[PathKey, int64]) *Resolver {
	return &Resolver{catalog: cat, cache: pathCache}
}

// Split breaks a virtual path into its segments, rejecting traversal
// tokens and empty segments.
func Split(fullPath string) ([]string, error) {
	trimmed := strings.Trim(fullPath, "/")
	if trimmed == "" {
		return nil, ErrMalformedPath
	}
	if len(trimmed) > MaxPathLength {
		return nil, ErrMalformedPath
	}

	segments := strings.Split(trimmed, "/")
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." || strings.Contains(segment, "\\") {
			return nil, ErrMalformedPath
		}
	}
	return segments, nil
}

// Resolve maps fullPath to the id of its final path node, creating any
// missing segment. Resolving the same path twice yields the same id.
func (r *Resolver) Resolve(bucketID int64, fullPath string) (int64, error) {
	segments, err := Split(fullPath)
	if err != nil {
		return 0, err
	}

	var (
		parentID      int64
		currentPrefix string
	)
	for _, segment := range segments {
		if currentPrefix == "" {
			currentPrefix = segment
		} else {
			currentPrefix = currentPrefix + "/" + segment
		}

		key := PathKey{BucketID: bucketID, FullPath: currentPrefix}
		if id, ok := r.cache.Get(key); ok {
			parentID = id
			continue
		}

		node, err := r.catalog.GetPathNodeByFullPath(bucketID, currentPrefix)
		if errors.Is(err, catalog.ErrPathNotFound) {
			node, err = r.catalog.EnsurePathNode(bucketID, parentID, segment, currentPrefix)
		}
		if err != nil {
			return 0, err
		}

		r.cache.Set(key, node.ID)
		parentID = node.ID
	}

	return parentID, nil
}

// NewPath creates a single child directory under a known parent, skipping
// the segment walk. parentID 0 creates a root-level directory.
func (r *Resolver) NewPath(bucketID, parentID int64, segment string) (*models.PathNode, error) {
	segs, err := Split(segment)
	if err != nil || len(segs) != 1 {
		return nil, ErrMalformedPath
	}
	segment = segs[0]

	fullPath := segment
	if parentID != 0 {
		parent, err := r.catalog.GetPathNode(parentID)
		if err != nil {
			return nil, err
		}
		if parent.BucketID != bucketID {
			return nil, ErrMalformedPath
		}
		fullPath = parent.FullPath + "/" + segment
		if len(fullPath) > MaxPathLength {
			return nil, ErrMalformedPath
		}
	}

	node, err := r.catalog.EnsurePathNode(bucketID, parentID, segment, fullPath)
	if err != nil {
		return nil, err
	}

	r.cache.Set(PathKey{BucketID: bucketID, FullPath: fullPath}, node.ID)
	return node, nil
}
