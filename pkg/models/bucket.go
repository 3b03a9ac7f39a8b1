package models

import "time"

// Bucket is a top-level namespace with its own access flags and virtual
// directory tree.
type Bucket struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Quota        int64     `json:"quota"`
	CurrentQuota int64     `json:"current_quota"`
	PubRead      bool      `json:"pub_read"`
	PubWrite     bool      `json:"pub_write"`
	CreateTime   time.Time `json:"create_time"`
}

// BucketListResponse represents one page of buckets.
type BucketListResponse struct {
	Buckets []Bucket `json:"buckets"`
	Total   int64    `json:"total"`
}

// RightLevel is a per-user grant on one bucket.
type RightLevel string

const (
	RightRead      RightLevel = "read"
	RightWrite     RightLevel = "write"
	RightReadWrite RightLevel = "readwrite"
)

// Valid reports whether the level is one of the three known grants.
func (r RightLevel) Valid() bool {
	switch r {
	case RightRead, RightWrite, RightReadWrite:
		return true
	}
	return false
}

// Operation is a requested action against a bucket.
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
)

// Covers reports whether the grant level permits the operation.
func (r RightLevel) Covers(op Operation) bool {
	switch r {
	case RightReadWrite:
		return op == OpRead || op == OpWrite
	case RightRead:
		return op == OpRead
	case RightWrite:
		return op == OpWrite
	}
	return false
}

// UserBucketRight is a single grant row. At most one row exists per
// (user, bucket) pair.
type UserBucketRight struct {
	ID       int64      `json:"id"`
	UserID   int64      `json:"user_id"`
	BucketID int64      `json:"bucket_id"`
	Right    RightLevel `json:"right"`
}
