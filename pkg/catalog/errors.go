package catalog

import "errors"

var (
	// ErrBucketExists is returned when creating a bucket whose name is taken.
	ErrBucketExists = errors.New("bucket already exists")

	// ErrBucketNotFound is returned when the requested bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrPathNotFound is returned when the requested path node does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrFileNotFound is returned when the requested file record does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrUserNotFound is returned when the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user whose name is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrRightNotFound is returned when no grant row exists for a
	// (user, bucket) pair.
	ErrRightNotFound = errors.New("right not found")

	// ErrInvalidName is returned when a bucket, file or segment name fails
	// validation.
	ErrInvalidName = errors.New("invalid name")

	// ErrQuotaExceeded is returned when an upload would push a bucket past
	// its configured quota.
	ErrQuotaExceeded = errors.New("bucket quota exceeded")

	// ErrDatabaseError is returned when a catalog operation fails for any
	// reason other than the ones above.
	ErrDatabaseError = errors.New("database error")
)
