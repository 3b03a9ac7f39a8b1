// Package catalog is the single source of truth for buckets, path nodes,
// file records, grants and deletion tasks, persisted in SQLite. The TTL
// caches in front of it are best-effort accelerators only.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/thorli9527/file-cloud/pkg/models"

	_ "modernc.org/sqlite"
)

// Catalog manages all persistent metadata in SQLite.
type Catalog struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the catalog database at dbPath.
func New(dbPath string) (*Catalog, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	ctx := context.Background()

	// Enable foreign keys
	if _, err := database.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable foreign keys: %w", ErrDatabaseError, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	c := &Catalog{db: database}
	if err := c.Initialize(); err != nil {
		_ = database.Close()
		return nil, err
	}

	return c, nil
}

// Initialize creates the database schema.
func (c *Catalog) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(context.Background(), Schema)
	if err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}
	return nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// ValidateBucketName checks bucket name length limits.
func ValidateBucketName(name string) error {
	if len(name) < bucketNameMinLength || len(name) > bucketNameMaxLength {
		return ErrInvalidName
	}
	return nil
}

// CreateBucket creates a new bucket.
func (c *Catalog) CreateBucket(name string, quota int64, pubRead, pubWrite bool) (*models.Bucket, error) {
	if err := ValidateBucketName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	result, err := c.db.ExecContext(context.Background(),
		`INSERT INTO buckets (name, quota, current_quota, pub_read, pub_write, create_time) VALUES (?, ?, 0, ?, ?, ?)`,
		name, quota, pubRead, pubWrite, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrBucketExists
		}
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	bucketID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return &models.Bucket{
		ID:         bucketID,
		Name:       name,
		Quota:      quota,
		PubRead:    pubRead,
		PubWrite:   pubWrite,
		CreateTime: now,
	}, nil
}

// UpdateBucket changes a bucket's name, quota and access flags.
func (c *Catalog) UpdateBucket(id int64, name string, quota int64, pubRead, pubWrite bool) error {
	if err := ValidateBucketName(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.ExecContext(context.Background(),
		`UPDATE buckets SET name = ?, quota = ?, pub_read = ?, pub_write = ? WHERE id = ?`,
		name, quota, pubRead, pubWrite, id,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrBucketExists
		}
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrBucketNotFound
	}
	return nil
}

// GetBucket retrieves a bucket by id.
func (c *Catalog) GetBucket(id int64) (*models.Bucket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanBucket(c.db.QueryRowContext(context.Background(),
		`SELECT id, name, quota, current_quota, pub_read, pub_write, create_time FROM buckets WHERE id = ?`,
		id,
	))
}

// GetBucketByName retrieves a bucket by its unique name.
func (c *Catalog) GetBucketByName(name string) (*models.Bucket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanBucket(c.db.QueryRowContext(context.Background(),
		`SELECT id, name, quota, current_quota, pub_read, pub_write, create_time FROM buckets WHERE name = ?`,
		name,
	))
}

func (c *Catalog) scanBucket(row *sql.Row) (*models.Bucket, error) {
	b := &models.Bucket{}
	err := row.Scan(&b.ID, &b.Name, &b.Quota, &b.CurrentQuota, &b.PubRead, &b.PubWrite, &b.CreateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBucketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return b, nil
}

// ListBuckets returns buckets with id greater than afterID, ordered by
// ascending id, at most limit rows.
func (c *Catalog) ListBuckets(afterID int64, limit int) ([]models.Bucket, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(context.Background(),
		`SELECT id, name, quota, current_quota, pub_read, pub_write, create_time
		 FROM buckets WHERE id > ? ORDER BY id LIMIT ?`,
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var buckets []models.Bucket
	for rows.Next() {
		var b models.Bucket
		if err := rows.Scan(&b.ID, &b.Name, &b.Quota, &b.CurrentQuota, &b.PubRead, &b.PubWrite, &b.CreateTime); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		buckets = append(buckets, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return buckets, nil
}

// DeleteBucket removes a bucket row. Path nodes and files cascade.
func (c *Catalog) DeleteBucket(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.ExecContext(context.Background(), `DELETE FROM buckets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrBucketNotFound
	}
	return nil
}

// ReserveQuota atomically adds size to a bucket's usage counter, refusing
// the increment when it would exceed a non-zero quota. This is the only
// quota check in the system; cache state is never consulted.
func (c *Catalog) ReserveQuota(bucketID, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()
	result, err := c.db.ExecContext(ctx,
		`UPDATE buckets SET current_quota = current_quota + ?
		 WHERE id = ? AND (quota = 0 OR current_quota + ? <= quota)`,
		size, bucketID, size,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Distinguish a missing bucket from a refused increment.
	var exists bool
	err = c.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM buckets WHERE id = ?)`, bucketID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if !exists {
		return ErrBucketNotFound
	}
	return ErrQuotaExceeded
}

// ReleaseQuota subtracts size from a bucket's usage counter, never going
// below zero. Used when an upload is rolled back after its quota was
// reserved.
func (c *Catalog) ReleaseQuota(bucketID, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(context.Background(),
		`UPDATE buckets SET current_quota = MAX(0, current_quota - ?) WHERE id = ?`,
		size, bucketID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}

// defaultPageSize bounds keyset list queries when the caller passes no limit.
const defaultPageSize = 100
