package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/thorli9527/file-cloud/pkg/models"
)

// UpsertRight grants a right level to a user on a bucket. The
// UNIQUE(user_id, bucket_id) index plus ON CONFLICT DO UPDATE guarantees at
// most one row per pair.
func (c *Catalog) UpsertRight(userID, bucketID int64, level models.RightLevel) (*models.UserBucketRight, error) {
	if !level.Valid() {
		return nil, ErrInvalidName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO user_bucket_rights (user_id, bucket_id, right_level)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id, bucket_id) DO UPDATE SET right_level = excluded.right_level`,
		userID, bucketID, string(level),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return c.scanRight(c.db.QueryRowContext(ctx,
		`SELECT id, user_id, bucket_id, right_level FROM user_bucket_rights
		 WHERE user_id = ? AND bucket_id = ?`,
		userID, bucketID,
	))
}

// GetRight retrieves the grant row for a (user, bucket) pair.
func (c *Catalog) GetRight(userID, bucketID int64) (*models.UserBucketRight, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanRight(c.db.QueryRowContext(context.Background(),
		`SELECT id, user_id, bucket_id, right_level FROM user_bucket_rights
		 WHERE user_id = ? AND bucket_id = ?`,
		userID, bucketID,
	))
}

func (c *Catalog) scanRight(row *sql.Row) (*models.UserBucketRight, error) {
	r := &models.UserBucketRight{}
	var level string
	err := row.Scan(&r.ID, &r.UserID, &r.BucketID, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	r.Right = models.RightLevel(level)
	return r, nil
}

// ListRightsForUser returns every grant a user holds, ordered by bucket id.
func (c *Catalog) ListRightsForUser(userID int64) ([]models.UserBucketRight, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(context.Background(),
		`SELECT id, user_id, bucket_id, right_level FROM user_bucket_rights
		 WHERE user_id = ? ORDER BY bucket_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var rights []models.UserBucketRight
	for rows.Next() {
		var r models.UserBucketRight
		var level string
		if err := rows.Scan(&r.ID, &r.UserID, &r.BucketID, &level); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		r.Right = models.RightLevel(level)
		rights = append(rights, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return rights, nil
}

// DeleteRight revokes the grant for a (user, bucket) pair.
func (c *Catalog) DeleteRight(userID, bucketID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.ExecContext(context.Background(),
		`DELETE FROM user_bucket_rights WHERE user_id = ? AND bucket_id = ?`,
		userID, bucketID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrRightNotFound
	}
	return nil
}
