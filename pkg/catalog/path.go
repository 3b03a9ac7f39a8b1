package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/thorli9527/file-cloud/pkg/models"
)

// EnsurePathNode creates the path node for (bucketID, fullPath) if it does
// not exist and returns the surviving row either way. The insert runs with
// ON CONFLICT DO NOTHING against the UNIQUE(bucket_id, full_path) index, so
// two concurrent resolutions of the same unseen path converge on one row.
func (c *Catalog) EnsurePathNode(bucketID, parentID int64, segment, fullPath string) (*models.PathNode, error) {
	if segment == "" || fullPath == "" {
		return nil, ErrInvalidName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()
	now := time.Now()
	isRoot := parentID == 0

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO path_nodes (bucket_id, parent_id, segment, full_path, is_root, create_time)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bucket_id, full_path) DO NOTHING`,
		bucketID, parentID, segment, fullPath, isRoot, now,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return c.scanPathNode(c.db.QueryRowContext(ctx,
		`SELECT id, bucket_id, parent_id, segment, full_path, is_root, create_time
		 FROM path_nodes WHERE bucket_id = ? AND full_path = ?`,
		bucketID, fullPath,
	))
}

// GetPathNode retrieves a path node by id.
func (c *Catalog) GetPathNode(id int64) (*models.PathNode, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanPathNode(c.db.QueryRowContext(context.Background(),
		`SELECT id, bucket_id, parent_id, segment, full_path, is_root, create_time
		 FROM path_nodes WHERE id = ?`,
		id,
	))
}

// GetPathNodeByFullPath retrieves a path node by its bucket-scoped full path.
func (c *Catalog) GetPathNodeByFullPath(bucketID int64, fullPath string) (*models.PathNode, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanPathNode(c.db.QueryRowContext(context.Background(),
		`SELECT id, bucket_id, parent_id, segment, full_path, is_root, create_time
		 FROM path_nodes WHERE bucket_id = ? AND full_path = ?`,
		bucketID, fullPath,
	))
}

func (c *Catalog) scanPathNode(row *sql.Row) (*models.PathNode, error) {
	n := &models.PathNode{}
	err := row.Scan(&n.ID, &n.BucketID, &n.ParentID, &n.Segment, &n.FullPath, &n.IsRoot, &n.CreateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return n, nil
}

// ListPathChildren returns the child nodes of parentID (0 = bucket root)
// with id greater than afterID, ordered by ascending id.
func (c *Catalog) ListPathChildren(bucketID, parentID, afterID int64, limit int) ([]models.PathNode, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(context.Background(),
		`SELECT id, bucket_id, parent_id, segment, full_path, is_root, create_time
		 FROM path_nodes WHERE bucket_id = ? AND parent_id = ? AND id > ?
		 ORDER BY id LIMIT ?`,
		bucketID, parentID, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []models.PathNode
	for rows.Next() {
		var n models.PathNode
		if err := rows.Scan(&n.ID, &n.BucketID, &n.ParentID, &n.Segment, &n.FullPath, &n.IsRoot, &n.CreateTime); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		nodes = append(nodes, n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nodes, nil
}

// CountPathNodes returns the number of path node rows for (bucketID, fullPath).
// The UNIQUE index keeps this at most 1; tests use it to assert resolution
// idempotence.
func (c *Catalog) CountPathNodes(bucketID int64, fullPath string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var count int64
	err := c.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM path_nodes WHERE bucket_id = ? AND full_path = ?`,
		bucketID, fullPath,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return count, nil
}

// DeletePathNode removes a path node row and records a deletion task for the
// external sweeper in the same transaction. Returns the task id.
func (c *Catalog) DeletePathNode(pathID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM path_nodes WHERE id = ?`, pathID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return 0, ErrPathNotFound
	}

	taskResult, err := tx.ExecContext(ctx,
		`INSERT INTO path_delete_tasks (path_id, file_delete_done, path_delete_done, create_time)
		 VALUES (?, FALSE, FALSE, ?)`,
		pathID, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	taskID, err := taskResult.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return taskID, nil
}

// GetDeleteTask retrieves a deletion task by id.
func (c *Catalog) GetDeleteTask(id int64) (*models.PathDeleteTask, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t := &models.PathDeleteTask{}
	err := c.db.QueryRowContext(context.Background(),
		`SELECT id, path_id, file_delete_done, path_delete_done, create_time
		 FROM path_delete_tasks WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.PathID, &t.FileDeleteDone, &t.PathDeleteDone, &t.CreateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return t, nil
}
