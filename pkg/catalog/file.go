package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thorli9527/file-cloud/pkg/models"
)

// InsertFile persists a file record with its ordered chunk list. The chunk
// list is stored as a JSON array in the items column. The image type is
// classified here from the name, and only for image files.
func (c *Catalog) InsertFile(rec *models.FileRecord) (int64, error) {
	if rec.Name == "" || len(rec.Name) > fileNameMaxLength {
		return 0, ErrInvalidName
	}

	if rec.FileType == "" {
		rec.FileType = models.FileTypeOf(rec.Name)
	}
	if rec.FileType == models.FileTypeImage {
		rec.ImageType = models.ImageTypeOf(rec.Name)
	} else {
		rec.ImageType = models.ImageTypeNone
	}

	items := rec.Items
	if items == nil {
		items = []models.ChunkRef{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to serialize chunk list: %w", ErrDatabaseError, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.CreateTime.IsZero() {
		rec.CreateTime = time.Now()
	}
	result, err := c.db.ExecContext(context.Background(),
		`INSERT INTO files (bucket_id, path_ref, name, full_path, file_type, image_type, size, items, create_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BucketID, rec.PathRef, rec.Name, rec.FullPath, string(rec.FileType), string(rec.ImageType),
		rec.Size, string(itemsJSON), rec.CreateTime,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	rec.ID = id
	return id, nil
}

// GetFile retrieves a file record by id, chunk list included.
func (c *Catalog) GetFile(id int64) (*models.FileRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanFile(c.db.QueryRowContext(context.Background(),
		`SELECT id, bucket_id, path_ref, name, full_path, file_type, image_type, size, items, create_time
		 FROM files WHERE id = ?`,
		id,
	))
}

func (c *Catalog) scanFile(row *sql.Row) (*models.FileRecord, error) {
	rec := &models.FileRecord{}
	var itemsJSON string
	err := row.Scan(&rec.ID, &rec.BucketID, &rec.PathRef, &rec.Name, &rec.FullPath,
		&rec.FileType, &rec.ImageType, &rec.Size, &itemsJSON, &rec.CreateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &rec.Items); err != nil {
		return nil, fmt.Errorf("%w: failed to parse chunk list: %w", ErrDatabaseError, err)
	}
	return rec, nil
}

// ListFilesInDir returns files directly under a path node (pathRef 0 =
// bucket root) with id greater than afterID, ordered by ascending id.
func (c *Catalog) ListFilesInDir(bucketID, pathRef, afterID int64, limit int) ([]models.FileRecord, error) {
	return c.listFiles(
		`SELECT id, bucket_id, path_ref, name, full_path, file_type, image_type, size, items, create_time
		 FROM files WHERE bucket_id = ? AND path_ref = ? AND id > ?
		 ORDER BY id LIMIT ?`,
		bucketID, pathRef, afterID, limit,
	)
}

// escapeLike quotes LIKE metacharacters so a prefix with _ or % in a
// directory name matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// ListFilesUnderPrefix returns files whose full path starts with prefix,
// with id greater than afterID, ordered by ascending id. Repeated calls
// advancing afterID walk arbitrarily large sub-trees without offsets.
func (c *Catalog) ListFilesUnderPrefix(bucketID int64, prefix string, afterID int64, limit int) ([]models.FileRecord, error) {
	return c.listFiles(
		`SELECT id, bucket_id, path_ref, name, full_path, file_type, image_type, size, items, create_time
		 FROM files WHERE bucket_id = ? AND full_path LIKE ? ESCAPE '\' AND id > ?
		 ORDER BY id LIMIT ?`,
		bucketID, escapeLike(prefix)+"%", afterID, limit,
	)
}

func (c *Catalog) listFiles(query string, args ...interface{}) ([]models.FileRecord, error) {
	if n := len(args); n > 0 {
		if limit, ok := args[n-1].(int); ok && limit <= 0 {
			args[n-1] = defaultPageSize
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.FileRecord
	for rows.Next() {
		var rec models.FileRecord
		var itemsJSON string
		err := rows.Scan(&rec.ID, &rec.BucketID, &rec.PathRef, &rec.Name, &rec.FullPath,
			&rec.FileType, &rec.ImageType, &rec.Size, &itemsJSON, &rec.CreateTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		if err := json.Unmarshal([]byte(itemsJSON), &rec.Items); err != nil {
			return nil, fmt.Errorf("%w: failed to parse chunk list: %w", ErrDatabaseError, err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return records, nil
}

// SizeUnderPrefix sums the sizes of all files whose full path starts with
// prefix. Recomputed on demand; no running counter is maintained.
func (c *Catalog) SizeUnderPrefix(bucketID int64, prefix string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	err := c.db.QueryRowContext(context.Background(),
		`SELECT COALESCE(SUM(size), 0) FROM files WHERE bucket_id = ? AND full_path LIKE ? ESCAPE '\'`,
		bucketID, escapeLike(prefix)+"%",
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return total, nil
}

// DeleteFile removes a file record. The physical chunks stay on disk for
// the external sweeper.
func (c *Catalog) DeleteFile(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.ExecContext(context.Background(), `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}
