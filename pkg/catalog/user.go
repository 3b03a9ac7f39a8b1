package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thorli9527/file-cloud/pkg/models"
)

// CreateUser inserts a console account. The password must already be an md5
// hex digest; the catalog never sees clear text.
func (c *Catalog) CreateUser(userName, passwordMD5, accessKey, secretKey string, isAdmin bool) (*models.User, error) {
	if userName == "" {
		return nil, ErrInvalidName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	result, err := c.db.ExecContext(context.Background(),
		`INSERT INTO users (user_name, password, access_key, secret_key, is_admin, create_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userName, passwordMD5, accessKey, secretKey, isAdmin, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return &models.User{
		ID:         id,
		UserName:   userName,
		Password:   passwordMD5,
		AccessKey:  accessKey,
		SecretKey:  secretKey,
		IsAdmin:    isAdmin,
		CreateTime: now,
	}, nil
}

// GetUser retrieves a user by id.
func (c *Catalog) GetUser(id int64) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanUser(c.db.QueryRowContext(context.Background(),
		`SELECT id, user_name, password, access_key, secret_key, is_admin, create_time
		 FROM users WHERE id = ?`,
		id,
	))
}

// GetUserByName retrieves a user by its unique name.
func (c *Catalog) GetUserByName(userName string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanUser(c.db.QueryRowContext(context.Background(),
		`SELECT id, user_name, password, access_key, secret_key, is_admin, create_time
		 FROM users WHERE user_name = ?`,
		userName,
	))
}

func (c *Catalog) scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.UserName, &u.Password, &u.AccessKey, &u.SecretKey, &u.IsAdmin, &u.CreateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return u, nil
}

// ListUsers returns users with id greater than afterID, ordered by
// ascending id.
func (c *Catalog) ListUsers(afterID int64, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(context.Background(),
		`SELECT id, user_name, password, access_key, secret_key, is_admin, create_time
		 FROM users WHERE id > ? ORDER BY id LIMIT ?`,
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.UserName, &u.Password, &u.AccessKey, &u.SecretKey, &u.IsAdmin, &u.CreateTime); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return users, nil
}

// UpdateUserPassword replaces a user's md5 password digest.
func (c *Catalog) UpdateUserPassword(id int64, passwordMD5 string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.ExecContext(context.Background(),
		`UPDATE users SET password = ? WHERE id = ?`,
		passwordMD5, id,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserKeys rotates a user's access and secret keys.
func (c *Catalog) UpdateUserKeys(id int64, accessKey, secretKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.ExecContext(context.Background(),
		`UPDATE users SET access_key = ?, secret_key = ? WHERE id = ?`,
		accessKey, secretKey, id,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a console account.
func (c *Catalog) DeleteUser(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.ExecContext(context.Background(), `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
