package models

import "time"

// User is a console account. Password holds an md5 hex digest, never the
// clear text.
type User struct {
	ID         int64     `json:"id"`
	UserName   string    `json:"user_name"`
	Password   string    `json:"-"`
	AccessKey  string    `json:"access_key"`
	SecretKey  string    `json:"secret_key"`
	IsAdmin    bool      `json:"is_admin"`
	CreateTime time.Time `json:"create_time"`
}

// SessionUser is the cached identity behind a session token.
type SessionUser struct {
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
}

// UserListResponse represents one page of users.
type UserListResponse struct {
	Users []User `json:"users"`
	Total int64  `json:"total"`
}
