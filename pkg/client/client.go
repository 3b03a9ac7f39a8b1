// Package client is the Go API client for a file-cloud server. It wraps a
// retrying HTTP client; connection and timeout errors are retried, HTTP
// error responses are surfaced as-is.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/thorli9527/file-cloud/pkg/models"
)

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 200 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to one file-cloud server. Safe for concurrent use after
// Login.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	token   string
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.Logger = nil // Disable retryablehttp logging
	rc.CheckRetry = connectionRetryPolicy

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
	}
}

// connectionRetryPolicy only retries on connection/timeout errors, never on
// HTTP status errors, so server error bodies reach the caller untouched.
func connectionRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil {
		return false, nil
	}
	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp reports the final error itself
	}
	return false, nil
}

// do performs a request, decorating it with the session token, and decodes
// a JSON response into result when result is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, result interface{}) error {
	resp, err := c.start(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// start issues the request and returns the raw response. The caller owns
// the body.
func (c *Client) start(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Session "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return string(body)
}

func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// Login authenticates and stores the session token for subsequent calls.
func (c *Client) Login(ctx context.Context, userName, password string) error {
	body, err := jsonBody(map[string]string{
		"user_name": userName,
		"password":  password,
	})
	if err != nil {
		return err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, "application/json", &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// Logout invalidates the current session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/logout", nil, "", nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// CreateBucket creates a bucket. Administrator only.
func (c *Client) CreateBucket(ctx context.Context, name string, quota int64, pubRead, pubWrite bool) (*models.Bucket, error) {
	body, err := jsonBody(map[string]interface{}{
		"name":      name,
		"quota":     quota,
		"pub_read":  pubRead,
		"pub_write": pubWrite,
	})
	if err != nil {
		return nil, err
	}

	bucket := &models.Bucket{}
	if err := c.do(ctx, http.MethodPost, "/api/buckets", body, "application/json", bucket); err != nil {
		return nil, err
	}
	return bucket, nil
}

// ListBuckets returns one keyset page of buckets. Administrator only.
func (c *Client) ListBuckets(ctx context.Context, afterID int64, pageSize int) ([]models.Bucket, error) {
	var resp struct {
		Buckets []models.Bucket `json:"buckets"`
	}
	path := fmt.Sprintf("/api/buckets?after_id=%d&page_size=%d", afterID, pageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Buckets, nil
}

// DeleteBucket removes a bucket. Administrator only.
func (c *Client) DeleteBucket(ctx context.Context, bucketID int64) error {
	path := fmt.Sprintf("/api/buckets/%d", bucketID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// CreateUser creates a console account. Administrator only.
func (c *Client) CreateUser(ctx context.Context, userName, password string, isAdmin bool) (*models.User, error) {
	body, err := jsonBody(map[string]interface{}{
		"user_name": userName,
		"password":  password,
		"is_admin":  isAdmin,
	})
	if err != nil {
		return nil, err
	}

	user := &models.User{}
	if err := c.do(ctx, http.MethodPost, "/api/users", body, "application/json", user); err != nil {
		return nil, err
	}
	return user, nil
}

// GrantRight gives a user a right level on a bucket. Administrator only.
func (c *Client) GrantRight(ctx context.Context, userID, bucketID int64, level models.RightLevel) error {
	body, err := jsonBody(map[string]interface{}{
		"user_id":   userID,
		"bucket_id": bucketID,
		"right":     level,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/api/rights", body, "application/json", nil)
}

// Mkdir creates a directory under parentID (0 = bucket root).
func (c *Client) Mkdir(ctx context.Context, bucketID, parentID int64, name string) (*models.PathNode, error) {
	body, err := jsonBody(map[string]interface{}{
		"parent_id": parentID,
		"name":      name,
	})
	if err != nil {
		return nil, err
	}

	node := &models.PathNode{}
	path := fmt.Sprintf("/api/buckets/%d/dirs", bucketID)
	if err := c.do(ctx, http.MethodPost, path, body, "application/json", node); err != nil {
		return nil, err
	}
	return node, nil
}

// Browse returns one combined page of directories and files under pathID
// (0 = bucket root). Pass a zero cursor for the first page and the
// returned Next cursor for subsequent pages.
func (c *Client) Browse(ctx context.Context, bucketID, pathID int64, cursor models.BrowseCursor, pageSize int) (*models.BrowsePage, error) {
	var page models.BrowsePage
	path := fmt.Sprintf("/api/buckets/%d/browse?path_id=%d&dir_after_id=%d&file_after_id=%d&page_size=%d",
		bucketID, pathID, cursor.DirAfterID, cursor.FileAfterID, pageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DirSize returns the aggregate size of the sub-tree rooted at pathID.
func (c *Client) DirSize(ctx context.Context, pathID int64) (int64, error) {
	var resp struct {
		Size int64 `json:"size"`
	}
	path := fmt.Sprintf("/api/dirs/%d/size", pathID)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return 0, err
	}
	return resp.Size, nil
}

// DeleteDirectory removes a directory node and returns the recorded
// cleanup task id.
func (c *Client) DeleteDirectory(ctx context.Context, pathID int64) (int64, error) {
	var resp struct {
		TaskID int64 `json:"task_id"`
	}
	path := fmt.Sprintf("/api/dirs/%d", pathID)
	if err := c.do(ctx, http.MethodDelete, path, nil, "", &resp); err != nil {
		return 0, err
	}
	return resp.TaskID, nil
}

// Upload sends the contents of r as fileName into a bucket directory.
// virtualPath may be empty; missing segments are created server-side.
func (c *Client) Upload(ctx context.Context, bucketID int64, virtualPath, fileName string, r io.Reader) (*models.FileRecord, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if virtualPath != "" {
		if err := mw.WriteField("path", virtualPath); err != nil {
			return nil, fmt.Errorf("encode form: %w", err)
		}
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}

	rec := &models.FileRecord{}
	path := fmt.Sprintf("/api/buckets/%d/files", bucketID)
	if err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Download streams a file's bytes into w and returns the byte count.
func (c *Client) Download(ctx context.Context, fileID int64, w io.Writer) (int64, error) {
	path := fmt.Sprintf("/api/files/%d/download", fileID)
	return c.stream(ctx, path, w)
}

// DownloadDirectory streams a zip archive of the sub-tree rooted at pathID
// into w and returns the byte count.
func (c *Client) DownloadDirectory(ctx context.Context, pathID int64, w io.Writer) (int64, error) {
	path := fmt.Sprintf("/api/dirs/%d/archive", pathID)
	return c.stream(ctx, path, w)
}

func (c *Client) stream(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.start(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return io.Copy(w, resp.Body)
}

// SetToken installs a previously obtained session token, for callers that
// persist sessions across runs.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current session token, empty when logged out.
func (c *Client) Token() string { return c.token }
