package client

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/rand"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/thorli9527/file-cloud/pkg/access"
	"github.com/thorli9527/file-cloud/pkg/cache"
	"github.com/thorli9527/file-cloud/pkg/catalog"
	"github.com/thorli9527/file-cloud/pkg/chunk"
	"github.com/thorli9527/file-cloud/pkg/models"
	"github.com/thorli9527/file-cloud/pkg/server"
	"github.com/thorli9527/file-cloud/pkg/service"
	"github.com/thorli9527/file-cloud/pkg/vfs"
)

// ClientTestSuite tests the API client against an in-process server.
type ClientTestSuite struct {
	suite.Suite
	tempDir string
	catalog *catalog.Catalog
	ts      *httptest.Server
	client  *Client
	ctx     context.Context
}

// SetupSuite runs once before all tests.
func (s *ClientTestSuite) SetupSuite() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "client-test-*")
	s.Require().NoError(err)
}

// TearDownSuite runs once after all tests.
func (s *ClientTestSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// SetupTest runs before each test.
func (s *ClientTestSuite) SetupTest() {
	caseDir := filepath.Join(s.tempDir, strconv.FormatInt(time.Now().UnixNano(), 10))
	s.Require().NoError(os.MkdirAll(filepath.Join(caseDir, "data"), 0o750))
	s.Require().NoError(os.MkdirAll(filepath.Join(caseDir, "scratch"), 0o750))

	var err error
	s.catalog, err = catalog.New(filepath.Join(caseDir, "test.db"))
	s.Require().NoError(err)

	sharder := chunk.NewSharder(filepath.Join(caseDir, "data"), cache.NewTTL[string, bool](100, time.Minute))
	chunks := chunk.NewStore(sharder)
	paths := vfs.NewResolver(s.catalog, cache.NewTTL[vfs.PathKey, int64](100, time.Minute))
	rights := access.NewResolver(s.catalog)
	svc := service.New(s.catalog, rights, paths, chunks, filepath.Join(caseDir, "scratch"))

	sessions := cache.NewTTL[string, models.SessionUser](100, time.Minute)
	srv := server.NewServer(svc, s.catalog, sessions, "test")
	s.ts = httptest.NewServer(srv.Handler())

	_, err = s.catalog.CreateUser("admin", server.PasswordDigest("secret"), "", "", true)
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.client = New(s.ts.URL)
	s.Require().NoError(s.client.Login(s.ctx, "admin", "secret"))
}

// TearDownTest runs after each test.
func (s *ClientTestSuite) TearDownTest() {
	if s.ts != nil {
		s.ts.Close()
	}
	if s.catalog != nil {
		s.catalog.Close()
	}
}

// TestLoginFailure tests that bad credentials surface as an APIError.
func (s *ClientTestSuite) TestLoginFailure() {
	c := New(s.ts.URL)
	err := c.Login(s.ctx, "admin", "wrong")

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(401, apiErr.StatusCode)
	s.Empty(c.Token())
}

// TestBucketLifecycle tests bucket calls end to end.
func (s *ClientTestSuite) TestBucketLifecycle() {
	bucket, err := s.client.CreateBucket(s.ctx, "photos", 0, false, false)
	s.Require().NoError(err)
	s.NotZero(bucket.ID)

	buckets, err := s.client.ListBuckets(s.ctx, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(buckets, 1)
	s.Equal("photos", buckets[0].Name)

	s.Require().NoError(s.client.DeleteBucket(s.ctx, bucket.ID))

	buckets, err = s.client.ListBuckets(s.ctx, 0, 10)
	s.Require().NoError(err)
	s.Empty(buckets)
}

// TestUploadDownload tests the full byte round trip through the client.
func (s *ClientTestSuite) TestUploadDownload() {
	bucket, err := s.client.CreateBucket(s.ctx, "photos", 0, false, false)
	s.Require().NoError(err)

	data := make([]byte, 64*1024)
	_, err = rand.Read(data)
	s.Require().NoError(err)

	rec, err := s.client.Upload(s.ctx, bucket.ID, "docs/2024", "blob.bin", bytes.NewReader(data))
	s.Require().NoError(err)
	s.Equal(int64(len(data)), rec.Size)
	s.Equal("docs/2024/blob.bin", rec.FullPath)

	var out bytes.Buffer
	n, err := s.client.Download(s.ctx, rec.ID, &out)
	s.Require().NoError(err)
	s.Equal(int64(len(data)), n)
	s.Equal(data, out.Bytes())
}

// TestDownloadMissingFile tests error mapping for a missing file.
func (s *ClientTestSuite) TestDownloadMissingFile() {
	_, err := s.client.Download(s.ctx, 12345, &bytes.Buffer{})

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(404, apiErr.StatusCode)
}

// TestDirectoryFlow tests mkdir, browse, size, archive and delete.
func (s *ClientTestSuite) TestDirectoryFlow() {
	bucket, err := s.client.CreateBucket(s.ctx, "photos", 0, false, false)
	s.Require().NoError(err)

	docs, err := s.client.Mkdir(s.ctx, bucket.ID, 0, "docs")
	s.Require().NoError(err)
	s.Equal("docs", docs.FullPath)

	_, err = s.client.Upload(s.ctx, bucket.ID, "docs", "a.txt", bytes.NewReader([]byte("12345")))
	s.Require().NoError(err)
	_, err = s.client.Upload(s.ctx, bucket.ID, "docs/deep", "b.txt", bytes.NewReader([]byte("1234567890")))
	s.Require().NoError(err)

	page, err := s.client.Browse(s.ctx, bucket.ID, docs.ID, models.BrowseCursor{}, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Entries, 2)
	s.Equal(models.FileTypeDir, page.Entries[0].FileType)

	size, err := s.client.DirSize(s.ctx, docs.ID)
	s.Require().NoError(err)
	s.Equal(int64(15), size)

	var archive bytes.Buffer
	n, err := s.client.DownloadDirectory(s.ctx, docs.ID, &archive)
	s.Require().NoError(err)
	s.NotZero(n)

	zr, err := zip.NewReader(bytes.NewReader(archive.Bytes()), int64(archive.Len()))
	s.Require().NoError(err)
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	s.True(names["docs/a.txt"], "archive contains docs/a.txt")
	s.True(names["docs/deep/b.txt"], "archive contains docs/deep/b.txt")

	taskID, err := s.client.DeleteDirectory(s.ctx, docs.ID)
	s.Require().NoError(err)
	s.NotZero(taskID)
}

// TestGrantFlow tests user creation and rights through the client.
func (s *ClientTestSuite) TestGrantFlow() {
	bucket, err := s.client.CreateBucket(s.ctx, "photos", 0, false, false)
	s.Require().NoError(err)

	user, err := s.client.CreateUser(s.ctx, "alice", "pw", false)
	s.Require().NoError(err)

	alice := New(s.ts.URL)
	s.Require().NoError(alice.Login(s.ctx, "alice", "pw"))

	_, err = alice.Upload(s.ctx, bucket.ID, "", "a.txt", bytes.NewReader([]byte("x")))
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(403, apiErr.StatusCode)

	s.Require().NoError(s.client.GrantRight(s.ctx, user.ID, bucket.ID, models.RightReadWrite))

	_, err = alice.Upload(s.ctx, bucket.ID, "", "a.txt", bytes.NewReader([]byte("x")))
	s.NoError(err)
}

// TestLogout tests that the token is dropped and refused afterwards.
func (s *ClientTestSuite) TestLogout() {
	token := s.client.Token()
	s.Require().NotEmpty(token)

	s.Require().NoError(s.client.Logout(s.ctx))
	s.Empty(s.client.Token())

	stale := New(s.ts.URL)
	stale.SetToken(token)
	_, err := stale.ListBuckets(s.ctx, 0, 10)

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(401, apiErr.StatusCode)
}

// TestClientSuite runs the test suite.
func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
