package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/thorli9527/file-cloud/pkg/models"
)

// CatalogTestSuite tests the SQLite-backed metadata store.
type CatalogTestSuite struct {
	suite.Suite
	tempDir string
	dbPath  string
	catalog *Catalog
}

// SetupSuite runs once before all tests.
func (s *CatalogTestSuite) SetupSuite() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "catalog-test-*")
	s.Require().NoError(err)
}

// TearDownSuite runs once after all tests.
func (s *CatalogTestSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// SetupTest runs before each test.
func (s *CatalogTestSuite) SetupTest() {
	s.dbPath = filepath.Join(s.tempDir, "test.db")
	var err error
	s.catalog, err = New(s.dbPath)
	s.Require().NoError(err)
}

// TearDownTest runs after each test.
func (s *CatalogTestSuite) TearDownTest() {
	if s.catalog != nil {
		s.catalog.Close()
	}
	os.Remove(s.dbPath)
}

func (s *CatalogTestSuite) mustCreateBucket(name string, quota int64) *models.Bucket {
	bucket, err := s.catalog.CreateBucket(name, quota, false, false)
	s.Require().NoError(err)
	return bucket
}

// TestValidateBucketName tests bucket name length limits.
func (s *CatalogTestSuite) TestValidateBucketName() {
	testCases := []struct {
		name    string
		valid   bool
		message string
	}{
		{"photos", true, "valid simple name"},
		{"a", true, "minimum length name"},
		{"abcdefghijklmnopqrstuvwxyz012345", true, "maximum length name"},
		{"", false, "empty name"},
		{"abcdefghijklmnopqrstuvwxyz0123456", false, "name one over the limit"},
	}

	for _, tc := range testCases {
		err := ValidateBucketName(tc.name)
		if tc.valid {
			s.NoError(err, tc.message)
		} else {
			s.ErrorIs(err, ErrInvalidName, tc.message)
		}
	}
}

// TestBucketCRUD tests bucket creation, retrieval, update and deletion.
func (s *CatalogTestSuite) TestBucketCRUD() {
	bucket := s.mustCreateBucket("photos", 1000)
	s.NotZero(bucket.ID)
	s.Equal("photos", bucket.Name)
	s.Equal(int64(1000), bucket.Quota)
	s.Zero(bucket.CurrentQuota)

	got, err := s.catalog.GetBucket(bucket.ID)
	s.Require().NoError(err)
	s.Equal(bucket.Name, got.Name)

	byName, err := s.catalog.GetBucketByName("photos")
	s.Require().NoError(err)
	s.Equal(bucket.ID, byName.ID)

	err = s.catalog.UpdateBucket(bucket.ID, "pictures", 2000, true, false)
	s.Require().NoError(err)

	got, err = s.catalog.GetBucket(bucket.ID)
	s.Require().NoError(err)
	s.Equal("pictures", got.Name)
	s.Equal(int64(2000), got.Quota)
	s.True(got.PubRead)
	s.False(got.PubWrite)

	err = s.catalog.DeleteBucket(bucket.ID)
	s.Require().NoError(err)

	_, err = s.catalog.GetBucket(bucket.ID)
	s.ErrorIs(err, ErrBucketNotFound)
}

// TestBucketDuplicateName tests that bucket names are unique.
func (s *CatalogTestSuite) TestBucketDuplicateName() {
	s.mustCreateBucket("photos", 0)

	_, err := s.catalog.CreateBucket("photos", 0, false, false)
	s.ErrorIs(err, ErrBucketExists)
}

// TestBucketNotFound tests operations against a missing bucket.
func (s *CatalogTestSuite) TestBucketNotFound() {
	_, err := s.catalog.GetBucket(12345)
	s.ErrorIs(err, ErrBucketNotFound)

	err = s.catalog.UpdateBucket(12345, "name", 0, false, false)
	s.ErrorIs(err, ErrBucketNotFound)

	err = s.catalog.DeleteBucket(12345)
	s.ErrorIs(err, ErrBucketNotFound)
}

// TestListBuckets tests keyset pagination over buckets.
func (s *CatalogTestSuite) TestListBuckets() {
	first := s.mustCreateBucket("bucket-a", 0)
	second := s.mustCreateBucket("bucket-b", 0)
	third := s.mustCreateBucket("bucket-c", 0)

	page, err := s.catalog.ListBuckets(0, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(first.ID, page[0].ID)
	s.Equal(second.ID, page[1].ID)

	page, err = s.catalog.ListBuckets(page[1].ID, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(third.ID, page[0].ID)
}

// TestReserveQuota tests the atomic quota counter.
func (s *CatalogTestSuite) TestReserveQuota() {
	bucket := s.mustCreateBucket("limited", 100)

	s.Require().NoError(s.catalog.ReserveQuota(bucket.ID, 60))
	s.Require().NoError(s.catalog.ReserveQuota(bucket.ID, 40))

	err := s.catalog.ReserveQuota(bucket.ID, 1)
	s.ErrorIs(err, ErrQuotaExceeded)

	got, err := s.catalog.GetBucket(bucket.ID)
	s.Require().NoError(err)
	s.Equal(int64(100), got.CurrentQuota, "refused reservation must not change usage")
}

// TestReserveQuotaUnlimited tests that a zero quota never refuses.
func (s *CatalogTestSuite) TestReserveQuotaUnlimited() {
	bucket := s.mustCreateBucket("unlimited", 0)

	s.Require().NoError(s.catalog.ReserveQuota(bucket.ID, 1<<40))

	got, err := s.catalog.GetBucket(bucket.ID)
	s.Require().NoError(err)
	s.Equal(int64(1)<<40, got.CurrentQuota)
}

// TestReserveQuotaMissingBucket distinguishes a missing bucket from a
// refused increment.
func (s *CatalogTestSuite) TestReserveQuotaMissingBucket() {
	err := s.catalog.ReserveQuota(12345, 10)
	s.ErrorIs(err, ErrBucketNotFound)
}

// TestReleaseQuota tests rollback of a reservation.
func (s *CatalogTestSuite) TestReleaseQuota() {
	bucket := s.mustCreateBucket("limited", 100)

	s.Require().NoError(s.catalog.ReserveQuota(bucket.ID, 80))
	s.Require().NoError(s.catalog.ReleaseQuota(bucket.ID, 30))

	got, err := s.catalog.GetBucket(bucket.ID)
	s.Require().NoError(err)
	s.Equal(int64(50), got.CurrentQuota)

	// Releasing more than is held clamps at zero.
	s.Require().NoError(s.catalog.ReleaseQuota(bucket.ID, 1000))
	got, err = s.catalog.GetBucket(bucket.ID)
	s.Require().NoError(err)
	s.Zero(got.CurrentQuota)
}

// TestEnsurePathNode tests insert-or-fetch path node creation.
func (s *CatalogTestSuite) TestEnsurePathNode() {
	bucket := s.mustCreateBucket("photos", 0)

	node, err := s.catalog.EnsurePathNode(bucket.ID, 0, "docs", "docs")
	s.Require().NoError(err)
	s.NotZero(node.ID)
	s.True(node.IsRoot)
	s.Equal("docs", node.FullPath)

	// A second ensure converges on the same row.
	again, err := s.catalog.EnsurePathNode(bucket.ID, 0, "docs", "docs")
	s.Require().NoError(err)
	s.Equal(node.ID, again.ID)

	count, err := s.catalog.CountPathNodes(bucket.ID, "docs")
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	child, err := s.catalog.EnsurePathNode(bucket.ID, node.ID, "2024", "docs/2024")
	s.Require().NoError(err)
	s.False(child.IsRoot)
	s.Equal(node.ID, child.ParentID)
}

// TestPathNodeScopedByBucket tests that equal paths in different buckets
// are distinct rows.
func (s *CatalogTestSuite) TestPathNodeScopedByBucket() {
	first := s.mustCreateBucket("first", 0)
	second := s.mustCreateBucket("second", 0)

	a, err := s.catalog.EnsurePathNode(first.ID, 0, "docs", "docs")
	s.Require().NoError(err)
	b, err := s.catalog.EnsurePathNode(second.ID, 0, "docs", "docs")
	s.Require().NoError(err)

	s.NotEqual(a.ID, b.ID)
}

// TestListPathChildren tests keyset pagination over a directory's children.
func (s *CatalogTestSuite) TestListPathChildren() {
	bucket := s.mustCreateBucket("photos", 0)
	parent, err := s.catalog.EnsurePathNode(bucket.ID, 0, "docs", "docs")
	s.Require().NoError(err)

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.catalog.EnsurePathNode(bucket.ID, parent.ID, name, "docs/"+name)
		s.Require().NoError(err)
	}

	page, err := s.catalog.ListPathChildren(bucket.ID, parent.ID, 0, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 2)

	rest, err := s.catalog.ListPathChildren(bucket.ID, parent.ID, page[1].ID, 2)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal("c", rest[0].Segment)
}

// TestDeletePathNode tests that deletion records a sweeper task.
func (s *CatalogTestSuite) TestDeletePathNode() {
	bucket := s.mustCreateBucket("photos", 0)
	node, err := s.catalog.EnsurePathNode(bucket.ID, 0, "docs", "docs")
	s.Require().NoError(err)

	taskID, err := s.catalog.DeletePathNode(node.ID)
	s.Require().NoError(err)
	s.NotZero(taskID)

	_, err = s.catalog.GetPathNode(node.ID)
	s.ErrorIs(err, ErrPathNotFound)

	task, err := s.catalog.GetDeleteTask(taskID)
	s.Require().NoError(err)
	s.Equal(node.ID, task.PathID)
	s.False(task.FileDeleteDone)
	s.False(task.PathDeleteDone)
}

// TestDeletePathNodeMissing tests deleting a nonexistent node.
func (s *CatalogTestSuite) TestDeletePathNodeMissing() {
	_, err := s.catalog.DeletePathNode(12345)
	s.ErrorIs(err, ErrPathNotFound)
}

// TestInsertFile tests file insertion and type classification.
func (s *CatalogTestSuite) TestInsertFile() {
	bucket := s.mustCreateBucket("photos", 0)

	rec := &models.FileRecord{
		BucketID: bucket.ID,
		Name:     "holiday.jpg",
		FullPath: "holiday.jpg",
		Size:     42,
		Items: []models.ChunkRef{
			{Path: "2024/1/100/aaaa", Size: 42},
		},
	}
	id, err := s.catalog.InsertFile(rec)
	s.Require().NoError(err)
	s.NotZero(id)
	s.Equal(id, rec.ID)

	got, err := s.catalog.GetFile(id)
	s.Require().NoError(err)
	s.Equal(models.FileTypeImage, got.FileType)
	s.Equal(models.ImageTypeJPG, got.ImageType)
	s.Require().Len(got.Items, 1)
	s.Equal("2024/1/100/aaaa", got.Items[0].Path)
}

// TestInsertFileInvalidName tests the file name length limit.
func (s *CatalogTestSuite) TestInsertFileInvalidName() {
	bucket := s.mustCreateBucket("photos", 0)

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'x'
	}

	_, err := s.catalog.InsertFile(&models.FileRecord{
		BucketID: bucket.ID,
		Name:     string(long),
		FullPath: string(long),
	})
	s.ErrorIs(err, ErrInvalidName)
}

// TestListFilesAndSize tests directory listing, prefix listing and size
// aggregation.
func (s *CatalogTestSuite) TestListFilesAndSize() {
	bucket := s.mustCreateBucket("photos", 0)
	docs, err := s.catalog.EnsurePathNode(bucket.ID, 0, "docs", "docs")
	s.Require().NoError(err)
	sub, err := s.catalog.EnsurePathNode(bucket.ID, docs.ID, "deep", "docs/deep")
	s.Require().NoError(err)

	sizes := map[string]int64{"a.txt": 100, "b.txt": 200}
	for name, size := range sizes {
		_, err := s.catalog.InsertFile(&models.FileRecord{
			BucketID: bucket.ID,
			PathRef:  docs.ID,
			Name:     name,
			FullPath: "docs/" + name,
			Size:     size,
		})
		s.Require().NoError(err)
	}
	_, err = s.catalog.InsertFile(&models.FileRecord{
		BucketID: bucket.ID,
		PathRef:  sub.ID,
		Name:     "c.txt",
		FullPath: "docs/deep/c.txt",
		Size:     300,
	})
	s.Require().NoError(err)

	inDir, err := s.catalog.ListFilesInDir(bucket.ID, docs.ID, 0, 0)
	s.Require().NoError(err)
	s.Len(inDir, 2, "direct listing excludes the sub-directory file")

	underPrefix, err := s.catalog.ListFilesUnderPrefix(bucket.ID, "docs/", 0, 0)
	s.Require().NoError(err)
	s.Len(underPrefix, 3, "prefix listing covers the whole sub-tree")

	total, err := s.catalog.SizeUnderPrefix(bucket.ID, "docs/")
	s.Require().NoError(err)
	s.Equal(int64(600), total)

	empty, err := s.catalog.SizeUnderPrefix(bucket.ID, "media/")
	s.Require().NoError(err)
	s.Zero(empty)
}

// TestPrefixQueriesMatchLiterally tests that _ and % in directory names do
// not act as wildcards in prefix queries.
func (s *CatalogTestSuite) TestPrefixQueriesMatchLiterally() {
	bucket := s.mustCreateBucket("photos", 0)
	inside, err := s.catalog.EnsurePathNode(bucket.ID, 0, "a_b", "a_b")
	s.Require().NoError(err)
	outside, err := s.catalog.EnsurePathNode(bucket.ID, 0, "axb", "axb")
	s.Require().NoError(err)

	_, err = s.catalog.InsertFile(&models.FileRecord{
		BucketID: bucket.ID,
		PathRef:  inside.ID,
		Name:     "inside.txt",
		FullPath: "a_b/inside.txt",
		Size:     100,
	})
	s.Require().NoError(err)
	_, err = s.catalog.InsertFile(&models.FileRecord{
		BucketID: bucket.ID,
		PathRef:  outside.ID,
		Name:     "outside.txt",
		FullPath: "axb/outside.txt",
		Size:     999,
	})
	s.Require().NoError(err)

	total, err := s.catalog.SizeUnderPrefix(bucket.ID, "a_b/")
	s.Require().NoError(err)
	s.Equal(int64(100), total)

	under, err := s.catalog.ListFilesUnderPrefix(bucket.ID, "a_b/", 0, 0)
	s.Require().NoError(err)
	s.Require().Len(under, 1)
	s.Equal("a_b/inside.txt", under[0].FullPath)
}

// TestDeleteFile tests file record removal.
func (s *CatalogTestSuite) TestDeleteFile() {
	bucket := s.mustCreateBucket("photos", 0)
	rec := &models.FileRecord{BucketID: bucket.ID, Name: "a.txt", FullPath: "a.txt"}
	_, err := s.catalog.InsertFile(rec)
	s.Require().NoError(err)

	s.Require().NoError(s.catalog.DeleteFile(rec.ID))

	_, err = s.catalog.GetFile(rec.ID)
	s.ErrorIs(err, ErrFileNotFound)
}

// TestRights tests grant upsert, retrieval and deletion.
func (s *CatalogTestSuite) TestRights() {
	bucket := s.mustCreateBucket("photos", 0)
	user, err := s.catalog.CreateUser("alice", "digest", "", "", false)
	s.Require().NoError(err)

	right, err := s.catalog.UpsertRight(user.ID, bucket.ID, models.RightRead)
	s.Require().NoError(err)
	s.Equal(models.RightRead, right.Right)

	// Upsert replaces the level, it never adds a second row.
	right, err = s.catalog.UpsertRight(user.ID, bucket.ID, models.RightReadWrite)
	s.Require().NoError(err)
	s.Equal(models.RightReadWrite, right.Right)

	rights, err := s.catalog.ListRightsForUser(user.ID)
	s.Require().NoError(err)
	s.Require().Len(rights, 1)
	s.Equal(models.RightReadWrite, rights[0].Right)

	s.Require().NoError(s.catalog.DeleteRight(user.ID, bucket.ID))

	_, err = s.catalog.GetRight(user.ID, bucket.ID)
	s.ErrorIs(err, ErrRightNotFound)
}

// TestUsers tests user account lifecycle.
func (s *CatalogTestSuite) TestUsers() {
	user, err := s.catalog.CreateUser("alice", "digest-1", "ak", "sk", true)
	s.Require().NoError(err)
	s.NotZero(user.ID)
	s.True(user.IsAdmin)

	_, err = s.catalog.CreateUser("alice", "other", "", "", false)
	s.ErrorIs(err, ErrUserExists)

	got, err := s.catalog.GetUserByName("alice")
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)

	s.Require().NoError(s.catalog.UpdateUserPassword(user.ID, "digest-2"))
	got, err = s.catalog.GetUser(user.ID)
	s.Require().NoError(err)
	s.Equal("digest-2", got.Password)

	s.Require().NoError(s.catalog.DeleteUser(user.ID))
	_, err = s.catalog.GetUser(user.ID)
	s.ErrorIs(err, ErrUserNotFound)
}

// TestCatalogSuite runs the test suite.
func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogTestSuite))
}
