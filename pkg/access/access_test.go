package access

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/thorli9527/file-cloud/pkg/catalog"
	"github.com/thorli9527/file-cloud/pkg/models"
)

// AccessTestSuite tests the rights model against a real catalog.
type AccessTestSuite struct {
	suite.Suite
	tempDir  string
	catalog  *catalog.Catalog
	resolver *Resolver
}

// SetupSuite runs once before all tests.
func (s *AccessTestSuite) SetupSuite() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "access-test-*")
	s.Require().NoError(err)
}

// TearDownSuite runs once after all tests.
func (s *AccessTestSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// SetupTest runs before each test.
func (s *AccessTestSuite) SetupTest() {
	var err error
	s.catalog, err = catalog.New(filepath.Join(s.tempDir, "test.db"))
	s.Require().NoError(err)
	s.resolver = NewResolver(s.catalog)
}

// TearDownTest runs after each test.
func (s *AccessTestSuite) TearDownTest() {
	if s.catalog != nil {
		s.catalog.Close()
	}
	os.Remove(filepath.Join(s.tempDir, "test.db"))
}

func (s *AccessTestSuite) createBucket(pubRead, pubWrite bool) int64 {
	name := "b"
	if pubRead {
		name += "-r"
	}
	if pubWrite {
		name += "-w"
	}
	bucket, err := s.catalog.CreateBucket(name, 0, pubRead, pubWrite)
	s.Require().NoError(err)
	return bucket.ID
}

func (s *AccessTestSuite) createUser(name string, isAdmin bool) *models.SessionUser {
	user, err := s.catalog.CreateUser(name, "digest", "", "", isAdmin)
	s.Require().NoError(err)
	return &models.SessionUser{UserID: user.ID, IsAdmin: isAdmin}
}

// TestAdminBypass tests that administrators pass every check without a
// grant row.
func (s *AccessTestSuite) TestAdminBypass() {
	bucketID := s.createBucket(false, false)
	admin := s.createUser("root", true)

	s.NoError(s.resolver.Check(admin, bucketID, models.OpRead))
	s.NoError(s.resolver.Check(admin, bucketID, models.OpWrite))

	// Even against a bucket that does not exist.
	s.NoError(s.resolver.Check(admin, 12345, models.OpRead))
}

// TestPublicFlags tests anonymous access through bucket flags.
func (s *AccessTestSuite) TestPublicFlags() {
	testCases := []struct {
		pubRead  bool
		pubWrite bool
		op       models.Operation
		allowed  bool
		message  string
	}{
		{true, false, models.OpRead, true, "public read allows anonymous read"},
		{true, false, models.OpWrite, false, "public read refuses anonymous write"},
		{false, true, models.OpWrite, true, "public write allows anonymous write"},
		{false, true, models.OpRead, false, "public write refuses anonymous read"},
		{false, false, models.OpRead, false, "private bucket refuses anonymous read"},
		{false, false, models.OpWrite, false, "private bucket refuses anonymous write"},
	}

	for _, tc := range testCases {
		bucketID := s.createBucket(tc.pubRead, tc.pubWrite)
		err := s.resolver.Check(nil, bucketID, tc.op)
		if tc.allowed {
			s.NoError(err, tc.message)
		} else {
			s.ErrorIs(err, ErrPermissionDenied, tc.message)
		}
		s.Require().NoError(s.catalog.DeleteBucket(bucketID))
	}
}

// TestGrantLevels tests the per-user grant matrix on a private bucket.
func (s *AccessTestSuite) TestGrantLevels() {
	testCases := []struct {
		level   models.RightLevel
		readOK  bool
		writeOK bool
		message string
	}{
		{models.RightRead, true, false, "read grant"},
		{models.RightWrite, false, true, "write grant"},
		{models.RightReadWrite, true, true, "readwrite grant"},
	}

	bucketID := s.createBucket(false, false)

	for _, tc := range testCases {
		user := s.createUser("user-"+string(tc.level), false)
		_, err := s.resolver.Grant(user.UserID, bucketID, tc.level)
		s.Require().NoError(err, tc.message)

		readErr := s.resolver.Check(user, bucketID, models.OpRead)
		writeErr := s.resolver.Check(user, bucketID, models.OpWrite)

		if tc.readOK {
			s.NoError(readErr, tc.message)
		} else {
			s.ErrorIs(readErr, ErrPermissionDenied, tc.message)
		}
		if tc.writeOK {
			s.NoError(writeErr, tc.message)
		} else {
			s.ErrorIs(writeErr, ErrPermissionDenied, tc.message)
		}
	}
}

// TestNoGrant tests that a signed-in user without a grant is refused.
func (s *AccessTestSuite) TestNoGrant() {
	bucketID := s.createBucket(false, false)
	user := s.createUser("alice", false)

	s.ErrorIs(s.resolver.Check(user, bucketID, models.OpRead), ErrPermissionDenied)
	s.ErrorIs(s.resolver.Check(user, bucketID, models.OpWrite), ErrPermissionDenied)
}

// TestGrantReplaced tests that re-granting replaces the previous level.
func (s *AccessTestSuite) TestGrantReplaced() {
	bucketID := s.createBucket(false, false)
	user := s.createUser("alice", false)

	_, err := s.resolver.Grant(user.UserID, bucketID, models.RightReadWrite)
	s.Require().NoError(err)
	s.NoError(s.resolver.Check(user, bucketID, models.OpWrite))

	_, err = s.resolver.Grant(user.UserID, bucketID, models.RightRead)
	s.Require().NoError(err)
	s.ErrorIs(s.resolver.Check(user, bucketID, models.OpWrite), ErrPermissionDenied)
	s.NoError(s.resolver.Check(user, bucketID, models.OpRead))
}

// TestMissingBucket tests that a missing bucket surfaces as not-found, not
// as a permission decision.
func (s *AccessTestSuite) TestMissingBucket() {
	user := s.createUser("alice", false)
	err := s.resolver.Check(user, 12345, models.OpRead)
	s.ErrorIs(err, catalog.ErrBucketNotFound)
}

// TestAccessSuite runs the test suite.
func TestAccessSuite(t *testing.T) {
	suite.Run(t, new(AccessTestSuite))
}
