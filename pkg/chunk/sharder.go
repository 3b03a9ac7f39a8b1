// Package chunk implements the physical chunk store: fixed-size chunk
// files spread across a time-sharded directory tree so no single directory
// accumulates millions of entries.
package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/thorli9527/file-cloud/pkg/cache"
)

const dirPerm = 0750

// Sharder picks the physical directory for new chunks from the current
// instant: root/year/dayOfYear/minuteOfDay. Created directories are
// remembered in a TTL cache so steady-state uploads do not stat the
// filesystem at all.
type Sharder struct {
	root    string
	markers cache.Cache[string, bool]
}

// NewSharder creates a sharder rooted at root. The marker cache is injected
// so tests can disable it and assert filesystem fallback.
func NewSharder(root string, markers cache.Cache[string, bool]) *Sharder {
	return &Sharder{root: root, markers: markers}
}

// Root returns the storage root directory.
func (s *Sharder) Root() string {
	return s.root
}

// ShardDir returns the shard directory for the current instant, creating
// any missing level on the way down. A creation failure is fatal to the
// caller's upload only; nothing is retried here.
func (s *Sharder) ShardDir() (string, error) {
	return s.dirFor(time.Now())
}

func (s *Sharder) dirFor(now time.Time) (string, error) {
	year := now.Year()
	dayOfYear := now.YearDay()
	minuteOfDay := now.Hour()*60 + now.Minute()

	levels := []string{
		filepath.Join(s.root, strconv.Itoa(year)),
		filepath.Join(s.root, strconv.Itoa(year), strconv.Itoa(dayOfYear)),
		filepath.Join(s.root, strconv.Itoa(year), strconv.Itoa(dayOfYear), strconv.Itoa(minuteOfDay)),
	}

	for _, dir := range levels {
		if _, ok := s.markers.Get(dir); ok {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, dirPerm); err != nil {
				return "", fmt.Errorf("%w: create shard directory %s: %w", ErrStorageIO, dir, err)
			}
		} else if err != nil {
			return "", fmt.Errorf("%w: stat shard directory %s: %w", ErrStorageIO, dir, err)
		}
		s.markers.Set(dir, true)
	}

	return levels[len(levels)-1], nil
}
