package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
)

const packagePageSize = 200

// DownloadDirectory packages the sub-tree rooted at pathID into a zip
// archive and returns a stream of it. The archive is assembled in a
// scratch directory that is removed when the returned stream is closed.
// Any chunk read error aborts the whole packaging.
func (s *Service) DownloadDirectory(user *models.SessionUser, pathID int64) (string, io.ReadCloser, error) {
	node, err := s.catalog.GetPathNode(pathID)
	if err != nil {
		return "", nil, err
	}
	if err := s.access.Check(user, node.BucketID, models.OpRead); err != nil {
		return "", nil, err
	}

	scratch, err := os.MkdirTemp(s.scratchDir, "fc-pack-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}

	archive, err := s.packTree(node, scratch)
	if err != nil {
		os.RemoveAll(scratch)
		return "", nil, err
	}

	f, err := os.Open(archive)
	if err != nil {
		os.RemoveAll(scratch)
		return "", nil, fmt.Errorf("open archive: %w", err)
	}

	name := node.Segment + ".zip"
	return name, &scratchStream{File: f, dir: scratch}, nil
}

// packTree mirrors the sub-tree under node into scratch/<segment>/ by
// reassembling every file from its chunks, then zips the mirror. Returns
// the archive path.
func (s *Service) packTree(node *models.PathNode, scratch string) (string, error) {
	mirror := filepath.Join(scratch, node.Segment)
	if err := os.MkdirAll(mirror, 0750); err != nil {
		return "", fmt.Errorf("create mirror root: %w", err)
	}

	prefix := node.FullPath + "/"
	madeDirs := map[string]bool{mirror: true}

	afterID := int64(0)
	for {
		files, err := s.catalog.ListFilesUnderPrefix(node.BucketID, prefix, afterID, packagePageSize)
		if err != nil {
			return "", err
		}
		if len(files) == 0 {
			break
		}
		for _, rec := range files {
			rel := strings.TrimPrefix(rec.FullPath, prefix)
			dest := filepath.Join(mirror, filepath.FromSlash(rel))
			dir := filepath.Dir(dest)
			if !madeDirs[dir] {
				if err := os.MkdirAll(dir, 0750); err != nil {
					return "", fmt.Errorf("mirror dir %s: %w", rel, err)
				}
				madeDirs[dir] = true
			}
			if err := s.materialize(&rec, dest); err != nil {
				return "", err
			}
			afterID = rec.ID
		}
		if len(files) < packagePageSize {
			break
		}
	}

	archive := filepath.Join(scratch, node.Segment+".zip")
	if err := zipDirectory(mirror, node.Segment, archive); err != nil {
		return "", err
	}
	return archive, nil
}

// materialize reassembles one file's chunks into dest.
func (s *Service) materialize(rec *models.FileRecord, dest string) error {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.Name, err)
	}
	if _, err := s.chunks.ReadFile(rec.Items, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// zipDirectory writes the contents of root into a zip archive at dest,
// with every entry prefixed by top (the packaged directory's name).
func zipDirectory(root, top, dest string) error {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(out)

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := top
		if rel != "." {
			name = top + "/" + filepath.ToSlash(rel)
		}
		if d.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, src)
		src.Close()
		return err
	})
	if err != nil {
		zw.Close()
		out.Close()
		return fmt.Errorf("zip %s: %w", top, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finish archive: %w", err)
	}
	return out.Close()
}

// scratchStream is an archive file whose Close also removes the scratch
// directory the archive lives in.
type scratchStream struct {
	*os.File
	dir string
}

func (ss *scratchStream) Close() error {
	err := ss.File.Close()
	if rmErr := os.RemoveAll(ss.dir); rmErr != nil {
		log.Warn().Err(rmErr).Str("dir", ss.dir).Msg("Failed to remove scratch directory")
	}
	return err
}
