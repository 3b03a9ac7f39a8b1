package chunk

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
)

// DefaultChunkSize is the fixed chunk size for stored files (4 MiB).
const DefaultChunkSize = 4 * 1024 * 1024

const readBufSize = 64 * 1024

// Store persists byte streams as sequences of fixed-size chunk files and
// reads them back in order.
type Store struct {
	sharder   *Sharder
	chunkSize int
}

// NewStore creates a chunk store over the given sharder.
func NewStore(sharder *Sharder) *Store {
	return &Store{sharder: sharder, chunkSize: DefaultChunkSize}
}

// NewStoreWithChunkSize creates a chunk store with a non-default chunk
// size. Tests use small sizes to exercise boundary behavior cheaply.
func NewStoreWithChunkSize(sharder *Sharder, chunkSize int) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Store{sharder: sharder, chunkSize: chunkSize}
}

// ChunkSize returns the configured chunk size.
func (s *Store) ChunkSize() int {
	return s.chunkSize
}

// WriteStream splits reader into chunks of exactly ChunkSize bytes (the
// final chunk may be shorter) and writes each to a fresh opaque file in the
// current shard directory. Chunk N+1 is only written after chunk N. On any
// failure every chunk already written for this stream is removed before
// returning, so a failed upload leaves nothing on disk.
//
// An empty stream yields zero chunks and size 0.
func (s *Store) WriteStream(reader io.Reader) ([]models.ChunkRef, int64, error) {
	var (
		items     []models.ChunkRef
		totalSize int64
	)
	buffer := make([]byte, 0, s.chunkSize+readBufSize)
	readBuf := make([]byte, readBufSize)

	flush := func(n int) error {
		ref, err := s.writeChunk(buffer[:n])
		if err != nil {
			return err
		}
		items = append(items, ref)
		buffer = buffer[:copy(buffer, buffer[n:])]
		return nil
	}

	for {
		n, err := reader.Read(readBuf)
		if n > 0 {
			buffer = append(buffer, readBuf[:n]...)
			totalSize += int64(n)
			for len(buffer) >= s.chunkSize {
				if flushErr := flush(s.chunkSize); flushErr != nil {
					s.RemoveChunks(items)
					return nil, 0, flushErr
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			s.RemoveChunks(items)
			return nil, 0, fmt.Errorf("%w: read upload stream: %w", ErrStorageIO, err)
		}
	}

	if len(buffer) > 0 {
		if err := flush(len(buffer)); err != nil {
			s.RemoveChunks(items)
			return nil, 0, err
		}
	}

	return items, totalSize, nil
}

func (s *Store) writeChunk(data []byte) (models.ChunkRef, error) {
	dir, err := s.sharder.ShardDir()
	if err != nil {
		return models.ChunkRef{}, err
	}

	path := filepath.Join(dir, uuid.NewString())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return models.ChunkRef{}, fmt.Errorf("%w: create chunk file: %w", ErrStorageIO, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return models.ChunkRef{}, fmt.Errorf("%w: write chunk file: %w", ErrStorageIO, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return models.ChunkRef{}, fmt.Errorf("%w: close chunk file: %w", ErrStorageIO, err)
	}

	return models.ChunkRef{Path: path, Size: int64(len(data))}, nil
}

// RemoveChunks deletes the given chunk files, used to roll back a failed
// upload. Removal failures are logged, not returned; there is nothing the
// caller could do about them.
func (s *Store) RemoveChunks(items []models.ChunkRef) {
	for _, item := range items {
		if err := os.Remove(item.Path); err != nil && !os.IsNotExist(err) {
			log.Error().Err(err).Str("chunk", item.Path).Msg("Failed to remove chunk during rollback")
		}
	}
}
