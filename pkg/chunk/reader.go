package chunk

import (
	"fmt"
	"io"
	"os"

	"github.com/thorli9527/file-cloud/pkg/models"
)

// Reader returns a stream that concatenates the chunk files in list order.
// A missing chunk file surfaces as ErrChunkMissing; any other failure,
// including a chunk file whose length disagrees with its recorded size, as
// ErrStorageIO. The caller must Close the stream.
func (s *Store) Reader(items []models.ChunkRef) io.ReadCloser {
	return &chunkReader{items: items}
}

// ReadFile copies the reassembled file into w and returns the number of
// bytes written, which must equal the owning record's size.
func (s *Store) ReadFile(items []models.ChunkRef, w io.Writer) (int64, error) {
	r := s.Reader(items)
	defer func() { _ = r.Close() }()

	n, err := io.Copy(w, r)
	if err != nil {
		return n, err
	}
	return n, nil
}

type chunkReader struct {
	items       []models.ChunkRef
	next        int
	current     *os.File
	currentRef  models.ChunkRef
	currentRead int64
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for {
		if r.current == nil {
			if r.next >= len(r.items) {
				return 0, io.EOF
			}
			item := r.items[r.next]
			f, err := os.Open(item.Path)
			if os.IsNotExist(err) {
				return 0, fmt.Errorf("%w: %s", ErrChunkMissing, item.Path)
			}
			if err != nil {
				return 0, fmt.Errorf("%w: open chunk %s: %w", ErrStorageIO, item.Path, err)
			}
			r.current = f
			r.currentRef = item
			r.currentRead = 0
			r.next++
		}

		n, err := r.current.Read(p)
		r.currentRead += int64(n)
		if err == io.EOF {
			closeErr := r.current.Close()
			r.current = nil
			if closeErr != nil {
				return n, fmt.Errorf("%w: close chunk: %w", ErrStorageIO, closeErr)
			}
			if r.currentRead != r.currentRef.Size {
				return n, fmt.Errorf("%w: chunk %s holds %d bytes, recorded %d",
					ErrStorageIO, r.currentRef.Path, r.currentRead, r.currentRef.Size)
			}
			if n > 0 {
				return n, nil
			}
			continue
		}
		if err != nil {
			return n, fmt.Errorf("%w: read chunk: %w", ErrStorageIO, err)
		}
		return n, nil
	}
}

func (r *chunkReader) Close() error {
	if r.current != nil {
		err := r.current.Close()
		r.current = nil
		return err
	}
	return nil
}
