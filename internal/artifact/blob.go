package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Blob is a releasable reference to compiled binary output.
type Blob interface {
	// Open returns a reader over the binary. It fails with ErrReleased
	// once Release has been called.
	Open() (io.ReadCloser, error)
	// Size returns the binary length in bytes.
	Size() int64
	// Release frees the underlying storage.
	Release() error
}

// Store creates Blobs.
type Store interface {
	Put(id uuid.UUID, digest Digest, data []byte) (Blob, error)
}

// MemoryStore keeps blobs in memory.
type MemoryStore struct{}

// NewMemoryStore creates an in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Put implements Store.
func (s *MemoryStore) Put(_ uuid.UUID, _ Digest, data []byte) (Blob, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &memBlob{data: buf, size: int64(len(buf))}, nil
}

type memBlob struct {
	mu       sync.RWMutex
	data     []byte
	size     int64
	released bool
}

func (b *memBlob) Open() (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released {
		return nil, ErrReleased
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (b *memBlob) Size() int64 {
	return b.size
}

func (b *memBlob) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return ErrReleased
	}
	b.released = true
	b.data = nil
	return nil
}

// DiskStore writes blobs into a spill directory, one file per blob.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk-backed store rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spill directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the spill directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Put implements Store. The file is written to a temp name and renamed
// into place so a reader never sees a partial artifact.
func (s *DiskStore) Put(id uuid.UUID, digest Digest, data []byte) (Blob, error) {
	final := filepath.Join(s.dir, fmt.Sprintf("%s-%s.bin", digest.Short(), id))

	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("rename artifact: %w", err)
	}

	return &fileBlob{path: final, size: int64(len(data))}, nil
}

type fileBlob struct {
	mu       sync.RWMutex
	path     string
	size     int64
	released bool
}

func (b *fileBlob) Open() (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released {
		return nil, ErrReleased
	}
	return os.Open(b.path)
}

func (b *fileBlob) Size() int64 {
	return b.size
}

// Path returns the file backing the blob.
func (b *fileBlob) Path() string {
	return b.path
}

func (b *fileBlob) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return ErrReleased
	}
	b.released = true
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact %s: %w", b.path, err)
	}
	return nil
}
