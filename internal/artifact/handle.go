package artifact

import (
	"encoding/hex"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Digest is the BLAKE3 hash of a document's source content.
type Digest [32]byte

// DigestOf hashes content.
func DigestOf(content string) Digest {
	return Digest(blake3.Sum256([]byte(content)))
}

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters of the digest.
func (d Digest) Short() string {
	return d.String()[:12]
}

// Handle is the artifact exposed to viewers: a binary reference plus an
// echo of the source it was compiled from.
type Handle struct {
	ID        uuid.UUID
	Seq       uint64
	Source    string
	Digest    Digest
	CreatedAt time.Time

	blob Blob

	releaseOnce sync.Once
	releaseErr  error
	releases    atomic.Int32
}

// New stores data in store and returns a Handle owning the resulting blob.
func New(store Store, seq uint64, source string, data []byte) (*Handle, error) {
	id := uuid.New()
	digest := DigestOf(source)

	blob, err := store.Put(id, digest, data)
	if err != nil {
		return nil, err
	}

	return &Handle{
		ID:        id,
		Seq:       seq,
		Source:    source,
		Digest:    digest,
		CreatedAt: time.Now(),
		blob:      blob,
	}, nil
}

// Open returns a reader over the artifact binary.
func (h *Handle) Open() (io.ReadCloser, error) {
	if h.Released() {
		return nil, ErrReleased
	}
	return h.blob.Open()
}

// Size returns the artifact size in bytes.
func (h *Handle) Size() int64 {
	return h.blob.Size()
}

// Release frees the underlying blob. Only the first call has any effect;
// later calls return the first call's result.
func (h *Handle) Release() error {
	h.releaseOnce.Do(func() {
		h.releases.Add(1)
		h.releaseErr = h.blob.Release()
	})
	return h.releaseErr
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	return h.releases.Load() > 0
}

// ReleaseCount returns how many times the underlying blob was released.
// It is always 0 or 1.
func (h *Handle) ReleaseCount() int {
	return int(h.releases.Load())
}
