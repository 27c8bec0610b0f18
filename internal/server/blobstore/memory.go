package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store, useful for tests and
// local runs. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(ctx context.Context, ns Namespace, id uuid.UUID, r io.Reader) (int64, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		return n, fmt.Errorf("failed to read content: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[Key(ns, id)] = buf.Bytes()
	return n, nil
}

func (m *MemoryStore) Download(ctx context.Context, ns Namespace, id uuid.UUID) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[Key(ns, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Delete(ctx context.Context, ns Namespace, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, Key(ns, id))
	return nil
}

// Has reports whether a payload is stored.
func (m *MemoryStore) Has(ns Namespace, id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blobs[Key(ns, id)]
	return ok
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var _ Store = (*MemoryStore)(nil)
