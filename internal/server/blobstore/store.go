// Package blobstore stores the binary payloads of books (content and cover
// images) keyed by the book's UUID, separately namespaced per payload kind.
package blobstore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Namespace separates the kinds of payload stored for one book.
type Namespace string

const (
	Books  Namespace = "books"
	Covers Namespace = "covers"
)

// Key is the object key of a payload.
func Key(ns Namespace, id uuid.UUID) string {
	return string(ns) + "/" + id.String()
}

type Store interface {
	// Upload streams r into the store and returns the number of bytes read.
	Upload(ctx context.Context, ns Namespace, id uuid.UUID, r io.Reader) (int64, error)
	// Download opens the payload. Returns common.ErrorNotFound when absent.
	Download(ctx context.Context, ns Namespace, id uuid.UUID) (io.ReadCloser, error)
	// Delete removes the payload. Deleting an absent payload succeeds.
	Delete(ctx context.Context, ns Namespace, id uuid.UUID) error
}

// MinPartSize is the smallest multipart part S3 and MinIO accept.
const MinPartSize int64 = 5 << 20

// partSize clamps a configured part size to MinPartSize. One part is the
// most a streaming upload buffers at a time.
func partSize(n int64) int64 {
	if n < MinPartSize {
		return MinPartSize
	}
	return n
}

// countingReader counts the bytes the backend actually consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
