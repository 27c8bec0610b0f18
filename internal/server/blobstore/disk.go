package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/filex"
	"github.com/google/uuid"
)

// DiskStore keeps payloads as files under root, one subdirectory per
// namespace.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}
	for _, ns := range []Namespace{Books, Covers} {
		if _, err := filex.EnsureDir(filepath.Join(abs, string(ns))); err != nil {
			return nil, err
		}
	}
	return &DiskStore{root: abs}, nil
}

func (d *DiskStore) path(ns Namespace, id uuid.UUID) string {
	return filepath.Join(d.root, filepath.FromSlash(Key(ns, id)))
}

func (d *DiskStore) Upload(ctx context.Context, ns Namespace, id uuid.UUID, r io.Reader) (int64, error) {
	n, err := filex.WriteAtomic(d.path(ns, id), &ctxReader{ctx: ctx, r: r})
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", Key(ns, id), err)
	}
	return n, nil
}

func (d *DiskStore) Download(ctx context.Context, ns Namespace, id uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(d.path(ns, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", Key(ns, id), err)
	}
	return f, nil
}

func (d *DiskStore) Delete(ctx context.Context, ns Namespace, id uuid.UUID) error {
	if err := filex.RemoveIfExists(d.path(ns, id)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", Key(ns, id), err)
	}
	return nil
}

var _ Store = (*DiskStore)(nil)
