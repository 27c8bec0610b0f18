package blobstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bookshelf/internal/server/config"
)

// NewFromConfig creates the Store selected by cfg.BlobBackend.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		s, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BlobBackendMinIO:
		s, err := NewMinIOStore(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BlobBackendDisk:
		s, err := NewDiskStore(cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BlobBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.BlobBackend)
	}
}
