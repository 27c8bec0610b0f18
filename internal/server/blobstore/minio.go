package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioPutter interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOStore keeps payloads in a MinIO bucket using the native client.
type MinIOStore struct {
	client   *minio.Client
	putter   minioPutter
	bucket   string
	partSize uint64
}

func NewMinIOStore(cfg *config.Config) (*MinIOStore, error) {
	endpoint, secure, err := minioEndpoint(cfg.S3BaseEndpoint, cfg.S3UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: secure,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &MinIOStore{
		client:   client,
		putter:   client,
		bucket:   cfg.S3Bucket,
		partSize: uint64(partSize(cfg.UploadPartSize)),
	}, nil
}

// minioEndpoint turns a base endpoint ("http://host:9000/" or "host:9000")
// into the host:port form minio.New expects. An explicit scheme wins over
// the useSSL setting.
func minioEndpoint(base string, useSSL bool) (string, bool, error) {
	if !strings.Contains(base, "://") {
		host := strings.TrimSuffix(base, "/")
		if host == "" {
			return "", false, fmt.Errorf("minio endpoint is empty")
		}
		return host, useSSL, nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", false, fmt.Errorf("parse minio endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("minio endpoint %q has no host", base)
	}
	return u.Host, u.Scheme == "https", nil
}

func (s *MinIOStore) Upload(ctx context.Context, ns Namespace, id uuid.UUID, r io.Reader) (int64, error) {
	// Size -1 streams a multipart upload of unknown length. Without an
	// explicit PartSize the client buffers parts of several hundred MiB.
	info, err := s.putter.PutObject(ctx, s.bucket, Key(ns, id), r, -1, minio.PutObjectOptions{
		PartSize: s.partSize,
	})
	if err != nil {
		return 0, fmt.Errorf("minio put %s: %w", Key(ns, id), err)
	}
	return info.Size, nil
}

func (s *MinIOStore) Download(ctx context.Context, ns Namespace, id uuid.UUID) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, Key(ns, id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s: %w", Key(ns, id), err)
	}
	// GetObject is lazy; Stat surfaces a missing key before streaming starts.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("minio stat %s: %w", Key(ns, id), err)
	}
	return obj, nil
}

func (s *MinIOStore) Delete(ctx context.Context, ns Namespace, id uuid.UUID) error {
	err := s.client.RemoveObject(ctx, s.bucket, Key(ns, id), minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("minio remove %s: %w", Key(ns, id), err)
	}
	return nil
}

var _ Store = (*MinIOStore)(nil)
