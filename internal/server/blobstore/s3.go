package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/config"
	"github.com/google/uuid"
)

type uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps payloads in one S3 bucket. Uploads go through the multipart
// upload manager, so bodies of unknown length are streamed part by part.
type S3Store struct {
	bucket   string
	objects  objectAPI
	uploader uploader
}

// NewS3Store builds a client with static credentials. A non-empty
// S3BaseEndpoint points it at an S3-compatible server such as MinIO.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize(cfg.UploadPartSize)
	})

	return newS3Store(cfg.S3Bucket, client, up), nil
}

func newS3Store(bucket string, objects objectAPI, up uploader) *S3Store {
	return &S3Store{bucket: bucket, objects: objects, uploader: up}
}

func (s *S3Store) Upload(ctx context.Context, ns Namespace, id uuid.UUID, r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(ns, id)),
		Body:   cr,
	})
	if err != nil {
		return cr.n, fmt.Errorf("s3 upload %s: %w", Key(ns, id), err)
	}
	return cr.n, nil
}

func (s *S3Store) Download(ctx context.Context, ns Namespace, id uuid.UUID) (io.ReadCloser, error) {
	out, err := s.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(ns, id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", Key(ns, id), err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, ns Namespace, id uuid.UUID) error {
	_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(ns, id)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3 delete %s: %w", Key(ns, id), err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ Store = (*S3Store)(nil)
