// Package s3 provides an S3 implementation of the blob store backed by minio-go.
// It works against AWS S3 and any S3 compatible server such as MinIO.
package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this S3 storage provider.
	ProviderType = "s3"

	defaultEndpoint = "s3.amazonaws.com"
)

type s3Adapter struct {
	client *minio.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*s3Adapter)(nil)

// NewS3Adapter creates a minio client for the configured endpoint.
func NewS3Adapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 storage adapter '%s': failed to create client for '%s': %w", name, endpoint, err)
	}
	logger.Debugf("S3 client created for connection '%s' (endpoint '%s').", name, endpoint)
	return &s3Adapter{client: client, cfg: cfg, name: name}, nil
}

// Close does nothing; the minio client holds no long lived resources.
func (a *s3Adapter) Close() error {
	return nil
}

// Type returns "s3".
func (a *s3Adapter) Type() string {
	return ProviderType
}

// Name returns the name of this connection.
func (a *s3Adapter) Name() string {
	return a.name
}

func (a *s3Adapter) bucketName(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

// Upload streams data with an unknown size, letting minio pick multipart uploads.
func (a *s3Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	bucket = a.bucketName(bucket)
	_, err := a.client.PutObject(ctx, bucket, objectName, data, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// Download opens the object. GetObject is lazy, so the object is stat'ed first to surface a missing key.
func (a *s3Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	bucket = a.bucketName(bucket)
	obj, err := a.client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, a.wrap(err, "failed to download s3://%s/%s", bucket, objectName)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, a.wrap(err, "failed to download s3://%s/%s", bucket, objectName)
	}
	return obj, nil
}

// Copy performs a server side copy within the bucket.
func (a *s3Adapter) Copy(ctx context.Context, bucket, sourceObject, destObject string) error {
	bucket = a.bucketName(bucket)
	_, err := a.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: destObject},
		minio.CopySrcOptions{Bucket: bucket, Object: sourceObject},
	)
	if err != nil {
		return a.wrap(err, "failed to copy '%s' to '%s'", sourceObject, destObject)
	}
	return nil
}

// ListObjects lists recursively under prefix. S3 returns keys in lexical order.
func (a *s3Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	bucket = a.bucketName(bucket)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for info := range a.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, info.Err)
		}
		if err := fn(info.Key); err != nil {
			return err
		}
	}
	return nil
}

// DeleteObject removes the object. S3 treats a missing key as a successful delete.
func (a *s3Adapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	bucket = a.bucketName(bucket)
	if err := a.client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			logger.Warnf("Attempted to delete non-existent object s3://%s/%s.", bucket, objectName)
			return nil
		}
		return fmt.Errorf("failed to delete s3://%s/%s: %w", bucket, objectName, err)
	}
	return nil
}

func (a *s3Adapter) wrap(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", msg, storageAdapter.ErrObjectNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// NewS3Provider creates the provider for "s3" storage configurations.
func NewS3Provider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewBaseProvider(cfg, ProviderType, NewS3Adapter)
}
