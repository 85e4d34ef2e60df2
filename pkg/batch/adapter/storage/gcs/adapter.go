// Package gcs provides a Google Cloud Storage implementation of the blob store.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this GCS storage provider.
	ProviderType = "gcs"
)

type gcsAdapter struct {
	client *gcstorage.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter opens a GCS client. Without credentials_file the client uses
// Application Default Credentials. An endpoint override targets an emulator.
func NewGCSAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcstorage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	logger.Debugf("GCS client created for connection '%s' (project '%s').", name, cfg.ProjectID)
	return &gcsAdapter{client: client, cfg: cfg, name: name}, nil
}

// Close releases the underlying client.
func (a *gcsAdapter) Close() error {
	return a.client.Close()
}

// Type returns "gcs".
func (a *gcsAdapter) Type() string {
	return ProviderType
}

// Name returns the name of this connection.
func (a *gcsAdapter) Name() string {
	return a.name
}

func (a *gcsAdapter) bucket(name string) *gcstorage.BucketHandle {
	if name == "" {
		name = a.cfg.BucketName
	}
	return a.client.Bucket(name)
}

// Upload streams data into the object. The object only becomes visible when the writer closes.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload gs://%s/%s: %w", bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// Download opens a reader on the object.
func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object gs://%s/%s: %w", bucket, objectName, storageAdapter.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to download gs://%s/%s: %w", bucket, objectName, err)
	}
	return r, nil
}

// Copy performs a server side copy within the bucket.
func (a *gcsAdapter) Copy(ctx context.Context, bucket, sourceObject, destObject string) error {
	b := a.bucket(bucket)
	if _, err := b.Object(destObject).CopierFrom(b.Object(sourceObject)).Run(ctx); err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return fmt.Errorf("failed to copy '%s' to '%s': %w", sourceObject, destObject, storageAdapter.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to copy '%s' to '%s': %w", sourceObject, destObject, err)
	}
	return nil
}

// ListObjects iterates the objects under prefix. GCS returns names in lexical order.
func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	it := a.bucket(bucket).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs://%s/%s: %w", bucket, prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

// DeleteObject deletes the object. A missing object is logged and ignored.
func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	if err := a.bucket(bucket).Object(objectName).Delete(ctx); err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			logger.Warnf("Attempted to delete non-existent object gs://%s/%s.", bucket, objectName)
			return nil
		}
		return fmt.Errorf("failed to delete gs://%s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// NewGCSProvider creates the provider for "gcs" storage configurations.
func NewGCSProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewBaseProvider(cfg, ProviderType, NewGCSAdapter)
}
