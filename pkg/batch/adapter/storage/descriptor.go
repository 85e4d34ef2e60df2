package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// BatchType identifies the kind of records a raw file holds.
type BatchType string

const (
	// BatchTypeTaxi marks a raw file of taxi trip records.
	BatchTypeTaxi BatchType = "taxi"
	// BatchTypeWeather marks a raw file holding one hourly weather response.
	BatchTypeWeather BatchType = "weather"
)

// String implements fmt.Stringer.
func (t BatchType) String() string {
	return string(t)
}

// rawExtension is the only extension recognized as a raw batch. The match is case-sensitive.
const rawExtension = ".json"

// BatchDescriptor is one recognized raw file waiting at a pending prefix.
type BatchDescriptor struct {
	Type BatchType
	// Key is the full object name, including the pending prefix.
	Key string
	// Prefix is the pending prefix the key was listed under.
	Prefix string
}

// FileName returns the last path segment of the key.
func (d BatchDescriptor) FileName() string {
	return path.Base(d.Key)
}

// String implements fmt.Stringer.
func (d BatchDescriptor) String() string {
	return fmt.Sprintf("%s:%s", d.Type, d.Key)
}

// PendingSource pairs a batch type with the prefix its pending files are listed from.
type PendingSource struct {
	Type   BatchType
	Prefix string
}

// IsBatchKey reports whether a listed key is a raw batch file directly under prefix.
// Directory markers, keys with an empty basename, keys in nested folders and
// files without the ".json" extension are excluded.
func IsBatchKey(prefix, key string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	rest := strings.TrimPrefix(key, prefix)
	if strings.TrimSpace(rest) == "" || strings.HasSuffix(rest, "/") || strings.Contains(rest, "/") {
		return false
	}
	if strings.TrimSpace(strings.TrimSuffix(rest, rawExtension)) == "" {
		return false
	}
	return path.Ext(rest) == rawExtension
}

// ListBatches lists every source in order and returns the recognized descriptors in listing order.
func ListBatches(ctx context.Context, s StorageExecutor, bucket string, sources ...PendingSource) ([]BatchDescriptor, error) {
	var batches []BatchDescriptor
	for _, src := range sources {
		err := s.ListObjects(ctx, bucket, src.Prefix, func(objectName string) error {
			if !IsBatchKey(src.Prefix, objectName) {
				return nil
			}
			batches = append(batches, BatchDescriptor{Type: src.Type, Key: objectName, Prefix: src.Prefix})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s batches under '%s': %w", src.Type, src.Prefix, err)
		}
	}
	return batches, nil
}
