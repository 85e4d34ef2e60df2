package master

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/tigerroll/chicago-taxi-etl/internal/table"
	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// Store persists master tables as CSV objects and keeps one previous version of each.
type Store struct {
	storage storageAdapter.StorageExecutor
	bucket  string
	layout  coreConfig.LayoutConfig
}

// NewStore creates a Store over the given blob store.
func NewStore(s storageAdapter.StorageExecutor, layout *coreConfig.LayoutConfig) *Store {
	return &Store{storage: s, bucket: layout.Bucket, layout: *layout}
}

// Key returns the object holding the current version of the named table.
func (s *Store) Key(name string) string {
	prefix := s.layout.CompanyMasterPrefix
	if name == PaymentType {
		prefix = s.layout.PaymentTypeMasterPrefix
	}
	return fmt.Sprintf("%s%s_master.csv", prefix, name)
}

// BackupKey returns the single previous-version slot of the named table.
func (s *Store) BackupKey(name string) string {
	return fmt.Sprintf("%s%s_master_previous_version.csv", s.layout.MasterBackupPrefix, name)
}

// Load reads the named table. A missing object yields an empty table.
func (s *Store) Load(ctx context.Context, name string) (*Table, error) {
	key := s.Key(name)
	body, err := storageAdapter.ReadAll(ctx, s.storage, s.bucket, key)
	if errors.Is(err, storageAdapter.ErrObjectNotFound) {
		logger.Warnf("Master table '%s' not found at '%s'; starting from an empty table.", name, key)
		return NewTable(name), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read master table '%s': %w", key, err)
	}

	tb, err := table.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse master table '%s': %w", key, err)
	}
	m, err := FromTable(name, tb)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Loaded master table '%s' with %d rows (max id %d).", name, m.Len(), m.MaxID())
	return m, nil
}

// Save copies the current object into the previous-version slot, then overwrites it.
// The copy is skipped when no current object exists.
func (s *Store) Save(ctx context.Context, m *Table) error {
	key := s.Key(m.Name)
	backup := s.BackupKey(m.Name)

	err := s.storage.Copy(ctx, s.bucket, key, backup)
	switch {
	case errors.Is(err, storageAdapter.ErrObjectNotFound):
		logger.Infof("No current '%s' to back up; writing the first version.", key)
	case err != nil:
		return fmt.Errorf("failed to back up master table '%s' to '%s': %w", key, backup, err)
	}

	tb, err := m.ToTable()
	if err != nil {
		return fmt.Errorf("failed to build master table '%s': %w", m.Name, err)
	}
	var buf bytes.Buffer
	if err := tb.WriteCSV(&buf); err != nil {
		return fmt.Errorf("failed to encode master table '%s': %w", m.Name, err)
	}
	if err := s.storage.Upload(ctx, s.bucket, key, &buf, "text/csv"); err != nil {
		return fmt.Errorf("failed to write master table '%s': %w", key, err)
	}
	logger.Infof("Master table '%s' saved with %d rows.", key, m.Len())
	return nil
}
