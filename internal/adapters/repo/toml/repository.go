package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	StorePathKey      = "store.path"
	recordsFileMode   = 0o600
	recordsDirMode    = 0o700
	recordsConfigDir  = ".defifolio"
	recordsConfigFile = "records.toml"
	tempFilePattern   = ".records-*.toml.tmp"
)

// Repository keeps records in insertion order in a single TOML file.
type Repository struct {
	recordsPath string
	mu          *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RecordRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	recordsPath := cfg.GetString(StorePathKey)
	if recordsPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		recordsPath = filepath.Join(homeDir, recordsConfigDir, recordsConfigFile)
	}

	recordsPath, err := normalizeRecordsPath(recordsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{recordsPath: recordsPath, mu: lockForPath(recordsPath)}, nil
}

func (r *Repository) Path() string {
	return r.recordsPath
}

func (r *Repository) Insert(ctx context.Context, record domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		return errors.New("record id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	for _, entry := range file.Records {
		if entry.ID == string(record.ID) {
			return fmt.Errorf("record %s already exists", record.ID)
		}
	}
	file.Records = append(file.Records, toSchema(record))

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) List(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(file.Records))
	for _, entry := range file.Records {
		record, err := fromSchema(entry)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func (r *Repository) Delete(ctx context.Context, id domain.RecordID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	kept := file.Records[:0]
	found := false
	for _, entry := range file.Records {
		if entry.ID == string(id) {
			found = true
			continue
		}
		kept = append(kept, entry)
	}
	if !found {
		return domain.ErrRecordNotFound
	}
	file.Records = kept

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.recordsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read records file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode records file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeRecordsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve records path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.recordsPath), recordsDirMode); err != nil {
		return fmt.Errorf("create records directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode records file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.recordsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp records file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp records file: %w", err)
	}
	if err := tempFile.Chmod(recordsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp records file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp records file: %w", err)
	}

	if err := os.Rename(tempName, r.recordsPath); err != nil {
		return fmt.Errorf("replace records file: %w", err)
	}
	cleanup = false

	return nil
}

func toSchema(record domain.Record) recordSchema {
	return recordSchema{
		ID:        string(record.ID),
		Timestamp: record.Timestamp.Format(time.RFC3339Nano),
	}
}

func fromSchema(entry recordSchema) (domain.Record, error) {
	timestamp, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if err != nil {
		return domain.Record{}, fmt.Errorf("decode record %s timestamp: %w", entry.ID, err)
	}

	return domain.Record{ID: domain.RecordID(entry.ID), Timestamp: timestamp}, nil
}
