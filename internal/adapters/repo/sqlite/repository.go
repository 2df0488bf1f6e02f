package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	StorePathKey      = "store.path"
	recordsDirMode    = 0o700
	recordsConfigDir  = ".defifolio"
	recordsConfigFile = "records.db"
)

type recordModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	RecordID  string    `gorm:"uniqueIndex;not null"`
	Timestamp time.Time `gorm:"not null"`
}

func (recordModel) TableName() string {
	return "records"
}

// Repository keeps records in a SQLite table ordered by insertion sequence.
type Repository struct {
	db   *gorm.DB
	path string
}

var _ ports.RecordRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	dbPath := cfg.GetString(StorePathKey)
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, recordsConfigDir, recordsConfigFile)
	}

	return Open(dbPath)
}

func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, recordsDirMode); err != nil {
			return nil, fmt.Errorf("create records directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open records database: %w", err)
	}

	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate records database: %w", err), closeDB(db))
	}

	return &Repository{db: db, path: dbPath}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Insert(ctx context.Context, record domain.Record) error {
	if record.ID == "" {
		return errors.New("record id is required")
	}

	model := recordModel{RecordID: string(record.ID), Timestamp: record.Timestamp.UTC()}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("record %s already exists", record.ID)
		}
		return fmt.Errorf("insert record row: %w", err)
	}

	return nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Record, error) {
	var models []recordModel
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	records := make([]domain.Record, 0, len(models))
	for _, model := range models {
		records = append(records, domain.Record{
			ID:        domain.RecordID(model.RecordID),
			Timestamp: model.Timestamp.UTC(),
		})
	}

	return records, nil
}

func (r *Repository) Delete(ctx context.Context, id domain.RecordID) error {
	result := r.db.WithContext(ctx).Where("record_id = ?", string(id)).Delete(&recordModel{})
	if result.Error != nil {
		return fmt.Errorf("delete record row: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (r *Repository) Close() error {
	return closeDB(r.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
