package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var _ Store = (*Gorm)(nil)

// kvEntry is the GORM model for one stored collection.
type kvEntry struct {
	Name      string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:longtext"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv" }

// Gorm is a Store on any GORM dialect; the mysql backend uses it.
type Gorm struct {
	db *gorm.DB
}

// NewGorm migrates the kv table on db and wraps it.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("store: migrate kv: %w", err)
	}
	return &Gorm{db: db}, nil
}

// OpenMySQL connects to a MySQL-compatible server and returns a Gorm store.
func OpenMySQL(dsn string) (*Gorm, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect mysql: %w", err)
	}
	return NewGorm(db)
}

func (g *Gorm) Get(ctx context.Context, key string) (string, bool, error) {
	var e kvEntry
	err := g.db.WithContext(ctx).Where("name = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (g *Gorm) Set(ctx context.Context, key, value string) error {
	e := kvEntry{Name: key, Value: value, UpdatedAt: time.Now().UTC()}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

// Close releases the underlying connection pool.
func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
