package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

// NewSQLiteService opens a single-connection SQLite store for local runs.
// path may be ":memory:" or a file DSN.
func NewSQLiteService(path string, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")
	db, err := OpenSQLite(path, gormConfig())
	if err != nil {
		return nil, err
	}
	return &Service{db: db, log: serviceLog, driver: "sqlite"}, nil
}

// OpenSQLite opens path with one pooled connection so ":memory:" databases are
// shared across the pool.
func OpenSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return db, nil
}

// Open picks the backing store from driver ("postgres" or "sqlite").
func Open(driver, sqlitePath string, logg *logger.Logger) (*Service, error) {
	switch driver {
	case "", "postgres":
		return NewPostgresService(logg)
	case "sqlite":
		return NewSQLiteService(sqlitePath, logg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}
