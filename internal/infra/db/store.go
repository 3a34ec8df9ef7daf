// Package db persists completed evidence records in postgres through gorm.
package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to postgres. An empty DSN returns a no-db store so the
// service can run without durable evidence storage in development.
func NewStore(dsn string, autoMigrate bool) (*Store, error) {
	if dsn == "" {
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if autoMigrate {
		if err := gdb.AutoMigrate(&EvidenceModel{}); err != nil {
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}
	return &Store{DB: gdb}, nil
}

// Enabled reports whether a database connection is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.DB != nil
}
