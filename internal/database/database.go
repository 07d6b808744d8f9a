// Package database manages the local SQLite store backing the mapping
// registry. The registry is a single-user, single-device store, so a file
// database with GORM auto-migration is all the schema management it needs.
package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"brokersync/internal/logger"
	"brokersync/internal/models"
)

// Manager owns the registry database connection.
type Manager struct {
	db *gorm.DB
}

// NewManager opens (or creates) the SQLite registry database at path.
func NewManager(path string) (*Manager, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}
	return &Manager{db: db}, nil
}

// Migrate brings the registry schema up to date.
func (m *Manager) Migrate() error {
	logger.Get().Info("Migrating registry database...")
	if err := m.db.AutoMigrate(&models.SymbolMapping{}); err != nil {
		return fmt.Errorf("registry migration failed: %w", err)
	}
	return nil
}

// DB returns the underlying GORM database instance.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}
	return sqlDB.Close()
}
