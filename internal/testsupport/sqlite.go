// Package testsupport opens throwaway databases for repository and integration tests.
package testsupport

import (
	"fmt"

	auditDatamodel "github.com/Merchously/iRun/internal/core/datamodel/audit"
	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
	sessionDatamodel "github.com/Merchously/iRun/internal/core/datamodel/session"
	userDatamodel "github.com/Merchously/iRun/internal/core/datamodel/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every persisted row type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&userDatamodel.User{},
		&userDatamodel.RoleAssignment{},
		&sessionDatamodel.Session{},
		&eventDatamodel.Event{},
		&eventDatamodel.Distance{},
		&eventDatamodel.Rsvp{},
		&auditDatamodel.AuditLogEntry{},
	}
}

// OpenSQLite returns an in-memory database with foreign keys enforced and the full schema migrated.
// A single connection is used so every statement sees the same in-memory database.
func OpenSQLite() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}
