// Package db opens the embedded store and manages its schema generations.
package db

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the sqlite database at path and brings the schema up to
// date. WAL keeps readers unblocked by writers; the busy timeout is the
// store-level wait that composes with the engine's own retry layer; foreign
// keys make child cleanup cascade.
func Open(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%v?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening database %v: %w", path, err)
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	slog.Info("database ready", "path", path)
	return gdb, nil
}
