// Package database manages the portal's local sqlite store via GORM.
package database

import (
	"errors"
	"io"
	"log"
	"os"
	"path"
	"slices"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/satyogainstitute/portal/config"
	"github.com/satyogainstitute/portal/database/model"
)

var db *gorm.DB

func initModels() error {
	models := []any{
		&model.Setting{},
		&model.PaymentRecord{},
		&model.AuditEntry{},
		&model.FormSubmission{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

// InitDB opens (creating if needed) the sqlite database and migrates models.
func InitDB(dbPath string) error {
	dir := path.Dir(dbPath)
	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		return err
	}

	var gormLogger gormlogger.Interface
	if config.IsDebug() {
		gormLogger = gormlogger.Default
	} else {
		gormLogger = gormlogger.Discard
	}

	c := &gorm.Config{
		Logger: gormLogger,
	}
	db, err = gorm.Open(sqlite.Open(dbPath), c)
	if err != nil {
		return err
	}

	return initModels()
}

// InitTestDB opens an in-memory database for tests.
func InitTestDB() error {
	var err error
	db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return err
	}
	return initModels()
}

// GetDB returns the shared database handle.
func GetDB() *gorm.DB {
	return db
}

// IsNotFound reports whether err is gorm's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsSQLiteDB sniffs the file header to confirm a sqlite database,
// used before restoring an uploaded backup.
func IsSQLiteDB(file io.ReaderAt) (bool, error) {
	signature := []byte("SQLite format 3\x00")
	buf := make([]byte, len(signature))
	_, err := file.ReadAt(buf, 0)
	if err != nil {
		return false, err
	}
	return slices.Equal(buf, signature), nil
}

// Checkpoint flushes the WAL into the main database file.
func Checkpoint() error {
	err := db.Exec("PRAGMA wal_checkpoint;").Error
	if err != nil {
		return err
	}
	return nil
}
