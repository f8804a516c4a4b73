// Package db keeps the client session (tokens, cookies, profile) in a local
// SQLite file.
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// Db is the open session database, nil until InitDB succeeds.
	Db *gorm.DB
	// Path of the SQLite file. Set it before calling InitDB.
	Path = filepath.Join(os.Getenv("HOME"), ".esign", "esign.db")
)

// InitDB opens the database at Path, creating its directory and tables when
// needed.
func InitDB() error {
	if err := os.MkdirAll(filepath.Dir(Path), 0o750); err != nil {
		log.Error().Err(err).Str("path", Path).Msg("Failed to create database directory")
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	gdb, err := open(Path)
	if err != nil {
		return err
	}
	if err := Migrate(gdb); err != nil {
		closeQuietly(gdb)
		return err
	}
	Db = gdb

	log.Debug().Str("path", Path).Msg("Session database ready")
	return nil
}

// GetDB returns the global database handle.
func GetDB() *gorm.DB { return Db }

// open connects to the SQLite file. Concurrent requests read and write the
// same session rows, so the pool is limited to one connection and writers
// wait on the busy timeout instead of failing.
func open(path string) (*gorm.DB, error) {
	mode := logger.Silent
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		mode = logger.Warn
	}
	gdb, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{Logger: logger.Default.LogMode(mode)})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to open database")
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get raw database connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

// Migrate creates or updates the cookie, local storage and session tables.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return errors.New("database connection is not initialized")
	}
	if err := gdb.AutoMigrate(&Cookie{}, &LocalItem{}, &SessionRecord{}); err != nil {
		log.Error().Err(err).Msg("Failed to migrate session tables")
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func closeQuietly(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// CloseDB closes the global connection. It is safe to call when nothing is open.
func CloseDB() error {
	if Db == nil {
		return nil
	}
	sqlDB, err := Db.DB()
	if err != nil {
		return fmt.Errorf("failed to get raw database connection: %w", err)
	}
	Db = nil
	return sqlDB.Close()
}
