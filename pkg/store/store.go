// Package store persists biddings, lots and enrichment audit events.
package store

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when inserting a lot whose key already exists
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")
)

// Store wraps a GORM handle. It is safe for concurrent use; to run inside a
// job's own session use WithDB.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// New creates a Store
func New(db *gorm.DB, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{db: db, logger: logger}
}

// WithDB returns a Store bound to another session of the same database
func (s *Store) WithDB(db *gorm.DB) *Store {
	return &Store{db: db, logger: s.logger}
}

// DB exposes the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
