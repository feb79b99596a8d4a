package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/apply"

	"gorm.io/gorm"
)

// Store bundles all FMS persistence operations on one gorm handle.
// Methods are grouped by concern across the files of this package.
type Store struct {
	db *gorm.DB
}

// New creates a store bound to the given database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn inside a database transaction with a store bound to it.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// InTx satisfies the apply engine's transactional store contract. Each
// change's mutation set runs inside exactly one such transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx apply.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// GORM's mysql driver translates error 1062 when it can; raw driver errors
// are matched by message as a fallback.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}
