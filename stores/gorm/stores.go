//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	oa "github.com/gr-backend/authcore"
)

// AutoMigrate runs database migrations for the directory table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// DirectoryStore implements oa.DirectoryStore using GORM
type DirectoryStore struct {
	db *gorm.DB
}

func NewDirectoryStore(db *gorm.DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

func (s *DirectoryStore) Lookup(ctx context.Context, field, value string) (*oa.DirectoryRecord, error) {
	var arg any
	switch field {
	case oa.FieldEmail:
		arg = value
	case oa.FieldGithubID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, oa.ErrRecordNotFound
		}
		arg = id
	default:
		return nil, oa.ErrRecordNotFound
	}

	var model UserModel
	err := s.db.WithContext(ctx).Where(field+" = ?", arg).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oa.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToRecord(), nil
}

func (s *DirectoryStore) Insert(ctx context.Context, rec oa.DirectoryRecord) (*oa.DirectoryRecord, error) {
	model := RecordToModel(rec)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, &oa.DirectoryWriteError{
			Body:     err.Error(),
			Conflict: isUniqueViolation(err),
			Err:      err,
		}
	}
	return model.ToRecord(), nil
}

// isUniqueViolation recognises duplicate keys from GORM's translated errors,
// Postgres (pgconn) and SQLite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
