// Package fs stores the authcore directory as JSON files on local disk.
// It is meant for local development and tests, not for multiple processes
// sharing one directory.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	oa "github.com/gr-backend/authcore"
)

// providerPointer maps a provider user id to the owning email.
type providerPointer struct {
	Email string `json:"email"`
}

// FSDirectoryStore stores directory records as JSON files
type FSDirectoryStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSDirectoryStore(storagePath string) *FSDirectoryStore {
	return &FSDirectoryStore{StoragePath: storagePath}
}

func (s *FSDirectoryStore) getUserPath(email string) string {
	return filepath.Join(s.StoragePath, "users", url.PathEscape(email)+".json")
}

func (s *FSDirectoryStore) getProviderKeyPath(provider string, id int64) string {
	return filepath.Join(s.StoragePath, "keys", provider, strconv.FormatInt(id, 10)+".json")
}

func (s *FSDirectoryStore) Lookup(ctx context.Context, field, value string) (*oa.DirectoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case oa.FieldEmail:
		return s.readUser(value)
	case oa.FieldGithubID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, oa.ErrRecordNotFound
		}
		var ptr providerPointer
		if err := readJSON(s.getProviderKeyPath("github", id), &ptr); err != nil {
			return nil, err
		}
		return s.readUser(ptr.Email)
	default:
		return nil, oa.ErrRecordNotFound
	}
}

func (s *FSDirectoryStore) Insert(ctx context.Context, rec oa.DirectoryRecord) (*oa.DirectoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userPath := s.getUserPath(rec.Email)
	if exists(userPath) {
		return nil, conflict(fmt.Sprintf("email %s already exists", rec.Email))
	}
	var keyPath string
	if rec.GithubID != nil {
		keyPath = s.getProviderKeyPath("github", *rec.GithubID)
		if exists(keyPath) {
			return nil, conflict(fmt.Sprintf("github_id %d already exists", *rec.GithubID))
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	if err := writeJSON(userPath, rec); err != nil {
		return nil, &oa.DirectoryWriteError{Err: err}
	}
	if keyPath != "" {
		if err := writeJSON(keyPath, providerPointer{Email: rec.Email}); err != nil {
			os.Remove(userPath)
			return nil, &oa.DirectoryWriteError{Err: err}
		}
	}
	return &rec, nil
}

func (s *FSDirectoryStore) readUser(email string) (*oa.DirectoryRecord, error) {
	var rec oa.DirectoryRecord
	if err := readJSON(s.getUserPath(email), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func conflict(msg string) *oa.DirectoryWriteError {
	return &oa.DirectoryWriteError{Body: msg, Conflict: true}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return oa.ErrRecordNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
