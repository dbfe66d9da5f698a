//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"
	oa "github.com/gr-backend/authcore"
)

// UserEntity is the Datastore entity for directory users
type UserEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	ID           string         `datastore:"id"`
	Name         string         `datastore:"name,noindex"`
	Login        string         `datastore:"login"`
	AvatarURL    string         `datastore:"avatar_url,noindex"`
	Type         string         `datastore:"type"`
	Source       string         `datastore:"source"`
	GithubID     int64          `datastore:"github_id"`
	HasGithubID  bool           `datastore:"has_github_id"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
}

// ProviderKeyEntity points a provider user id at the email owning it.
// Key format: provider + ":" + id
type ProviderKeyEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Email     string         `datastore:"email"`
	CreatedAt time.Time      `datastore:"created_at"`
}

func (e *UserEntity) ToRecord() *oa.DirectoryRecord {
	rec := &oa.DirectoryRecord{
		ID:           e.ID,
		Name:         e.Name,
		Login:        e.Login,
		AvatarURL:    e.AvatarURL,
		Type:         e.Type,
		Source:       oa.SourceType(e.Source),
		PasswordHash: e.PasswordHash,
	}
	if e.Key != nil {
		rec.Email = e.Key.Name
	}
	if e.HasGithubID {
		id := e.GithubID
		rec.GithubID = &id
	}
	if !e.CreatedAt.IsZero() {
		rec.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return rec
}

func RecordToEntity(r oa.DirectoryRecord, key *datastore.Key) *UserEntity {
	e := &UserEntity{
		Key:          key,
		ID:           r.ID,
		Name:         r.Name,
		Login:        r.Login,
		AvatarURL:    r.AvatarURL,
		Type:         r.Type,
		Source:       string(r.Source),
		PasswordHash: r.PasswordHash,
	}
	if r.GithubID != nil {
		e.GithubID = *r.GithubID
		e.HasGithubID = true
	}
	return e
}
