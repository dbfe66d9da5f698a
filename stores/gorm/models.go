//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	oa "github.com/gr-backend/authcore"
)

// UserModel is the GORM model for directory users
type UserModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Email        string    `gorm:"size:320;not null;uniqueIndex"`
	Name         string    `gorm:"size:255"`
	Login        string    `gorm:"size:255"`
	AvatarURL    string    `gorm:"size:1024"`
	Type         string    `gorm:"size:32"`
	Source       string    `gorm:"size:32"`
	GithubID     *int64    `gorm:"uniqueIndex"`
	PasswordHash string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToRecord() *oa.DirectoryRecord {
	rec := &oa.DirectoryRecord{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		Login:        m.Login,
		AvatarURL:    m.AvatarURL,
		Type:         m.Type,
		Source:       oa.SourceType(m.Source),
		GithubID:     m.GithubID,
		PasswordHash: m.PasswordHash,
	}
	if !m.CreatedAt.IsZero() {
		rec.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return rec
}

func RecordToModel(r oa.DirectoryRecord) *UserModel {
	return &UserModel{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Login:        r.Login,
		AvatarURL:    r.AvatarURL,
		Type:         r.Type,
		Source:       string(r.Source),
		GithubID:     r.GithubID,
		PasswordHash: r.PasswordHash,
	}
}
