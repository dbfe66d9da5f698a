package authcore

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
)

// Directory lookup fields
const (
	FieldEmail    = "email"
	FieldGithubID = "github_id"
)

// DefaultUserType is the display type recorded for newly provisioned users.
const DefaultUserType = "user"

// DirectoryRecord is the persisted shape of a user in the external directory.
// Optional fields are omitted from the wire when empty.
type DirectoryRecord struct {
	ID           string     `json:"id,omitempty"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	Login        string     `json:"login,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	Type         string     `json:"type,omitempty"`
	Source       SourceType `json:"source,omitempty"`
	GithubID     *int64     `json:"github_id,omitempty"`
	PasswordHash string     `json:"password_hash,omitempty"`

	// CreatedAt is kept as the directory's own timestamp text.
	CreatedAt string `json:"created_at,omitempty"`
}

// RecordFromIdentity maps a canonical identity onto the directory shape.
func RecordFromIdentity(u UserIdentity) DirectoryRecord {
	rec := DirectoryRecord{
		Email:        u.Email,
		Name:         u.DisplayName,
		Login:        u.Login,
		AvatarURL:    u.AvatarURL,
		Type:         DefaultUserType,
		Source:       u.Source,
		PasswordHash: u.PasswordHash,
	}
	if u.Source == SourceType("github") {
		rec.GithubID = u.ProviderUserID
	}
	return rec
}

// Identity maps a directory record back onto the canonical identity.
func (r DirectoryRecord) Identity() UserIdentity {
	src := r.Source
	if src == "" {
		src = SourceLocal
		if r.GithubID != nil {
			src = SourceType("github")
		}
	}
	return UserIdentity{
		Email:          r.Email,
		DisplayName:    r.Name,
		AvatarURL:      r.AvatarURL,
		Login:          r.Login,
		Source:         src,
		ProviderUserID: r.GithubID,
		PasswordHash:   r.PasswordHash,
	}
}

// ProviderKeyField returns the directory field holding a provider's user id.
func ProviderKeyField(provider SourceType) (string, bool) {
	switch provider {
	case "github":
		return FieldGithubID, true
	}
	return "", false
}

// IsLookupField reports whether field may be used with FindByKey.
func IsLookupField(field string) bool {
	return field == FieldEmail || field == FieldGithubID
}

// DirectoryStore is a directory backend. Lookup returns ErrRecordNotFound when
// nothing matches and any other error for transport or decoding problems.
// Insert returns a *DirectoryWriteError on failure.
type DirectoryStore interface {
	Lookup(ctx context.Context, field, value string) (*DirectoryRecord, error)
	Insert(ctx context.Context, rec DirectoryRecord) (*DirectoryRecord, error)
}

// DirectoryClient applies the lookup and insert contracts on top of a store:
// lookups are best effort, inserts always surface their failures.
type DirectoryClient struct {
	Store  DirectoryStore
	Logger *slog.Logger
}

func NewDirectoryClient(store DirectoryStore) *DirectoryClient {
	return &DirectoryClient{Store: store}
}

func (d *DirectoryClient) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// FindByKey looks up a record by a whitelisted field. Read failures are logged
// and reported as absence.
func (d *DirectoryClient) FindByKey(ctx context.Context, field, value string) (*DirectoryRecord, bool) {
	if !IsLookupField(field) || value == "" {
		return nil, false
	}
	rec, err := d.Store.Lookup(ctx, field, value)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			d.logger().Warn("directory read unavailable", "field", field, "error", err)
		}
		return nil, false
	}
	if rec == nil {
		return nil, false
	}
	return rec, true
}

// FindByEmail is FindByKey on the canonical email.
func (d *DirectoryClient) FindByEmail(ctx context.Context, email string) (*DirectoryRecord, bool) {
	return d.FindByKey(ctx, FieldEmail, CanonicalEmail(email))
}

// FindByProviderID looks up a provider identity by its provider key.
func (d *DirectoryClient) FindByProviderID(ctx context.Context, provider SourceType, id int64) (*DirectoryRecord, bool) {
	field, ok := ProviderKeyField(provider)
	if !ok {
		return nil, false
	}
	return d.FindByKey(ctx, field, strconv.FormatInt(id, 10))
}

// Insert creates a record. It is not idempotent; callers look up first.
func (d *DirectoryClient) Insert(ctx context.Context, rec DirectoryRecord) (*DirectoryRecord, error) {
	created, err := d.Store.Insert(ctx, rec)
	if err != nil {
		var werr *DirectoryWriteError
		if !errors.As(err, &werr) {
			err = &DirectoryWriteError{Err: err}
		}
		d.logger().Error("directory insert failed", "email", rec.Email, "error", err)
		return nil, err
	}
	if created == nil {
		return nil, &DirectoryWriteError{Body: "directory returned no record"}
	}
	return created, nil
}
