package authcore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SourceType names where an identity came from: SourceLocal or a provider name.
type SourceType string

const SourceLocal SourceType = "local"

// UserIdentity is the canonical user shape shared by both credential sources.
type UserIdentity struct {
	Email       string     `json:"email"`
	DisplayName string     `json:"name,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Login       string     `json:"login,omitempty"`
	Source      SourceType `json:"source"`

	// ProviderUserID is set only for provider identities.
	ProviderUserID *int64 `json:"id,omitempty"`

	// PasswordHash is set only for local identities and never leaves the server.
	PasswordHash string `json:"-"`
}

// IsProvider reports whether the identity was produced by an OAuth provider.
func (u UserIdentity) IsProvider() bool {
	return u.Source != SourceLocal && u.Source != ""
}

// Credential is one of LocalCredential or ProviderClaims.
type Credential interface {
	credential()
}

// LocalCredential is an email/password pair presented to the login or register flow.
type LocalCredential struct {
	Email    string
	Password string
}

// ProviderClaims are the typed attributes an OAuth provider returns for a user.
// ID stays a json.Number so large provider ids are never routed through float64.
type ProviderClaims struct {
	Provider  string      `json:"-"`
	ID        json.Number `json:"id"`
	Login     string      `json:"login"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	AvatarURL string      `json:"avatar_url"`
}

func (LocalCredential) credential() {}
func (ProviderClaims) credential()  {}

// Normalize maps either credential source onto a UserIdentity. A LocalCredential
// is assumed to have been verified (or is about to be registered) by the caller.
func Normalize(c Credential) (UserIdentity, error) {
	switch v := c.(type) {
	case LocalCredential:
		if strings.TrimSpace(v.Email) == "" {
			return UserIdentity{}, NewAuthError(ErrCodeMissingField, "Email is required", "email")
		}
		return FromLocalCredential(v.Email), nil
	case *LocalCredential:
		return Normalize(*v)
	case ProviderClaims:
		return FromOAuthClaims(v)
	case *ProviderClaims:
		return FromOAuthClaims(*v)
	default:
		return UserIdentity{}, fmt.Errorf("unsupported credential type %T", c)
	}
}

// FromLocalCredential builds the identity for a locally registered email.
func FromLocalCredential(email string) UserIdentity {
	return UserIdentity{
		Email:  CanonicalEmail(email),
		Source: SourceLocal,
	}
}

// FromOAuthClaims validates provider claims and builds the canonical identity.
// A blank email is replaced by <login>@<provider>.local.
func FromOAuthClaims(claims ProviderClaims) (UserIdentity, error) {
	provider := strings.ToLower(strings.TrimSpace(claims.Provider))
	if provider == "" || SourceType(provider) == SourceLocal {
		return UserIdentity{}, invalidClaims("provider name is required")
	}

	id, err := ParseProviderUserID(claims.ID)
	if err != nil {
		return UserIdentity{}, invalidClaims(err.Error())
	}

	login := strings.TrimSpace(claims.Login)
	email := CanonicalEmail(claims.Email)
	if email == "" {
		if login == "" {
			return UserIdentity{}, invalidClaims("provider returned neither email nor login")
		}
		email = PlaceholderEmail(login, provider)
	}

	return UserIdentity{
		Email:          email,
		DisplayName:    strings.TrimSpace(claims.Name),
		AvatarURL:      strings.TrimSpace(claims.AvatarURL),
		Login:          login,
		Source:         SourceType(provider),
		ProviderUserID: &id,
	}, nil
}

// ParseProviderUserID parses a provider id as an exact positive 64-bit integer.
func ParseProviderUserID(n json.Number) (int64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, fmt.Errorf("provider user id is missing")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("provider user id %q is not an exact integer", s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("provider user id %d must be positive", id)
	}
	return id, nil
}

// PlaceholderEmail synthesizes the lookup key for provider users without an email.
func PlaceholderEmail(login, provider string) string {
	return CanonicalEmail(login + "@" + provider + ".local")
}

// IsPlaceholderEmail reports whether email falls in the <login>@<provider>.local
// namespace reserved for provider users without an email.
func IsPlaceholderEmail(email string) bool {
	email = CanonicalEmail(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	provider, ok := strings.CutSuffix(email[at+1:], ".local")
	if !ok {
		return false
	}
	_, supported := ProviderKeyField(SourceType(provider))
	return supported
}

// CanonicalEmail trims and lower-cases an email so lookups are case insensitive.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidClaims(msg string) *AuthError {
	return NewAuthError(ErrCodeInvalidClaims, "Invalid provider claims: "+msg, "")
}

// IdentitySummary is the client-facing view of an authenticated identity.
type IdentitySummary struct {
	ID        *int64     `json:"id,omitempty"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Login     string     `json:"login,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Type      string     `json:"type,omitempty"`
	Source    SourceType `json:"source"`
}

// Summary returns the client-facing view of the identity.
func (u UserIdentity) Summary() IdentitySummary {
	return IdentitySummary{
		ID:        u.ProviderUserID,
		Email:     u.Email,
		Name:      u.DisplayName,
		Login:     u.Login,
		AvatarURL: u.AvatarURL,
		Source:    u.Source,
	}
}
