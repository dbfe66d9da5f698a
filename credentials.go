package authcore

import (
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt will hash.
const maxPasswordBytes = 72

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// PasswordVerifier checks a plaintext password against a stored hash.
// Implementations fail closed: any error yields false.
type PasswordVerifier interface {
	Verify(plaintext, storedHash string) bool
}

// PasswordHasher produces a salted hash for a new password.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// BcryptCredentials hashes and verifies passwords with bcrypt.
type BcryptCredentials struct {
	// Cost defaults to bcrypt.DefaultCost
	Cost int
}

func (b BcryptCredentials) Hash(plaintext string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b BcryptCredentials) Verify(plaintext, storedHash string) (ok bool) {
	if storedHash == "" {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("password verification panicked", "panic", r)
			ok = false
		}
	}()
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// ValidateCredentials checks a login or registration request before it reaches
// the orchestrator: the email must be well formed and the password non-blank.
func ValidateCredentials(email, password string) *AuthError {
	email = strings.TrimSpace(email)
	if email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if !emailRegex.MatchString(email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	if IsPlaceholderEmail(email) {
		return reservedEmail()
	}
	if strings.TrimSpace(password) == "" {
		return NewAuthError(ErrCodeMissingField, "Password is required", "password")
	}
	if len(password) > maxPasswordBytes {
		return NewAuthError(ErrCodeWeakPassword, "Password must be at most 72 bytes", "password")
	}
	return nil
}

func reservedEmail() *AuthError {
	return NewAuthError(ErrCodeInvalidEmail, "This email domain is reserved for provider accounts", "email")
}
