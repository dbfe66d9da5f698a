package authcore_test

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	oa "github.com/gr-backend/authcore"
)

func TestBcryptCredentials(t *testing.T) {
	creds := oa.BcryptCredentials{Cost: bcrypt.MinCost}
	hash, err := creds.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not be the plaintext")
	}

	other, _ := creds.Hash("correct horse")
	if other == hash {
		t.Error("hashes must be salted")
	}

	tests := []struct {
		name      string
		plaintext string
		hash      string
		want      bool
	}{
		{"match", "correct horse", hash, true},
		{"mismatch", "wrong horse", hash, false},
		{"empty hash", "correct horse", "", false},
		{"malformed hash", "correct horse", "not-a-bcrypt-hash", false},
		{"truncated hash", "correct horse", hash[:20], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := creds.Verify(tt.plaintext, tt.hash); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		wantCode  string
		wantField string
	}{
		{"valid", "alice@example.com", "pw", "", ""},
		{"missing email", "", "pw", oa.ErrCodeMissingField, "email"},
		{"malformed email", "alice@", "pw", oa.ErrCodeInvalidEmail, "email"},
		{"blank password", "alice@example.com", "   ", oa.ErrCodeMissingField, "password"},
		{"password too long", "alice@example.com", strings.Repeat("x", 73), oa.ErrCodeWeakPassword, "password"},
		{"provider placeholder domain", "octocat@github.local", "pw", oa.ErrCodeInvalidEmail, "email"},
		{"provider placeholder mixed case", " OctoCat@GitHub.LOCAL ", "pw", oa.ErrCodeInvalidEmail, "email"},
		{"other .local domain", "alice@corp.local", "pw", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := oa.ValidateCredentials(tt.email, tt.password)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s error", tt.wantCode)
			}
			if err.Code != tt.wantCode || err.Field != tt.wantField {
				t.Errorf("got %s/%s, want %s/%s", err.Code, err.Field, tt.wantCode, tt.wantField)
			}
		})
	}
}
