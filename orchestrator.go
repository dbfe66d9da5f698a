package authcore

import (
	"context"
	"errors"
	"log/slog"
)

var (
	errPasswordMismatch = errors.New("password mismatch")
	errNoLocalPassword  = errors.New("account has no local password")
)

// LogoutMessage is the acknowledgment returned by Logout.
const LogoutMessage = "Logged out successfully"

// WhoAmIResult is either an authenticated summary or the anonymous marker.
type WhoAmIResult struct {
	Authenticated bool
	User          *IdentitySummary
}

// Orchestrator composes verification, normalization, provisioning and sessions
// into the login, register, provider login, whoami and logout operations.
// The session travels in ctx, which must come from the session middleware.
type Orchestrator struct {
	Directory *DirectoryClient
	Sessions  *SessionManager
	Verifier  PasswordVerifier
	Hasher    PasswordHasher
	Logger    *slog.Logger
}

func NewOrchestrator(directory *DirectoryClient, sessions *SessionManager) *Orchestrator {
	return (&Orchestrator{Directory: directory, Sessions: sessions}).EnsureDefaults()
}

func (o *Orchestrator) EnsureDefaults() *Orchestrator {
	if o.Verifier == nil {
		o.Verifier = BcryptCredentials{}
	}
	if o.Hasher == nil {
		o.Hasher = BcryptCredentials{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Login verifies an email/password pair against the directory. Unknown accounts,
// provider-only accounts and wrong passwords all fail with the same error.
func (o *Orchestrator) Login(ctx context.Context, email, password string) (*IdentitySummary, error) {
	email = CanonicalEmail(email)
	rec, found := o.Directory.FindByEmail(ctx, email)
	if !found {
		o.Logger.Info("login failed", "email", email, "reason", ErrUserNotFound)
		return nil, invalidCredentials(ErrUserNotFound)
	}
	if rec.PasswordHash == "" {
		o.Logger.Info("login failed", "email", email, "reason", errNoLocalPassword)
		return nil, invalidCredentials(errNoLocalPassword)
	}
	if !o.Verifier.Verify(password, rec.PasswordHash) {
		o.Logger.Info("login failed", "email", email, "reason", errPasswordMismatch)
		return nil, invalidCredentials(errPasswordMismatch)
	}

	identity := rec.Identity()
	identity.Email = email
	if _, err := o.Sessions.Establish(ctx, identity, RoleUser); err != nil {
		return nil, o.sessionFailed(err)
	}
	return summaryFor(identity, rec), nil
}

// Register creates a local account and logs it in. Duplicate emails, whether
// seen by the lookup or by the directory's unique constraint, fail with
// EmailAlreadyExists and leave the session untouched.
func (o *Orchestrator) Register(ctx context.Context, email, password string) (*IdentitySummary, error) {
	identity, err := Normalize(LocalCredential{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if IsPlaceholderEmail(identity.Email) {
		return nil, reservedEmail()
	}
	if _, found := o.Directory.FindByEmail(ctx, identity.Email); found {
		return nil, emailExists(nil)
	}

	hash, err := o.Hasher.Hash(password)
	if err != nil {
		o.Logger.Error("password hashing failed", "error", err)
		return nil, &AuthError{Code: ErrCodeInternal, Message: "Failed to register user", Err: err}
	}
	identity.PasswordHash = hash

	rec, err := o.Directory.Insert(ctx, RecordFromIdentity(identity))
	if err != nil {
		if errors.Is(err, ErrDirectoryConflict) {
			return nil, emailExists(err)
		}
		return nil, directoryWriteFailed(err)
	}

	if _, err := o.Sessions.Establish(ctx, identity, RoleUser); err != nil {
		return nil, o.sessionFailed(err)
	}
	o.Logger.Info("registered local user", "email", identity.Email)
	return summaryFor(identity, rec), nil
}

// HandleProviderLogin provisions a provider identity on first sight and logs
// it in. Existing records are not refreshed from newer claims.
func (o *Orchestrator) HandleProviderLogin(ctx context.Context, claims ProviderClaims) (*IdentitySummary, error) {
	identity, err := FromOAuthClaims(claims)
	if err != nil {
		return nil, err
	}
	if _, ok := ProviderKeyField(identity.Source); !ok {
		return nil, invalidClaims("unsupported provider " + string(identity.Source))
	}
	id := *identity.ProviderUserID

	rec, found := o.Directory.FindByProviderID(ctx, identity.Source, id)
	if !found {
		created, err := o.Directory.Insert(ctx, RecordFromIdentity(identity))
		switch {
		case err == nil:
			rec = created
			o.Logger.Info("provisioned provider user", "provider", identity.Source, "provider_id", id, "email", identity.Email)
		case errors.Is(err, ErrDirectoryConflict):
			// lost a race with a concurrent first login, or the email belongs to another account
			if rec, found = o.Directory.FindByProviderID(ctx, identity.Source, id); !found {
				return nil, emailExists(err)
			}
		default:
			return nil, directoryWriteFailed(err)
		}
	}

	if _, err := o.Sessions.Establish(ctx, identity, RoleUser); err != nil {
		return nil, o.sessionFailed(err)
	}
	return summaryFor(identity, rec), nil
}

// WhoAmI reports the current session's identity, enriched from the directory
// when the lookup succeeds.
func (o *Orchestrator) WhoAmI(ctx context.Context) WhoAmIResult {
	sc, ok := o.Sessions.Current(ctx)
	if !ok {
		return WhoAmIResult{}
	}
	summary := sc.Identity.Summary()
	if rec, found := o.Directory.FindByEmail(ctx, sc.PrincipalKey); found {
		summary.Type = rec.Type
		if summary.Name == "" {
			summary.Name = rec.Name
		}
	}
	return WhoAmIResult{Authenticated: true, User: &summary}
}

// Logout terminates the session. It always succeeds.
func (o *Orchestrator) Logout(ctx context.Context) string {
	if err := o.Sessions.Terminate(ctx); err != nil {
		o.Logger.Warn("session termination failed", "error", err)
	}
	return LogoutMessage
}

func (o *Orchestrator) sessionFailed(err error) *AuthError {
	o.Logger.Error("session could not be established", "error", err)
	return &AuthError{Code: ErrCodeInternal, Message: "Failed to create session", Err: err}
}

func summaryFor(identity UserIdentity, rec *DirectoryRecord) *IdentitySummary {
	s := identity.Summary()
	if rec != nil {
		s.Type = rec.Type
	}
	return &s
}
