package authcore

import (
	"context"
	"encoding/gob"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// AuthorityRole is a flat role tag attached when a session is established.
type AuthorityRole string

// RoleUser is the only role issued.
const RoleUser AuthorityRole = "user"

// sessionContextKey is the scs key holding the SessionContext.
const sessionContextKey = "authcore.context"

// SessionContext is the authenticated state held server side for one session token.
type SessionContext struct {
	PrincipalKey    string
	Authorities     []AuthorityRole
	AuthenticatedAt time.Time
	Identity        UserIdentity
}

// HasAuthority reports whether the context carries role.
func (s SessionContext) HasAuthority(role AuthorityRole) bool {
	for _, r := range s.Authorities {
		if r == role {
			return true
		}
	}
	return false
}

func init() {
	gob.Register(SessionContext{})
}

// SessionManager reads and writes the SessionContext inside an scs session.
// Every method expects a request context that went through LoadAndSave.
type SessionManager struct {
	Session *scs.SessionManager
	Logger  *slog.Logger
	Now     func() time.Time
}

// NewSessionManager wraps an scs manager. A nil manager gets scs defaults
// (in-memory store).
func NewSessionManager(sm *scs.SessionManager) *SessionManager {
	if sm == nil {
		sm = scs.New()
	}
	return (&SessionManager{Session: sm}).EnsureDefaults()
}

func (m *SessionManager) EnsureDefaults() *SessionManager {
	if m.Session == nil {
		m.Session = scs.New()
	}
	if m.Logger == nil {
		m.Logger = slog.Default()
	}
	if m.Now == nil {
		m.Now = time.Now
	}
	return m
}

// LoadAndSave loads the session for each request and commits it on the way out.
func (m *SessionManager) LoadAndSave(next http.Handler) http.Handler {
	return m.Session.LoadAndSave(next)
}

// Establish binds identity as the authenticated principal for the rest of the
// request and persists it with the session. The token is renewed first.
func (m *SessionManager) Establish(ctx context.Context, identity UserIdentity, roles ...AuthorityRole) (SessionContext, error) {
	if len(roles) == 0 {
		roles = []AuthorityRole{RoleUser}
	}
	identity.PasswordHash = ""
	sc := SessionContext{
		PrincipalKey:    identity.Email,
		Authorities:     roles,
		AuthenticatedAt: m.Now().UTC(),
		Identity:        identity,
	}
	if err := m.Session.RenewToken(ctx); err != nil {
		return SessionContext{}, err
	}
	m.Session.Put(ctx, sessionContextKey, sc)
	m.Logger.Info("session established", "principal", sc.PrincipalKey, "source", identity.Source)
	return sc, nil
}

// Current returns the authenticated context of the session, if any.
func (m *SessionManager) Current(ctx context.Context) (SessionContext, bool) {
	sc, ok := m.Session.Get(ctx, sessionContextKey).(SessionContext)
	if !ok || sc.PrincipalKey == "" {
		return SessionContext{}, false
	}
	return sc, true
}

// Terminate clears the principal and destroys the session so the token can
// no longer be used. Safe to call when nothing was established.
func (m *SessionManager) Terminate(ctx context.Context) error {
	m.Session.Remove(ctx, sessionContextKey)
	return m.Session.Destroy(ctx)
}
