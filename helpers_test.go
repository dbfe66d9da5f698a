package authcore_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"

	oa "github.com/gr-backend/authcore"
)

// memDirectory is an in-memory DirectoryStore with unique email and github_id.
type memDirectory struct {
	mu      sync.Mutex
	records []oa.DirectoryRecord

	readErr   error // returned by every Lookup when set
	insertErr error // returned by every Insert when set

	// hideLookups makes the next n lookups miss, to simulate a racing writer.
	hideLookups int

	lookups int
	inserts int
}

func (m *memDirectory) Lookup(ctx context.Context, field, value string) (*oa.DirectoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.hideLookups > 0 {
		m.hideLookups--
		return nil, oa.ErrRecordNotFound
	}
	for _, r := range m.records {
		switch {
		case field == oa.FieldEmail && r.Email == value,
			field == oa.FieldGithubID && r.GithubID != nil && strconv.FormatInt(*r.GithubID, 10) == value:
			rec := r
			return &rec, nil
		}
	}
	return nil, oa.ErrRecordNotFound
}

func (m *memDirectory) Insert(ctx context.Context, rec oa.DirectoryRecord) (*oa.DirectoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	for _, r := range m.records {
		if r.Email == rec.Email || (rec.GithubID != nil && r.GithubID != nil && *r.GithubID == *rec.GithubID) {
			return nil, &oa.DirectoryWriteError{Status: 409, Body: `{"code":"23505"}`, Conflict: true}
		}
	}
	m.inserts++
	rec.ID = "rec-" + strconv.Itoa(len(m.records)+1)
	m.records = append(m.records, rec)
	return &rec, nil
}

func (m *memDirectory) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var errNetwork = errors.New("dial tcp: connection refused")

func newTestOrchestrator(t *testing.T) (*oa.Orchestrator, *memDirectory) {
	t.Helper()
	dir := &memDirectory{}
	o := oa.NewOrchestrator(oa.NewDirectoryClient(dir), oa.NewSessionManager(scs.New()))
	o.Hasher = oa.BcryptCredentials{Cost: bcrypt.MinCost}
	return o, dir
}

// sessionCtx returns a context carrying a fresh, empty session, as LoadAndSave would.
func sessionCtx(t *testing.T, sm *oa.SessionManager) context.Context {
	t.Helper()
	ctx, err := sm.Session.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	return ctx
}
