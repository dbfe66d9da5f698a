package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authcore "github.com/gr-backend/authcore"
	"github.com/gr-backend/authcore/client"
	"github.com/gr-backend/authcore/stores/fs"
)

// newTestServer runs the full authcore HTTP stack over an on-disk directory.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	sessions := authcore.NewSessionManager(scs.New())
	directory := authcore.NewDirectoryClient(fs.NewFSDirectoryStore(t.TempDir()))
	orchestrator := authcore.NewOrchestrator(directory, sessions)
	orchestrator.Hasher = authcore.BcryptCredentials{Cost: bcrypt.MinCost}

	router := mux.NewRouter()
	(&authcore.API{Auth: orchestrator}).RegisterRoutes(router, "/api")
	router.HandleFunc("/api/private", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret"))
	})

	gate := &authcore.RouteGate{Sessions: sessions}
	srv := httptest.NewServer(sessions.LoadAndSave(gate.Wrap(router)))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegisterWhoAmILogout(t *testing.T) {
	srv := newTestServer(t)
	c := client.NewAuthClient(srv.URL)
	ctx := context.Background()

	user, err := c.WhoAmI(ctx)
	require.NoError(t, err)
	assert.Nil(t, user, "fresh client is anonymous")

	created, err := c.Register(ctx, "Alice@Example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.Equal(t, authcore.SourceLocal, created.Source)

	me, err := c.WhoAmI(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, authcore.DefaultUserType, me.Type)
	assert.True(t, c.IsLoggedIn(ctx))

	resp, err := c.HTTPClient().Get(srv.URL + "/api/private")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	msg, err := c.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, authcore.LogoutMessage, msg)
	assert.False(t, c.IsLoggedIn(ctx))

	resp, err = c.HTTPClient().Get(srv.URL + "/api/private")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginWithSeparateClients(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := client.NewAuthClient(srv.URL).Register(ctx, "bob@example.com", "hunter22")
	require.NoError(t, err)

	other := client.NewAuthClient(srv.URL)
	assert.False(t, other.IsLoggedIn(ctx), "sessions are per client")

	user, err := other.Login(ctx, "BOB@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", user.Email)
	assert.True(t, other.IsLoggedIn(ctx))
}

func TestServerFailuresMatchSentinels(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := client.NewAuthClient(srv.URL)

	_, err := c.Register(ctx, "carol@example.com", "pw")
	require.NoError(t, err)

	_, err = client.NewAuthClient(srv.URL).Register(ctx, "carol@example.com", "pw")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "email", apiErr.Field)
	assert.True(t, errors.Is(err, authcore.ErrEmailAlreadyExists))

	wrongPassword := client.NewAuthClient(srv.URL)
	_, errWrong := wrongPassword.Login(ctx, "carol@example.com", "nope")
	_, errUnknown := wrongPassword.Login(ctx, "nobody@example.com", "nope")
	for _, err := range []error{errWrong, errUnknown} {
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.True(t, errors.Is(err, authcore.ErrInvalidCredentials))
	}
	assert.Equal(t, errWrong.Error(), errUnknown.Error(), "failures must be indistinguishable")
	assert.False(t, wrongPassword.IsLoggedIn(ctx))
}

func TestLogoutWithoutSession(t *testing.T) {
	srv := newTestServer(t)
	msg, err := client.NewAuthClient(srv.URL).Logout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Logged out successfully", msg)
}

func TestNewAuthClientOptions(t *testing.T) {
	c := client.NewAuthClient("http://localhost:8080/some/path", client.WithHTTPClient(&http.Client{}))
	assert.Equal(t, "http://localhost:8080", c.ServerURL())
	assert.NotNil(t, c.HTTPClient().Jar, "a jar is always present")
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.NewAuthClient(url).WhoAmI(context.Background())
	require.Error(t, err)
	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr))
}
