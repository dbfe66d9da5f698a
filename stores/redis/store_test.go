package redis_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-backend/authcore/stores/redis"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, redis.New(client)
}

func TestCommitFindDelete(t *testing.T) {
	mr, store := setup(t)
	ctx := context.Background()

	require.NoError(t, store.CommitCtx(ctx, "tok", []byte("data"), time.Now().Add(time.Hour)))
	assert.True(t, mr.Exists("session:tok"))
	ttl := mr.TTL("session:tok")
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour, "ttl %s", ttl)

	b, found, err := store.FindCtx(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("data"), b)

	require.NoError(t, store.DeleteCtx(ctx, "tok"))
	_, found, err = store.FindCtx(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindMissingToken(t *testing.T) {
	_, store := setup(t)
	b, found, err := store.Find("nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, b)
}

func TestCommitExpiredDeletes(t *testing.T) {
	mr, store := setup(t)
	require.NoError(t, store.Commit("tok", []byte("data"), time.Now().Add(time.Hour)))
	require.NoError(t, store.Commit("tok", []byte("data"), time.Now().Add(-time.Second)))
	assert.False(t, mr.Exists("session:tok"))
}

func TestExpiryIsEnforcedByRedis(t *testing.T) {
	mr, store := setup(t)
	require.NoError(t, store.Commit("tok", []byte("data"), time.Now().Add(time.Minute)))
	mr.FastForward(2 * time.Minute)
	_, found, err := store.Find("tok")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindReportsConnectionErrors(t *testing.T) {
	mr, store := setup(t)
	mr.Close()
	_, _, err := store.Find("tok")
	assert.Error(t, err)
}

func TestSessionsSurviveManagerRestart(t *testing.T) {
	_, store := setup(t)

	newManager := func() *scs.SessionManager {
		sm := scs.New()
		sm.Store = store
		return sm
	}

	first := newManager()
	put := first.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first.Put(r.Context(), "principal", "alice@example.com")
	}))
	rec := httptest.NewRecorder()
	put.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	second := newManager()
	var got string
	get := second.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = second.GetString(r.Context(), "principal")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	get.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "alice@example.com", got)
}
