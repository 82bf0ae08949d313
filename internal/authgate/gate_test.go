package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, "error", "json")
}

type authServer struct {
	srv      *httptest.Server
	status   atomic.Int32
	calls    atomic.Int32
	lastAuth atomic.Value
	user     User
}

func newAuthServer(t *testing.T, status int, user User) *authServer {
	t.Helper()
	a := &authServer{user: user}
	a.status.Store(int32(status))
	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.calls.Add(1)
		a.lastAuth.Store(r.Header.Get("Authorization"))
		if r.URL.Path != "/api/auth/user" || r.Header.Get("Cache-Control") == "" || r.Header.Get("Pragma") != "no-cache" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		code := int(a.status.Load())
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.user)
	}))
	t.Cleanup(a.srv.Close)
	return a
}

func newGate(t *testing.T, a *authServer, role string) (*Gate, *CredentialStore) {
	t.Helper()
	store := NewCredentialStore(DefaultCredentialTTL, 0)
	v := NewHTTPValidator(a.srv.URL, a.srv.Client())
	return New(store, v, Config{RequiredRole: role, LoginPath: "/portal-login"}, quietLogger()), store
}

func TestNoCacheServerOK(t *testing.T) {
	staff := User{ID: "u1", Email: "staff@dentgroup.example", Role: "clinic_staff", ClinicID: "dentgroup-istanbul"}
	a := newAuthServer(t, http.StatusOK, staff)
	g, store := newGate(t, a, "clinic_staff")

	c := g.Check(context.Background(), "session-1", "tok")
	assert.Equal(t, StatusNoUser, c.Initial.Status)
	assert.True(t, c.Initial.Pending)
	assert.False(t, c.Initial.Allowed())

	d, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Allowed())
	assert.False(t, d.Pending)
	assert.False(t, d.FromCache)
	assert.Equal(t, "Bearer tok", a.lastAuth.Load())

	cached, ok := store.Get("session-1")
	require.True(t, ok)
	assert.Equal(t, staff, cached)
}

func TestCachedCredentialIsOptimistic(t *testing.T) {
	a := newAuthServer(t, http.StatusOK, User{ID: "u1", Role: "clinic_staff"})
	g, store := newGate(t, a, "clinic_staff")
	store.Put("s", User{ID: "u1", Role: "clinic_staff"})

	c := g.Check(context.Background(), "s", "tok")
	assert.Equal(t, StatusAuthorized, c.Initial.Status)
	assert.True(t, c.Initial.FromCache)
	assert.True(t, c.Initial.Pending)

	d, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Allowed())
}

func TestServer401ClearsCache(t *testing.T) {
	a := newAuthServer(t, http.StatusUnauthorized, User{})
	g, store := newGate(t, a, "")
	store.Put("s", User{ID: "u1", Role: "clinic_staff"})

	d := g.Decide(context.Background(), "s", "expired")

	assert.Equal(t, StatusNoUser, d.Status)
	assert.Equal(t, "/portal-login", d.Redirect)
	_, ok := store.Get("s")
	assert.False(t, ok)
}

func TestServer500FallsBackToCache(t *testing.T) {
	a := newAuthServer(t, http.StatusInternalServerError, User{})
	g, store := newGate(t, a, "clinic_staff")
	store.Put("s", User{ID: "u1", Role: "clinic_staff"})

	d := g.Decide(context.Background(), "s", "tok")

	assert.Equal(t, StatusAuthorized, d.Status)
	assert.True(t, d.FromCache)
	_, ok := store.Get("s")
	assert.True(t, ok, "grace period keeps the cache")
	assert.EqualValues(t, 1, a.calls.Load(), "no retry")
}

func TestServer500WithoutCache(t *testing.T) {
	a := newAuthServer(t, http.StatusBadGateway, User{})
	g, _ := newGate(t, a, "")

	d := g.Decide(context.Background(), "s", "tok")
	assert.Equal(t, StatusNoUser, d.Status)
}

func TestNetworkErrorFallsBackToCache(t *testing.T) {
	store := NewCredentialStore(DefaultCredentialTTL, 0)
	store.Put("s", User{ID: "u1", Role: "admin"})
	v := ValidatorFunc(func(ctx context.Context, token string) (User, error) {
		return User{}, errors.New("connection refused")
	})
	g := New(store, v, Config{}, quietLogger())

	d := g.Decide(context.Background(), "s", "tok")
	assert.Equal(t, StatusAuthorized, d.Status)
	assert.True(t, d.FromCache)

	store.Clear("s")
	d = g.Decide(context.Background(), "s", "tok")
	assert.Equal(t, StatusNoUser, d.Status)
}

func TestWrongRole(t *testing.T) {
	a := newAuthServer(t, http.StatusOK, User{ID: "u2", Role: "patient"})
	g, _ := newGate(t, a, "clinic_staff")

	d := g.Decide(context.Background(), "s", "tok")

	assert.Equal(t, StatusWrongRole, d.Status)
	assert.Equal(t, "Access denied", d.Message)
	assert.Equal(t, "/portal-login", d.Redirect)
	require.NotNil(t, d.User)
	assert.Equal(t, "patient", d.User.Role)
}

func TestServerOverridesCachedRole(t *testing.T) {
	a := newAuthServer(t, http.StatusOK, User{ID: "u1", Role: "patient"})
	g, store := newGate(t, a, "clinic_staff")
	store.Put("s", User{ID: "u1", Role: "clinic_staff"})

	c := g.Check(context.Background(), "s", "tok")
	assert.Equal(t, StatusAuthorized, c.Initial.Status)

	d, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusWrongRole, d.Status)
	cached, _ := store.Get("s")
	assert.Equal(t, "patient", cached.Role)
}

func TestExpiredCredentialTreatedAsAbsent(t *testing.T) {
	store := NewCredentialStore(DefaultCredentialTTL, 0)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.Put("s", User{ID: "u1", Role: "clinic_staff"})

	now = now.Add(23 * time.Hour)
	_, ok := store.Get("s")
	assert.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = store.Get("s")
	assert.False(t, ok, "24h old credential is discarded")

	g := New(store, nil, Config{}, quietLogger())
	c := g.Check(context.Background(), "s", "")
	assert.Equal(t, StatusNoUser, c.Initial.Status, "expired credential is unauthorized until confirmed")
	assert.True(t, c.Initial.Pending)
	d, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusNoUser, d.Status)
	assert.False(t, d.Pending)
}

func TestWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	v := ValidatorFunc(func(ctx context.Context, token string) (User, error) {
		<-release
		return User{ID: "u"}, nil
	})
	g := New(NewCredentialStore(0, 0), v, Config{}, quietLogger())

	c := g.Check(context.Background(), "s", "tok")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	d, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusNoUser, d.Status)
	assert.True(t, d.Pending)

	close(release)
	<-c.Done()
}
