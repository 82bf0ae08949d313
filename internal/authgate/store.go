package authgate

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCredentialTTL is how long a cached credential is trusted.
const DefaultCredentialTTL = 24 * time.Hour

// User is the identity returned by GET /api/auth/user.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	ClinicID string `json:"clinicId,omitempty"`
}

type credential struct {
	user     User
	storedAt time.Time
}

// CredentialStore caches the last validated user per key. Entries older than
// the TTL are treated as absent.
type CredentialStore struct {
	cache *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewCredentialStore creates a store. A zero ttl means DefaultCredentialTTL;
// a zero cleanup interval disables background purging.
func NewCredentialStore(ttl, cleanup time.Duration) *CredentialStore {
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	return &CredentialStore{
		cache: gocache.New(ttl, cleanup),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the cached user for key if it is younger than the TTL.
func (s *CredentialStore) Get(key string) (User, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return User{}, false
	}
	cred := v.(credential)
	if s.now().Sub(cred.storedAt) >= s.ttl {
		s.cache.Delete(key)
		return User{}, false
	}
	return cred.user, true
}

// Put overwrites the cached user for key.
func (s *CredentialStore) Put(key string, u User) {
	s.cache.SetDefault(key, credential{user: u, storedAt: s.now()})
}

// Clear drops the cached user for key.
func (s *CredentialStore) Clear(key string) {
	s.cache.Delete(key)
}
