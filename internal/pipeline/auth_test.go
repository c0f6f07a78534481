package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tryteex/fcgiapp/internal/cache"
	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/session"
)

func newTestSession(data map[string]cacheval.Entry) *session.Session {
	s := session.NewEmpty()
	s.UserID = 7
	for k, v := range data {
		s.Set(k, v)
	}
	return s
}

func TestAuthorizeSystemSessionBypasses(t *testing.T) {
	sess := newTestSession(map[string]cacheval.Entry{"system": cacheval.Bool(true)})
	ok := authorize(nil, nil, cache.New(), sess, "user", "admin", "index")
	require.True(t, ok)
}

func TestAuthorizeCacheHit(t *testing.T) {
	store := cache.New()
	store.Set("auth:7:user:admin:index", cacheval.Bool(true))
	sess := newTestSession(nil)

	ok := authorize(nil, nil, store, sess, "user", "admin", "index")
	require.True(t, ok)
}

func TestAuthorizeCacheHitDenied(t *testing.T) {
	store := cache.New()
	store.Set("auth:7:user:admin:edit", cacheval.Bool(false))
	sess := newTestSession(nil)

	ok := authorize(nil, nil, store, sess, "user", "admin", "edit")
	require.False(t, ok)
}
