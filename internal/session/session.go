// Package session implements user session identity and persistence,
// grounded directly on original_source/src/app/session.rs: a 128-hex-char
// SHA3-512 cookie key derived from salt+ip+agent+host+high-precision
// timestamp, a get-or-create CTE against the session table, and a
// change-tracked save that only rewrites `data` when something was set.
package session

import (
	"context"
	"crypto/sha3"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/dbconn"
)

// CookieName is the session cookie's key, renamed from the original's
// "tryteex" to match this module's identity.
const CookieName = "fcgiapp"

// MaxAgeSeconds is the cookie Max-Age, original_source's ON_YEAR constant:
// 366 days expressed in seconds (leap-year-safe).
const MaxAgeSeconds = 31622400

var cookieKeyRe = regexp.MustCompile(`^[a-f0-9]{128}$`)

// NewEmpty builds a Session with no backing DB connection, for callers
// (the tests) that never Save it.
func NewEmpty() *Session {
	return &Session{data: make(map[string]cacheval.Entry)}
}

// Session is the per-request user session: identity plus the user data bag
// (spec.md §4.3). Not safe for concurrent use; one Session lives for the
// duration of one request, owned by one worker.
type Session struct {
	UserID    int64
	SessionID int64
	Cookie    string

	data    map[string]cacheval.Entry
	changed bool

	db *dbconn.DB
}

// NewCookie derives a fresh session key the way original_source does:
// sha3-512(salt || ip || agent || host || timestamp), hex-encoded lowercase.
// now is injected so callers (and tests) control the timestamp's entropy.
func NewCookie(salt, ip, agent, host string, now time.Time) string {
	ts := now.Format("2006.01.02 15:04:05.000000000 -07:00")
	sum := sha3.Sum512([]byte(salt + ip + agent + host + ts))
	return hex.EncodeToString(sum[:])
}

// ValidCookie reports whether s is a well-formed 128-hex-char session key.
func ValidCookie(s string) bool {
	return cookieKeyRe.MatchString(s)
}

// Load resolves the session for cookie (creating a session row if the
// cookie is new or unrecognized) and fetches any previously stored user
// data. If cookie is empty or malformed, a fresh one is minted from the
// salt/ip/agent/host/now tuple, matching session.rs's constructor flow.
func Load(ctx context.Context, db *dbconn.DB, cookie, salt, ip, agent, host string, now time.Time) (*Session, error) {
	if cookie == "" || !ValidCookie(cookie) {
		cookie = NewCookie(salt, ip, agent, host, now)
	}

	s := &Session{Cookie: cookie, data: make(map[string]cacheval.Entry), db: db}

	esc := dbconn.Escape(cookie)
	sql := fmt.Sprintf(`
		WITH
		  new_q AS (
		    SELECT 0::int8 AS user_id, %s::text AS session, '{}'::jsonb AS data, now() AS created, now() AS last, %s AS ip, %s AS user_agent
		  ),
		  ins_q AS (
		    INSERT INTO session (user_id, session, data, created, last, ip, user_agent)
		    SELECT n.user_id, n.session, n.data, n.created, n.last, n.ip, n.user_agent
		    FROM new_q n
		    LEFT JOIN session s ON s.session = n.session
		    WHERE s.session_id IS NULL
		    RETURNING session_id, data, user_id
		  )
		SELECT session_id, data::text, user_id FROM ins_q
		UNION
		SELECT session_id, data::text, user_id FROM session WHERE session = %s
	`, esc, dbconn.Escape(ip), dbconn.Escape(agent), esc)

	rows := db.Query(ctx, sql)
	if len(rows) != 1 {
		return s, nil
	}
	row := rows[0]
	if sessionID, ok := row[0].(int64); ok {
		s.SessionID = sessionID
	}
	if userID, ok := row[2].(int64); ok {
		s.UserID = userID
	}
	if raw, ok := row[1].(string); ok && raw != "" {
		var entry cacheval.Entry
		if err := entry.UnmarshalJSON([]byte(raw)); err == nil {
			if m, ok := entry.MapValue(); ok {
				s.data = m
			}
		}
	}
	return s, nil
}

// Get returns a session value by key.
func (s *Session) Get(key string) (cacheval.Entry, bool) {
	v, ok := s.data[key]
	return v, ok
}

// Set stores a session value and marks the session dirty.
func (s *Session) Set(key string, v cacheval.Entry) {
	s.data[key] = v
	s.changed = true
}

// LangID returns the stored lang_id, if any, matching session.rs's
// get_lang_id (a stray i64 is coerced down, since some call sites set it
// as a plain number before the u8 convention was settled).
func (s *Session) LangID() (uint8, bool) {
	v, ok := s.data["lang_id"]
	if !ok {
		return 0, false
	}
	if u, ok := v.U8Value(); ok {
		return u, true
	}
	if i, ok := v.I64Value(); ok && i >= 0 && i <= 255 {
		return uint8(i), true
	}
	return 0, false
}

// IsSystem reports the "system" flag used to bypass authorization checks
// entirely (auth.rs: a true "system" session value always has access).
func (s *Session) IsSystem() bool {
	v, ok := s.data["system"]
	return ok && v.IsTruthyBool()
}

// Save persists the session. When nothing changed, only the `last` visit
// timestamp is bumped, exactly as session.rs's save() branches.
func (s *Session) Save(ctx context.Context, ip, agent string) {
	if !s.changed {
		s.db.Exec(ctx, fmt.Sprintf("UPDATE session SET last = now() WHERE session_id = %d", s.SessionID))
		return
	}
	m := cacheval.Map(s.data)
	raw, err := m.MarshalJSON()
	if err != nil {
		raw = []byte("{}")
	}
	sql := fmt.Sprintf(
		"UPDATE session SET user_id = %d, data = %s, last = now(), ip = %s, user_agent = %s WHERE session_id = %d",
		s.UserID, dbconn.Escape(string(raw)), dbconn.Escape(ip), dbconn.Escape(agent), s.SessionID,
	)
	s.db.Exec(ctx, sql)
}
