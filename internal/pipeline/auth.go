package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tryteex/fcgiapp/internal/cache"
	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/dbconn"
	"github.com/tryteex/fcgiapp/internal/session"
)

// authorize implements original_source/src/app/auth.rs's Auth::get_access:
// the session's "system" flag grants unconditional access, otherwise a
// single query ORs together the module/class/action specificity levels
// (global, module-only, module+class, exact) and takes MAX(access) across
// every matching row, cached per user/module/class/action.
func authorize(ctx context.Context, db *dbconn.DB, store *cache.Store, sess *session.Session, module, class, action string) bool {
	if sess.IsSystem() {
		return true
	}

	key := fmt.Sprintf("auth:%d:%s:%s:%s", sess.UserID, module, class, action)
	if v, ok := store.Get(key); ok {
		return v.IsTruthyBool()
	}

	conds := []string{"(c.module='' AND c.class='' AND c.action='')"}
	if module != "" {
		conds = append(conds, fmt.Sprintf("(c.module=%s AND c.class='' AND c.action='')", dbconn.Escape(module)))
		if class != "" {
			conds = append(conds, fmt.Sprintf("(c.module=%s AND c.class=%s AND c.action='')", dbconn.Escape(module), dbconn.Escape(class)))
			if action != "" {
				conds = append(conds, fmt.Sprintf("(c.module=%s AND c.class=%s AND c.action=%s)", dbconn.Escape(module), dbconn.Escape(class), dbconn.Escape(action)))
			}
		}
	}

	sql := fmt.Sprintf(`
		SELECT COALESCE(MAX(a.access::int), 0) AS access
		FROM access a
		INNER JOIN user_role u ON u.role_id = a.role_id
		INNER JOIN controller c ON a.controller_id = c.controller_id
		WHERE a.access AND u.user_id = %d AND (%s)
	`, sess.UserID, strings.Join(conds, " OR "))

	rows := db.Query(ctx, sql)
	granted := false
	if len(rows) == 1 {
		if n, ok := rows[0][0].(int32); ok && n == 1 {
			granted = true
		} else if n, ok := rows[0][0].(int64); ok && n == 1 {
			granted = true
		}
	}
	store.Set(key, cacheval.Bool(granted))
	return granted
}
