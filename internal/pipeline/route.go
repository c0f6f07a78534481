package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tryteex/fcgiapp/internal/cache"
	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/dbconn"
	"github.com/tryteex/fcgiapp/internal/response"
)

// Route is the resolved destination for one request URL, or a redirect.
type Route struct {
	Module, Class, Action, Params string
	LangID                        *uint8
	Redirected                    bool
}

// resolveRoute implements original_source/src/app/action.rs's extract_route:
// first a cached-or-queried redirect table lookup, then a cached-or-queried
// route table lookup, finally a plain "/module/class/action/params"
// path-segment fallback defaulting everything to "index".
func resolveRoute(ctx context.Context, db *dbconn.DB, store *cache.Store, resp *response.Response, url string) Route {
	if rt, ok := resolveRedirect(ctx, db, store, resp, url); ok {
		return rt
	}

	routeKey := "route:" + url
	if v, ok := store.Get(routeKey); ok {
		if s, ok := v.StringValue(); ok {
			if rt, ok := parseRouteCacheValue(s); ok {
				return rt
			}
		}
		return fallbackRoute(url)
	}

	rows := db.Query(ctx, fmt.Sprintf(`
		SELECT c.module, c.class, c.action, r.params, r.lang_id
		FROM route r INNER JOIN controller c ON r.controller_id = c.controller_id
		WHERE r.url = %s AND length(c.module) > 0 AND length(c.class) > 0 AND length(c.action) > 0
	`, dbconn.Escape(url)))
	if len(rows) == 1 {
		row := rows[0]
		module, _ := row[0].(string)
		class, _ := row[1].(string)
		action, _ := row[2].(string)
		params, _ := row[3].(string)
		langID := routeLangID(row[4])
		store.Set(routeKey, cacheval.String(fmt.Sprintf("%s:%s:%s:%s:%d", module, class, action, params, langID)))
		lid := langID
		return Route{Module: module, Class: class, Action: action, Params: params, LangID: &lid}
	}
	store.Set(routeKey, cacheval.None())

	return fallbackRoute(url)
}

func routeLangID(v any) uint8 {
	switch t := v.(type) {
	case int64:
		return uint8(t)
	case int32:
		return uint8(t)
	default:
		return 0
	}
}

// resolveRedirect checks the "redirect:<url>" cache entry, then the
// redirect table, setting resp and returning (Route{Redirected: true}, true)
// on a hit. A cached/queried miss is recorded as cacheval.None() so the
// redirect table is never re-queried for a known non-redirect URL.
func resolveRedirect(ctx context.Context, db *dbconn.DB, store *cache.Store, resp *response.Response, url string) (Route, bool) {
	key := "redirect:" + url
	if v, ok := store.Get(key); ok {
		s, ok := v.StringValue()
		if !ok {
			return Route{}, false
		}
		permanently := strings.HasPrefix(s, "1")
		resp.SetRedirect(s[1:], permanently)
		return Route{Redirected: true}, true
	}

	rows := db.Query(ctx, fmt.Sprintf("SELECT redirect, permanently FROM redirect WHERE url = %s", dbconn.Escape(url)))
	if len(rows) == 1 {
		redirect, _ := rows[0][0].(string)
		permanently, _ := rows[0][1].(bool)
		flag := "0"
		if permanently {
			flag = "1"
		}
		resp.SetRedirect(redirect, permanently)
		store.Set(key, cacheval.String(flag+redirect))
		return Route{Redirected: true}, true
	}
	store.Set(key, cacheval.None())
	return Route{}, false
}

func parseRouteCacheValue(s string) (Route, bool) {
	parts := strings.SplitN(s, ":", 5)
	if len(parts) != 5 {
		return Route{}, false
	}
	lid64, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return Route{}, false
	}
	lid := uint8(lid64)
	return Route{Module: parts[0], Class: parts[1], Action: parts[2], Params: parts[3], LangID: &lid}, true
}

// fallbackRoute splits the raw URL into up to 4 path segments
// (/module/class/action/params), defaulting every unfilled segment to
// "index" exactly as action.rs's extract_route does when neither the
// redirect nor route tables have an entry.
func fallbackRoute(url string) Route {
	rt := Route{Module: "index", Class: "index", Action: "index", Params: "index"}
	if url == "/" {
		return rt
	}
	parts := strings.SplitN(url, "/", 5)
	switch len(parts) {
	case 2:
		rt.Module = parts[1]
	case 3:
		rt.Module, rt.Class = parts[1], parts[2]
	case 4:
		rt.Module, rt.Class, rt.Action = parts[1], parts[2], parts[3]
	case 5:
		rt.Module, rt.Class, rt.Action, rt.Params = parts[1], parts[2], parts[3], parts[4]
	}
	return rt
}
