// Package pipeline orchestrates one FastCGI request end to end (spec.md
// §4.6): parse request, load session, resolve route, select language,
// authorize, dispatch to a controller, render, assemble the response, save
// the session, clean up temp files. Grounded end to end on
// original_source/src/app/action.rs's Action::start/extract_route/
// start_route/run.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tryteex/fcgiapp/internal/appctx"
	"github.com/tryteex/fcgiapp/internal/cache"
	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/dbconn"
	"github.com/tryteex/fcgiapp/internal/registry"
	"github.com/tryteex/fcgiapp/internal/request"
	"github.com/tryteex/fcgiapp/internal/response"
	"github.com/tryteex/fcgiapp/internal/session"
	"github.com/tryteex/fcgiapp/internal/template"
	"github.com/tryteex/fcgiapp/internal/translation"
)

// NotFoundRedirect is where a denied or unresolved route sends the client,
// matching action.rs's hardcoded "/index/index/not_found".
const NotFoundRedirect = "/index/index/not_found"

// Pipeline holds everything shared across every request a worker serves:
// its own DB connection, the process-wide cache/translation/template
// stores, and the controller registry. Not safe for concurrent use across
// goroutines — one Pipeline belongs to exactly one worker (spec.md §5).
type Pipeline struct {
	DB           *dbconn.DB
	Cache        *cache.Store
	Translations *translation.Store
	Templates    *template.Store
	Registry     *registry.Registry

	Salt       string
	DefaultDir string
	Log        *slog.Logger
}

// Handle fully serves one request and returns the raw response bytes
// (header block + body) and an application exit status, the shape
// internal/fastcgi.HandlerFunc expects.
func (p *Pipeline) Handle(ctx context.Context, params map[string]string, stdin []byte) ([]byte, uint32) {
	reqID := uuid.New().String()
	log := p.Log.With("request_id", reqID)

	req, err := request.Parse(params, stdin, p.DefaultDir)
	if err != nil {
		log.Error("request parse failed", "error", err)
		return response.New().Build(), 1
	}
	defer req.Cleanup()

	resp := response.New()
	resp.Host = req.Host

	sess, err := session.Load(ctx, p.DB, req.Cookie[session.CookieName], p.Salt, req.IP, req.Agent, req.Host, time.Now())
	if err != nil {
		log.Error("session load failed", "error", err)
		return response.New().Build(), 1
	}
	resp.SetSessionCookie(sess.Cookie)

	route := resolveRoute(ctx, p.DB, p.Cache, resp, req.URL)
	if route.Redirected {
		sess.Save(ctx, req.IP, req.Agent)
		return resp.Build(), 0
	}

	langID := p.selectLangID(sess, route.LangID)

	// A route that doesn't even resolve to a registered handler has no
	// internal sub-render to fall back to — this is the one case where
	// this pipeline diverges from action.rs's run() (which would answer
	// blank): redirecting to not_found instead is strictly more useful to
	// an external client and not behavior worth preserving byte for byte.
	if _, ok := p.Registry.Lookup(route.Module, route.Class, route.Action); !ok {
		resp.SetRedirect(NotFoundRedirect, false)
		sess.Save(ctx, req.IP, req.Agent)
		return resp.Build(), 0
	}

	c := appctx.New(ctx)
	c.Request = req
	c.Response = resp
	c.Session = sess
	c.DB = p.DB
	c.Cache = p.Cache
	c.Translations = p.Translations
	c.Templates = p.Templates
	c.LangID = langID
	c.Set("params", cacheval.String(route.Params))
	c.Set("langs", c.LangVector())
	c.Loader = func(module, class, action, params string) appctx.Answer {
		return p.dispatch(ctx, c, module, class, action, params, true)
	}

	answer := p.dispatch(ctx, c, route.Module, route.Class, route.Action, route.Params, false)
	resp.Body = answer.Bytes()

	sess.Save(ctx, req.IP, req.Agent)
	return resp.Build(), 0
}

// dispatch runs authorization and controller dispatch for one
// module/class/action, used both for the top-level route (internal ==
// false) and for every Context.Load sub-render (internal == true),
// grounded on action.rs's start_route: an authorization denial on an
// internal call answers the literal "not_found" string rather than
// redirecting (redirecting the whole response on behalf of a partial
// sub-render would be wrong), matching an external (non-internal) denial
// redirecting and answering none.
func (p *Pipeline) dispatch(ctx context.Context, c *appctx.Context, module, class, action, params string, internal bool) appctx.Answer {
	if !authorize(ctx, p.DB, p.Cache, c.Session, module, class, action) {
		if internal {
			return appctx.StringAnswer("not_found")
		}
		c.Response.SetRedirect(NotFoundRedirect, false)
		return appctx.NoneAnswer()
	}

	handler, ok := p.Registry.Lookup(module, class, action)
	if !ok {
		return appctx.NoneAnswer()
	}

	prevModule, prevClass, prevAction := c.Module, c.Class, c.Action
	c.Module, c.Class, c.Action = module, class, action
	defer func() { c.Module, c.Class, c.Action = prevModule, prevClass, prevAction }()

	return handler(c, params, c.ViewData, internal)
}

// selectLangID mirrors original_source/src/app/lang.rs's Lang::set_lang_id:
// a route-resolved lang_id always wins and is written back to the session
// when it differs; absent that, the session's stored lang_id is kept, and
// absent THAT, lang_id 0 becomes the session's new default.
func (p *Pipeline) selectLangID(sess *session.Session, routeLangID *uint8) uint8 {
	if routeLangID != nil {
		if cur, ok := sess.LangID(); !ok || cur != *routeLangID {
			sess.Set("lang_id", cacheval.U8(*routeLangID))
		}
		return *routeLangID
	}
	if cur, ok := sess.LangID(); ok {
		return cur
	}
	sess.Set("lang_id", cacheval.U8(0))
	return 0
}
