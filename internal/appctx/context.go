// Package appctx is the per-request context threaded through route
// resolution, authorization, controller dispatch and template rendering
// (spec.md §4.6). It exists as its own package so internal/registry and
// internal/pipeline can both depend on the context shape without an import
// cycle between them.
package appctx

import (
	"context"

	"github.com/tryteex/fcgiapp/internal/cache"
	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/dbconn"
	"github.com/tryteex/fcgiapp/internal/htmlesc"
	"github.com/tryteex/fcgiapp/internal/request"
	"github.com/tryteex/fcgiapp/internal/response"
	"github.com/tryteex/fcgiapp/internal/session"
	"github.com/tryteex/fcgiapp/internal/template"
	"github.com/tryteex/fcgiapp/internal/translation"
)

// AnswerKind distinguishes "no output" from "rendered text", matching
// original_source/src/app/action.rs's Answer enum (its Raw variant is out
// of scope per spec.md §9's Open Questions).
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerString
)

// Answer is what a controller handler (or an internal sub-load) returns:
// either nothing, or rendered text to splice into the caller's view data
// or, for a top-level dispatch, to become the response body.
type Answer struct {
	Kind AnswerKind
	Text string
}

// NoneAnswer is "the caller should stop producing output here".
func NoneAnswer() Answer { return Answer{Kind: AnswerNone} }

// StringAnswer wraps rendered text.
func StringAnswer(text string) Answer { return Answer{Kind: AnswerString, Text: text} }

// Entry converts the answer into the cacheval.Entry shape a caller stores
// into shared view data after an internal load (original_source's
// `data.insert(key, Data::None | Data::String(a))` match in index/mod.rs).
func (a Answer) Entry() cacheval.Entry {
	if a.Kind == AnswerString {
		return cacheval.String(a.Text)
	}
	return cacheval.None()
}

// Bytes converts the answer into a response body, empty for AnswerNone.
func (a Answer) Bytes() []byte {
	if a.Kind == AnswerString {
		return []byte(a.Text)
	}
	return nil
}

// Context is everything one controller action needs: the inbound request,
// the outbound response being assembled, the user's session, shared
// read-only stores, and the per-worker database connection.
type Context struct {
	Ctx context.Context

	Request  *request.Request
	Response *response.Response
	Session  *session.Session
	DB       *dbconn.DB
	Cache    *cache.Store

	Translations *translation.Store
	Templates    *template.Store
	LangID       uint8

	Module, Class, Action string

	// ViewData accumulates values a controller wants a template to render.
	ViewData map[string]cacheval.Entry

	// Loader re-enters the pipeline's dispatch for a sub-controller call
	// marked internal, set by internal/pipeline before a handler runs.
	// Left nil, Load answers AnswerNone — only a full pipeline dispatch
	// wires a real loader.
	Loader Loader
}

// Loader dispatches (module, class, action, params) as an internal
// sub-request, re-running authorization and controller dispatch against
// the same Context (same session, same shared ViewData), grounded on
// original_source/src/app/action.rs's Action::load calling
// start_route(..., true).
type Loader func(module, class, action, params string) Answer

// New builds an empty, ready-to-use Context.
func New(ctx context.Context) *Context {
	return &Context{Ctx: ctx, ViewData: make(map[string]cacheval.Entry)}
}

// Load re-enters the pipeline for module/class/action marked internal —
// the composable partial-render path a controller uses to pull in a
// sub-view (e.g. a shared page header/footer) without letting an external
// request reach that sub-view directly (spec.md §4.6 step 6).
func (c *Context) Load(module, class, action, params string) Answer {
	if c.Loader == nil {
		return NoneAnswer()
	}
	return c.Loader(module, class, action, params)
}

// T translates key for Module/Class under the context's current language,
// falling back to the raw key (HTML-escaped either way), matching
// original_source/src/app/lang.rs's Lang::get.
func (c *Context) T(key string) string {
	text, _ := c.Translations.Get(c.LangID, c.Module, c.Class, key)
	return htmlesc.Escape(text)
}

// Set stores a value the view will read back by key.
func (c *Context) Set(key string, v cacheval.Entry) {
	c.ViewData[key] = v
}

// Render looks up and renders module/class/name against ViewData.
func (c *Context) Render(module, class, name string) (string, bool) {
	tpl, ok := c.Templates.Get(module, class, name)
	if !ok {
		return "", false
	}
	return template.Render(tpl, c.ViewData), true
}

// LangVector builds the view-only lang_vector entry for the currently
// enabled languages, selecting c.LangID (original_source's
// Lang::get_lang_view / Data::VecLang).
func (c *Context) LangVector() cacheval.Entry {
	langs := c.Translations.Ordered()
	items := make([]cacheval.LangItem, len(langs))
	for i, l := range langs {
		items[i] = cacheval.LangItem{LangID: l.ID, ISOCode: l.ISOCode, NativeName: l.NativeName, DisplayName: l.DisplayName}
	}
	return cacheval.LangVectorValue(c.LangID, items)
}
