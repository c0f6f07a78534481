// Package controllers holds the built-in controller actions exercised by
// spec.md §8's test scenarios, registered into internal/registry at
// startup. Grounded on original_source's app/index/index/mod.rs and
// app/admin/index.rs shape: load a translation scope, set view data,
// render a view — including index/head/foot's composable partial-render
// dance via Context.Load (spec.md §4.6 step 6).
package controllers

import (
	"github.com/tryteex/fcgiapp/internal/appctx"
	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/registry"
)

// Register wires every built-in controller action into reg.
func Register(reg *registry.Registry) {
	reg.Register("index", "index", "index", IndexIndex)
	reg.Register("index", "index", "head", IndexHead)
	reg.Register("index", "index", "foot", IndexFoot)
	reg.Register("index", "index", "not_found", IndexNotFound)
	reg.Register("user", "admin", "index", UserAdminIndex)
}

// IndexIndex renders the home page, pulling in the shared head/foot
// sub-views via an internal load, matching original_source's App::index
// inserting the loaded Answer into data["head"]/data["foot"] before
// calling View::out.
func IndexIndex(c *appctx.Context, params string, shared map[string]cacheval.Entry, internal bool) appctx.Answer {
	c.Set("title", cacheval.String(c.T("title")))
	c.Set("langs", c.LangVector())
	shared["head"] = c.Load("index", "index", "head", "").Entry()
	shared["foot"] = c.Load("index", "index", "foot", "").Entry()

	body, ok := c.Render("index", "index", "index")
	if !ok {
		return appctx.NoneAnswer()
	}
	return appctx.StringAnswer(body)
}

// IndexHead renders the shared page header. It only makes sense as an
// inclusion: reached directly (internal == false) it permanently redirects
// to not_found instead, matching original_source's App::head.
func IndexHead(c *appctx.Context, params string, shared map[string]cacheval.Entry, internal bool) appctx.Answer {
	if !internal {
		c.Response.SetRedirect("/index/index/not_found", true)
		return appctx.NoneAnswer()
	}
	body, ok := c.Render("index", "index", "head")
	if !ok {
		return appctx.NoneAnswer()
	}
	return appctx.StringAnswer(body)
}

// IndexFoot renders the shared page footer, the counterpart to IndexHead.
func IndexFoot(c *appctx.Context, params string, shared map[string]cacheval.Entry, internal bool) appctx.Answer {
	if !internal {
		c.Response.SetRedirect("/index/index/not_found", true)
		return appctx.NoneAnswer()
	}
	body, ok := c.Render("index", "index", "foot")
	if !ok {
		return appctx.NoneAnswer()
	}
	return appctx.StringAnswer(body)
}

// IndexNotFound is the page internal/pipeline redirects to when a route is
// denied by authorization or names no registered controller
// (pipeline.NotFoundRedirect). An ajax request gets no body at all,
// matching original_source's App::not_found.
func IndexNotFound(c *appctx.Context, params string, shared map[string]cacheval.Entry, internal bool) appctx.Answer {
	if c.Request.Ajax {
		return appctx.NoneAnswer()
	}

	c.Response.SetHeaderCode(404)
	c.Set("message", cacheval.String(c.T("not_found")))
	shared["head"] = c.Load("index", "index", "head", "").Entry()
	shared["foot"] = c.Load("index", "index", "foot", "").Entry()

	body, ok := c.Render("index", "index", "not_found")
	if !ok {
		body = "404 Not Found"
	}
	return appctx.StringAnswer(body)
}

// UserAdminIndex is a simple authenticated-area controller, reachable only
// once internal/pipeline's authorization step grants access.
func UserAdminIndex(c *appctx.Context, params string, shared map[string]cacheval.Entry, internal bool) appctx.Answer {
	c.Set("user_id", cacheval.I64(c.Session.UserID))

	body, ok := c.Render("user", "admin", "index")
	if !ok {
		return appctx.StringAnswer(c.T("title"))
	}
	return appctx.StringAnswer(body)
}
