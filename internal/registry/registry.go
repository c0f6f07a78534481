// Package registry is the (module, class, action) keyed controller table,
// grounded on sandrolain-events-bridge/src/targets/targets.go's registry
// pattern (a name-keyed map of constructors/handlers built once at startup
// and never mutated afterward), generalized here from plugin targets to web
// controller actions.
package registry

import (
	"fmt"
	"strings"

	"github.com/tryteex/fcgiapp/internal/appctx"
	"github.com/tryteex/fcgiapp/internal/cacheval"
)

// Handler runs one controller action. params is the route's raw params
// string (unparsed — a controller decides its own parameter shape);
// shared is the same view-data map across every internal sub-load of one
// request (original_source's `&mut HashMap<String, Data>` threaded through
// every action.rs call); internal is true when this call is a sub-render
// reached via Context.Load rather than the top-level route dispatch —
// handlers that only make sense as an inclusion (a page header/footer)
// must redirect to not-found when called with internal == false (spec.md
// §4.6 step 6).
type Handler func(c *appctx.Context, params string, shared map[string]cacheval.Entry, internal bool) appctx.Answer

// Registry is immutable after Register calls finish at startup (spec.md
// §4.6: controller dispatch never mutates the table at request time).
type Registry struct {
	handlers map[string]Handler
}

func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func key(module, class, action string) string {
	return strings.Join([]string{module, class, action}, "/")
}

// Register adds a handler, panicking on a duplicate key — a programming
// error caught at startup, never at request time.
func (r *Registry) Register(module, class, action string, h Handler) {
	k := key(module, class, action)
	if _, exists := r.handlers[k]; exists {
		panic(fmt.Sprintf("registry: duplicate handler for %s", k))
	}
	r.handlers[k] = h
}

// Lookup resolves a handler for module/class/action.
func (r *Registry) Lookup(module, class, action string) (Handler, bool) {
	h, ok := r.handlers[key(module, class, action)]
	return h, ok
}
