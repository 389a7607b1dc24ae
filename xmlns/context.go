// Package xmlns tracks namespace prefix bindings for one patching session
// and carries the canonical OOXML namespace tables.
package xmlns

import (
	"fmt"
	"sort"
	"sync"
)

// Context owns the prefix -> URI bindings for one patching session. It is
// built from the document's own declarations, then operations register
// their overrides into it. Re-binding a prefix to a different URI never
// displaces the original: the new URI goes under a deterministic alias
// ("w" -> "w#2", "w#3", ...) and both stay resolvable. A processor may
// share one Context across documents on several goroutines.
type Context struct {
	mu       sync.Mutex
	bindings map[string]string
	order    []string

	collisions []Collision

	registrations int
	collisionN    int
	migrations    int
}

// Collision records one aliased registration.
type Collision struct {
	Prefix   string `json:"prefix"`
	Alias    string `json:"alias"`
	URI      string `json:"uri"`
	Existing string `json:"existing"`
}

// Stats is a point-in-time snapshot of the context's counters.
type Stats struct {
	Registrations int `json:"registrations"`
	Collisions    int `json:"collisions"`
	Migrations    int `json:"migrations"`
}

func NewContext() *Context {
	return &Context{bindings: map[string]string{}}
}

// Register binds prefix to uri and returns the prefix the binding ended up
// under. Binding a prefix that already holds a different URI assigns the
// smallest free alias instead and records the collision; registering the
// same pair again returns the same answer without a new collision.
func (c *Context) Register(prefix, uri string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.register(prefix, uri)
}

func (c *Context) register(prefix, uri string) string {
	c.registrations++
	existing, bound := c.bindings[prefix]
	if !bound {
		c.bind(prefix, uri)
		return prefix
	}
	if existing == uri {
		return prefix
	}
	for n := 2; ; n++ {
		alias := fmt.Sprintf("%s#%d", prefix, n)
		if aliasURI, ok := c.bindings[alias]; ok {
			if aliasURI == uri {
				return alias
			}
			continue
		}
		c.bind(alias, uri)
		c.collisionN++
		c.collisions = append(c.collisions, Collision{
			Prefix:   prefix,
			Alias:    alias,
			URI:      uri,
			Existing: existing,
		})
		return alias
	}
}

// RegisterAll registers a prefix map in sorted-prefix order, so alias
// assignment is deterministic regardless of map iteration.
func (c *Context) RegisterAll(ns map[string]string) {
	prefixes := make([]string, 0, len(ns))
	for p := range ns {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range prefixes {
		c.register(p, ns[p])
	}
}

func (c *Context) bind(prefix, uri string) {
	c.bindings[prefix] = uri
	c.order = append(c.order, prefix)
}

// Lookup resolves a prefix against the session bindings only. The "xml"
// prefix is always bound.
func (c *Context) Lookup(prefix string) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	uri, ok := c.bindings[prefix]
	return uri, ok
}

// Bindings returns a copy of the current bindings, aliases included.
func (c *Context) Bindings() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make(map[string]string, len(c.bindings))
	for p, uri := range c.bindings {
		res[p] = uri
	}
	return res
}

// Prefixes returns the bound prefixes in registration order.
func (c *Context) Prefixes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// Collisions returns the aliased registrations in the order they happened.
func (c *Context) Collisions() []Collision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Collision(nil), c.collisions...)
}

func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Registrations: c.registrations,
		Collisions:    c.collisionN,
		Migrations:    c.migrations,
	}
}

// ResetStats zeroes the counters. Bindings, aliases and the collision
// history survive; they describe state, not activity.
func (c *Context) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations = 0
	c.collisionN = 0
	c.migrations = 0
}

// ResolveError reports a path prefix with no binding in the operation
// overrides, the session context, or the Known table.
type ResolveError struct {
	Prefix string
	Target string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("namespace prefix %q is not declared (target %s)", e.Prefix, e.Target)
}
