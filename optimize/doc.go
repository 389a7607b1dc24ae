// Package optimize speeds up repeated patch work without changing what
// a run reports: a TTL-and-capacity-bounded cache of successful results
// keyed by (kind, target, payload hash, document identity), a
// process-lifetime cache of compiled path expressions, cost-based
// execution ordering, and batch grouping for shared targets. Reordering
// and batching affect execution only; results always come back in
// submission order.
package optimize
