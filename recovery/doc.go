// Package recovery classifies patch failures and, depending on the
// configured strategy, retries them through targeted fallbacks.
//
// # Strategies
//
// FailFast and SkipFailed only grade the failure. RetryWithFallback
// runs the one fallback keyed by the failure's category. BestEffort
// sweeps every applicable fallback in a fixed order and guarantees the
// run continues whatever happens.
//
// # Fallbacks
//
// Each fallback produces an adjusted copy of the failed operation and
// re-executes it: unresolved prefixes are rebound from the well-known
// OOXML registry, fragments are reparsed with repaired declarations,
// lookups retry a suggested target, wrong-shaped values are coerced to
// text, and paths are rematched by local name alone. An operation
// rescued this way reports success at Warning severity with the
// fallback recorded on its result.
package recovery
