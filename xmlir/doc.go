// Package xmlir holds the in-memory form of an XML part.
//
// # Structure
//
// A document is a tree of *Node values. Every node knows its Parent and
// its index within the parent, so edits can splice siblings without
// re-walking the tree. Element names keep all three pieces of an XML
// name: the prefix as written, the local part, and the namespace URI the
// prefix resolved to at parse time. Serialization writes the prefix back
// out, so a patched part keeps the exact prefixes of the original.
//
// # Parsing
//
// Parse works from raw tokens rather than the cooked token stream, which
// is what preserves prefixes. Namespace scopes are tracked by hand during
// the walk and each name gets its URI recorded as it is built. The
// <?xml ...?> declaration, when present, is kept on the root node and
// re-emitted by Serialize.
//
// # Fragments
//
// ParseFragment turns loose markup into nodes for grafting into a
// document. It resolves prefixes against a caller-supplied table plus
// the fragment's own declarations, and fails with a *FragmentError that
// names any prefix it could not resolve.
package xmlir
