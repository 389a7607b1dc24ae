// Package patchset loads patch set documents: YAML files carrying a
// batch of patch descriptors together with namespace bindings and
// interpolation tokens.
//
// A minimal document:
//
//	version: 1
//	kind: docx
//	namespaces:
//	  w: http://schemas.openxmlformats.org/wordprocessingml/2006/main
//	tokens:
//	  author: Jane
//	patches:
//	  - kind: set
//	    target: //w:t
//	    value: Reviewed by $[author]
//
// Load, Expand, Compile is the usual pipeline: expansion evaluates
// $[...] expressions against the tokens and the process environment,
// and compilation validates every descriptor into executable
// operations. Overlay files, RFC 6902 patches against the JSON form of
// the set, specialize a base set without copying it.
package patchset
