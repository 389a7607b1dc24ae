// Package patchop defines the operation model: what a patch instruction
// is, what payloads it can carry, and what comes back per instruction.
//
// Operations arrive as Descriptors (decoded JSON or YAML), get validated
// by FromDescriptor, and run as Operations. Five kinds exist:
//
//   - set: write element text, an attribute value, or replace children
//   - insert: graft a markup fragment at a position relative to the target
//   - extend: append list items or merge mapping keys into the target
//   - merge: combine the payload with existing content, update or append
//   - relationship_add: add an entry to a package relationships part
//
// The enums here all round-trip through their text forms, so results and
// stored runs serialize the way patch files are written.
package patchop
