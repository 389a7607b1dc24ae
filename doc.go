// Package oxpatch applies declarative patch operations to parsed OOXML
// document parts.
//
// A Processor takes a parsed XML tree and an ordered list of operations
// (set, insert, extend, merge, relationship_add) and returns one result
// per operation, in submission order. Failed operations are classified
// and, depending on the configured recovery strategy, retried through
// targeted fallbacks before being reported. An optimizer caches
// successful results and compiled target paths across runs.
//
//	doc, err := xmlir.Parse(part)
//	...
//	p := oxpatch.New(nil)
//	results, err := p.Process(doc, ops, nil)
//
// Construction of operations from wire descriptors lives in patchop,
// target selection in xmlir/epath, namespace bookkeeping in xmlns.
package oxpatch
