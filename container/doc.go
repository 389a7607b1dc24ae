// Package container reads and writes OOXML packages: zip archives of
// XML parts plus relationship and content-type bookkeeping. A Doc keeps
// the original archive in memory and stages part replacements, so an
// edit-save cycle touches only the parts that changed.
package container
