package xmlir

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Type discriminates the kinds of nodes in an XML part tree.
type Type int

const (
	ElementType Type = iota
	TextType
	CommentType
	ProcInstType
	DirectiveType
)

func (t Type) String() string {
	switch t {
	case ElementType:
		return "element"
	case TextType:
		return "text"
	case CommentType:
		return "comment"
	case ProcInstType:
		return "procinst"
	case DirectiveType:
		return "directive"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// Name is a prefixed XML name. URI is the namespace the prefix resolved to
// at parse time, or "" when no declaration was in scope. Unprefixed
// attribute names never carry a URI; unprefixed element names carry the
// default namespace URI when one is declared.
type Name struct {
	Prefix string
	Local  string
	URI    string
}

// String returns the name as written, e.g. "w:t".
func (n Name) String() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// ParseName splits a "prefix:local" string. No validation beyond the colon
// split; a name with more than one colon is an error.
func ParseName(s string) (Name, error) {
	i := strings.IndexByte(s, ':')
	if i == -1 {
		return Name{Local: s}, nil
	}
	if strings.IndexByte(s[i+1:], ':') != -1 {
		return Name{}, fmt.Errorf("invalid name %q: more than one colon", s)
	}
	return Name{Prefix: s[:i], Local: s[i+1:]}, nil
}

type Attr struct {
	Name  Name
	Value string
}

// Node is one node of a parsed XML part. Element nodes have a Name, Attrs
// and Children; text, comment, directive and processing-instruction nodes
// hold their content in Data (ProcInst target sits in Name.Local).
//
// Parent and ParentIndex are maintained by the mutation helpers; code that
// rewires Children directly must fix them up itself.
type Node struct {
	Type        Type
	Parent      *Node
	ParentIndex int

	Name     Name
	Attrs    []Attr
	Children []*Node

	Data string

	// XMLDecl preserves the document's <?xml ...?> declaration verbatim on
	// the root element so container round-trips keep it.
	XMLDecl string

	docID uint64
}

var docIDs atomic.Uint64

// DocID returns a process-unique identity for the tree this node belongs
// to. The id is issued lazily on the root and is stable for the lifetime of
// the tree; clones get a fresh id. Trees are single-owner during patching,
// so lazy assignment does not race.
func (n *Node) DocID() uint64 {
	r := n.Root()
	if r.docID == 0 {
		r.docID = docIDs.Add(1)
	}
	return r.docID
}

// Root walks Parent links to the top of the tree.
func (n *Node) Root() *Node {
	res := n
	for res.Parent != nil {
		res = res.Parent
	}
	return res
}

// NewElement returns an element node named by a "prefix:local" string.
// It panics on a malformed name; use ParseName for untrusted input.
func NewElement(name string) *Node {
	nm, err := ParseName(name)
	if err != nil {
		panic("xmlir: " + err.Error())
	}
	return &Node{Type: ElementType, Name: nm}
}

// NewText returns a text node.
func NewText(data string) *Node {
	return &Node{Type: TextType, Data: data}
}

// Append adds child at the end of n's children.
func (n *Node) Append(child *Node) {
	child.Parent = n
	child.ParentIndex = len(n.Children)
	n.Children = append(n.Children, child)
}

// InsertChild inserts child at index i, shifting later siblings.
// i is clamped to [0, len(Children)].
func (n *Node) InsertChild(i int, child *Node) {
	if i < 0 {
		i = 0
	}
	if i > len(n.Children) {
		i = len(n.Children)
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
	child.Parent = n
	for j := i; j < len(n.Children); j++ {
		n.Children[j].ParentIndex = j
	}
}

// RemoveChild removes the child at index i.
func (n *Node) RemoveChild(i int) {
	if i < 0 || i >= len(n.Children) {
		return
	}
	n.Children[i].Parent = nil
	copy(n.Children[i:], n.Children[i+1:])
	n.Children = n.Children[:len(n.Children)-1]
	for j := i; j < len(n.Children); j++ {
		n.Children[j].ParentIndex = j
	}
}

// Text concatenates the direct text children of an element.
func (n *Node) Text() string {
	var b strings.Builder
	for _, c := range n.Children {
		if c.Type == TextType {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// SetText removes all direct text children and installs a single text node
// with the given content as the first child (after none remain). Element
// children are preserved in order.
func (n *Node) SetText(s string) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if c.Type == TextType {
			c.Parent = nil
			continue
		}
		kept = append(kept, c)
	}
	n.Children = kept
	t := NewText(s)
	n.InsertChild(0, t)
}

// AttrValue returns the value of the named attribute and whether it exists.
// Prefixed lookups compare by URI when both sides resolved, otherwise by
// prefix string.
func (n *Node) AttrValue(name Name) (string, bool) {
	if i := n.attrIndex(name); i >= 0 {
		return n.Attrs[i].Value, true
	}
	return "", false
}

// SetAttr sets or replaces the named attribute, returning true when the
// attribute already existed.
func (n *Node) SetAttr(name Name, value string) bool {
	if i := n.attrIndex(name); i >= 0 {
		n.Attrs[i].Value = value
		return true
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return false
}

func (n *Node) attrIndex(name Name) int {
	for i := range n.Attrs {
		a := &n.Attrs[i]
		if a.Name.Local != name.Local {
			continue
		}
		if name.URI != "" && a.Name.URI != "" {
			if a.Name.URI == name.URI {
				return i
			}
			continue
		}
		if a.Name.Prefix == name.Prefix {
			return i
		}
	}
	return -1
}

// Declarations returns the xmlns declarations written on this element:
// prefix -> URI, with "" as the default-namespace key.
func (n *Node) Declarations() map[string]string {
	var res map[string]string
	for i := range n.Attrs {
		a := &n.Attrs[i]
		prefix, ok := declPrefix(a.Name)
		if !ok {
			continue
		}
		if res == nil {
			res = map[string]string{}
		}
		res[prefix] = a.Value
	}
	return res
}

// declPrefix reports whether an attribute name is an xmlns declaration and
// the prefix it declares ("" for the default namespace).
func declPrefix(n Name) (string, bool) {
	if n.Prefix == "xmlns" {
		return n.Local, true
	}
	if n.Prefix == "" && n.Local == "xmlns" {
		return "", true
	}
	return "", false
}

// ScopeNamespaces collects the namespace declarations in scope at n,
// nearest declaration winning.
func (n *Node) ScopeNamespaces() map[string]string {
	res := map[string]string{}
	var chain []*Node
	for x := n; x != nil; x = x.Parent {
		chain = append(chain, x)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for prefix, uri := range chain[i].Declarations() {
			res[prefix] = uri
		}
	}
	return res
}

// DeclaredNamespaces walks the whole tree under n and returns every
// prefix -> URI declaration, first declaration winning. This is the
// "document declared" namespace map the targeting resolver starts from.
func (n *Node) DeclaredNamespaces() map[string]string {
	res := map[string]string{}
	n.Visit(func(x *Node, post bool) (bool, error) {
		if post || x.Type != ElementType {
			return true, nil
		}
		for prefix, uri := range x.Declarations() {
			if _, ok := res[prefix]; !ok {
				res[prefix] = uri
			}
		}
		return true, nil
	})
	return res
}

// Clone deep-copies the tree under n. The copy has no parent and receives
// its own document identity on first use.
func (n *Node) Clone() *Node {
	res := &Node{}
	n.cloneTo(res)
	return res
}

func (n *Node) cloneTo(dst *Node) {
	dst.Type = n.Type
	dst.Name = n.Name
	dst.Data = n.Data
	dst.XMLDecl = n.XMLDecl
	if n.Attrs != nil {
		dst.Attrs = make([]Attr, len(n.Attrs))
		copy(dst.Attrs, n.Attrs)
	}
	if n.Children != nil {
		dst.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cc := &Node{}
			c.cloneTo(cc)
			cc.Parent = dst
			cc.ParentIndex = i
			dst.Children[i] = cc
		}
	}
}

// Visit walks the tree in document order, calling f before (isPost=false)
// and after (isPost=true) each node's children. Returning false from the
// pre call skips the children.
func (n *Node) Visit(f func(n *Node, isPost bool) (bool, error)) error {
	dive, err := f(n, false)
	if err != nil {
		return err
	}
	if dive {
		for _, c := range n.Children {
			if err := c.Visit(f); err != nil {
				return err
			}
		}
	}
	if _, err := f(n, true); err != nil {
		return err
	}
	return nil
}

// Elements returns the element children of n.
func (n *Node) Elements() []*Node {
	res := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Type == ElementType {
			res = append(res, c)
		}
	}
	return res
}

// Path returns a positional path like /w:document/w:body/w:p[2] for
// debugging and diagnostics.
func (n *Node) Path() string {
	if n.Parent == nil {
		if n.Type != ElementType {
			return "/" + n.Type.String() + "()"
		}
		return "/" + n.Name.String()
	}
	seg := ""
	switch n.Type {
	case ElementType:
		nth := 0
		for _, sib := range n.Parent.Children {
			if sib == n {
				break
			}
			if sib.Type == ElementType && sib.Name == n.Name {
				nth++
			}
		}
		seg = n.Name.String()
		if nth > 0 {
			seg = fmt.Sprintf("%s[%d]", seg, nth+1)
		}
	default:
		seg = n.Type.String() + "()"
	}
	return n.Parent.Path() + "/" + seg
}
