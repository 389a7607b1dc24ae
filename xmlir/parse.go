package xmlir

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// XMLNamespaceURI is the namespace bound to the reserved "xml" prefix.
const XMLNamespaceURI = "http://www.w3.org/XML/1998/namespace"

// Parse reads one XML part into a tree. The returned node is the root
// element; an <?xml ...?> declaration is preserved on it verbatim. Parsing
// uses raw tokens so prefixes survive exactly as written; namespace URIs
// are resolved from the declarations in scope and recorded per name.
func Parse(data []byte) (*Node, error) {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader is Parse reading from r.
func ParseReader(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var (
		root   *Node
		cur    *Node
		decl   string
		scopes = []map[string]string{{"xml": XMLNamespaceURI}}
	)
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(dec, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if cur == nil && root != nil {
				return nil, parseErrorf(dec, "multiple root elements")
			}
			n := &Node{Type: ElementType}
			n.Name = Name{Prefix: t.Name.Space, Local: t.Name.Local}
			scope := scopes[len(scopes)-1]
			var decls map[string]string
			for _, a := range t.Attr {
				an := Name{Prefix: a.Name.Space, Local: a.Name.Local}
				if prefix, ok := declPrefix(an); ok {
					if decls == nil {
						decls = map[string]string{}
					}
					decls[prefix] = a.Value
				}
				n.Attrs = append(n.Attrs, Attr{Name: an, Value: a.Value})
			}
			if decls != nil {
				next := make(map[string]string, len(scope)+len(decls))
				for k, v := range scope {
					next[k] = v
				}
				for k, v := range decls {
					next[k] = v
				}
				scope = next
			}
			scopes = append(scopes, scope)
			resolveNames(n, scope)
			if cur == nil {
				root = n
				root.XMLDecl = decl
			} else {
				cur.Append(n)
			}
			cur = n
		case xml.EndElement:
			if cur == nil {
				return nil, parseErrorf(dec, "unexpected end element </%s>", rawName(t.Name))
			}
			if cur.Name.Prefix != t.Name.Space || cur.Name.Local != t.Name.Local {
				return nil, parseErrorf(dec, "element <%s> closed by </%s>", cur.Name, rawName(t.Name))
			}
			scopes = scopes[:len(scopes)-1]
			cur = cur.Parent
		case xml.CharData:
			if cur == nil {
				if len(bytes.TrimSpace(t)) != 0 {
					return nil, parseErrorf(dec, "text outside root element")
				}
				continue
			}
			cur.Append(NewText(string(t)))
		case xml.Comment:
			if cur == nil {
				continue
			}
			cur.Append(&Node{Type: CommentType, Data: string(t)})
		case xml.ProcInst:
			if cur == nil {
				if t.Target == "xml" && root == nil {
					decl = "<?xml " + string(t.Inst) + "?>"
				}
				continue
			}
			cur.Append(&Node{Type: ProcInstType, Name: Name{Local: t.Target}, Data: string(t.Inst)})
		case xml.Directive:
			if cur == nil {
				continue
			}
			cur.Append(&Node{Type: DirectiveType, Data: string(t)})
		}
	}
	if root == nil {
		return nil, &ParseError{Err: errors.New("no root element")}
	}
	if cur != nil {
		return nil, &ParseError{Err: errors.New("unexpected EOF: unclosed element " + cur.Name.String())}
	}
	return root, nil
}

// resolveNames fills URI on the element name and its prefixed attributes
// from the scope. Unprefixed attributes stay namespace-free; unprefixed
// element names pick up the default namespace when declared.
func resolveNames(n *Node, scope map[string]string) {
	if n.Name.Prefix != "" {
		n.Name.URI = scope[n.Name.Prefix]
	} else {
		n.Name.URI = scope[""]
	}
	for i := range n.Attrs {
		a := &n.Attrs[i]
		if a.Name.Prefix == "" || a.Name.Prefix == "xmlns" {
			continue
		}
		a.Name.URI = scope[a.Name.Prefix]
	}
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func parseError(dec *xml.Decoder, err error) error {
	pe := &ParseError{Offset: dec.InputOffset(), Err: err}
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		pe.Line = se.Line
	}
	return pe
}

func parseErrorf(dec *xml.Decoder, format string, args ...any) error {
	return parseError(dec, fmt.Errorf(format, args...))
}
