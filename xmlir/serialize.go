package xmlir

import (
	"bytes"
	"io"
	"strings"
)

// Serialize renders the tree rooted at n back to XML bytes. A preserved
// <?xml ...?> declaration is emitted first. Elements without children are
// written self-closed, matching how word processors emit OOXML parts.
func Serialize(n *Node) []byte {
	var b bytes.Buffer
	if n.XMLDecl != "" {
		b.WriteString(n.XMLDecl)
		b.WriteByte('\n')
	}
	writeNode(&b, n)
	return b.Bytes()
}

// WriteTo serializes the tree to w.
func (n *Node) WriteTo(w io.Writer) (int64, error) {
	m, err := w.Write(Serialize(n))
	return int64(m), err
}

// XML renders the node itself as markup, without any XML declaration.
func (n *Node) XML() string {
	var b bytes.Buffer
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *bytes.Buffer, n *Node) {
	switch n.Type {
	case ElementType:
		b.WriteByte('<')
		b.WriteString(n.Name.String())
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Name.String())
			b.WriteString(`="`)
			b.WriteString(escapeAttr(a.Value))
			b.WriteByte('"')
		}
		if len(n.Children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			writeNode(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Name.String())
		b.WriteByte('>')
	case TextType:
		b.WriteString(escapeText(n.Data))
	case CommentType:
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->")
	case ProcInstType:
		b.WriteString("<?")
		b.WriteString(n.Name.Local)
		if n.Data != "" {
			b.WriteByte(' ')
			b.WriteString(n.Data)
		}
		b.WriteString("?>")
	case DirectiveType:
		b.WriteString("<!")
		b.WriteString(n.Data)
		b.WriteByte('>')
	}
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"\t", "&#x9;",
	"\n", "&#xA;",
	"\r", "&#xD;",
)

func escapeText(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
