package modelnorm

import "strings"

// Canonicalize renders a normalized tree to a stable textual form: ordering
// of repeated elements follows declaration order (no sorting), and every run
// produces byte-identical output for semantically equal trees.
func Canonicalize(root *Node) string {
	var b strings.Builder
	writeNode(&b, root)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString("=\"")
		b.WriteString(a.Value)
		b.WriteByte('"')
	}
	if n.Text == "" && len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	b.WriteString(n.Text)
	for _, c := range n.Children {
		writeNode(b, c)
	}
	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteByte('>')
}
