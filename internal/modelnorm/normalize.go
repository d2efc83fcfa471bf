package modelnorm

import "strings"

// osClassifierPlaceholder replaces a platform-name token so the same
// effective model hashes identically regardless of the OS it was resolved on.
const osClassifierPlaceholder = "os.classifier"

var platformTokens = map[string]struct{}{
	"windows": {},
	"linux":   {},
}

// Normalize returns a copy of root with the required rewrites applied
// throughout every Attr value and Text node: the project's absolute base
// directory is blanked out, OS path separators are forced to '/', and
// platform-name tokens collapse to a single placeholder.
func Normalize(root *Node, baseDir string) *Node {
	out := root.Clone()
	walk(out, baseDir)
	return out
}

func walk(n *Node, baseDir string) {
	if n == nil {
		return
	}
	n.Text = rewrite(n.Text, baseDir)
	for i := range n.Attrs {
		n.Attrs[i].Value = rewrite(n.Attrs[i].Value, baseDir)
	}
	for _, c := range n.Children {
		walk(c, baseDir)
	}
}

func rewrite(value, baseDir string) string {
	if value == "" {
		return value
	}

	if baseDir != "" {
		value = strings.ReplaceAll(value, baseDir, "")
	}

	value = strings.ReplaceAll(value, `\`, "/")

	if _, ok := platformTokens[strings.ToLower(value)]; ok {
		return osClassifierPlaceholder
	}

	return value
}
