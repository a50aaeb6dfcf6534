package content

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// Runs of anything other than word characters and lowercase Cyrillic letters.
var slugSeparators = regexp.MustCompile(`[^\wа-яё]+`)

// HeadingID derives the anchor id of a heading from its text. The result is
// stable: anchors shared in links keep working across renders.
func HeadingID(text string) string {
	return strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(text), "-"), "-")
}

// flattenText concatenates the text of n and all its descendants.
func flattenText(n ast.Node, source []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}
