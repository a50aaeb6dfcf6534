package content

import (
	"fmt"
	"strings"
)

// Placeholder builds the document shown when a lab has no readable markdown.
// The same title and description always give the same document.
func Placeholder(title, shortDesc string) []byte {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled lab"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if desc := strings.TrimSpace(shortDesc); desc != "" {
		fmt.Fprintf(&b, "%s\n\n", desc)
	}
	b.WriteString("## Overview\n\n")
	b.WriteString("The full content of this lab is not available yet. Check back later.\n")
	return []byte(b.String())
}
