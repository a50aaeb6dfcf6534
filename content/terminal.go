package content

import (
	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
)

// TerminalRenderer renders markdown for a terminal.
type TerminalRenderer struct {
	r *glamour.TermRenderer
}

// NewTerminalRenderer wraps at width columns. An empty style picks a dark or
// light style from the terminal background; "notty" gives plain output.
func NewTerminalRenderer(style string, width int) (*TerminalRenderer, error) {
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStylePath(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, errors.Wrap(err, "[NewTerminalRenderer]")
	}
	return &TerminalRenderer{r: r}, nil
}

func (t *TerminalRenderer) Render(markdown []byte) (string, error) {
	out, err := t.r.Render(string(markdown))
	if err != nil {
		return "", errors.Wrap(err, "[TerminalRenderer.Render]")
	}
	return out, nil
}
