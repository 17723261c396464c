// Package chat renders flat message-style items into a markdown
// document, one section per message carrying author and timestamp.
package chat

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// TimestampLayout is how message timestamps appear in section headers.
const TimestampLayout = "2006-01-02 15:04:05"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser concatenates messages chronologically into markdown.
type Normaliser struct {
	heading string
}

// New creates a chat normaliser. heading is the container noun used in
// the top-level title, e.g. "Slack Channel" or "Linear Issue".
func New(heading string) *Normaliser {
	return &Normaliser{heading: heading}
}

// Render produces the markdown body for one container's messages.
// Items are assumed to arrive in chronological order from the client.
func (n *Normaliser) Render(containerName string, items []driven.RawItem) (string, int) {
	if len(items) == 0 {
		return "", 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", n.heading, containerName)

	count := 0
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}

		author := item.Author
		if author == "" {
			author = "Unknown"
		}

		fmt.Fprintf(&b, "## %s (%s)\n\n%s\n\n---\n\n",
			author, item.Timestamp.Format(TimestampLayout), item.Text)
		count++
	}

	if count == 0 {
		return "", 0
	}
	return b.String(), count
}
