// Package blocks renders tree-shaped block items (wiki page content)
// into markdown using a closed mapping from block type to markdown
// construct. Traversal is depth-bounded so pathological nesting cannot
// grow the stack without limit.
package blocks

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// MaxDepth bounds block nesting. Blocks deeper than this are dropped.
const MaxDepth = 32

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser renders typed block trees into markdown.
type Normaliser struct {
	heading string
}

// New creates a block-tree normaliser. heading is the container noun
// used in the top-level title, e.g. "Notion Page".
func New(heading string) *Normaliser {
	return &Normaliser{heading: heading}
}

// Render produces the markdown body for one page's blocks.
func (n *Normaliser) Render(containerName string, items []driven.RawItem) (string, int) {
	if len(items) == 0 {
		return "", 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", n.heading, containerName)

	count := 0
	for _, item := range items {
		if len(item.Blocks) == 0 {
			continue
		}
		renderBlocks(&b, item.Blocks, 0)
		count++
	}

	if count == 0 {
		return "", 0
	}
	return b.String(), count
}

// renderBlocks writes blocks at the given nesting level. Indentation
// increases by one level per depth; levels past MaxDepth are dropped.
func renderBlocks(b *strings.Builder, blks []driven.Block, level int) {
	if level >= MaxDepth {
		return
	}

	indent := strings.Repeat("  ", level)
	for _, blk := range blks {
		writeBlock(b, blk, indent)
		if len(blk.Children) > 0 {
			renderBlocks(b, blk.Children, level+1)
		}
	}
}

// writeBlock maps one block type to its markdown construct.
// Unrecognized types fall back to raw text content if present,
// otherwise the block is dropped silently.
func writeBlock(b *strings.Builder, blk driven.Block, indent string) {
	switch blk.Type {
	case "paragraph", "text":
		fmt.Fprintf(b, "%s%s\n\n", indent, blk.Content)
	case "heading_1", "header":
		fmt.Fprintf(b, "%s# %s\n\n", indent, blk.Content)
	case "heading_2":
		fmt.Fprintf(b, "%s## %s\n\n", indent, blk.Content)
	case "heading_3":
		fmt.Fprintf(b, "%s### %s\n\n", indent, blk.Content)
	case "bulleted_list_item":
		fmt.Fprintf(b, "%s* %s\n", indent, blk.Content)
	case "numbered_list_item":
		fmt.Fprintf(b, "%s1. %s\n", indent, blk.Content)
	case "to_do":
		fmt.Fprintf(b, "%s- [ ] %s\n", indent, blk.Content)
	case "toggle":
		fmt.Fprintf(b, "%s> %s\n", indent, blk.Content)
	case "code":
		fmt.Fprintf(b, "%s```\n%s\n```\n\n", indent, blk.Content)
	case "quote":
		fmt.Fprintf(b, "%s> %s\n\n", indent, blk.Content)
	case "callout":
		fmt.Fprintf(b, "%s> **Note:** %s\n\n", indent, blk.Content)
	case "image":
		fmt.Fprintf(b, "%s![Image](%s)\n\n", indent, blk.Content)
	default:
		if blk.Content != "" {
			fmt.Fprintf(b, "%s%s\n\n", indent, blk.Content)
		}
	}
}
