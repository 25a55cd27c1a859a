package doctree

import "strings"

// DocTree is the root of an extracted document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page/line (0 if N/A)
	Children []*DocNode // Subsections
}

// Text flattens the tree into newline-separated lines in document order:
// each heading on its own line, followed by its text and its subsections.
// The tree title is metadata and is not part of the output.
func (t *DocTree) Text() string {
	var sb strings.Builder
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			writeLine(&sb, n.Title)
			writeLine(&sb, n.Text)
			walk(n.Children)
		}
	}
	walk(t.Children)
	return sb.String()
}

func writeLine(sb *strings.Builder, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteByte('\n')
	}
	sb.WriteString(s)
}

// Builder assembles a DocTree from a stream of headings and text in
// document order. Headings nest by level (1 is outermost); text is
// attached to the most recent heading.
type Builder struct {
	root    DocNode
	stack   []builderEntry
	pending strings.Builder
	sep     string
}

type builderEntry struct {
	node  *DocNode
	level int
}

// NewBuilder returns a Builder that joins consecutive Add calls with sep.
// Text separated by a heading or Break is joined with a blank line.
func NewBuilder(sep string) *Builder {
	b := &Builder{sep: sep}
	b.stack = []builderEntry{{node: &b.root, level: 0}}
	return b
}

// Heading opens a section. It closes every open section at the same or a
// deeper level.
func (b *Builder) Heading(level int, title string) {
	b.Break()
	if level < 1 {
		level = 1
	}
	n := &DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, builderEntry{node: n, level: level})
}

// Add appends text to the current section. Empty text is ignored.
func (b *Builder) Add(text string) {
	if text == "" {
		return
	}
	if b.pending.Len() > 0 {
		b.pending.WriteString(b.sep)
	}
	b.pending.WriteString(text)
}

// Break ends the current block of text.
func (b *Builder) Break() {
	t := strings.TrimSpace(b.pending.String())
	b.pending.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// Nodes returns the top-level nodes. Text that came before the first
// heading becomes a leading untitled node.
func (b *Builder) Nodes() []*DocNode {
	b.Break()
	if b.root.Text == "" {
		return b.root.Children
	}
	return append([]*DocNode{{Text: b.root.Text}}, b.root.Children...)
}
