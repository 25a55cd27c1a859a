package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/tourgest/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	b := doctree.NewBuilder("\n\n")
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			b.Heading(h.Level, inlineText(h, src))
			continue
		}
		b.Add(blockText(n, src))
	}

	return &doctree.DocTree{Title: trimExt(filename), Children: b.Nodes()}, nil
}

// blockText renders a block node as plain lines. List items become "- item".
func blockText(n ast.Node, src []byte) string {
	switch node := n.(type) {
	case *ast.List:
		var lines []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			lines = append(lines, listItemLines(item, src)...)
		}
		return strings.Join(lines, "\n")
	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if t := blockText(c, src); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n")
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	case *ast.ThematicBreak:
		return ""
	}
	return inlineText(n, src)
}

func listItemLines(item ast.Node, src []byte) []string {
	var lines []string
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if nested, ok := c.(*ast.List); ok {
			if t := blockText(nested, src); t != "" {
				lines = append(lines, strings.Split(t, "\n")...)
			}
			continue
		}
		t := blockText(c, src)
		if t == "" {
			continue
		}
		if first {
			t = "- " + t
			first = false
		}
		lines = append(lines, t)
	}
	return lines
}

// inlineText concatenates the text of a node's inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeInline(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			writeInline(buf, c, src)
		}
	}
}
