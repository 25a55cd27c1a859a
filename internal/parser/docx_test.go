package parser

import (
	"bytes"
	"testing"

	"github.com/fumiama/go-docx"
)

func buildTourDocx(t *testing.T) []byte {
	t.Helper()
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().Style("Title").AddText("Nile Explorer")
	doc.AddParagraph().AddText("Sail from Luxor to Aswan on a traditional dahabiya.")

	doc.AddParagraph().Style("Heading1").AddText("Includes")
	doc.AddParagraph().NumPr("1", "0").AddText("Breakfast")
	doc.AddParagraph().Style("ListParagraph").AddText("Guide")

	doc.AddParagraph().Style("Heading1").AddText("Prices")
	tbl := doc.AddTable(1, 2, 0, nil)
	tbl.TableRows[0].TableCells[0].AddParagraph().AddText("Adult")
	tbl.TableRows[0].TableCells[1].AddParagraph().AddText("$950")

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	return buf.Bytes()
}

func TestDOCXParser_ListsHeadingsTables(t *testing.T) {
	data := buildTourDocx(t)

	p := &DOCXParser{}
	tree, err := p.Parse(bytes.NewReader(data), "nile.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "nile" {
		t.Errorf("expected title %q, got %q", "nile", tree.Title)
	}

	want := "Nile Explorer\n" +
		"Sail from Luxor to Aswan on a traditional dahabiya.\n" +
		"Includes\n- Breakfast\n- Guide\n" +
		"Prices\nAdult: $950"
	if got := tree.Text(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDOCXParser_InvalidArchive(t *testing.T) {
	p := &DOCXParser{}
	if _, err := p.Parse(bytes.NewReader([]byte("not a zip")), "bad.docx"); err == nil {
		t.Fatal("expected error for invalid docx")
	}
}
