package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"a.txt", "*parser.TextParser"},
		{"a.MD", "*parser.MarkdownParser"},
		{"a.markdown", "*parser.MarkdownParser"},
		{"a.csv", "*parser.CSVParser"},
		{"a.htm", "*parser.HTMLParser"},
		{"a.pdf", "*parser.PDFParser"},
		{"a.docx", "*parser.DOCXParser"},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.filename, Options{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.filename, err)
		}
		if got := fmt.Sprintf("%T", p); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.filename, tt.want, got)
		}
	}
}

func TestForFile_Unsupported(t *testing.T) {
	for _, name := range []string{"a.doc", "a.xlsx", "noext"} {
		_, err := ForFile(name, Options{})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
		if IsSupportedExtension(name) {
			t.Errorf("%s: should not be supported", name)
		}
	}
}

func TestForFile_PDFOptions(t *testing.T) {
	p, err := ForFile("x.pdf", Options{PDFFallbackPdftotext: true})
	if err != nil {
		t.Fatal(err)
	}
	if !p.(*PDFParser).FallbackPdftotext {
		t.Error("expected pdftotext fallback to be enabled")
	}
}

func TestExtractText(t *testing.T) {
	input := "Nile Explorer\n\nDay 1: Luxor\n- Breakfast\n"
	got, err := ExtractText(strings.NewReader(input), "nile.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Nile Explorer\nDay 1: Luxor\n- Breakfast"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if _, err := ExtractText(strings.NewReader(input), "nile.rtf", Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
