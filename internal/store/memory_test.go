package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgallion1/tourgest/internal/tour"
	"github.com/google/uuid"
)

func newTour(title, hash string) *Tour {
	return &Tour{
		ParsedTour:  tour.ParsedTour{Title: title, Slug: tour.Slugify(title), Highlights: []string{"Felucca ride"}},
		ContentHash: hash,
	}
}

func TestMemory_CreateAssignsIDAndSuffixesSlug(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{})

	want := []string{"nile-explorer", "nile-explorer-2", "nile-explorer-3"}
	for i, w := range want {
		tr := newTour("Nile Explorer", fmt.Sprintf("h%d", i))
		if err := m.CreateTour(ctx, tr); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if tr.Slug != w {
			t.Errorf("create %d: expected slug %q, got %q", i, w, tr.Slug)
		}
		if tr.ID == uuid.Nil {
			t.Errorf("create %d: expected ID to be assigned", i)
		}
		if tr.CreatedAt.IsZero() {
			t.Errorf("create %d: expected CreatedAt to be set", i)
		}
	}
}

func TestMemory_SlugExhausted(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{MaxSlugAttempts: 2})

	for i := 0; i < 2; i++ {
		if err := m.CreateTour(ctx, newTour("Siwa", "")); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	err := m.CreateTour(ctx, newTour("Siwa", ""))
	if !errors.Is(err, ErrSlugExhausted) {
		t.Fatalf("expected ErrSlugExhausted, got %v", err)
	}
}

func TestMemory_EmptySlugUsesTitle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{})

	tr := &Tour{ParsedTour: tour.ParsedTour{Title: "Desert Safari"}}
	if err := m.CreateTour(ctx, tr); err != nil {
		t.Fatal(err)
	}
	if tr.Slug != "desert-safari" {
		t.Errorf("expected slug from title, got %q", tr.Slug)
	}

	anon := &Tour{}
	if err := m.CreateTour(ctx, anon); err != nil {
		t.Fatal(err)
	}
	if anon.Slug != "untitled-tour" {
		t.Errorf("expected fallback slug, got %q", anon.Slug)
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{})
	tr := newTour("Nile Explorer", "abc")
	if err := m.CreateTour(ctx, tr); err != nil {
		t.Fatal(err)
	}
	tr.Highlights[0] = "mutated"

	got, err := m.GetTour(ctx, "nile-explorer")
	if err != nil {
		t.Fatal(err)
	}
	if got.Highlights[0] != "Felucca ride" {
		t.Errorf("stored tour was mutated through caller's slice: %q", got.Highlights[0])
	}
	if got.ID != tr.ID {
		t.Errorf("expected ID %s, got %s", tr.ID, got.ID)
	}

	if _, err := m.GetTour(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ListNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{})
	for _, title := range []string{"A", "B", "C", "D"} {
		if err := m.CreateTour(ctx, newTour(title, "")); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.ListTours(ctx, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Slug != "c" || got[1].Slug != "b" {
		t.Fatalf("unexpected page: %+v", slugs(got))
	}

	all, _ := m.ListTours(ctx, 0, 0)
	if len(all) != 4 {
		t.Errorf("expected default limit to return all 4, got %d", len(all))
	}

	past, _ := m.ListTours(ctx, 10, 10)
	if len(past) != 0 {
		t.Errorf("expected empty page past end, got %d", len(past))
	}
}

func TestMemory_DeleteAndHashLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{})
	tr := newTour("Nile Explorer", "hash-1")
	if err := m.CreateTour(ctx, tr); err != nil {
		t.Fatal(err)
	}

	found, err := m.FindByContentHash(ctx, "hash-1")
	if err != nil {
		t.Fatal(err)
	}
	if found.Slug != "nile-explorer" {
		t.Errorf("expected nile-explorer, got %q", found.Slug)
	}
	if _, err := m.FindByContentHash(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty hash should not match, got %v", err)
	}

	if err := m.DeleteTour(ctx, "nile-explorer"); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteTour(ctx, "nile-explorer"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := m.FindByContentHash(ctx, "hash-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected deleted tour to be gone, got %v", err)
	}

	// Slug is free again.
	again := newTour("Nile Explorer", "hash-2")
	if err := m.CreateTour(ctx, again); err != nil {
		t.Fatal(err)
	}
	if again.Slug != "nile-explorer" {
		t.Errorf("expected reused slug, got %q", again.Slug)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset int
		wantL, wantO  int
	}{
		{0, 0, DefaultListLimit, 0},
		{-5, -1, DefaultListLimit, 0},
		{10, 20, 10, 20},
		{MaxListLimit + 1, 0, MaxListLimit, 0},
	}
	for _, tt := range tests {
		l, o := NormalizePage(tt.limit, tt.offset)
		if l != tt.wantL || o != tt.wantO {
			t.Errorf("NormalizePage(%d, %d) = %d, %d; want %d, %d", tt.limit, tt.offset, l, o, tt.wantL, tt.wantO)
		}
	}
}

func slugs(ts []*Tour) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Slug
	}
	return out
}

func TestOpen_EmptyDSNUsesMemory(t *testing.T) {
	st, err := Open(context.Background(), "", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*Memory); !ok {
		t.Errorf("expected *Memory, got %T", st)
	}
}

func TestMemory_CreateWithStoredIDIsNoop(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{})

	tr := newTour("Nile Explorer", "h1")
	if err := m.CreateTour(ctx, tr); err != nil {
		t.Fatal(err)
	}
	// Retrying the same record must not insert "nile-explorer-2".
	if err := m.CreateTour(ctx, tr); err != nil {
		t.Fatalf("retry: unexpected error: %v", err)
	}
	if tr.Slug != "nile-explorer" {
		t.Errorf("expected stored slug, got %q", tr.Slug)
	}
	if list, _ := m.ListTours(ctx, 10, 0); len(list) != 1 {
		t.Errorf("expected 1 stored tour, got %d", len(list))
	}
}
