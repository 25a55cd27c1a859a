package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/dgallion1/tourgest/internal/tour"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"connection failure", &pq.Error{Code: "08006"}, true},
		{"serialization", &pq.Error{Code: "40001"}, true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"syntax error", &pq.Error{Code: "42601"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		err := classify("op", tt.err)
		var re *RetryableError
		if got := errors.As(err, &re); got != tt.retryable {
			t.Errorf("%s: retryable=%v, want %v (err=%v)", tt.name, got, tt.retryable, err)
		}
		if !errors.Is(err, tt.err) {
			t.Errorf("%s: classified error does not wrap the original", tt.name)
		}
	}
}

func TestIsSlugConflict(t *testing.T) {
	if !isSlugConflict(&pq.Error{Code: "23505", Constraint: "tours_slug_key"}) {
		t.Error("expected slug unique violation to be a conflict")
	}
	if isSlugConflict(&pq.Error{Code: "23505", Constraint: "tours_pkey"}) {
		t.Error("primary key violation is not a slug conflict")
	}
	if isSlugConflict(errors.New("duplicate")) {
		t.Error("non-pq error is not a slug conflict")
	}
}

func TestIsIDConflict(t *testing.T) {
	if !isIDConflict(&pq.Error{Code: "23505", Constraint: "tours_pkey"}) {
		t.Error("expected primary key violation to be an id conflict")
	}
	if isIDConflict(&pq.Error{Code: "23505", Constraint: "tours_slug_key"}) {
		t.Error("slug violation is not an id conflict")
	}
}

func TestEncodeListsNeverNull(t *testing.T) {
	lists, err := encodeLists(&Tour{})
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range lists {
		if s != "[]" {
			t.Errorf("column %d: expected [], got %s", i, s)
		}
	}

	tr := &Tour{ParsedTour: tour.ParsedTour{
		Itinerary: []tour.ItineraryDay{{DayNumber: 1, Title: "Luxor", Description: "Temples"}},
	}}
	lists, err = encodeLists(tr)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"day_number":1,"title":"Luxor","description":"Temples"}]`
	if lists[3] != want {
		t.Errorf("itinerary: expected %s, got %s", want, lists[3])
	}
}

// TestPostgres_CreateAndRead runs against a real server when DATABASE_URL is set.
func TestPostgres_CreateAndRead(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := NewPostgres(ctx, dsn, Options{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	title := "Nile Explorer " + uuid.NewString()[:8]
	discount := 1200.0
	first := &Tour{
		ParsedTour: tour.ParsedTour{
			Title:         title,
			Slug:          tour.Slugify(title),
			Duration:      2,
			Price:         950,
			PriceDiscount: &discount,
			Highlights:    []string{"Felucca ride"},
			Includes:      []string{"Breakfast"},
			Excludes:      []string{"Tips"},
			Itinerary: []tour.ItineraryDay{
				{DayNumber: 1, Title: "Luxor", Description: "Karnak."},
				{DayNumber: 2, Title: "Aswan", Description: "Philae."},
			},
			PricingTiers: []tour.PricingTier{{Category: "Deluxe", PaxRange: "2-3 pax", Price: 1400}},
		},
		Source:      "nile.docx",
		ContentHash: uuid.NewString(),
		Preset:      "docx",
	}
	second := &Tour{ParsedTour: tour.ParsedTour{Title: title, Slug: tour.Slugify(title)}}

	for _, tr := range []*Tour{first, second} {
		if err := p.CreateTour(ctx, tr); err != nil {
			t.Fatalf("create: %v", err)
		}
		t.Cleanup(func() { p.DeleteTour(context.Background(), tr.Slug) })
	}
	if second.Slug != first.Slug+"-2" {
		t.Errorf("expected suffixed slug %q, got %q", first.Slug+"-2", second.Slug)
	}

	// A retry of an already committed insert reports the stored slug.
	if err := p.CreateTour(ctx, first); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if first.Slug != tour.Slugify(title) {
		t.Errorf("retry changed slug to %q", first.Slug)
	}

	got, err := p.GetTour(ctx, first.Slug)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != first.ID || got.Preset != "docx" || got.Source != "nile.docx" {
		t.Errorf("unexpected provenance %+v", got)
	}
	if got.PriceDiscount == nil || *got.PriceDiscount != 1200 {
		t.Errorf("expected discount 1200, got %v", got.PriceDiscount)
	}
	if !reflect.DeepEqual(got.Itinerary, first.Itinerary) || !reflect.DeepEqual(got.PricingTiers, first.PricingTiers) {
		t.Errorf("jsonb round trip mismatch: %+v", got.ParsedTour)
	}
	if !reflect.DeepEqual(got.Highlights, first.Highlights) || !reflect.DeepEqual(got.Excludes, first.Excludes) {
		t.Errorf("list round trip mismatch: %+v", got.ParsedTour)
	}

	byHash, err := p.FindByContentHash(ctx, first.ContentHash)
	if err != nil || byHash.Slug != first.Slug {
		t.Errorf("hash lookup: %v %+v", err, byHash)
	}

	if err := p.DeleteTour(ctx, second.Slug); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := p.GetTour(ctx, second.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
