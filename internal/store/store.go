// Package store persists parsed tours.
//
// Slugs are unique per store. CreateTour resolves collisions by appending
// "-2", "-3", ... to the parsed slug until an unused one is found.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgallion1/tourgest/internal/tour"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("tour not found")
	ErrSlugExhausted = errors.New("no free slug")
)

const (
	DefaultMaxSlugAttempts = 100
	DefaultListLimit       = 50
	MaxListLimit           = 500
)

// Tour is a stored tour with its provenance.
type Tour struct {
	tour.ParsedTour
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Preset      string    `json:"preset,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is implemented by Postgres and Memory.
type Store interface {
	// CreateTour assigns an ID and a unique slug, then saves t.
	// On success t.Slug holds the slug actually stored. Calling it again
	// with an ID that is already stored is a no-op that reports the stored
	// slug, so callers may retry after an unacknowledged commit.
	CreateTour(ctx context.Context, t *Tour) error
	GetTour(ctx context.Context, slug string) (*Tour, error)
	// ListTours returns tours newest first.
	ListTours(ctx context.Context, limit, offset int) ([]*Tour, error)
	DeleteTour(ctx context.Context, slug string) error
	FindByContentHash(ctx context.Context, hash string) (*Tour, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options configures either backend.
type Options struct {
	MaxSlugAttempts int
}

// Open connects to Postgres when dsn is set and falls back to an
// in-memory store otherwise.
func Open(ctx context.Context, dsn string, opts Options) (Store, error) {
	if dsn == "" {
		return NewMemory(opts), nil
	}
	pg, err := NewPostgres(ctx, dsn, opts)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func (o Options) maxSlugAttempts() int {
	if o.MaxSlugAttempts <= 0 {
		return DefaultMaxSlugAttempts
	}
	return o.MaxSlugAttempts
}

// RetryableError marks a transient backend failure, e.g. a dropped connection.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable store error (%s): %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// NormalizePage clamps list paging arguments.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// prepare fills ID, CreatedAt and an empty slug before insertion.
func prepare(t *Tour) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Slug == "" {
		t.Slug = tour.Slugify(t.Title)
	}
	if t.Slug == "" {
		t.Slug = tour.Slugify(tour.FallbackTitle)
	}
}

func slugExhausted(base string, attempts int) error {
	return fmt.Errorf("%w for %q after %d attempts", ErrSlugExhausted, base, attempts)
}

func cloneTour(t *Tour) *Tour {
	c := *t
	c.Highlights = slices.Clone(t.Highlights)
	c.Includes = slices.Clone(t.Includes)
	c.Excludes = slices.Clone(t.Excludes)
	c.Itinerary = slices.Clone(t.Itinerary)
	c.PricingTiers = slices.Clone(t.PricingTiers)
	if t.PriceDiscount != nil {
		d := *t.PriceDiscount
		c.PriceDiscount = &d
	}
	return &c
}
