package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/dgallion1/tourgest/internal/tour"
	"github.com/lib/pq"
)

const (
	pingAttempts      = 10
	pingInterval      = 2 * time.Second
	slugConstraint    = "tours_slug_key"
	idConstraint      = "tours_pkey"
	uniqueViolation   = pq.ErrorCode("23505")
	tourSelectColumns = `id, slug, title, description, summary, duration_days, price, price_discount,
		highlights, includes, excludes, itinerary, pricing_tiers, source, content_hash, preset, created_at`
)

// Postgres stores tours in PostgreSQL. List fields are JSONB columns.
type Postgres struct {
	db              *sql.DB
	maxSlugAttempts int
}

// NewPostgres opens dsn, waits for the server to answer, and migrates the schema.
func NewPostgres(ctx context.Context, dsn string, opts Options) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(pingInterval):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	p := &Postgres{db: db, maxSlugAttempts: opts.maxSlugAttempts()}
	if err := p.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tours (
			id             UUID          PRIMARY KEY,
			slug           TEXT          UNIQUE NOT NULL,
			title          TEXT          NOT NULL,
			description    TEXT          NOT NULL DEFAULT '',
			summary        TEXT          NOT NULL DEFAULT '',
			duration_days  INTEGER       NOT NULL DEFAULT 1,
			price          NUMERIC(12,2) NOT NULL DEFAULT 0,
			price_discount NUMERIC(12,2),
			highlights     JSONB         NOT NULL DEFAULT '[]',
			includes       JSONB         NOT NULL DEFAULT '[]',
			excludes       JSONB         NOT NULL DEFAULT '[]',
			itinerary      JSONB         NOT NULL DEFAULT '[]',
			pricing_tiers  JSONB         NOT NULL DEFAULT '[]',
			source         TEXT          NOT NULL DEFAULT '',
			content_hash   TEXT          NOT NULL DEFAULT '',
			preset         TEXT          NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_tours_content_hash ON tours(content_hash);
		CREATE INDEX IF NOT EXISTS idx_tours_created_at   ON tours(created_at);
	`)
	return err
}

func (p *Postgres) CreateTour(ctx context.Context, t *Tour) error {
	prepare(t)

	lists, err := encodeLists(t)
	if err != nil {
		return err
	}

	base := t.Slug
	for attempt := 1; attempt <= p.maxSlugAttempts; attempt++ {
		slug := tour.UniqueSlug(base, attempt)
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO tours (id, slug, title, description, summary, duration_days, price, price_discount,
				highlights, includes, excludes, itinerary, pricing_tiers, source, content_hash, preset, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		`,
			t.ID, slug, t.Title, t.Description, t.Summary, t.Duration, t.Price, t.PriceDiscount,
			lists[0], lists[1], lists[2], lists[3], lists[4],
			t.Source, t.ContentHash, t.Preset, t.CreatedAt,
		)
		if err == nil {
			t.Slug = slug
			return nil
		}
		if isSlugConflict(err) {
			continue
		}
		if isIDConflict(err) {
			// An earlier attempt committed but its reply was lost.
			return p.storedSlug(ctx, t)
		}
		return classify("insert tour", err)
	}
	return slugExhausted(base, p.maxSlugAttempts)
}

func (p *Postgres) storedSlug(ctx context.Context, t *Tour) error {
	var slug string
	err := p.db.QueryRowContext(ctx, `SELECT slug FROM tours WHERE id = $1`, t.ID).Scan(&slug)
	if err != nil {
		return classify("lookup tour id", err)
	}
	t.Slug = slug
	return nil
}

func (p *Postgres) GetTour(ctx context.Context, slug string) (*Tour, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+tourSelectColumns+` FROM tours WHERE slug = $1`, slug)
	t, err := scanTour(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify("get tour", err)
	}
	return t, nil
}

func (p *Postgres) ListTours(ctx context.Context, limit, offset int) ([]*Tour, error) {
	limit, offset = NormalizePage(limit, offset)
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+tourSelectColumns+`
		FROM tours
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, classify("list tours", err)
	}
	defer rows.Close()

	tours := make([]*Tour, 0, limit)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list tours", err)
	}
	return tours, nil
}

func (p *Postgres) DeleteTour(ctx context.Context, slug string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM tours WHERE slug = $1`, slug)
	if err != nil {
		return classify("delete tour", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: delete tour: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FindByContentHash(ctx context.Context, hash string) (*Tour, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `
		SELECT `+tourSelectColumns+`
		FROM tours
		WHERE content_hash = $1
		ORDER BY created_at
		LIMIT 1
	`, hash)
	t, err := scanTour(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify("find by hash", err)
	}
	return t, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTour(row rowScanner) (*Tour, error) {
	var (
		t        Tour
		discount sql.NullFloat64
		lists    [5][]byte
	)
	err := row.Scan(
		&t.ID, &t.Slug, &t.Title, &t.Description, &t.Summary, &t.Duration, &t.Price, &discount,
		&lists[0], &lists[1], &lists[2], &lists[3], &lists[4],
		&t.Source, &t.ContentHash, &t.Preset, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if discount.Valid {
		d := discount.Float64
		t.PriceDiscount = &d
	}
	targets := []any{&t.Highlights, &t.Includes, &t.Excludes, &t.Itinerary, &t.PricingTiers}
	for i, dst := range targets {
		if err := json.Unmarshal(lists[i], dst); err != nil {
			return nil, fmt.Errorf("decode list column %d: %w", i, err)
		}
	}
	return &t, nil
}

// encodeLists renders the JSONB columns as strings; lib/pq would send []byte as bytea.
func encodeLists(t *Tour) ([5]string, error) {
	var out [5]string
	sources := []any{
		nonNil(t.Highlights), nonNil(t.Includes), nonNil(t.Excludes),
		nonNil(t.Itinerary), nonNil(t.PricingTiers),
	}
	for i, v := range sources {
		b, err := json.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("encode list column %d: %w", i, err)
		}
		out[i] = string(b)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isSlugConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == slugConstraint
}

func isIDConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == idConstraint
}

// classify wraps connection-class failures as RetryableError.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "40", "53", "57":
			return &RetryableError{Op: op, Err: err}
		}
		return fmt.Errorf("postgres: %s: %w", op, err)
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) || errors.As(err, &netErr) {
		return &RetryableError{Op: op, Err: err}
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}
