package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/tourgest/internal/parser"
	"github.com/dgallion1/tourgest/internal/stats"
	"github.com/dgallion1/tourgest/internal/store"
	"github.com/dgallion1/tourgest/internal/tour"
)

// Worker processes a single document job.
type Worker struct {
	store   store.Store
	parsers *tour.Registry
	extract parser.Options
	stats   *stats.Pipeline
	log     *slog.Logger

	retry   RetryPolicy
	backoff func(attempt int) time.Duration
}

func NewWorker(st store.Store, parsers *tour.Registry, extract parser.Options, retry RetryPolicy, latency *stats.Pipeline, log *slog.Logger) *Worker {
	return &Worker{
		store:   st,
		parsers: parsers,
		extract: extract,
		stats:   latency,
		log:     log,
		retry:   retry,
		backoff: retry.Backoff,
	}
}

// Process runs the full import pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Filename)
	defer job.releaseFileData()

	// Phase 1: Extract text
	job.SetStatus(StatusExtracting, "extracting")
	start := time.Now()
	text, err := parser.ExtractText(bytes.NewReader(job.FileData()), job.Filename, w.extract)
	w.stats.Extract.ObserveSince(start)
	if err != nil {
		w.fail(log, job, "extracting", err)
		return
	}
	if strings.TrimSpace(text) == "" {
		w.fail(log, job, "extracting", errors.New("no extractable text"))
		return
	}
	hash := ContentHashHex([]byte(text))
	job.SetContentHash(hash)

	// Phase 1.5: Dedup check
	existing, err := w.store.FindByContentHash(ctx, hash)
	switch {
	case err == nil:
		log.Info("duplicate document, skipping", "existing_slug", existing.Slug)
		job.SetResult(Result{
			TourID:        existing.ID.String(),
			Slug:          existing.Slug,
			Title:         existing.Title,
			Duration:      existing.Duration,
			Price:         existing.Price,
			ItineraryDays: len(existing.Itinerary),
			DuplicateOf:   existing.Slug,
		})
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	case errors.Is(err, store.ErrNotFound):
	default:
		log.Warn("dedup check failed, proceeding", "error", err)
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := w.parsers.Get(job.Preset)
	if err != nil {
		w.fail(log, job, "parsing", err)
		return
	}
	start = time.Now()
	parsed := p.Parse(text)
	w.stats.Parse.ObserveSince(start)
	applyTitleOverride(&parsed, job.Title)
	log.Info("parsed tour",
		"title", parsed.Title,
		"preset", p.Preset(),
		"duration", parsed.Duration,
		"itinerary_days", len(parsed.Itinerary),
	)

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	rec := &store.Tour{
		ParsedTour:  parsed,
		Source:      job.Filename,
		ContentHash: hash,
		Preset:      p.Preset(),
	}
	start = time.Now()
	err = w.createWithRetry(ctx, log, rec)
	w.stats.Store.ObserveSince(start)
	if err != nil {
		w.fail(log, job, "storing", err)
		return
	}

	job.SetResult(Result{
		TourID:        rec.ID.String(),
		Slug:          rec.Slug,
		Title:         rec.Title,
		Duration:      rec.Duration,
		Price:         rec.Price,
		ItineraryDays: len(rec.Itinerary),
	})
	job.SetStatus(StatusCompleted, "done")
	log.Info("tour stored", "slug", rec.Slug, "tour_id", rec.ID)
}

func (w *Worker) createWithRetry(ctx context.Context, log *slog.Logger, rec *store.Tour) error {
	var lastErr error
	attempts := max(w.retry.Attempts, 1)
	for attempt := range attempts {
		lastErr = w.store.CreateTour(ctx, rec)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn("retryable store error", "attempt", attempt, "error", lastErr)
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error(phase+" failed", "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
}

// applyTitleOverride replaces the parsed title and re-derives the slug.
func applyTitleOverride(t *tour.ParsedTour, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	t.Title = title
	if slug := tour.Slugify(title); slug != "" {
		t.Slug = slug
	}
}
