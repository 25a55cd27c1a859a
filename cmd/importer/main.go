// Command importer parses a directory of tour documents and stores them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/dgallion1/tourgest/internal/config"
	"github.com/dgallion1/tourgest/internal/parser"
	"github.com/dgallion1/tourgest/internal/pipeline"
	"github.com/dgallion1/tourgest/internal/store"
	"github.com/dgallion1/tourgest/internal/tour"
)

type options struct {
	dir          string
	ext          string
	limit        int
	preset       string
	dryRun       bool
	skipExisting bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", ".", "Directory containing tour documents")
	flag.StringVar(&opts.ext, "ext", ".docx", "File extension to import")
	flag.IntVar(&opts.limit, "limit", 0, "Maximum number of files to import (0 = all)")
	flag.StringVar(&opts.preset, "preset", "docx", "Parser preset")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Parse only, do not store")
	flag.BoolVar(&opts.skipExisting, "skip-existing", false, "Skip tours whose slug already exists")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	parsers, err := tour.LoadRegistry(cfg.ParserPresetsFile, opts.preset)
	if err != nil {
		log.Error("failed to load parser presets", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{MaxSlugAttempts: cfg.MaxSlugAttempts})
	if err != nil {
		log.Error("failed to open tour store", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" && !opts.dryRun {
		log.Warn("DATABASE_URL not set, imported tours will not outlive this run")
	}

	imp := &importer{
		store:   st,
		parsers: parsers,
		extract: parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		log:     log,
	}
	rows, err := imp.run(ctx, opts)
	writeReport(os.Stdout, rows)
	if cerr := st.Close(); cerr != nil {
		log.Warn("store close", "error", cerr)
	}
	switch {
	case err != nil:
		log.Error("import failed", "error", err)
		os.Exit(1)
	case failed(rows) > 0:
		os.Exit(2)
	}
}

type importer struct {
	store   store.Store
	parsers *tour.Registry
	extract parser.Options
	log     *slog.Logger
}

// findFiles lists the files in dir with extension ext, sorted by name.
// Office lock files ("~$name.docx") are skipped.
func findFiles(dir, ext string, limit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if strings.ToLower(filepath.Ext(name)) != ext {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// run imports every matching file in order. A failing file is recorded
// in its row and does not stop the batch.
func (imp *importer) run(ctx context.Context, opts options) ([]row, error) {
	p, err := imp.parsers.Get(opts.preset)
	if err != nil {
		return nil, err
	}
	files, err := findFiles(opts.dir, opts.ext, opts.limit)
	if err != nil {
		return nil, err
	}
	imp.log.Info("importing tours", "dir", opts.dir, "files", len(files), "preset", p.Preset(), "dry_run", opts.dryRun)

	rows := make([]row, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		r := imp.importFile(ctx, p, path, opts)
		rows = append(rows, r)
	}
	return rows, nil
}

func (imp *importer) importFile(ctx context.Context, p *tour.Parser, path string, opts options) row {
	name := filepath.Base(path)
	log := imp.log.With("source", name)
	r := row{file: name}

	text, err := readText(path, imp.extract)
	if err != nil {
		log.Error("extract failed", "error", err)
		r.outcome = outcomeFailed
		r.detail = err.Error()
		return r
	}

	parsed := p.Parse(text)
	r.fill(parsed)

	if opts.dryRun {
		r.outcome = outcomeParsed
		return r
	}

	if opts.skipExisting {
		_, err := imp.store.GetTour(ctx, parsed.Slug)
		switch {
		case err == nil:
			log.Info("slug exists, skipping", "slug", parsed.Slug)
			r.outcome = outcomeSkipped
			return r
		case !errors.Is(err, store.ErrNotFound):
			log.Error("lookup failed", "slug", parsed.Slug, "error", err)
			r.outcome = outcomeFailed
			r.detail = err.Error()
			return r
		}
	}

	rec := &store.Tour{
		ParsedTour:  parsed,
		Source:      name,
		ContentHash: pipeline.ContentHashHex([]byte(text)),
		Preset:      p.Preset(),
	}
	if err := imp.store.CreateTour(ctx, rec); err != nil {
		log.Error("store failed", "error", err)
		r.outcome = outcomeFailed
		r.detail = err.Error()
		return r
	}
	log.Info("tour stored", "slug", rec.Slug, "tour_id", rec.ID)
	r.slug = rec.Slug
	r.outcome = outcomeImported
	return r
}

func readText(path string, opts parser.Options) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	text, err := parser.ExtractText(f, filepath.Base(path), opts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no extractable text")
	}
	return text, nil
}
