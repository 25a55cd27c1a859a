package tour

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

var (
	dayWordPattern = regexp.MustCompile(`(?i)\bday\s*(\d+)`)
	bareDayPattern = regexp.MustCompile(`^(\d+)[:.)\s-]`)
)

// Parser classifies lines with a fixed configuration. It holds no mutable
// state and is safe for concurrent use.
type Parser struct {
	cfg   Config
	rules []compiledRule
}

// New compiles cfg into a Parser.
func New(cfg Config) (*Parser, error) {
	rules, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateCaps(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Parser{cfg: cfg, rules: rules}, nil
}

// Preset returns the name of the preset the parser was built from.
func (p *Parser) Preset() string {
	return p.cfg.Name
}

var defaultParser = sync.OnceValue(func() *Parser {
	p, err := BuiltinPresets().Parser(DefaultPreset)
	if err != nil {
		panic(fmt.Sprintf("tour: default parser: %v", err))
	}
	return p
})

// Default returns the parser for the built-in default preset.
func Default() *Parser {
	return defaultParser()
}

// Parse runs the default parser over rawText.
func Parse(rawText string) ParsedTour {
	return Default().Parse(rawText)
}

// Parse converts rawText into a fully populated ParsedTour.
func (p *Parser) Parse(rawText string) ParsedTour {
	lines := splitLines(rawText)
	b := &builder{p: p}
	for i, line := range lines {
		if i == 0 {
			b.tour.Title = line
			continue
		}
		b.route(line)
	}
	b.closeDay()

	if price, discount, ok := extractPrice(lines); ok {
		b.tour.Price = price
		b.tour.PriceDiscount = discount
	}
	b.tour.Duration = extractDuration(lines)
	return b.finish()
}

// splitLines normalises line endings and returns trimmed, non-empty lines.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// builder is the per-call accumulator.
type builder struct {
	p       *Parser
	tour    ParsedTour
	section Section
	desc    []string

	day     *ItineraryDay
	dayText []string
	lastDay int
}

func (b *builder) route(line string) {
	if sec, ok := b.p.classify(line); ok {
		if sec != SectionItinerary {
			b.closeDay()
		}
		b.section = sec
		if sec == SectionItinerary {
			if n, rest, ok := b.dayMarker(line, false); ok {
				b.openDay(n, rest)
			}
		}
		return
	}

	switch b.section {
	case SectionNone:
		if len(b.desc) > 0 && !b.p.cfg.DescriptionAllLines {
			return
		}
		if utf8.RuneCountInString(line) > b.p.cfg.MinDescriptionLen {
			b.desc = append(b.desc, line)
		}
	case SectionDescription:
		b.desc = append(b.desc, line)
	case SectionHighlights:
		b.tour.Highlights = b.addBullet(b.tour.Highlights, SectionHighlights, line)
	case SectionIncludes:
		b.tour.Includes = b.addBullet(b.tour.Includes, SectionIncludes, line)
	case SectionExcludes:
		b.tour.Excludes = b.addBullet(b.tour.Excludes, SectionExcludes, line)
	case SectionItinerary:
		if n, rest, ok := b.dayMarker(line, true); ok {
			b.openDay(n, rest)
		} else if b.day != nil {
			b.dayText = append(b.dayText, line)
		}
	case SectionPricing:
		if tier, ok := parseTier(line); ok {
			b.tour.PricingTiers = append(b.tour.PricingTiers, tier)
		}
	}
}

// classify returns the section opened by a header line. The first rule with
// a matching pattern wins.
func (p *Parser) classify(line string) (Section, bool) {
	for _, r := range p.rules {
		for _, re := range r.patterns {
			if re.MatchString(line) {
				return r.section, true
			}
		}
	}
	return SectionNone, false
}

// dayMarker recognises "Day N" anywhere in the line and, when bare is set, a
// leading "N:" / "N." / "N -" marker. A bare number must be larger than the
// previous day and must not run into another digit ("10:00", "1.5").
func (b *builder) dayMarker(line string, bare bool) (int, string, bool) {
	if m := dayWordPattern.FindStringSubmatchIndex(line); m != nil {
		n, err := strconv.Atoi(line[m[2]:m[3]])
		if err == nil && n >= 1 {
			return n, trimMarker(line[m[1]:]), true
		}
		return 0, "", false
	}
	if !bare {
		return 0, "", false
	}
	m := bareDayPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, "", false
	}
	if m[1] < len(line) && line[m[1]] >= '0' && line[m[1]] <= '9' {
		return 0, "", false
	}
	n, err := strconv.Atoi(line[m[2]:m[3]])
	if err != nil || n < 1 || n <= b.lastDay {
		return 0, "", false
	}
	return n, trimMarker(line[m[1]:]), true
}

func trimMarker(s string) string {
	return strings.TrimSpace(strings.TrimLeft(s, " \t:.)-–—"))
}

func (b *builder) openDay(n int, seed string) {
	b.closeDay()
	b.day = &ItineraryDay{DayNumber: n, Title: seed}
	b.lastDay = n
}

func (b *builder) closeDay() {
	if b.day == nil {
		return
	}
	d := *b.day
	d.Description = strings.Join(b.dayText, " ")
	if d.Title == "" {
		d.Title = fmt.Sprintf("Day %d", d.DayNumber)
	}
	if d.Description == "" {
		d.Description = d.Title
	}
	b.tour.Itinerary = append(b.tour.Itinerary, d)
	b.day = nil
	b.dayText = nil
}

// addBullet appends a "-" or "•" prefixed line, minus its marker, unless the
// section's cap is reached. Lines without a marker are dropped.
func (b *builder) addBullet(list []string, sec Section, line string) []string {
	r, size := utf8.DecodeRuneInString(line)
	if r != '-' && r != '•' {
		return list
	}
	item := strings.TrimSpace(line[size:])
	if item == "" {
		return list
	}
	if limit := b.p.cfg.Caps[sec]; limit > 0 && len(list) >= limit {
		return list
	}
	return append(list, item)
}

// finish applies fallbacks in a fixed order: title, slug, description,
// summary, duration, price, lists, itinerary.
func (b *builder) finish() ParsedTour {
	t := b.tour
	cfg := b.p.cfg

	if t.Title == "" {
		t.Title = FallbackTitle
	}
	t.Slug = Slugify(t.Title)
	if t.Slug == "" {
		t.Slug = Slugify(FallbackTitle)
	}

	hasDescription := len(b.desc) > 0
	if hasDescription {
		t.Description = strings.Join(b.desc, " ")
	} else {
		t.Description = FallbackDescription
	}
	t.Summary = truncate(t.Description, cfg.SummaryLen, "...")

	if t.Duration < 1 {
		t.Duration = len(t.Itinerary)
		if t.Duration < 1 {
			t.Duration = 1
		}
	}
	if t.Price < 0 {
		t.Price = 0
	}

	if len(t.Highlights) == 0 {
		t.Highlights = []string{FallbackHighlight}
	}
	if len(t.Includes) == 0 {
		t.Includes = []string{FallbackListItem}
	}
	if len(t.Excludes) == 0 {
		t.Excludes = []string{FallbackListItem}
	}

	if len(t.Itinerary) == 0 {
		text := FallbackItinerary
		if hasDescription {
			text = truncate(t.Description, cfg.SyntheticDayLen, "")
		}
		t.Itinerary = []ItineraryDay{{DayNumber: 1, Title: "Day 1", Description: text}}
	}
	return t
}

// truncate cuts s to n runes and appends marker when anything was removed.
func truncate(s string, n int, marker string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + marker
}
