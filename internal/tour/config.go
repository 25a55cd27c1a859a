package tour

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Section is a semantic bucket a content line can be routed to.
type Section string

const (
	SectionNone        Section = ""
	SectionDescription Section = "description"
	SectionItinerary   Section = "itinerary"
	SectionHighlights  Section = "highlights"
	SectionIncludes    Section = "includes"
	SectionExcludes    Section = "excludes"
	SectionPricing     Section = "pricing"
)

var knownSections = map[Section]bool{
	SectionDescription: true,
	SectionItinerary:   true,
	SectionHighlights:  true,
	SectionIncludes:    true,
	SectionExcludes:    true,
	SectionPricing:     true,
}

// Preset and configuration errors.
var (
	ErrUnknownPreset  = errors.New("unknown parser preset")
	ErrUnknownSection = errors.New("unknown section")
	ErrNoRules        = errors.New("at least one section rule is required")
	ErrNegativeCap    = errors.New("list caps must be non-negative")
)

// DefaultPreset is the preset used when none is requested.
const DefaultPreset = "default"

// Config controls section classification and list post-processing.
// Zero or negative lengths fall back to the defaults.
type Config struct {
	Name              string          `yaml:"-"`
	Rules             []SectionRule   `yaml:"sections"`
	Caps              map[Section]int `yaml:"caps"`
	MinDescriptionLen int             `yaml:"min_description_len"`
	SummaryLen        int             `yaml:"summary_len"`
	SyntheticDayLen   int             `yaml:"synthetic_day_len"`

	// DescriptionAllLines collects every long line seen before the first
	// header. When false only the first one becomes the description.
	DescriptionAllLines bool `yaml:"description_all_lines"`
}

// SectionRule maps a section to the header patterns that open it.
type SectionRule struct {
	Section  Section  `yaml:"section"`
	Patterns []string `yaml:"patterns"`
}

func (c *Config) applyDefaults() {
	if c.MinDescriptionLen <= 0 {
		c.MinDescriptionLen = 20
	}
	if c.SummaryLen <= 0 {
		c.SummaryLen = 200
	}
	if c.SyntheticDayLen <= 0 {
		c.SyntheticDayLen = 500
	}
}

// Validate checks section names, caps and that every pattern compiles.
func (c Config) Validate() error {
	if _, err := compileRules(c.Rules); err != nil {
		return err
	}
	return c.validateCaps()
}

func (c Config) validateCaps() error {
	for sec, n := range c.Caps {
		if !knownSections[sec] {
			return fmt.Errorf("caps: %w: %q", ErrUnknownSection, sec)
		}
		if n < 0 {
			return fmt.Errorf("caps %s: %w", sec, ErrNegativeCap)
		}
	}
	return nil
}

type compiledRule struct {
	section  Section
	patterns []*regexp.Regexp
}

func compileRules(rules []SectionRule) ([]compiledRule, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if !knownSections[r.Section] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSection, r.Section)
		}
		cr := compiledRule{section: r.Section}
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("section %s: compile %q: %w", r.Section, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		out = append(out, cr)
	}
	return out, nil
}

// Presets is a named set of parser configurations.
type Presets map[string]Config

type presetsFile struct {
	Presets map[string]Config `yaml:"presets"`
}

//go:embed presets.yaml
var builtinPresetsYAML []byte

// BuiltinPresets returns the presets shipped with the package.
func BuiltinPresets() Presets {
	p, err := decodePresets(builtinPresetsYAML)
	if err != nil {
		panic(fmt.Sprintf("tour: builtin presets: %v", err))
	}
	return p
}

// LoadPresets reads presets from YAML and validates each of them.
func LoadPresets(r io.Reader) (Presets, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return decodePresets(data)
}

// LoadPresetsFile reads presets from a YAML file.
func LoadPresetsFile(path string) (Presets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets: %w", err)
	}
	defer f.Close()
	return LoadPresets(f)
}

func decodePresets(data []byte) (Presets, error) {
	var file presetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	out := make(Presets, len(file.Presets))
	for name, cfg := range file.Presets {
		cfg.Name = name
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		out[name] = cfg
	}
	return out, nil
}

// Merge returns a copy of p with every preset of other added, replacing
// presets of the same name.
func (p Presets) Merge(other Presets) Presets {
	out := make(Presets, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Parser builds a parser for the named preset. An empty name selects DefaultPreset.
func (p Presets) Parser(name string) (*Parser, error) {
	if name == "" {
		name = DefaultPreset
	}
	cfg, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return New(cfg)
}

// Registry holds one compiled parser per preset.
type Registry struct {
	parsers  map[string]*Parser
	fallback string
}

// Compile builds every preset once. Names resolve through Registry.Get;
// an empty name selects fallback, which must be one of the presets.
func (p Presets) Compile(fallback string) (*Registry, error) {
	if fallback == "" {
		fallback = DefaultPreset
	}
	if _, ok := p[fallback]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, fallback)
	}
	r := &Registry{parsers: make(map[string]*Parser, len(p)), fallback: fallback}
	for name, cfg := range p {
		cfg.Name = name
		parser, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		r.parsers[name] = parser
	}
	return r, nil
}

// LoadRegistry compiles the builtin presets, overlaid with the presets in
// path when path is not empty.
func LoadRegistry(path, fallback string) (*Registry, error) {
	presets := BuiltinPresets()
	if path != "" {
		extra, err := LoadPresetsFile(path)
		if err != nil {
			return nil, err
		}
		presets = presets.Merge(extra)
	}
	return presets.Compile(fallback)
}

// Get returns the parser for name, or the fallback parser when name is empty.
func (r *Registry) Get(name string) (*Parser, error) {
	if name == "" {
		name = r.fallback
	}
	parser, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return parser, nil
}

// Fallback is the preset used when none is requested.
func (r *Registry) Fallback() string { return r.fallback }

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
