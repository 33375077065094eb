package template

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when a template id is not in the library.
	ErrNotFound = errors.New("template not found")
	// ErrDuplicateID is returned when two templates share an id.
	ErrDuplicateID = errors.New("duplicate template id")
)

var hundred = decimal.NewFromInt(100)

// file is the on-disk layout of a template library.
type file struct {
	Templates []models.Template `yaml:"templates"`
}

// Library is a read-only set of validated templates keyed by id.
type Library struct {
	mu        sync.RWMutex
	templates map[string]models.Template
}

// NewLibrary validates and indexes the given templates.
func NewLibrary(templates ...models.Template) (*Library, error) {
	l := &Library{templates: make(map[string]models.Template, len(templates))}
	for _, t := range templates {
		if err := l.Add(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Load reads a YAML template library from r.
func Load(r io.Reader) (*Library, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	return NewLibrary(f.Templates...)
}

// LoadFile reads a YAML template library from path.
func LoadFile(path string) (*Library, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file %s: %w", path, err)
	}
	defer fh.Close()

	lib, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("template file %s: %w", path, err)
	}
	return lib, nil
}

// Add validates t and stores a copy of it.
func (l *Library) Add(t models.Template) error {
	if err := Validate(t); err != nil {
		return fmt.Errorf("template %q: %w", t.ID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.templates[t.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
	}
	l.templates[t.ID] = t.Clone()
	return nil
}

// Merge adds every template of other that is not already present and
// returns the ids that were skipped.
func (l *Library) Merge(other *Library) []string {
	var skipped []string
	for _, t := range other.List() {
		if err := l.Add(t); err != nil {
			skipped = append(skipped, t.ID)
		}
	}
	return skipped
}

// Get returns a copy of the template with the given id.
func (l *Library) Get(id string) (models.Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[id]
	if !ok {
		return models.Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.Clone(), nil
}

// List returns copies of all templates ordered by id.
func (l *Library) List() []models.Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Template, 0, len(l.templates))
	for _, t := range l.templates {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of templates.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.templates)
}

// Validate reports every authoring problem in t. A nil error means the
// template can start a session.
func Validate(t models.Template) error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if t.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	errs = append(errs, validateLevels(t.Levels)...)
	errs = append(errs, validatePricing(t.Pricing)...)

	if t.LastEntryLevel != nil {
		if last := *t.LastEntryLevel; last < 1 || last > len(t.Levels) {
			errs = append(errs, fmt.Errorf("last entry level %d is outside 1..%d", last, len(t.Levels)))
		}
	}

	seen := make(map[int]bool, len(t.PrizeStructures))
	for _, ps := range t.PrizeStructures {
		if seen[ps.MaxPlayers] {
			errs = append(errs, fmt.Errorf("prize structure for %d players defined twice", ps.MaxPlayers))
		}
		seen[ps.MaxPlayers] = true
		errs = append(errs, validateStructure(ps)...)
	}
	return errors.Join(errs...)
}

func validateLevels(levels []models.Level) []error {
	if len(levels) == 0 {
		return []error{errors.New("at least one level is required")}
	}
	var errs []error
	for i, lvl := range levels {
		n := i + 1
		if lvl.DurationMinutes <= 0 {
			errs = append(errs, fmt.Errorf("level %d: duration must be positive", n))
		}
		if lvl.SmallBlind < 0 || lvl.BigBlind < 0 || lvl.Ante < 0 {
			errs = append(errs, fmt.Errorf("level %d: blinds and ante must not be negative", n))
		}
		if lvl.SmallBlind > lvl.BigBlind {
			errs = append(errs, fmt.Errorf("level %d: small blind %d exceeds big blind %d", n, lvl.SmallBlind, lvl.BigBlind))
		}
		if i > 0 {
			prev := levels[i-1]
			if lvl.BigBlind < prev.BigBlind || lvl.SmallBlind < prev.SmallBlind {
				errs = append(errs, fmt.Errorf("level %d: blinds decrease from level %d", n, i))
			}
		}
	}
	return errs
}

func validatePricing(p models.Pricing) []error {
	var errs []error
	for name, v := range map[string]int64{
		"entry price":              p.EntryPrice,
		"addon price":              p.AddonPrice,
		"double addon price":       p.DoubleAddonPrice,
		"extra pot":                p.ExtraPot,
		"bubble prize":             p.BubblePrize,
		"initial points":           p.InitialPoints,
		"punctuality bonus points": p.PunctualityBonusPoints,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if p.FeePercent.IsNegative() || p.FeePercent.GreaterThan(hundred) {
		errs = append(errs, fmt.Errorf("fee percent %s is outside 0..100", p.FeePercent))
	}
	// map iteration order is random
	slices.SortFunc(errs, func(a, b error) int {
		switch {
		case a.Error() < b.Error():
			return -1
		case a.Error() > b.Error():
			return 1
		}
		return 0
	})
	return errs
}

func validateStructure(ps models.PrizeStructure) []error {
	var errs []error
	if ps.MaxPlayers <= 0 {
		errs = append(errs, fmt.Errorf("prize structure max players %d must be positive", ps.MaxPlayers))
	}
	if len(ps.Prizes) == 0 {
		return append(errs, fmt.Errorf("prize structure for %d players has no prizes", ps.MaxPlayers))
	}

	ranks := make(map[int]bool, len(ps.Prizes))
	sum := decimal.Zero
	for _, pr := range ps.Prizes {
		if pr.Rank < 1 {
			errs = append(errs, fmt.Errorf("prize structure for %d players: rank %d must be positive", ps.MaxPlayers, pr.Rank))
		}
		if ranks[pr.Rank] {
			errs = append(errs, fmt.Errorf("prize structure for %d players: rank %d defined twice", ps.MaxPlayers, pr.Rank))
		}
		ranks[pr.Rank] = true
		if !pr.Percentage.IsPositive() || pr.Percentage.GreaterThan(hundred) {
			errs = append(errs, fmt.Errorf("prize structure for %d players: rank %d percentage %s is outside (0, 100]", ps.MaxPlayers, pr.Rank, pr.Percentage))
		}
		sum = sum.Add(pr.Percentage)
	}
	if !sum.Equal(hundred) {
		errs = append(errs, fmt.Errorf("prize structure for %d players: percentages sum to %s, want 100", ps.MaxPlayers, sum))
	}
	return errs
}
