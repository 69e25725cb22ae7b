// Package catalog holds the built-in domain packs and the checks every pack
// must pass before the engine may serve it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/opensource-health/heron/internal/domain"
)

// ErrIncompleteCoverage is returned when a pack does not define a valid
// bundle for every tier.
var ErrIncompleteCoverage = errors.New("incomplete tier coverage")

// ErrInvalidPack is returned for structurally invalid packs.
var ErrInvalidPack = errors.New("invalid domain pack")

// File is the YAML layout of a pack file.
type File struct {
	Packs []*domain.DomainPack `yaml:"packs"`
}

// PackSource lists stored pack overrides.
type PackSource interface {
	ListDomainPacks(ctx context.Context) ([]*domain.DomainPack, error)
}

// Validate checks the structure of a pack: unique rule ids, non-empty
// predicates, positive points, 0 < moderate < high <= maxScore, a bundle
// for each tier, urgent actions only and always on High.
func Validate(p *domain.DomainPack) error {
	if p == nil {
		return fmt.Errorf("%w: pack is nil", ErrInvalidPack)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidPack)
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("%w: %s has no rules", ErrInvalidPack, p.ID)
	}

	seen := make(map[string]bool, len(p.Rules))
	for i, r := range p.Rules {
		if r.ID == "" {
			return fmt.Errorf("%w: %s rule %d has no id", ErrInvalidPack, p.ID, i)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: %s has duplicate rule id %q", ErrInvalidPack, p.ID, r.ID)
		}
		seen[r.ID] = true
		if r.Expression == "" {
			return fmt.Errorf("%w: %s rule %q has no expression", ErrInvalidPack, p.ID, r.ID)
		}
		if r.Points <= 0 {
			return fmt.Errorf("%w: %s rule %q must have positive points", ErrInvalidPack, p.ID, r.ID)
		}
		if r.Label == "" {
			return fmt.Errorf("%w: %s rule %q has no label", ErrInvalidPack, p.ID, r.ID)
		}
	}

	t := p.Thresholds
	if t.Moderate <= 0 || t.Moderate >= t.High {
		return fmt.Errorf("%w: %s thresholds must satisfy 0 < moderate < high, got %d/%d",
			ErrInvalidPack, p.ID, t.Moderate, t.High)
	}
	if maxScore := p.MaxScore(); t.High > maxScore {
		return fmt.Errorf("%w: %s high threshold %d exceeds max score %d", ErrInvalidPack, p.ID, t.High, maxScore)
	}

	for _, pc := range p.Preconditions {
		if pc.ID == "" || pc.Expression == "" {
			return fmt.Errorf("%w: %s precondition needs id and expression", ErrInvalidPack, p.ID)
		}
		if !pc.Tier.IsValid() {
			return fmt.Errorf("%w: %s precondition %q has unknown tier %q", ErrInvalidPack, p.ID, pc.ID, pc.Tier)
		}
	}

	if p.WellbeingScale < 0 {
		return fmt.Errorf("%w: %s wellbeing scale must not be negative", ErrInvalidPack, p.ID)
	}

	for _, tier := range domain.Tiers() {
		b, ok := p.Bundles[tier]
		if !ok {
			return fmt.Errorf("%w: %s has no %s bundle", ErrIncompleteCoverage, p.ID, tier)
		}
		switch tier {
		case domain.TierHigh:
			if len(b.UrgentActions) == 0 {
				return fmt.Errorf("%w: %s High bundle needs an urgent action", ErrIncompleteCoverage, p.ID)
			}
		case domain.TierLow:
			if len(b.UrgentActions) != 0 {
				return fmt.Errorf("%w: %s Low bundle must not carry urgent actions", ErrIncompleteCoverage, p.ID)
			}
		}
	}
	for tier := range p.Bundles {
		if !tier.IsValid() {
			return fmt.Errorf("%w: %s has bundle for unknown tier %q", ErrInvalidPack, p.ID, tier)
		}
	}

	return nil
}

// ValidateAll validates every pack and rejects duplicate ids.
func ValidateAll(packs []*domain.DomainPack) error {
	seen := make(map[domain.DomainID]bool, len(packs))
	for _, p := range packs {
		if err := Validate(p); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate pack id %q", ErrInvalidPack, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// LoadFile parses a YAML pack file.
func LoadFile(path string) ([]*domain.DomainPack, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read packs: %w", err)
	}
	return Parse(payload)
}

// Parse decodes YAML pack definitions.
func Parse(payload []byte) ([]*domain.DomainPack, error) {
	var f File
	if err := yaml.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("parse packs: %w", err)
	}
	for _, p := range f.Packs {
		if p == nil {
			return nil, fmt.Errorf("%w: empty pack entry", ErrInvalidPack)
		}
	}
	return f.Packs, nil
}

// Merge overlays packs onto base by id. Later layers win. The result is
// ordered by id.
func Merge(base []*domain.DomainPack, layers ...[]*domain.DomainPack) []*domain.DomainPack {
	byID := make(map[domain.DomainID]*domain.DomainPack, len(base))
	for _, p := range base {
		byID[p.ID] = p
	}
	for _, layer := range layers {
		for _, p := range layer {
			byID[p.ID] = p
		}
	}

	out := make([]*domain.DomainPack, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load resolves the active packs: built-ins, then the optional YAML file,
// then stored overrides. Every resulting pack is validated.
func Load(ctx context.Context, src PackSource, file string) ([]*domain.DomainPack, error) {
	var fromFile []*domain.DomainPack
	if file != "" {
		packs, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		fromFile = packs
	}

	var stored []*domain.DomainPack
	if src != nil {
		packs, err := src.ListDomainPacks(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stored packs: %w", err)
		}
		stored = packs
	}

	packs := Merge(Builtin(), fromFile, stored)
	if err := ValidateAll(packs); err != nil {
		return nil, err
	}
	return packs, nil
}
