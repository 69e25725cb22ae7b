// Package rules provides the CEL-Go based rule evaluation engine.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-health/heron/internal/domain"
)

// ErrUnknownDomain is returned when no pack is loaded for a domain.
var ErrUnknownDomain = errors.New("unknown domain")

// Engine is the CEL-based rule evaluation engine. It holds one compiled
// pack per domain and is safe for concurrent use.
type Engine struct {
	mu    sync.RWMutex
	env   *cel.Env
	packs map[domain.DomainID]*CompiledPack
}

// CompiledPack holds a domain pack with its pre-compiled CEL programs.
type CompiledPack struct {
	Pack          *domain.DomainPack
	LoadedAt      time.Time
	rules         []compiledRule
	preconditions []compiledPrecondition
}

type compiledRule struct {
	rule    domain.Rule
	program cel.Program
}

type compiledPrecondition struct {
	precondition domain.Precondition
	program      cel.Program
}

// Evaluation is the outcome of scoring one observation set.
type Evaluation struct {
	Domain         domain.DomainID
	Score          int
	Fired          []domain.Factor
	RulesEvaluated int
}

// NewEngine creates a new rule evaluation engine.
func NewEngine() (*Engine, error) {
	// Observations are exposed as a single map so packs can reference any
	// indicator without changing the environment.
	env, err := cel.NewEnv(
		cel.Variable("obs", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:   env,
		packs: make(map[domain.DomainID]*CompiledPack),
	}, nil
}

// ValidateExpression compiles a single predicate without loading it.
func (e *Engine) ValidateExpression(expr string) error {
	_, err := e.compile("expression", expr)
	return err
}

// ValidatePack compiles every predicate of a pack without mutating the
// loaded packs.
func (e *Engine) ValidatePack(pack *domain.DomainPack) error {
	if pack == nil {
		return fmt.Errorf("domain pack is required")
	}
	_, err := e.compilePack(pack)
	return err
}

// LoadPack compiles and loads a pack, replacing any pack with the same id.
func (e *Engine) LoadPack(pack *domain.DomainPack) error {
	if pack == nil {
		return fmt.Errorf("domain pack is required")
	}

	compiled, err := e.compilePack(pack)
	if err != nil {
		return err
	}

	compiled.LoadedAt = time.Now()
	e.mu.Lock()
	e.packs[pack.ID] = compiled
	e.mu.Unlock()

	return nil
}

// LoadPacks compiles and loads multiple packs.
func (e *Engine) LoadPacks(packs []*domain.DomainPack) error {
	for _, p := range packs {
		if err := e.LoadPack(p); err != nil {
			return err
		}
	}
	return nil
}

// ReloadPacks replaces every loaded pack. Nothing changes if any pack
// fails to compile.
func (e *Engine) ReloadPacks(packs []*domain.DomainPack) error {
	next := make(map[domain.DomainID]*CompiledPack, len(packs))
	loadedAt := time.Now()
	for _, p := range packs {
		compiled, err := e.compilePack(p)
		if err != nil {
			return err
		}
		compiled.LoadedAt = loadedAt
		next[p.ID] = compiled
	}

	e.mu.Lock()
	e.packs = next
	e.mu.Unlock()

	return nil
}

// Pack returns a copy of the loaded pack for a domain.
func (e *Engine) Pack(id domain.DomainID) (*domain.DomainPack, error) {
	cp, err := e.compiled(id)
	if err != nil {
		return nil, err
	}
	return cp.Pack.Clone(), nil
}

// LoadedAt returns when the pack for a domain was last loaded or reloaded.
func (e *Engine) LoadedAt(id domain.DomainID) (time.Time, error) {
	cp, err := e.compiled(id)
	if err != nil {
		return time.Time{}, err
	}
	return cp.LoadedAt, nil
}

// Packs returns copies of all loaded packs ordered by id.
func (e *Engine) Packs() []*domain.DomainPack {
	e.mu.RLock()
	out := make([]*domain.DomainPack, 0, len(e.packs))
	for _, cp := range e.packs {
		out = append(out, cp.Pack.Clone())
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PacksCount returns the number of loaded packs.
func (e *Engine) PacksCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.packs)
}

// Precondition returns the first precondition of the domain that holds
// for obs, or nil when scoring should proceed.
func (e *Engine) Precondition(id domain.DomainID, obs domain.Observations) (*domain.Precondition, error) {
	cp, err := e.compiled(id)
	if err != nil {
		return nil, err
	}

	activation := map[string]any{"obs": map[string]any(obs)}
	for _, pc := range cp.preconditions {
		if holds(pc.program, activation) {
			p := pc.precondition
			return &p, nil
		}
	}
	return nil, nil
}

// Evaluate scores obs against the domain's rule table. Rules are checked in
// table order; a rule whose predicate errors (missing or mistyped field)
// does not fire. Bad observations never produce an error.
func (e *Engine) Evaluate(id domain.DomainID, obs domain.Observations) (*Evaluation, error) {
	cp, err := e.compiled(id)
	if err != nil {
		return nil, err
	}
	return cp.Evaluate(obs), nil
}

// Evaluate scores obs against this pack.
func (cp *CompiledPack) Evaluate(obs domain.Observations) *Evaluation {
	result := &Evaluation{
		Domain:         cp.Pack.ID,
		Fired:          make([]domain.Factor, 0),
		RulesEvaluated: len(cp.rules),
	}

	activation := map[string]any{"obs": map[string]any(obs)}
	for _, r := range cp.rules {
		if !holds(r.program, activation) {
			continue
		}
		result.Score += r.rule.Points
		result.Fired = append(result.Fired, domain.Factor{
			RuleID:      r.rule.ID,
			Factor:      r.rule.Label,
			Points:      r.rule.Points,
			Description: r.rule.Description,
		})
	}

	return result
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.packs = make(map[domain.DomainID]*CompiledPack)
	return nil
}

func (e *Engine) compiled(id domain.DomainID) (*CompiledPack, error) {
	e.mu.RLock()
	cp, ok := e.packs[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, id)
	}
	return cp, nil
}

func (e *Engine) compilePack(pack *domain.DomainPack) (*CompiledPack, error) {
	if pack.ID == "" {
		return nil, fmt.Errorf("domain pack id is required")
	}

	cp := &CompiledPack{
		Pack:          pack.Clone(),
		rules:         make([]compiledRule, 0, len(pack.Rules)),
		preconditions: make([]compiledPrecondition, 0, len(pack.Preconditions)),
	}

	for _, r := range pack.Rules {
		prg, err := e.compile(string(pack.ID)+"/"+r.ID, r.Expression)
		if err != nil {
			return nil, err
		}
		cp.rules = append(cp.rules, compiledRule{rule: r, program: prg})
	}

	for _, p := range pack.Preconditions {
		prg, err := e.compile(string(pack.ID)+"/"+p.ID, p.Expression)
		if err != nil {
			return nil, err
		}
		cp.preconditions = append(cp.preconditions, compiledPrecondition{precondition: p, program: prg})
	}

	return cp, nil
}

func (e *Engine) compile(name, expr string) (cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", name, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DynType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", name, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", name, err)
	}

	return program, nil
}

// holds reports whether a predicate evaluated to true. Evaluation errors
// and non-bool results count as false.
func holds(program cel.Program, activation map[string]any) bool {
	out, _, err := program.Eval(activation)
	if err != nil {
		return false
	}
	return isTrue(out)
}

func isTrue(val ref.Val) bool {
	b, ok := val.(types.Bool)
	return ok && bool(b)
}
