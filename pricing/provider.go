package pricing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// RuleSource yields the raw bytes of a rule set.
type RuleSource interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
}

// FileRuleSource reads a rule set from a local JSON file.
type FileRuleSource struct {
	path string
}

// NewFileRuleSource resolves path to an absolute location once, so later reads do not
// depend on the working directory.
func NewFileRuleSource(path string) (*FileRuleSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: fmt.Errorf("resolve path: %w", err)}
	}
	return &FileRuleSource{path: abs}, nil
}

func (s *FileRuleSource) Name() string {
	return s.path
}

func (s *FileRuleSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.path)
}

// RuleSetProvider owns the active rule set. Load is memoized until Invalidate is called.
type RuleSetProvider interface {
	Load(ctx context.Context) (*RuleSet, error)
	Invalidate()
	Reload(ctx context.Context) (*RuleSet, error)
	Fingerprint() string
}

type ruleSetSnapshot struct {
	rules       *RuleSet
	fingerprint string
	generation  uint64
}

// CachedRuleSetProvider publishes immutable snapshots through an atomic pointer. A snapshot is
// current while its generation matches the provider's; Invalidate bumps the generation.
type CachedRuleSetProvider struct {
	source     RuleSource
	current    atomic.Pointer[ruleSetSnapshot]
	generation atomic.Uint64
}

func NewCachedRuleSetProvider(source RuleSource) *CachedRuleSetProvider {
	return &CachedRuleSetProvider{source: source}
}

// Load returns the cached rule set, reading the source only on a cold or invalidated cache.
// On failure the previously published snapshot stays in place.
func (p *CachedRuleSetProvider) Load(ctx context.Context) (*RuleSet, error) {
	gen := p.generation.Load()
	if snap := p.current.Load(); snap != nil && snap.generation == gen {
		return snap.rules, nil
	}

	data, err := p.source.Read(ctx)
	if err != nil {
		return nil, &ConfigError{Source: p.source.Name(), Err: fmt.Errorf("read rule source: %w", err)}
	}
	rules, err := ParseRuleSet(p.source.Name(), data)
	if err != nil {
		return nil, err
	}

	p.publish(&ruleSetSnapshot{
		rules:       rules,
		fingerprint: rules.Fingerprint(),
		generation:  gen,
	})
	return rules, nil
}

// publish stores next unless a snapshot from a later generation is already in place. A load
// that started before an Invalidate may finish last; it still returns its own rules but never
// replaces the newer snapshot.
func (p *CachedRuleSetProvider) publish(next *ruleSetSnapshot) {
	for {
		cur := p.current.Load()
		if cur != nil && cur.generation > next.generation {
			return
		}
		if p.current.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (p *CachedRuleSetProvider) Invalidate() {
	p.generation.Add(1)
}

func (p *CachedRuleSetProvider) Reload(ctx context.Context) (*RuleSet, error) {
	p.Invalidate()
	return p.Load(ctx)
}

// Fingerprint reports the last successfully loaded rule set, or "" before the first load.
func (p *CachedRuleSetProvider) Fingerprint() string {
	if snap := p.current.Load(); snap != nil {
		return snap.fingerprint
	}
	return ""
}

// StaticRuleSetProvider serves a fixed rule set. Useful for tests and tooling.
type StaticRuleSetProvider struct {
	rules *RuleSet
}

func NewStaticRuleSetProvider(rules *RuleSet) *StaticRuleSetProvider {
	return &StaticRuleSetProvider{rules: rules}
}

func (p *StaticRuleSetProvider) Load(context.Context) (*RuleSet, error) {
	return p.rules, nil
}

func (p *StaticRuleSetProvider) Invalidate() {}

func (p *StaticRuleSetProvider) Reload(ctx context.Context) (*RuleSet, error) {
	return p.Load(ctx)
}

func (p *StaticRuleSetProvider) Fingerprint() string {
	return p.rules.Fingerprint()
}
