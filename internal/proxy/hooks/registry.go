package hooks

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/flowcache/flowcache/internal/flow"
)

// ErrDuplicateAddon indicates a name already has an addon registered.
var ErrDuplicateAddon = errors.New("addon already registered")

// Pipeline is an ordered set of named addons. Request hooks run in
// registration order and stop at the first addon that fills the response
// slot; Response hooks always run for every addon.
type Pipeline struct {
	mu     sync.RWMutex
	names  []string
	addons map[string]Addon
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{addons: make(map[string]Addon)}
}

// Register appends addon under name.
func (p *Pipeline) Register(name string, addon Addon) error {
	key := normalizeName(name)
	if key == "" {
		return errors.New("addon name required")
	}
	if addon == nil {
		return errors.New("addon required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addons == nil {
		p.addons = make(map[string]Addon)
	}
	if _, exists := p.addons[key]; exists {
		return ErrDuplicateAddon
	}
	p.addons[key] = addon
	p.names = append(p.names, key)
	return nil
}

// MustRegister panics on registration failure.
func (p *Pipeline) MustRegister(name string, addon Addon) {
	if err := p.Register(name, addon); err != nil {
		panic(err)
	}
}

// Fetch retrieves the addon registered under name.
func (p *Pipeline) Fetch(name string) (Addon, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	addon, ok := p.addons[normalizeName(name)]
	return addon, ok
}

// Names returns addon names in execution order.
func (p *Pipeline) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.names...)
}

// Status returns registration status for an addon name.
func (p *Pipeline) Status(name string) string {
	if _, ok := p.Fetch(name); ok {
		return "registered"
	}
	return "missing"
}

// Snapshot returns status for a list of addon names.
func (p *Pipeline) Snapshot(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if normalized := normalizeName(name); normalized != "" {
			out[normalized] = p.Status(normalized)
		}
	}
	return out
}

// RunRequest invokes Request hooks until one of them fills f.Response.
func (p *Pipeline) RunRequest(ctx context.Context, f *flow.Flow) {
	for _, addon := range p.ordered() {
		if f.Responded() {
			return
		}
		addon.Request(ctx, f)
	}
}

// RunResponse invokes every Response hook in order.
func (p *Pipeline) RunResponse(ctx context.Context, f *flow.Flow) {
	for _, addon := range p.ordered() {
		addon.Response(ctx, f)
	}
}

func (p *Pipeline) ordered() []Addon {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Addon, 0, len(p.names))
	for _, name := range p.names {
		out = append(out, p.addons[name])
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
