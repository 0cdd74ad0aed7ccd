// Package hooks defines the addon contract between the interception engine
// and the components that observe or rewrite flows.
package hooks

import (
	"context"

	"github.com/flowcache/flowcache/internal/flow"
)

// Addon receives each flow twice: Request runs before the upstream fetch and
// may fill f.Response to short-circuit it; Response runs once f.Response holds
// the final response and may annotate it. Implementations must be safe for
// concurrent use and must not return errors to the engine.
type Addon interface {
	Request(ctx context.Context, f *flow.Flow)
	Response(ctx context.Context, f *flow.Flow)
}

// AddonFuncs adapts a pair of functions to Addon. Nil fields are skipped.
type AddonFuncs struct {
	OnRequest  func(ctx context.Context, f *flow.Flow)
	OnResponse func(ctx context.Context, f *flow.Flow)
}

func (a AddonFuncs) Request(ctx context.Context, f *flow.Flow) {
	if a.OnRequest != nil {
		a.OnRequest(ctx, f)
	}
}

func (a AddonFuncs) Response(ctx context.Context, f *flow.Flow) {
	if a.OnResponse != nil {
		a.OnResponse(ctx, f)
	}
}
