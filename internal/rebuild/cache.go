package rebuild

import (
	"context"
	"fmt"

	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/kernel"
	"github.com/roach88/tnpcore/internal/resolve"
)

// shapeView is one shape's enumeration as the resolver sees it, plus the
// kernel handles aligned with it.
type shapeView struct {
	topo    resolve.Topology
	handles map[ir.ReferenceKind][]kernel.Handle
}

func (v *shapeView) handle(kind ir.ReferenceKind, idx int) kernel.Handle {
	return v.handles[kind][idx]
}

func (v *shapeView) entity(kind ir.ReferenceKind, idx int) resolve.Entity {
	return v.topo.Of(kind)[idx]
}

// entityCache memoizes enumerations, identities and fingerprints for the
// duration of one pass. It is never carried across passes.
type entityCache struct {
	k     kernel.Kernel
	views map[string]*shapeView
}

func newEntityCache(k kernel.Kernel) *entityCache {
	return &entityCache{k: k, views: make(map[string]*shapeView)}
}

func (c *entityCache) view(ctx context.Context, s kernel.Shape) (*shapeView, error) {
	if v, ok := c.views[s.ID]; ok {
		return v, nil
	}
	v := &shapeView{handles: make(map[ir.ReferenceKind][]kernel.Handle, 2)}
	for _, kind := range []ir.ReferenceKind{ir.KindFace, ir.KindEdge} {
		hs, err := c.k.Enumerate(ctx, s, kind)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s of %s: %w", kind, s.ID, err)
		}
		ents := make([]resolve.Entity, len(hs))
		for i, h := range hs {
			id, err := c.k.Identity(h)
			if err != nil {
				return nil, fmt.Errorf("identity of %s %d: %w", kind, i, err)
			}
			fp, err := c.k.Fingerprint(h)
			if err != nil {
				return nil, fmt.Errorf("fingerprint of %s %d: %w", kind, i, err)
			}
			ents[i] = resolve.Entity{Index: i, Identity: id, Fingerprint: fp}
		}
		v.handles[kind] = hs
		if kind == ir.KindFace {
			v.topo.Faces = ents
		} else {
			v.topo.Edges = ents
		}
	}
	c.views[s.ID] = v
	return v, nil
}
