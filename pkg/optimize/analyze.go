// Package optimize analyzes a built BM scene graph and selectively
// re-batches static geometry, by instancing or by full geometry merging,
// to reduce draw calls without silently corrupting animated content or
// named-variable references. Every strategy supports a dry-run/execute
// split, and destructive execution sits behind a second explicit gate.
package optimize

import (
	"github.com/bastecklein/bmloader/pkg/anim"
	"github.com/bastecklein/bmloader/pkg/scene"
)

// GroupKey is the optimization grouping key: a geometry signature plus a
// material signature. Drawables sharing a key are instance candidates.
func GroupKey(n *scene.Node) string {
	if n.Geometry == nil {
		return ""
	}
	key := n.Geometry.Key
	if m := n.PrimaryMaterial(); m != nil {
		key += "|" + scene.MaterialKey(m.Kind, m.Color, m.TextureName())
	}
	return key
}

// DrawCalls counts the draw calls the graph currently costs: one per
// drawable, except that all drawables backed by the same instance batch
// count once.
func DrawCalls(root *scene.Node) int {
	count := 0
	batches := make(map[string]bool)
	root.Walk(func(n *scene.Node) bool {
		if n.Kind != scene.KindDrawable {
			return true
		}
		if n.BatchID == "" {
			count++
			return true
		}
		if !batches[n.BatchID] {
			batches[n.BatchID] = true
			count++
		}
		return true
	})
	return count
}

// AnimatedTargets returns the set of nodes that any instruction in any
// track list animates, resolved through the registry's name index.
func AnimatedTargets(tracks map[string]*anim.Track, index map[string]*scene.Node) map[*scene.Node]bool {
	out := make(map[*scene.Node]bool)
	for _, t := range tracks {
		for _, in := range t.Instructions {
			if n := index[in.Target]; n != nil {
				out[n] = true
			}
		}
	}
	return out
}

// ProtectedSet marks every node that is animated itself or sits under an
// animated ancestor container. Protected nodes are never re-batched by the
// conservative strategy.
func ProtectedSet(root *scene.Node, tracks map[string]*anim.Track, index map[string]*scene.Node) map[*scene.Node]bool {
	animated := AnimatedTargets(tracks, index)
	out := make(map[*scene.Node]bool, len(animated))

	root.Walk(func(n *scene.Node) bool {
		if animated[n] {
			// The whole subtree moves with the animated node.
			n.Walk(func(d *scene.Node) bool {
				out[d] = true
				return true
			})
			return false
		}
		return true
	})
	return out
}

// HasAnimation reports whether any track list carries instructions.
func HasAnimation(tracks map[string]*anim.Track) bool {
	for _, t := range tracks {
		if len(t.Instructions) > 0 {
			return true
		}
	}
	return false
}
