package optimize

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/bastecklein/bmloader/pkg/anim"
	"github.com/bastecklein/bmloader/pkg/scene"
)

// MergeOptions configures a full geometry merge.
type MergeOptions struct {
	// DryRun reports the analysis without touching the graph. Use
	// DefaultMergeOptions to get the safe default (true).
	DryRun bool
	// AllowDestructive must be set, in addition to DryRun being false,
	// before the merge rewrites the graph. Double confirmation by design
	// of the safety protocol.
	AllowDestructive bool
	// KeepNormals bakes rotated normals into the merged geometry. When
	// false, normals are dropped to shrink the merged buffers.
	KeepNormals bool
}

// DefaultMergeOptions returns the safe defaults: dry run on, destruction
// not allowed, normals kept.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{DryRun: true, KeepNormals: true}
}

// MergeResult is the structured outcome of a full merge. Refusals are
// results, not errors; the graph is untouched unless Executed is true.
type MergeResult struct {
	CanMerge bool
	Executed bool
	Reason   string
	Warnings []string

	Buckets         int
	DrawCallsBefore int
	DrawCallsAfter  int
	Saved           int
	MergedVertices  int
}

// StaleBindingsWarning is attached to every executed merge: registry
// name-to-node bindings inside the merged subtree no longer resolve to
// live drawables.
const StaleBindingsWarning = "registry bindings for merged nodes are stale; names inside the merged subtree no longer track visible geometry"

// FullMerge buckets all drawables by material signature, bakes each
// member's accumulated world transform into a clone of its geometry, and
// concatenates every bucket into one drawable, one draw call per distinct
// material. It refuses outright when any animation track exists. On any
// failure the graph keeps its prior state.
func FullMerge(root *scene.Node, tracks map[string]*anim.Track, opts MergeOptions) *MergeResult {
	res := &MergeResult{DrawCallsBefore: DrawCalls(root)}
	res.DrawCallsAfter = res.DrawCallsBefore

	if HasAnimation(tracks) {
		res.Reason = "model defines animation tracks; a merged graph cannot be animated"
		return res
	}

	buckets := make(map[string][]*scene.Node)
	root.Walk(func(n *scene.Node) bool {
		if n.Kind != scene.KindDrawable || n.Geometry == nil {
			return true
		}
		key := "flat"
		if m := n.PrimaryMaterial(); m != nil {
			key = scene.MaterialKey(m.Kind, m.Color, m.TextureName())
		}
		buckets[key] = append(buckets[key], n)
		return true
	})

	if len(buckets) == 0 {
		res.Reason = "no drawable geometry to merge"
		return res
	}

	res.CanMerge = true
	res.Buckets = len(buckets)
	res.DrawCallsAfter = len(buckets)
	res.Saved = res.DrawCallsBefore - res.DrawCallsAfter

	if opts.DryRun {
		res.Reason = "dry run; no changes applied"
		return res
	}
	if !opts.AllowDestructive {
		res.CanMerge = false
		res.DrawCallsAfter = res.DrawCallsBefore
		res.Saved = 0
		res.Reason = "destructive merge requires the explicit allow flag"
		return res
	}

	// Build every replacement node before touching the tree, so a failure
	// mid-way leaves the graph in its prior state.
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := make([]*scene.Node, 0, len(keys))
	for _, key := range keys {
		node, err := mergeBucket(buckets[key], opts.KeepNormals)
		if err != nil {
			res.CanMerge = false
			res.DrawCallsAfter = res.DrawCallsBefore
			res.Saved = 0
			res.Reason = fmt.Sprintf("merge failed, graph unchanged: %v", err)
			return res
		}
		res.MergedVertices += len(node.Geometry.Positions)
		merged = append(merged, node)
	}

	root.ClearChildren()
	for _, n := range merged {
		root.AddChild(n)
	}

	res.Executed = true
	res.Reason = fmt.Sprintf("merged %d draw calls into %d", res.DrawCallsBefore, res.DrawCallsAfter)
	res.Warnings = append(res.Warnings, StaleBindingsWarning)
	return res
}

// mergeBucket concatenates the world-baked geometry of every node in one
// material bucket into a single drawable with an identity transform.
func mergeBucket(nodes []*scene.Node, keepNormals bool) (*scene.Node, error) {
	combined := &scene.Geometry{Shape: "merged"}

	for _, n := range nodes {
		g := n.Geometry
		if g == nil {
			return nil, fmt.Errorf("drawable without geometry")
		}
		world := n.WorldMatrix()
		normalMat := world.Mat3()

		base := uint32(len(combined.Positions))
		for _, p := range g.Positions {
			baked := mgl32.TransformCoordinate(p, world)
			combined.Positions = append(combined.Positions, baked)
		}
		if keepNormals {
			for _, nm := range g.Normals {
				v := normalMat.Mul3x1(nm)
				if l := v.Len(); l > 0 {
					v = v.Mul(1 / l)
				}
				combined.Normals = append(combined.Normals, v)
			}
		}
		for _, idx := range g.Indices {
			combined.Indices = append(combined.Indices, base+idx)
		}
	}

	node := scene.NewDrawable(combined, nodes[0].PrimaryMaterial())
	return node, nil
}
