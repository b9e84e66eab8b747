package optimize

import (
	"sort"

	"github.com/google/uuid"

	"github.com/bastecklein/bmloader/pkg/anim"
	"github.com/bastecklein/bmloader/pkg/scene"
)

// Instancing threshold constants. Empirical tuning values, open to
// recalibration.
const (
	// DefaultInstanceThreshold is the minimum group size the conservative
	// strategy batches.
	DefaultInstanceThreshold = 3
	// SmallModelInstanceThreshold applies to small, animation-free models,
	// where even pairs are worth batching.
	SmallModelInstanceThreshold = 2
	// SmallModelDrawableLimit is the drawable count under which a model
	// counts as small.
	SmallModelDrawableLimit = 24
	// AggressiveInstanceThreshold is the minimum group size the aggressive
	// strategy batches.
	AggressiveInstanceThreshold = 2
)

// InstancingOptions configures an instancing pass.
type InstancingOptions struct {
	// Threshold is the minimum group size to batch. Zero selects the
	// adaptive default.
	Threshold int
	// DryRun reports the analysis without flagging any node. Use
	// DefaultInstancingOptions to get the safe default (true).
	DryRun bool
}

// DefaultInstancingOptions returns the safe defaults: dry run on, adaptive
// threshold.
func DefaultInstancingOptions() InstancingOptions {
	return InstancingOptions{DryRun: true}
}

// InstanceGroup is one bucket of drawables sharing a grouping key.
type InstanceGroup struct {
	Key     string
	BatchID string // assigned only when executed
	Nodes   []*scene.Node
}

// InstancingResult is the structured outcome of an instancing pass.
type InstancingResult struct {
	Strategy        string
	DryRun          bool
	Threshold       int
	Groups          []InstanceGroup
	ProtectedCount  int
	DrawCallsBefore int
	DrawCallsAfter  int
	Saved           int
}

// ConservativeInstancing batches unprotected static drawables that share a
// grouping key. Node identities are preserved; batched nodes are only
// flagged with a shared batch ID, so variable references and animation
// stay valid. Running the analysis twice without executing returns
// identical results and never mutates the graph.
func ConservativeInstancing(root *scene.Node, tracks map[string]*anim.Track, index map[string]*scene.Node, opts InstancingOptions) *InstancingResult {
	protected := ProtectedSet(root, tracks, index)

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultInstanceThreshold
		if !HasAnimation(tracks) && root.CountDrawables() < SmallModelDrawableLimit {
			threshold = SmallModelInstanceThreshold
		}
	}

	return runInstancing(root, "conservative", protected, threshold, opts.DryRun)
}

// AggressiveInstancing batches with lower thresholds and without the
// ancestor-protection walk. It can desynchronize a node's individual
// identity from its visual representation, so it is opt-in only.
func AggressiveInstancing(root *scene.Node, opts InstancingOptions) *InstancingResult {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = AggressiveInstanceThreshold
	}
	return runInstancing(root, "aggressive", nil, threshold, opts.DryRun)
}

func runInstancing(root *scene.Node, strategy string, protected map[*scene.Node]bool, threshold int, dryRun bool) *InstancingResult {
	res := &InstancingResult{
		Strategy:        strategy,
		DryRun:          dryRun,
		Threshold:       threshold,
		ProtectedCount:  len(protected),
		DrawCallsBefore: DrawCalls(root),
	}

	buckets := make(map[string][]*scene.Node)
	root.Walk(func(n *scene.Node) bool {
		if n.Kind != scene.KindDrawable || n.BatchID != "" || protected[n] {
			return true
		}
		key := GroupKey(n)
		if key == "" {
			return true
		}
		buckets[key] = append(buckets[key], n)
		return true
	})

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	savings := 0
	for _, key := range keys {
		nodes := buckets[key]
		if len(nodes) < threshold {
			continue
		}
		group := InstanceGroup{Key: key, Nodes: nodes}
		if !dryRun {
			group.BatchID = uuid.NewString()
			for _, n := range nodes {
				n.BatchID = group.BatchID
			}
		}
		res.Groups = append(res.Groups, group)
		savings += len(nodes) - 1
	}

	res.DrawCallsAfter = res.DrawCallsBefore - savings
	res.Saved = savings
	return res
}
