package optimize

import (
	"testing"

	"github.com/bastecklein/bmloader/pkg/bmscript"
	"github.com/bastecklein/bmloader/pkg/scene"
)

const threeBoxScript = `
	$a = box(1,1,1,#ff0000) > position(0,0,0)
	$b = box(1,1,1,#ff0000) > position(2,0,0)
	$c = box(1,1,1,#ff0000) > position(4,0,0)
`

const threeBoxSpinScript = threeBoxScript + `
	@spin = rotateY($a, 90, 0, 90, 180, 270, 360)
`

func buildModel(t *testing.T, script string) *bmscript.Model {
	t.Helper()
	b := &bmscript.Builder{
		Geometries: scene.NewGeometryCache(),
		Materials:  scene.NewMaterialCache(),
	}
	model, err := b.Build(&bmscript.Document{Script: script}, bmscript.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return model
}

func TestConservativeInstancing_ThreeBoxes(t *testing.T) {
	model := buildModel(t, threeBoxScript)

	opts := DefaultInstancingOptions()
	opts.Threshold = 3
	opts.DryRun = false
	res := ConservativeInstancing(model.Root, model.Registry.Tracks(), model.Registry.NodeIndex(), opts)

	if len(res.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(res.Groups))
	}
	if res.DrawCallsBefore != 3 || res.DrawCallsAfter != 1 {
		t.Errorf("draw calls %d -> %d, want 3 -> 1", res.DrawCallsBefore, res.DrawCallsAfter)
	}
	if got := DrawCalls(model.Root); got != 1 {
		t.Errorf("graph draw calls after execute = %d, want 1", got)
	}

	// Node identities stay valid registry targets.
	for _, name := range []string{"a", "b", "c"} {
		n := model.Registry.Node(name)
		if n == nil {
			t.Errorf("$%s no longer resolvable", name)
			continue
		}
		if n.BatchID == "" {
			t.Errorf("$%s not flagged as batch-backed", name)
		}
	}
}

func TestConservativeInstancing_DryRunIsIdempotent(t *testing.T) {
	model := buildModel(t, threeBoxScript)

	opts := DefaultInstancingOptions()
	opts.Threshold = 3

	before := DrawCalls(model.Root)
	first := ConservativeInstancing(model.Root, model.Registry.Tracks(), model.Registry.NodeIndex(), opts)
	second := ConservativeInstancing(model.Root, model.Registry.Tracks(), model.Registry.NodeIndex(), opts)

	if DrawCalls(model.Root) != before {
		t.Error("dry run mutated the graph")
	}
	if first.DrawCallsBefore != second.DrawCallsBefore ||
		first.DrawCallsAfter != second.DrawCallsAfter ||
		len(first.Groups) != len(second.Groups) {
		t.Errorf("dry run not idempotent: %+v vs %+v", first, second)
	}
	for _, g := range first.Groups {
		if g.BatchID != "" {
			t.Error("dry run assigned a batch ID")
		}
	}
}

func TestConservativeInstancing_ProtectsAnimatedNodes(t *testing.T) {
	model := buildModel(t, threeBoxSpinScript)

	opts := DefaultInstancingOptions()
	opts.Threshold = 2
	opts.DryRun = false
	res := ConservativeInstancing(model.Root, model.Registry.Tracks(), model.Registry.NodeIndex(), opts)

	if model.Registry.Node("a").BatchID != "" {
		t.Error("animated node must not be batched")
	}
	if res.ProtectedCount == 0 {
		t.Error("no nodes reported protected")
	}
	// b and c are still free to batch together.
	if len(res.Groups) != 1 || len(res.Groups[0].Nodes) != 2 {
		t.Fatalf("groups = %+v, want one group of two", res.Groups)
	}
}

func TestConservativeInstancing_ProtectionCoversGroupDescendants(t *testing.T) {
	model := buildModel(t, `
		$grp = startgroup()
		$a = box(1,1,1)
		$b = box(1,1,1)
		endgroup()
		@bob = positionY($grp, 1, 0, 1)
	`)

	opts := DefaultInstancingOptions()
	opts.Threshold = 2
	opts.DryRun = false
	res := ConservativeInstancing(model.Root, model.Registry.Tracks(), model.Registry.NodeIndex(), opts)

	if len(res.Groups) != 0 {
		t.Errorf("descendants of an animated container were batched: %+v", res.Groups)
	}
}

func TestAggressiveInstancing_IgnoresProtection(t *testing.T) {
	model := buildModel(t, threeBoxSpinScript)

	opts := DefaultInstancingOptions()
	opts.Threshold = 2
	opts.DryRun = false
	res := AggressiveInstancing(model.Root, opts)

	if len(res.Groups) != 1 || len(res.Groups[0].Nodes) != 3 {
		t.Fatalf("groups = %+v, want one group of three", res.Groups)
	}
	if model.Registry.Node("a").BatchID == "" {
		t.Error("aggressive strategy should batch the animated node too")
	}
}

func TestConservativeInstancing_AdaptiveThresholdForSmallModels(t *testing.T) {
	// Two identical boxes, no animation: the adaptive default drops to the
	// small-model threshold and batches the pair.
	model := buildModel(t, "$a = box(1,1,1); $b = box(1,1,1)")

	opts := DefaultInstancingOptions() // threshold 0 = adaptive
	res := ConservativeInstancing(model.Root, model.Registry.Tracks(), model.Registry.NodeIndex(), opts)

	if res.Threshold != SmallModelInstanceThreshold {
		t.Errorf("threshold = %d, want %d", res.Threshold, SmallModelInstanceThreshold)
	}
	if len(res.Groups) != 1 {
		t.Errorf("got %d groups, want 1", len(res.Groups))
	}
}

func TestDrawCalls_CountsBatchesOnce(t *testing.T) {
	root := scene.NewContainer()
	for i := 0; i < 3; i++ {
		n := scene.NewDrawable(nil, nil)
		n.BatchID = "batch-1"
		root.AddChild(n)
	}
	solo := scene.NewDrawable(nil, nil)
	root.AddChild(solo)

	if got := DrawCalls(root); got != 2 {
		t.Errorf("DrawCalls = %d, want 2", got)
	}
}
