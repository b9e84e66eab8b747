package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNode_AddChildReparents(t *testing.T) {
	a := NewContainer()
	b := NewContainer()
	child := NewContainer()

	a.AddChild(child)
	if child.Parent() != a || len(a.Children()) != 1 {
		t.Fatal("child not attached to a")
	}

	b.AddChild(child)
	if child.Parent() != b {
		t.Error("child not reparented to b")
	}
	if len(a.Children()) != 0 {
		t.Error("child still listed under a")
	}
}

func TestNode_WalkOrder(t *testing.T) {
	root := NewContainer()
	g := NewContainer()
	d1 := NewDrawable(nil, nil)
	d2 := NewDrawable(nil, nil)
	root.AddChild(g)
	g.AddChild(d1)
	root.AddChild(d2)

	var ids []string
	root.Walk(func(n *Node) bool {
		ids = append(ids, n.ID)
		return true
	})

	want := []string{root.ID, g.ID, d1.ID, d2.ID}
	if len(ids) != len(want) {
		t.Fatalf("visited %d nodes, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("visit %d = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestNode_WorldMatrix(t *testing.T) {
	root := NewContainer()
	root.Transform.Position = mgl32.Vec3{1, 0, 0}
	child := NewDrawable(nil, nil)
	child.Transform.Position = mgl32.Vec3{0, 2, 0}
	root.AddChild(child)

	p := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, child.WorldMatrix())
	want := mgl32.Vec3{1, 2, 0}
	if !p.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("world origin = %v, want %v", p, want)
	}
}

func TestNode_Counts(t *testing.T) {
	root := NewContainer()
	g := NewContainer()
	root.AddChild(g)
	g.AddChild(NewDrawable(nil, nil))
	g.AddChild(NewDrawable(nil, nil))

	if got := root.CountNodes(); got != 4 {
		t.Errorf("CountNodes = %d, want 4", got)
	}
	if got := root.CountDrawables(); got != 2 {
		t.Errorf("CountDrawables = %d, want 2", got)
	}
}

func TestSnapshot_RestoreIsFullReplacement(t *testing.T) {
	root := NewContainer()
	child := NewDrawable(nil, nil)
	child.Transform.Position = mgl32.Vec3{1, 2, 3}
	root.AddChild(child)

	snap := CaptureSnapshot(root)

	child.Transform.Position = mgl32.Vec3{9, 9, 9}
	child.Transform.Rotation = mgl32.Vec3{1, 1, 1}
	snap.Restore(root)

	if child.Transform.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("position = %v, want (1,2,3)", child.Transform.Position)
	}
	if child.Transform.Rotation != (mgl32.Vec3{}) {
		t.Errorf("rotation = %v, want zero", child.Transform.Rotation)
	}
}

func TestSnapshot_IgnoresNodesCreatedAfterCapture(t *testing.T) {
	root := NewContainer()
	snap := CaptureSnapshot(root)

	late := NewDrawable(nil, nil)
	late.Transform.Position = mgl32.Vec3{5, 0, 0}
	root.AddChild(late)

	snap.Restore(root)
	if late.Transform.Position != (mgl32.Vec3{5, 0, 0}) {
		t.Error("node created after capture must be left untouched")
	}
}
