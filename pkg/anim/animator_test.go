package anim

import (
	"math"
	"strconv"
	"testing"

	"github.com/bastecklein/bmloader/pkg/scene"
)

// literalResolver resolves expressions as plain literals, which is all
// these tests need.
type literalResolver struct{}

func (literalResolver) Number(expr string) float64 {
	f, _ := strconv.ParseFloat(expr, 64)
	return f
}

func (literalResolver) Value(expr string) any {
	if f, err := strconv.ParseFloat(expr, 64); err == nil {
		return f
	}
	return expr
}

// newTestAnimator builds a root with one drawable bound to the name "a"
// and a single track list around the given instruction.
func newTestAnimator(in *Instruction) (*Animator, *scene.Node) {
	root := scene.NewContainer()
	node := scene.NewDrawable(nil, nil)
	root.AddChild(node)

	tracks := map[string]*Track{
		"active": {Name: "active", Instructions: []*Instruction{in}},
	}
	a := New(root, tracks, nil)
	a.Lookup = func(name string) *scene.Node {
		if name == "a" {
			return node
		}
		return nil
	}
	a.Resolver = literalResolver{}
	return a, node
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in       string
		wantOp   Op
		wantAxis Axis
	}{
		{"rotateY", OpRotate, AxisY},
		{"rotateX", OpRotate, AxisX},
		{"positionZ", OpPosition, AxisZ},
		{"scaleX", OpScale, AxisX},
		{"opacity", OpOpacity, AxisNone},
		{"texture", OpTexture, AxisNone},
		{"rotate", OpRotate, AxisNone},
		{"bogus", OpNone, AxisNone},
		{"opacityX", OpNone, AxisNone},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, axis := ParseAction(tt.in)
			if op != tt.wantOp || axis != tt.wantAxis {
				t.Errorf("ParseAction(%q) = %v, %v; want %v, %v", tt.in, op, axis, tt.wantOp, tt.wantAxis)
			}
		})
	}
}

func TestTick_PositionStepsAndWraps(t *testing.T) {
	in := &Instruction{Target: "a", Action: "positionX", Speed: "2", Steps: []string{"4", "0"}}
	a, node := newTestAnimator(in)
	a.SetActive("active")

	a.Tick(1) // 0 -> 2
	if node.Transform.Position.X() != 2 {
		t.Errorf("X = %v, want 2", node.Transform.Position.X())
	}
	if in.Cursor != 0 {
		t.Errorf("cursor advanced early: %d", in.Cursor)
	}

	a.Tick(1) // 2 -> 4, clamp, advance
	if node.Transform.Position.X() != 4 {
		t.Errorf("X = %v, want clamped 4", node.Transform.Position.X())
	}
	if in.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", in.Cursor)
	}

	a.Tick(2) // 4 -> 0, clamp, advance wraps to 0
	if node.Transform.Position.X() != 0 {
		t.Errorf("X = %v, want 0", node.Transform.Position.X())
	}
	if in.Cursor != 0 {
		t.Errorf("cursor = %d, want wrapped 0", in.Cursor)
	}
}

func TestTick_RotationWraparound(t *testing.T) {
	// Speed 360 deg/s, single step target 0 deg, starting at 350 deg.
	// A tick that carries the value past a full turn keeps the overshoot:
	// rotation ends at (350 + 360*dt) - 360 and the cursor wraps to 0.
	in := &Instruction{Target: "a", Action: "rotateY", Speed: "360", Steps: []string{"0"}}
	a, node := newTestAnimator(in)
	node.Transform.Rotation[1] = float32(350 * math.Pi / 180)
	a.SetActive("active")

	dt := 0.05 // 350 + 360*0.05 = 368 >= 360
	a.Tick(dt)

	wantDeg := 350 + 360*dt - 360
	gotDeg := float64(node.Transform.Rotation.Y()) * 180 / math.Pi
	if math.Abs(gotDeg-wantDeg) > 1e-3 {
		t.Errorf("rotation = %v deg, want %v deg", gotDeg, wantDeg)
	}
	if in.Cursor != 0 {
		t.Errorf("cursor = %d, want wrapped 0", in.Cursor)
	}
}

func TestTick_TextureDwell(t *testing.T) {
	in := &Instruction{Target: "a", Action: "texture", Speed: "0.5", Steps: []string{"wood", "stone"}}
	a, node := newTestAnimator(in)

	var swaps []string
	a.SwapTexture = func(n *scene.Node, name string) {
		if n == node {
			swaps = append(swaps, name)
		}
	}
	a.SetActive("active")

	a.Tick(0.3)
	if len(swaps) != 0 {
		t.Fatal("texture swapped before the dwell elapsed")
	}
	a.Tick(0.3) // 0.6 >= 0.5: swap to step 0, reset elapsed, advance
	if len(swaps) != 1 || swaps[0] != "wood" {
		t.Fatalf("swaps = %v, want [wood]", swaps)
	}
	if in.Cursor != 1 || in.Elapsed != 0 {
		t.Errorf("cursor = %d elapsed = %v, want 1 and 0", in.Cursor, in.Elapsed)
	}

	a.Tick(0.6)
	if len(swaps) != 2 || swaps[1] != "stone" {
		t.Errorf("swaps = %v, want [wood stone]", swaps)
	}
}

func TestTick_ClearRestoresRestPose(t *testing.T) {
	in := &Instruction{Target: "a", Action: "positionY", Speed: "1", Steps: []string{"10"}}
	a, node := newTestAnimator(in)
	node.Transform.Position[1] = 3 // pose at animation start

	a.SetActive("active")
	a.Tick(1) // rest pose saved at 3, then moves to 4
	if node.Transform.Position.Y() != 4 {
		t.Fatalf("Y = %v, want 4", node.Transform.Position.Y())
	}

	a.SetActive("")
	a.Tick(0.1)
	if node.Transform.Position.Y() != 3 {
		t.Errorf("Y = %v, want restored rest pose 3", node.Transform.Position.Y())
	}
	if in.Cursor != 0 {
		t.Errorf("cursor = %d, want reset 0", in.Cursor)
	}
}

func TestTick_NonActiveTracksReset(t *testing.T) {
	active := &Instruction{Target: "a", Action: "positionX", Speed: "1", Steps: []string{"1"}}
	other := &Instruction{Target: "a", Action: "positionY", Speed: "1", Steps: []string{"1", "2"}, Cursor: 1}

	a, _ := newTestAnimator(active)
	a.Tracks["other"] = &Track{Name: "other", Instructions: []*Instruction{other}}
	a.SetActive("active")

	a.Tick(0.1)
	if other.Cursor != 0 {
		t.Errorf("non-active track cursor = %d, want reset 0", other.Cursor)
	}
}

func TestTick_MalformedActionIgnored(t *testing.T) {
	in := &Instruction{Target: "a", Action: "teleport", Speed: "1", Steps: []string{"1"}}
	a, node := newTestAnimator(in)
	a.SetActive("active")

	a.Tick(1) // must not panic or move anything
	if node.Transform.Position != (scene.DefaultTransform().Position) {
		t.Error("malformed action mutated the node")
	}
}

func TestTick_NilResolverIsIgnored(t *testing.T) {
	in := &Instruction{Target: "a", Action: "positionX", Speed: "1", Steps: []string{"5"}}
	a, node := newTestAnimator(in)
	a.Resolver = nil
	a.SetActive("active")

	a.Tick(1) // must not panic
	if node.Transform.Position.X() != 0 {
		t.Error("tick without a resolver must not animate")
	}
}

func TestTick_NoActiveNoPrevIsIdle(t *testing.T) {
	in := &Instruction{Target: "a", Action: "positionX", Speed: "1", Steps: []string{"5"}, Cursor: 0}
	a, node := newTestAnimator(in)

	a.Tick(1)
	if node.Transform.Position.X() != 0 {
		t.Error("idle tick must not animate")
	}
}
