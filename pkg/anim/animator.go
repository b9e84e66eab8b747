// Package anim implements the procedural animation stepping engine for BM
// models: named track lists of per-instruction state machines that mutate
// scene-node transforms toward step targets each frame tick.
package anim

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/bastecklein/bmloader/pkg/scene"
)

// Op is the base operation of an animation action.
type Op int

const (
	OpNone Op = iota
	OpRotate
	OpPosition
	OpScale
	OpOpacity
	OpTexture
)

// Axis selects the transform component an action drives.
type Axis int

const (
	AxisNone Axis = iota
	AxisX
	AxisY
	AxisZ
)

// ParseAction splits an action identifier like "rotateY" or "positionX"
// into its base operation and axis suffix. Unknown identifiers return
// OpNone; the stepping engine skips them.
func ParseAction(name string) (Op, Axis) {
	axis := AxisNone
	base := name
	switch {
	case strings.HasSuffix(name, "X"):
		axis = AxisX
		base = name[:len(name)-1]
	case strings.HasSuffix(name, "Y"):
		axis = AxisY
		base = name[:len(name)-1]
	case strings.HasSuffix(name, "Z"):
		axis = AxisZ
		base = name[:len(name)-1]
	}

	switch base {
	case "rotate", "rotation":
		return OpRotate, axis
	case "position", "move":
		return OpPosition, axis
	case "scale":
		return OpScale, axis
	case "opacity":
		if axis == AxisNone {
			return OpOpacity, AxisNone
		}
	case "texture":
		if axis == AxisNone {
			return OpTexture, AxisNone
		}
	}
	return OpNone, AxisNone
}

// Instruction is a single animation instruction inside a track list. Cursor
// and Elapsed are the mutable stepping state; everything else is set once
// at parse time.
type Instruction struct {
	Target string   // variable name of the animated node
	Action string   // raw action identifier, e.g. "rotateY"
	Speed  string   // speed expression (dwell seconds for texture actions)
	Steps  []string // step-target expressions

	Cursor  int     // index into Steps, always in [0, len(Steps))
	Elapsed float64 // accumulated time for time-gated actions
}

// Track is a named ordered list of animation instructions.
type Track struct {
	Name         string
	Instructions []*Instruction
}

// ResetCursors rewinds every instruction in the track to its first step.
func (t *Track) ResetCursors() {
	for _, in := range t.Instructions {
		in.Cursor = 0
		in.Elapsed = 0
	}
}

// Targets returns the set of variable names animated by the track.
func (t *Track) Targets() map[string]bool {
	out := make(map[string]bool, len(t.Instructions))
	for _, in := range t.Instructions {
		out[in.Target] = true
	}
	return out
}

// Resolver evaluates speed and step-target expressions. The script
// interpreter's expression evaluator satisfies this.
type Resolver interface {
	// Number resolves an expression to a float64, soft-failing to 0.
	Number(expr string) float64
	// Value resolves an expression to its raw result (number or string).
	Value(expr string) any
}

// Animator advances the animation tracks of one model. It is driven
// externally, once per rendered frame, and is synchronous.
type Animator struct {
	Root     *scene.Node
	Tracks   map[string]*Track
	Lookup   func(name string) *scene.Node // registry name -> node
	Resolver Resolver

	// SwapTexture applies a texture-change step to a node. Optional; when
	// nil, texture actions only advance their cursor.
	SwapTexture func(n *scene.Node, textureName string)

	log *zap.Logger

	active     string
	prevActive string
	rest       scene.Snapshot
}

// New creates an animator over the given root and track lists. A nil
// logger defaults to a no-op logger.
func New(root *scene.Node, tracks map[string]*Track, log *zap.Logger) *Animator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Animator{Root: root, Tracks: tracks, log: log}
}

// Active returns the name of the active animation, or "".
func (a *Animator) Active() string {
	return a.active
}

// SetActive switches the active animation. An empty name clears animation;
// the next Tick restores the rest pose.
func (a *Animator) SetActive(name string) {
	a.active = name
}

// SaveDefaultState captures the current pose of the whole tree as the rest
// pose used by RestoreDefaultState.
func (a *Animator) SaveDefaultState() {
	a.rest = scene.CaptureSnapshot(a.Root)
}

// RestoreDefaultState writes the saved rest pose back onto the tree.
func (a *Animator) RestoreDefaultState() {
	a.rest.Restore(a.Root)
}

// Tick advances the active animation by dt seconds.
func (a *Animator) Tick(dt float64) {
	if a.active == "" {
		if a.prevActive != "" {
			a.RestoreDefaultState()
			a.prevActive = ""
		}
		for _, t := range a.Tracks {
			t.ResetCursors()
		}
		return
	}

	// Starting from idle: the pose the model has right now becomes the
	// rest pose that clearing the animation returns to.
	if a.prevActive == "" {
		a.SaveDefaultState()
	}
	a.prevActive = a.active

	for name, t := range a.Tracks {
		if name != a.active {
			t.ResetCursors()
		}
	}

	track := a.Tracks[a.active]
	if track == nil {
		return
	}
	for _, in := range track.Instructions {
		a.stepInstruction(in, dt)
	}
}

// stepInstruction applies one instruction for one tick.
func (a *Animator) stepInstruction(in *Instruction, dt float64) {
	if len(in.Steps) == 0 {
		return
	}
	op, axis := ParseAction(in.Action)
	if op == OpNone {
		return
	}
	if a.Lookup == nil || a.Resolver == nil {
		return
	}
	node := a.Lookup(in.Target)
	if node == nil {
		a.log.Debug("animation target not found", zap.String("target", in.Target))
		return
	}

	speed := a.Resolver.Number(in.Speed)

	switch op {
	case OpPosition:
		a.stepToward(in, &node.Transform.Position, axis, speed, dt)
	case OpScale:
		a.stepToward(in, &node.Transform.Scale, axis, speed, dt)
	case OpRotate:
		a.stepRotation(in, node, axis, speed, dt)
	case OpOpacity:
		target := float32(a.Resolver.Number(in.Steps[in.Cursor]))
		next, done := moveToward(node.Opacity, target, float32(speed*dt))
		node.Opacity = next
		if done {
			a.advance(in)
		}
	case OpTexture:
		in.Elapsed += dt
		if in.Elapsed >= speed {
			if v, ok := a.Resolver.Value(in.Steps[in.Cursor]).(string); ok && a.SwapTexture != nil {
				a.SwapTexture(node, v)
			}
			in.Elapsed = 0
			a.advance(in)
		}
	}
}

// stepToward drives one component of a vector toward the current step
// target, clamping on arrival.
func (a *Animator) stepToward(in *Instruction, vec *mgl32.Vec3, axis Axis, speed, dt float64) {
	i := componentIndex(axis)
	if i < 0 {
		return
	}
	target := float32(a.Resolver.Number(in.Steps[in.Cursor]))
	next, done := moveToward(vec[i], target, float32(speed*dt))
	vec[i] = next
	if done {
		a.advance(in)
	}
}

// stepRotation drives a rotation component. Speed and step targets are in
// degrees. Crossing the target advances the step; the overshoot is kept,
// and the value wraps by a full turn when it passes one.
func (a *Animator) stepRotation(in *Instruction, node *scene.Node, axis Axis, speed, dt float64) {
	i := componentIndex(axis)
	if i < 0 {
		return
	}
	cur := float64(node.Transform.Rotation[i])
	target := a.Resolver.Number(in.Steps[in.Cursor]) * math.Pi / 180
	delta := speed * math.Pi / 180 * dt

	// The target is always ahead in the direction of travel, up to one
	// revolution away.
	eff := target
	if delta >= 0 {
		for eff <= cur {
			eff += 2 * math.Pi
		}
	} else {
		for eff >= cur {
			eff -= 2 * math.Pi
		}
	}

	next := cur + delta
	crossed := (delta >= 0 && next >= eff) || (delta < 0 && next <= eff)

	if next >= 2*math.Pi {
		next -= 2 * math.Pi
	} else if next <= -2*math.Pi {
		next += 2 * math.Pi
	}

	node.Transform.Rotation[i] = float32(next)
	if crossed {
		a.advance(in)
	}
}

// advance moves the step cursor forward, wrapping to 0 after the last step.
func (a *Animator) advance(in *Instruction) {
	in.Cursor++
	if in.Cursor >= len(in.Steps) {
		in.Cursor = 0
	}
}

// moveToward moves cur toward target by at most step, reporting arrival.
func moveToward(cur, target, step float32) (float32, bool) {
	if step < 0 {
		step = -step
	}
	diff := target - cur
	if diff > 0 {
		if diff <= step {
			return target, true
		}
		return cur + step, false
	}
	if -diff <= step {
		return target, true
	}
	return cur - step, false
}

func componentIndex(axis Axis) int {
	switch axis {
	case AxisX:
		return 0
	case AxisY:
		return 1
	case AxisZ:
		return 2
	}
	return -1
}
