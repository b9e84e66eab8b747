package bmscript

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/bastecklein/bmloader/pkg/anim"
	"github.com/bastecklein/bmloader/pkg/scene"
)

// DefaultColor is used for primitives created without a color argument.
var DefaultColor = scene.Color{R: 255, G: 255, B: 255}

// Builder interprets BM scripts into scene graphs. The geometry and
// material caches are injected so tests can supply isolated stores; the
// package-level defaults are process-wide and shared across builds.
type Builder struct {
	Geometries *scene.GeometryCache
	Materials  *scene.MaterialCache
	Log        *zap.Logger
}

// NewBuilder creates a builder over the process-wide shared caches.
func NewBuilder(log *zap.Logger) *Builder {
	return &Builder{
		Geometries: sharedGeometries,
		Materials:  sharedMaterials,
		Log:        log,
	}
}

var (
	sharedGeometries = scene.NewGeometryCache()
	sharedMaterials  = scene.NewMaterialCache()
)

// Options carries load-time options for a build.
type Options struct {
	// Overrides shadow script-declared bindings of the same name without
	// destroying them.
	Overrides map[string]any
}

// current is the "current object" carried across a modifier walk: either a
// plain name or a resolved node, never implicitly both.
type current struct {
	name string
	node *scene.Node
}

// buildState is the per-build interpreter state.
type buildState struct {
	b    *Builder
	doc  *Document
	reg  *Registry
	eval *Evaluator
	log  *zap.Logger

	root      *scene.Node
	groups    []*scene.Node // open container stack
	geoOffset mgl32.Vec3    // persistent geometry-translate modifier

	// Per-line walk state.
	curVar string
	cur    current
	track  *anim.Track // non-nil while in animation-definition mode

	comments []string
}

// Build interprets the document's script into a model. Scripts are
// untrusted input: malformed instructions and dangling references are
// logged and skipped, never raised.
func (b *Builder) Build(doc *Document, opts Options) (*Model, error) {
	if doc == nil || doc.Script == "" {
		return nil, ErrEmptyDocument
	}
	log := b.Log
	if log == nil {
		log = zap.NewNop()
	}

	reg := NewRegistry()
	for name, v := range opts.Overrides {
		reg.SetOverride(name, v)
	}

	st := &buildState{
		b:    b,
		doc:  doc,
		reg:  reg,
		eval: NewEvaluator(reg, log),
		log:  log,
		root: scene.NewContainer(),
	}

	for _, raw := range SplitStatements(doc.Script) {
		st.runLine(ParseLine(raw))
	}

	model := newModel(b, doc, opts, st.root, reg, log)
	model.Comments = st.comments
	model.Animator.SaveDefaultState()
	return model, nil
}

// modifierHandlers dispatches classified modifiers by tag.
var modifierHandlers = map[ModifierKind]func(*buildState, Modifier){
	ModVarRef:     (*buildState).handleVarRef,
	ModAnimRef:    (*buildState).handleAnimRef,
	ModGroupStart: (*buildState).handleGroupStart,
	ModGroupEnd:   (*buildState).handleGroupEnd,
	ModPrimitive:  (*buildState).handlePrimitive,
	ModAdd:        (*buildState).handleAdd,
	ModTransform:  (*buildState).handleTransform,
	ModValue:      (*buildState).handleValue,
	ModUnknown:    (*buildState).handleUnknown,
}

// runLine walks one line's modifiers left to right.
func (st *buildState) runLine(line Line) {
	if line.Comment {
		st.comments = append(st.comments, line.Raw)
		return
	}
	if len(line.Modifiers) == 0 && line.Assign == "" {
		return
	}

	st.curVar = line.Assign
	st.cur = current{}
	st.track = nil

	// Assignment-only shortcut: "$n = 5" has no chain and no call syntax,
	// so the remainder is bound directly as a value.
	if line.Assign != "" && len(line.Modifiers) == 1 &&
		line.Modifiers[0].Kind == ModValue && !strings.Contains(line.Modifiers[0].Raw, "(") {
		st.bindValue(line.Assign, line.Modifiers[0].Raw)
		return
	}

	for _, mod := range line.Modifiers {
		if st.track != nil {
			st.appendAnimInstruction(mod)
			continue
		}
		modifierHandlers[mod.Kind](st, mod)
	}
}

// handleVarRef adopts or aliases a variable reference.
func (st *buildState) handleVarRef(mod Modifier) {
	v, ok := st.reg.Get(mod.Name)
	if !ok {
		st.log.Warn("reference to undefined variable", zap.String("name", mod.Name))
	}

	if st.curVar == "" {
		st.curVar = mod.Name
	} else if ok {
		st.reg.Set(st.curVar, v)
	}
	if n, isNode := v.(*scene.Node); isNode {
		st.cur = current{node: n}
	} else {
		st.cur = current{name: mod.Name}
	}
}

// handleAnimRef switches into animation-definition mode for the rest of
// the line.
func (st *buildState) handleAnimRef(mod Modifier) {
	st.track = st.reg.Track(mod.Name)
	if st.curVar != "" {
		// Alias the track name the same way variables alias.
		st.reg.Set(st.curVar, mod.Name)
	}
}

// appendAnimInstruction records one animation instruction on the active
// track. Form: action($target, speed, step, step, ...).
func (st *buildState) appendAnimInstruction(mod Modifier) {
	if len(mod.Args) < 2 {
		st.log.Warn("malformed animation instruction", zap.String("instruction", mod.Raw))
		return
	}
	target := strings.TrimPrefix(mod.Args[0], "$")
	st.track.Instructions = append(st.track.Instructions, &anim.Instruction{
		Target: target,
		Action: mod.Name,
		Speed:  mod.Args[1],
		Steps:  append([]string(nil), mod.Args[2:]...),
	})
}

// handleGroupStart opens a container that parents subsequently created
// drawables until closed.
func (st *buildState) handleGroupStart(Modifier) {
	g := scene.NewContainer()
	st.parentScope().AddChild(g)
	st.groups = append(st.groups, g)
	st.cur = current{node: g}
	if st.curVar != "" {
		st.reg.Set(st.curVar, g)
	}
}

// handleGroupEnd closes the innermost open container. The finished group
// stays parented to whatever scope was active when it opened.
func (st *buildState) handleGroupEnd(Modifier) {
	if len(st.groups) == 0 {
		st.log.Warn("endgroup with no open group")
		return
	}
	g := st.groups[len(st.groups)-1]
	st.groups = st.groups[:len(st.groups)-1]
	st.cur = current{node: g}
}

// parentScope is the container new nodes attach to: the innermost open
// group, or the root.
func (st *buildState) parentScope() *scene.Node {
	if len(st.groups) > 0 {
		return st.groups[len(st.groups)-1]
	}
	return st.root
}

// handlePrimitive creates (or reuses) geometry and material for a shape
// instruction and attaches a drawable to the current scope.
func (st *buildState) handlePrimitive(mod Modifier) {
	params, color, texName, kind := st.classifyShapeArgs(mod.Args)

	var tex *scene.Texture
	if texName != "" {
		t, err := st.doc.Resolve(texName)
		if err != nil || t == nil {
			st.log.Warn("texture not found, using flat color", zap.String("texture", texName))
		} else {
			tex = t
		}
	}

	geo := st.b.Geometries.Get(scene.Shape(mod.Name), params, st.geoOffset)
	mat := st.b.Materials.Get(kind, color, tex)
	node := scene.NewDrawable(geo, mat)
	st.parentScope().AddChild(node)

	st.cur = current{node: node}
	if st.curVar != "" {
		st.reg.Set(st.curVar, node)
	}
}

// classifyShapeArgs splits a primitive's argument list into numeric shape
// parameters, an optional color, an optional texture name, and an optional
// material-kind override, in that order of recognition.
func (st *buildState) classifyShapeArgs(args []string) (params []float64, color scene.Color, texName string, kind scene.MaterialKind) {
	color = DefaultColor
	kind = scene.MaterialStandard
	numericDone := false

	for _, arg := range args {
		if c, ok := scene.ParseColor(arg); ok {
			color = c
			numericDone = true
			continue
		}
		if scene.KnownMaterialKind(arg) {
			kind = scene.MaterialKind(arg)
			numericDone = true
			continue
		}
		v := st.eval.Evaluate(arg)
		if f, isNum := v.(float64); isNum && !numericDone {
			params = append(params, f)
			continue
		}
		if s, isStr := v.(string); isStr {
			texName = s
			numericDone = true
			continue
		}
		st.log.Warn("unrecognized shape argument", zap.String("arg", arg))
	}
	return params, color, texName, kind
}

// handleAdd reparents an existing named node under the current object.
func (st *buildState) handleAdd(mod Modifier) {
	if len(mod.Args) < 1 {
		st.log.Warn("add() requires a target")
		return
	}
	target := st.reg.Node(strings.TrimPrefix(mod.Args[0], "$"))
	parent := st.currentNode()
	if target == nil || parent == nil {
		st.log.Warn("add() with unresolved node", zap.String("arg", mod.Args[0]))
		return
	}
	if parent.Kind != scene.KindContainer {
		st.log.Warn("add() target is not a container")
		return
	}
	parent.AddChild(target)
}

// transformHandlers dispatches transform/material instructions by keyword.
var transformHandlers = map[string]func(*buildState, *scene.Node, []string){
	"position":     (*buildState).applyPosition,
	"rotate":       (*buildState).applyRotate,
	"scale":        (*buildState).applyScale,
	"opacity":      (*buildState).applyOpacity,
	"orientation":  (*buildState).applyOrientation,
	"material":     (*buildState).applyMaterial,
	"geotranslate": (*buildState).applyGeoTranslate,
	"bottomalign":  (*buildState).applyBottomAlign,
}

// handleTransform applies a transform/material instruction to the current
// object, resolving the current variable name to a node first when one is
// active.
func (st *buildState) handleTransform(mod Modifier) {
	// geotranslate mutates interpreter state, not a node.
	if mod.Name == "geotranslate" {
		st.applyGeoTranslate(nil, mod.Args)
		return
	}

	node := st.currentNode()
	if node == nil {
		st.log.Warn("transform with no current node", zap.String("instruction", mod.Name))
		return
	}
	transformHandlers[mod.Name](st, node, mod.Args)
}

// currentNode resolves the current object to a node, preferring the active
// variable name.
func (st *buildState) currentNode() *scene.Node {
	if st.curVar != "" {
		if n := st.reg.Node(st.curVar); n != nil {
			return n
		}
	}
	if st.cur.node != nil {
		return st.cur.node
	}
	if st.cur.name != "" {
		return st.reg.Node(st.cur.name)
	}
	return nil
}

// vec3Args evaluates up to three numeric arguments.
func (st *buildState) vec3Args(args []string) mgl32.Vec3 {
	var v mgl32.Vec3
	for i := 0; i < 3 && i < len(args); i++ {
		v[i] = float32(st.eval.Number(args[i]))
	}
	return v
}

func (st *buildState) applyPosition(n *scene.Node, args []string) {
	n.Transform.Position = st.vec3Args(args)
}

// applyRotate rotates the node by the given Euler angles, in degrees.
func (st *buildState) applyRotate(n *scene.Node, args []string) {
	d := st.vec3Args(args)
	n.Transform.Rotation = n.Transform.Rotation.Add(degToRad(d))
}

// applyOrientation sets the node's absolute Euler rotation, in degrees.
func (st *buildState) applyOrientation(n *scene.Node, args []string) {
	n.Transform.Rotation = degToRad(st.vec3Args(args))
}

func (st *buildState) applyScale(n *scene.Node, args []string) {
	s := st.vec3Args(args)
	for i := 0; i < 3; i++ {
		if s[i] == 0 {
			s[i] = 1
		}
	}
	n.Transform.Scale = s
}

func (st *buildState) applyOpacity(n *scene.Node, args []string) {
	if len(args) < 1 {
		return
	}
	n.Opacity = float32(st.eval.Number(args[0]))
}

// applyMaterial swaps the node's material kind, keeping color and texture.
func (st *buildState) applyMaterial(n *scene.Node, args []string) {
	if len(args) < 1 || !scene.KnownMaterialKind(args[0]) {
		st.log.Warn("unknown material kind", zap.Strings("args", args))
		return
	}
	old := n.PrimaryMaterial()
	if old == nil {
		return
	}
	n.Materials[0] = st.b.Materials.Get(scene.MaterialKind(args[0]), old.Color, old.Texture)
}

// applyGeoTranslate sets the persistent offset applied to the local
// geometry of subsequently created primitives. Not retroactive.
func (st *buildState) applyGeoTranslate(_ *scene.Node, args []string) {
	st.geoOffset = st.vec3Args(args)
}

// applyBottomAlign lifts the node so its geometry's bottom rests at the
// node's local origin.
func (st *buildState) applyBottomAlign(n *scene.Node, _ []string) {
	if n.Geometry == nil {
		return
	}
	min, _ := n.Geometry.Bounds()
	n.Transform.Position[1] -= min.Y() * n.Transform.Scale.Y()
}

// handleValue binds a plain value to the active variable name.
func (st *buildState) handleValue(mod Modifier) {
	if st.curVar == "" {
		st.log.Warn("dangling value with no assignment", zap.String("value", mod.Raw))
		return
	}
	st.bindValue(st.curVar, mod.Raw)
}

// bindValue stores a value binding. Expressions that reference other
// variables are stored as raw text and resolved at use sites, keeping
// forward references live and circular references detectable.
func (st *buildState) bindValue(name, raw string) {
	if strings.Contains(raw, "$") {
		st.reg.Set(name, raw)
		return
	}
	st.reg.Set(name, st.eval.Evaluate(raw))
}

// handleUnknown logs and skips a malformed instruction.
func (st *buildState) handleUnknown(mod Modifier) {
	if st.curVar != "" && len(mod.Args) == 0 {
		st.handleValue(mod)
		return
	}
	st.log.Warn("unknown instruction skipped", zap.String("instruction", mod.Raw))
}

func degToRad(v mgl32.Vec3) mgl32.Vec3 {
	const f = math.Pi / 180
	return mgl32.Vec3{v.X() * f, v.Y() * f, v.Z() * f}
}
