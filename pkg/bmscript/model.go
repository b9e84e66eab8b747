package bmscript

import (
	"go.uber.org/zap"

	"github.com/bastecklein/bmloader/pkg/anim"
	"github.com/bastecklein/bmloader/pkg/scene"
)

// Model is a fully built BM model: the scene graph root, the variable and
// animation registry, and the per-model animation runtime. A model is only
// handed to callers after the build completes; partially-built graphs are
// never exposed.
type Model struct {
	Root     *scene.Node
	Registry *Registry
	Animator *anim.Animator

	// Comments holds the script's comment lines verbatim, in order.
	Comments []string

	builder *Builder
	doc     *Document
	opts    Options
	log     *zap.Logger
}

func newModel(b *Builder, doc *Document, opts Options, root *scene.Node, reg *Registry, log *zap.Logger) *Model {
	m := &Model{
		Root:     root,
		Registry: reg,
		builder:  b,
		doc:      doc,
		opts:     opts,
		log:      log,
	}
	m.Animator = anim.New(root, reg.Tracks(), log)
	m.Animator.Lookup = reg.Node
	m.Animator.Resolver = NewEvaluator(reg, log)
	m.Animator.SwapTexture = m.swapTexture
	return m
}

// SetAnimation selects the active animation track list. An empty name
// clears animation; the next tick restores the rest pose.
func (m *Model) SetAnimation(name string) {
	m.Registry.ActiveAnimation = name
	m.Animator.SetActive(name)
}

// Tick advances the active animation by dt seconds. Driven externally,
// once per rendered frame.
func (m *Model) Tick(dt float64) {
	m.Animator.Tick(dt)
}

// SaveDefaultState captures the current pose as the rest pose.
func (m *Model) SaveDefaultState() {
	m.Animator.SaveDefaultState()
}

// RestoreDefaultState restores the saved rest pose.
func (m *Model) RestoreDefaultState() {
	m.Animator.RestoreDefaultState()
}

// Reset rebuilds the model from its original script and overrides,
// replacing the graph and registry wholesale.
func (m *Model) Reset() error {
	fresh, err := m.builder.Build(m.doc, m.opts)
	if err != nil {
		return err
	}
	m.Root = fresh.Root
	m.Registry = fresh.Registry
	m.Animator = fresh.Animator
	m.Comments = fresh.Comments
	return nil
}

// swapTexture applies a texture-change animation step: the node's primary
// material is replaced by the cached material carrying the new texture.
func (m *Model) swapTexture(n *scene.Node, textureName string) {
	old := n.PrimaryMaterial()
	if old == nil {
		return
	}
	tex, err := m.doc.Resolve(textureName)
	if err != nil || tex == nil {
		m.log.Warn("texture-change target not found", zap.String("texture", textureName))
	}
	n.Materials[0] = m.builder.Materials.Get(old.Kind, old.Color, tex)
}
