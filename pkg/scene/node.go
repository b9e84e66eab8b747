// Package scene provides the scene-graph data model produced by the BM
// script interpreter: container and drawable nodes, primitive geometry,
// materials, and the content-addressed caches shared across builds.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// NodeKind distinguishes container nodes from drawable nodes.
type NodeKind int

const (
	KindContainer NodeKind = iota // No visual payload, owns ordered children
	KindDrawable                  // One geometry, one or more materials
)

// String returns a human-readable node kind name.
func (k NodeKind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindDrawable:
		return "drawable"
	default:
		return "unknown"
	}
}

// Transform holds a node's local transform.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler angles, radians
	Scale    mgl32.Vec3
}

// DefaultTransform returns an identity transform.
func DefaultTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix returns the local transform matrix (translate * rotZ * rotY * rotX * scale).
func (t Transform) Matrix() mgl32.Mat4 {
	m := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	m = m.Mul4(mgl32.HomogRotate3DZ(t.Rotation.Z()))
	m = m.Mul4(mgl32.HomogRotate3DY(t.Rotation.Y()))
	m = m.Mul4(mgl32.HomogRotate3DX(t.Rotation.X()))
	m = m.Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
	return m
}

// Node is an entity in the output scene graph. The graph is a tree: every
// node has at most one parent, rooted at the model's top-level container.
type Node struct {
	ID   string // Stable identity, used by snapshots and name indexes
	Kind NodeKind

	Transform Transform
	Opacity   float32

	// Drawable payload (nil for containers).
	Geometry  *Geometry
	Materials []*Material

	// BatchID is set when the node's draw is backed by a shared instance
	// batch. The node itself stays valid as a registry target.
	BatchID string

	parent   *Node
	children []*Node
}

// NewContainer creates an empty container node.
func NewContainer() *Node {
	return &Node{
		ID:        uuid.NewString(),
		Kind:      KindContainer,
		Transform: DefaultTransform(),
		Opacity:   1,
	}
}

// NewDrawable creates a drawable node with the given geometry and material.
func NewDrawable(geo *Geometry, mat *Material) *Node {
	n := &Node{
		ID:        uuid.NewString(),
		Kind:      KindDrawable,
		Transform: DefaultTransform(),
		Opacity:   1,
		Geometry:  geo,
	}
	if mat != nil {
		n.Materials = []*Material{mat}
	}
	return n
}

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's ordered children.
func (n *Node) Children() []*Node {
	return n.children
}

// AddChild appends child under n, detaching it from any previous parent.
func (n *Node) AddChild(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// RemoveChild detaches child from n. No-op if child is not a direct child.
func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// ClearChildren detaches all children from n.
func (n *Node) ClearChildren() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// Walk visits n and every descendant in depth-first order. Returning false
// from fn stops descent below that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// WorldMatrix returns the node's accumulated transform from the root down.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.Transform.Matrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform.Matrix().Mul4(m)
	}
	return m
}

// Ancestors returns the chain of parents from n's parent up to the root.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// CountNodes returns the number of nodes in the subtree rooted at n.
func (n *Node) CountNodes() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

// CountDrawables returns the number of drawable nodes in the subtree.
func (n *Node) CountDrawables() int {
	count := 0
	n.Walk(func(node *Node) bool {
		if node.Kind == KindDrawable {
			count++
		}
		return true
	})
	return count
}

// PrimaryMaterial returns the node's first material, or nil.
func (n *Node) PrimaryMaterial() *Material {
	if len(n.Materials) == 0 {
		return nil
	}
	return n.Materials[0]
}
