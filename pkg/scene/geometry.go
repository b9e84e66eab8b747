package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Shape identifies a supported primitive kind.
type Shape string

const (
	ShapeBox      Shape = "box"
	ShapeSphere   Shape = "sphere"
	ShapeCylinder Shape = "cylinder"
	ShapeCone     Shape = "cone"
	ShapePlane    Shape = "plane"
	ShapeTorus    Shape = "torus"
)

// KnownShape reports whether name is a supported primitive kind.
func KnownShape(name string) bool {
	switch Shape(name) {
	case ShapeBox, ShapeSphere, ShapeCylinder, ShapeCone, ShapePlane, ShapeTorus:
		return true
	}
	return false
}

// Geometry is a shared, immutable primitive mesh. Two creation requests
// with the same canonical key yield the same *Geometry; transform changes
// happen on nodes, never on the geometry itself.
type Geometry struct {
	Shape  Shape
	Params []float64
	Key    string

	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
}

// Clone returns a deep copy of the geometry's mesh data. Used by the full
// merge strategy, which bakes world transforms into the copied vertices.
func (g *Geometry) Clone() *Geometry {
	out := &Geometry{
		Shape:     g.Shape,
		Params:    append([]float64(nil), g.Params...),
		Key:       g.Key,
		Positions: append([]mgl32.Vec3(nil), g.Positions...),
		Normals:   append([]mgl32.Vec3(nil), g.Normals...),
		Indices:   append([]uint32(nil), g.Indices...),
	}
	return out
}

// GeometryKey builds the canonical cache key for a primitive: shape kind,
// shape parameters, and the active geometry-translate offset, all in fixed
// formatting so identical requests collide intentionally.
func GeometryKey(shape Shape, params []float64, offset mgl32.Vec3) string {
	var sb strings.Builder
	sb.WriteString(string(shape))
	for _, p := range params {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
	}
	if offset != (mgl32.Vec3{}) {
		fmt.Fprintf(&sb, "@%g,%g,%g", offset.X(), offset.Y(), offset.Z())
	}
	return sb.String()
}

// GeometryCache is a content-addressed store of primitive geometries. It is
// safe for concurrent builds of different models; a collision on an
// identical key is intentional sharing.
type GeometryCache struct {
	mu      sync.Mutex
	entries map[string]*Geometry
}

// NewGeometryCache creates an empty geometry cache.
func NewGeometryCache() *GeometryCache {
	return &GeometryCache{entries: make(map[string]*Geometry)}
}

// Get returns the cached geometry for the given shape/params/offset,
// constructing and caching it on first request.
func (c *GeometryCache) Get(shape Shape, params []float64, offset mgl32.Vec3) *Geometry {
	key := GeometryKey(shape, params, offset)

	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.entries[key]; ok {
		return g
	}

	g := buildGeometry(shape, params)
	g.Key = key
	if offset != (mgl32.Vec3{}) {
		for i := range g.Positions {
			g.Positions[i] = g.Positions[i].Add(offset)
		}
	}
	c.entries[key] = g
	return g
}

// Len returns the number of cached geometries.
func (c *GeometryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// param returns params[i], or fallback when the list is too short.
func param(params []float64, i int, fallback float64) float64 {
	if i < len(params) {
		return params[i]
	}
	return fallback
}

// buildGeometry generates the unit mesh for a primitive. Segment counts for
// curved shapes come from an optional trailing parameter.
func buildGeometry(shape Shape, params []float64) *Geometry {
	switch shape {
	case ShapeBox:
		return buildBox(param(params, 0, 1), param(params, 1, 1), param(params, 2, 1))
	case ShapeSphere:
		return buildSphere(param(params, 0, 1), int(param(params, 1, 16)))
	case ShapeCylinder:
		return buildCylinder(param(params, 0, 1), param(params, 1, 1), param(params, 2, 1), int(param(params, 3, 16)))
	case ShapeCone:
		// A cone is a cylinder with a zero top diameter.
		return buildCylinder(param(params, 0, 1), 0, param(params, 1, 1), int(param(params, 2, 16)))
	case ShapePlane:
		return buildPlane(param(params, 0, 1), param(params, 1, 1))
	case ShapeTorus:
		return buildTorus(param(params, 0, 1), param(params, 1, 0.25), int(param(params, 2, 16)))
	default:
		return &Geometry{Shape: shape, Params: append([]float64(nil), params...)}
	}
}

func buildBox(w, h, d float64) *Geometry {
	x := float32(w) / 2
	y := float32(h) / 2
	z := float32(d) / 2

	faces := []struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{x, -y, -z}, {-x, -y, -z}, {-x, y, -z}, {x, y, -z}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{x, -y, z}, {x, -y, -z}, {x, y, -z}, {x, y, z}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-x, -y, -z}, {-x, -y, z}, {-x, y, z}, {-x, y, -z}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-x, y, z}, {x, y, z}, {x, y, -z}, {-x, y, -z}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-x, -y, -z}, {x, -y, -z}, {x, -y, z}, {-x, -y, z}}},
	}

	g := &Geometry{Shape: ShapeBox, Params: []float64{w, h, d}}
	for _, f := range faces {
		base := uint32(len(g.Positions))
		for _, c := range f.corners {
			g.Positions = append(g.Positions, c)
			g.Normals = append(g.Normals, f.normal)
		}
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return g
}

func buildPlane(w, h float64) *Geometry {
	x := float32(w) / 2
	y := float32(h) / 2
	g := &Geometry{Shape: ShapePlane, Params: []float64{w, h}}
	g.Positions = []mgl32.Vec3{{-x, -y, 0}, {x, -y, 0}, {x, y, 0}, {-x, y, 0}}
	n := mgl32.Vec3{0, 0, 1}
	g.Normals = []mgl32.Vec3{n, n, n, n}
	g.Indices = []uint32{0, 1, 2, 0, 2, 3}
	return g
}

func buildSphere(diameter float64, segments int) *Geometry {
	if segments < 3 {
		segments = 3
	}
	r := float32(diameter) / 2
	g := &Geometry{Shape: ShapeSphere, Params: []float64{diameter, float64(segments)}}

	rings := segments
	for i := 0; i <= rings; i++ {
		phi := math.Pi * float64(i) / float64(rings)
		for j := 0; j <= segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			n := mgl32.Vec3{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Cos(phi)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			g.Positions = append(g.Positions, n.Mul(r))
			g.Normals = append(g.Normals, n)
		}
	}
	stride := uint32(segments + 1)
	for i := 0; i < rings; i++ {
		for j := 0; j < segments; j++ {
			a := uint32(i)*stride + uint32(j)
			b := a + stride
			g.Indices = append(g.Indices, a, b, a+1, b, b+1, a+1)
		}
	}
	return g
}

func buildCylinder(height, diamTop, diamBottom float64, segments int) *Geometry {
	if segments < 3 {
		segments = 3
	}
	rt := float32(diamTop) / 2
	rb := float32(diamBottom) / 2
	hy := float32(height) / 2

	g := &Geometry{Shape: ShapeCylinder, Params: []float64{height, diamTop, diamBottom, float64(segments)}}
	for j := 0; j <= segments; j++ {
		theta := 2 * math.Pi * float64(j) / float64(segments)
		c := float32(math.Cos(theta))
		s := float32(math.Sin(theta))
		n := mgl32.Vec3{c, 0, s}
		g.Positions = append(g.Positions, mgl32.Vec3{rb * c, -hy, rb * s})
		g.Normals = append(g.Normals, n)
		g.Positions = append(g.Positions, mgl32.Vec3{rt * c, hy, rt * s})
		g.Normals = append(g.Normals, n)
	}
	for j := 0; j < segments; j++ {
		a := uint32(j * 2)
		g.Indices = append(g.Indices, a, a+1, a+2, a+1, a+3, a+2)
	}

	// End caps.
	for _, end := range []struct {
		y      float32
		r      float32
		normal mgl32.Vec3
	}{
		{-hy, rb, mgl32.Vec3{0, -1, 0}},
		{hy, rt, mgl32.Vec3{0, 1, 0}},
	} {
		if end.r == 0 {
			continue
		}
		center := uint32(len(g.Positions))
		g.Positions = append(g.Positions, mgl32.Vec3{0, end.y, 0})
		g.Normals = append(g.Normals, end.normal)
		for j := 0; j <= segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			g.Positions = append(g.Positions, mgl32.Vec3{
				end.r * float32(math.Cos(theta)),
				end.y,
				end.r * float32(math.Sin(theta)),
			})
			g.Normals = append(g.Normals, end.normal)
		}
		for j := 0; j < segments; j++ {
			g.Indices = append(g.Indices, center, center+1+uint32(j), center+2+uint32(j))
		}
	}
	return g
}

func buildTorus(diameter, thickness float64, segments int) *Geometry {
	if segments < 3 {
		segments = 3
	}
	ringR := float32(diameter) / 2
	tubeR := float32(thickness) / 2

	g := &Geometry{Shape: ShapeTorus, Params: []float64{diameter, thickness, float64(segments)}}
	for i := 0; i <= segments; i++ {
		u := 2 * math.Pi * float64(i) / float64(segments)
		cu := float32(math.Cos(u))
		su := float32(math.Sin(u))
		for j := 0; j <= segments; j++ {
			v := 2 * math.Pi * float64(j) / float64(segments)
			cv := float32(math.Cos(v))
			sv := float32(math.Sin(v))
			g.Positions = append(g.Positions, mgl32.Vec3{
				(ringR + tubeR*cv) * cu,
				tubeR * sv,
				(ringR + tubeR*cv) * su,
			})
			g.Normals = append(g.Normals, mgl32.Vec3{cv * cu, sv, cv * su})
		}
	}
	stride := uint32(segments + 1)
	for i := 0; i < segments; i++ {
		for j := 0; j < segments; j++ {
			a := uint32(i)*stride + uint32(j)
			b := a + stride
			g.Indices = append(g.Indices, a, b, a+1, b, b+1, a+1)
		}
	}
	return g
}

// Bounds returns the axis-aligned min/max corners of the geometry.
func (g *Geometry) Bounds() (min, max mgl32.Vec3) {
	if len(g.Positions) == 0 {
		return
	}
	min = g.Positions[0]
	max = g.Positions[0]
	for _, p := range g.Positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return
}
