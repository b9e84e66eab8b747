package scene

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MaterialKind selects the shading model for a material.
type MaterialKind string

const (
	MaterialStandard MaterialKind = "standard"
	MaterialEmissive MaterialKind = "emissive"
	MaterialFlat     MaterialKind = "flat"
)

// KnownMaterialKind reports whether name is a supported material kind.
func KnownMaterialKind(name string) bool {
	switch MaterialKind(name) {
	case MaterialStandard, MaterialEmissive, MaterialFlat:
		return true
	}
	return false
}

// Color is an RGB color with 8-bit channels.
type Color struct {
	R, G, B uint8
}

// ParseColor parses a "#rrggbb" color literal.
func ParseColor(s string) (Color, bool) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return Color{}, false
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Texture is an opaque handle to a resolved texture resource. Decoding and
// atlas handling happen outside this package.
type Texture struct {
	Name   string
	Type   string // MIME-ish type tag from the document texture table
	Frames int
}

// TextureResolver resolves a texture name from the document's texture table
// to a handle. A nil handle with a nil error means the name is unknown; the
// material falls back to its flat color.
type TextureResolver interface {
	Resolve(name string) (*Texture, error)
}

// Material describes how a drawable is shaded: kind, base color, and an
// optional texture. Materials are shared via MaterialCache and never
// mutated in place after creation; per-node state (opacity) lives on the
// node.
type Material struct {
	Kind    MaterialKind
	Color   Color
	Texture *Texture
}

// TextureName returns the bound texture's name, or "".
func (m *Material) TextureName() string {
	if m == nil || m.Texture == nil {
		return ""
	}
	return m.Texture.Name
}

// MaterialKey builds the canonical cache key for a material.
func MaterialKey(kind MaterialKind, color Color, textureName string) string {
	var sb strings.Builder
	sb.WriteString(string(kind))
	sb.WriteByte(':')
	sb.WriteString(color.Hex())
	if textureName != "" {
		sb.WriteByte(':')
		sb.WriteString(textureName)
	}
	return sb.String()
}

// MaterialCache is a content-addressed store of materials.
type MaterialCache struct {
	mu      sync.Mutex
	entries map[string]*Material
}

// NewMaterialCache creates an empty material cache.
func NewMaterialCache() *MaterialCache {
	return &MaterialCache{entries: make(map[string]*Material)}
}

// Get returns the cached material for kind/color/texture, creating it on
// first request. The texture handle is only consulted on creation; the key
// uses the texture name.
func (c *MaterialCache) Get(kind MaterialKind, color Color, tex *Texture) *Material {
	name := ""
	if tex != nil {
		name = tex.Name
	}
	key := MaterialKey(kind, color, name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.entries[key]; ok {
		return m
	}
	m := &Material{Kind: kind, Color: color, Texture: tex}
	c.entries[key] = m
	return m
}

// Len returns the number of cached materials.
func (c *MaterialCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
