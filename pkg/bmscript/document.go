// Package bmscript interprets BM script documents into scene graphs: it
// parses the document envelope, evaluates variable expressions, builds the
// node hierarchy, and exposes the per-model runtime surface (animation
// selection, ticking, reset).
package bmscript

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bastecklein/bmloader/pkg/scene"
)

// Document errors.
var (
	ErrEmptyDocument = errors.New("document has no script")
	ErrBadDocument   = errors.New("malformed BM document")
)

// TextureResource is one named texture in the document's texture table.
// Decoding the payload is a collaborator's concern; the interpreter only
// needs the name, type tag, and frame count.
type TextureResource struct {
	Type   string `yaml:"type" json:"type"`
	Data   string `yaml:"data" json:"data"`
	Frames int    `yaml:"frames" json:"frames"`
}

// Meta is the document's revision/authoring metadata block.
type Meta struct {
	Revision int    `yaml:"revision" json:"revision"`
	Author   string `yaml:"author" json:"author"`
	Name     string `yaml:"name" json:"name"`
}

// Document is a BM model document: the script text plus a sibling table of
// named texture resources and authoring metadata.
type Document struct {
	Script   string                     `yaml:"script" json:"script"`
	Textures map[string]TextureResource `yaml:"textures" json:"textures"`
	Meta     Meta                       `yaml:"meta" json:"meta"`
}

// ParseDocument parses a document envelope. YAML and JSON payloads are both
// accepted.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	if doc.Script == "" {
		return nil, ErrEmptyDocument
	}
	return &doc, nil
}

// LoadDocumentFile reads and parses a document from disk.
func LoadDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading BM document: %w", err)
	}
	return ParseDocument(data)
}

// Resolve implements scene.TextureResolver over the document's texture
// table. Unknown names resolve to a nil handle; the material falls back to
// its flat color.
func (d *Document) Resolve(name string) (*scene.Texture, error) {
	res, ok := d.Textures[name]
	if !ok {
		return nil, nil
	}
	frames := res.Frames
	if frames < 1 {
		frames = 1
	}
	return &scene.Texture{Name: name, Type: res.Type, Frames: frames}, nil
}
