package bmscript

import (
	"sort"

	"github.com/bastecklein/bmloader/pkg/anim"
	"github.com/bastecklein/bmloader/pkg/scene"
)

// Registry is the per-model namespace. It maps names to scene nodes,
// numeric values, and string values in two layers: script-declared
// bindings and caller-supplied overrides. Overrides shadow script bindings
// of the same name during lookup without destroying them.
type Registry struct {
	values    map[string]any
	overrides map[string]any
	tracks    map[string]*anim.Track

	// ActiveAnimation is the name of the currently selected animation
	// track list, or "".
	ActiveAnimation string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		values:    make(map[string]any),
		overrides: make(map[string]any),
		tracks:    make(map[string]*anim.Track),
	}
}

// Set stores a script-declared binding. Reassignment replaces the prior
// script binding; an override of the same name is untouched.
func (r *Registry) Set(name string, v any) {
	r.values[name] = v
}

// SetOverride stores a caller-supplied override binding.
func (r *Registry) SetOverride(name string, v any) {
	r.overrides[name] = v
}

// Get resolves a name, consulting the override layer first.
func (r *Registry) Get(name string) (any, bool) {
	if v, ok := r.overrides[name]; ok {
		return v, true
	}
	v, ok := r.values[name]
	return v, ok
}

// Node resolves a name to a scene node, or nil when the binding is absent
// or not a node.
func (r *Registry) Node(name string) *scene.Node {
	v, ok := r.Get(name)
	if !ok {
		return nil
	}
	n, _ := v.(*scene.Node)
	return n
}

// Names returns the sorted set of script-declared binding names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.values))
	for name := range r.values {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NodeIndex returns the name -> node mapping for all node bindings. The
// optimization engine uses this as its explicit node-identity index.
func (r *Registry) NodeIndex() map[string]*scene.Node {
	out := make(map[string]*scene.Node)
	for name, v := range r.values {
		if n, ok := v.(*scene.Node); ok {
			out[name] = n
		}
	}
	return out
}

// Track returns the animation track list for name, creating it on first
// use.
func (r *Registry) Track(name string) *anim.Track {
	t, ok := r.tracks[name]
	if !ok {
		t = &anim.Track{Name: name}
		r.tracks[name] = t
	}
	return t
}

// Tracks returns the animation track-list store.
func (r *Registry) Tracks() map[string]*anim.Track {
	return r.tracks
}

// HasAnimation reports whether any track list carries instructions.
func (r *Registry) HasAnimation() bool {
	for _, t := range r.tracks {
		if len(t.Instructions) > 0 {
			return true
		}
	}
	return false
}
