package scene

// Snapshot holds the saved rest pose for every node reachable from a root,
// keyed by node ID. Restoration is a full replacement of the saved fields,
// not a relative adjustment.
type Snapshot map[string]Transform

// CaptureSnapshot records the current transform of every node in the
// subtree rooted at root.
func CaptureSnapshot(root *Node) Snapshot {
	snap := make(Snapshot)
	root.Walk(func(n *Node) bool {
		snap[n.ID] = n.Transform
		return true
	})
	return snap
}

// Restore writes the saved transforms back onto every node in the subtree
// that has a snapshot entry. Nodes created after the capture are left
// untouched.
func (s Snapshot) Restore(root *Node) {
	if s == nil {
		return
	}
	root.Walk(func(n *Node) bool {
		if t, ok := s[n.ID]; ok {
			n.Transform = t
		}
		return true
	})
}
