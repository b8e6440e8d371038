package comment

import (
	"fmt"
	"sort"
)

// Threads maps a document node ID to its top-level comments in display order.
type Threads map[string][]Comment

// Append adds c to the end of its node's thread.
func (t Threads) Append(c Comment) {
	t[c.NodeID] = append(t[c.NodeID], c)
}

// Node returns the comments for nodeID, or an empty slice.
func (t Threads) Node(nodeID string) []Comment {
	comments, ok := t[nodeID]
	if !ok {
		return []Comment{}
	}

	out := make([]Comment, len(comments))
	for i, c := range comments {
		out[i] = c.Clone()
	}

	return out
}

// Nodes returns the node IDs in sorted order.
func (t Threads) Nodes() []string {
	nodes := make([]string, 0, len(t))
	for nodeID := range t {
		nodes = append(nodes, nodeID)
	}

	sort.Strings(nodes)

	return nodes
}

// Count returns the number of top-level comments across all nodes.
func (t Threads) Count() int {
	n := 0
	for _, comments := range t {
		n += len(comments)
	}

	return n
}

// Clone returns a deep copy of t.
func (t Threads) Clone() Threads {
	out := make(Threads, len(t))

	for nodeID, comments := range t {
		cp := make([]Comment, len(comments))
		for i, c := range comments {
			cp[i] = c.Clone()
		}

		out[nodeID] = cp
	}

	return out
}

// Validate checks that every comment, including replies, carries the node ID it is stored under.
func (t Threads) Validate() error {
	for nodeID, comments := range t {
		if err := validateNode(nodeID, comments); err != nil {
			return err
		}
	}

	return nil
}

func validateNode(nodeID string, comments []Comment) error {
	for _, c := range comments {
		if c.NodeID != nodeID {
			return fmt.Errorf("comment %q stored under node %q has nodeId %q", c.ID, nodeID, c.NodeID)
		}

		if err := validateNode(nodeID, c.Replies); err != nil {
			return err
		}
	}

	return nil
}

// Find looks up a comment by ID anywhere in t, replies included.
func (t Threads) Find(id string) (Comment, error) {
	for _, nodeID := range t.Nodes() {
		if c, ok := find(t[nodeID], id); ok {
			return c.Clone(), nil
		}
	}

	return Comment{}, ErrNotFound
}

func find(comments []Comment, id string) (Comment, bool) {
	for _, c := range comments {
		if c.ID == id {
			return c, true
		}

		if r, ok := find(c.Replies, id); ok {
			return r, true
		}
	}

	return Comment{}, false
}
