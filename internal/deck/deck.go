// Package deck builds the deck hierarchy from flat "::" separated names.
package deck

import (
	"sort"
	"strings"
)

// Separator joins the segments of a nested deck name.
const Separator = "::"

// Split returns the segments of a deck name.
func Split(name string) []string {
	return strings.Split(name, Separator)
}

// Join builds a deck name from segments.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Contains reports whether name is parent itself or one of its descendants.
// Deck names compare case-insensitively.
func Contains(parent, name string) bool {
	return strings.EqualFold(parent, name) || IsDescendant(parent, name)
}

// IsDescendant reports whether name is nested anywhere below parent.
func IsDescendant(parent, name string) bool {
	prefix := strings.ToLower(parent + Separator)
	return strings.HasPrefix(strings.ToLower(name), prefix)
}

// HasSubDeck reports whether any of names is nested below name.
func HasSubDeck(name string, names []string) bool {
	for _, n := range names {
		if IsDescendant(name, n) {
			return true
		}
	}
	return false
}

// Entry is a stored deck.
type Entry struct {
	ID   int64
	Name string
}

// Counts are the card totals reported for a deck and its descendants.
type Counts struct {
	Due       int `json:"due"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

// Node is one segment of the deck tree. Deck is nil for segments that only
// exist as the parent of other decks.
type Node struct {
	Segment  string  `json:"segment"`
	Path     string  `json:"path"`
	Deck     *Entry  `json:"deck,omitempty"`
	Counts   *Counts `json:"counts,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Build groups decks into a forest keyed by name segment. Siblings are
// sorted case-insensitively.
func Build(decks []Entry) []*Node {
	root := &Node{}
	for _, d := range decks {
		node := root
		segments := Split(d.Name)
		for i, seg := range segments {
			child := node.child(seg)
			if child == nil {
				child = &Node{Segment: seg, Path: Join(segments[:i+1]...)}
				node.Children = append(node.Children, child)
			}
			node = child
		}
		node.Deck = &d
	}
	root.sort()
	return root.Children
}

func (n *Node) child(segment string) *Node {
	for _, c := range n.Children {
		if strings.EqualFold(c.Segment, segment) {
			return c
		}
	}
	return nil
}

func (n *Node) sort() {
	sort.Slice(n.Children, func(i, j int) bool {
		return strings.ToLower(n.Children[i].Segment) < strings.ToLower(n.Children[j].Segment)
	})
	for _, c := range n.Children {
		c.sort()
	}
}

// Walk visits every node depth first, parents before children.
func Walk(nodes []*Node, fn func(*Node) error) error {
	for _, n := range nodes {
		if err := fn(n); err != nil {
			return err
		}
		if err := Walk(n.Children, fn); err != nil {
			return err
		}
	}
	return nil
}

// Prune drops every node for which keep returns false, together with its
// children. keep is evaluated after a node's children have been pruned.
func Prune(nodes []*Node, keep func(*Node) bool) []*Node {
	out := nodes[:0]
	for _, n := range nodes {
		n.Children = Prune(n.Children, keep)
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
