// Package within implements the within-permission tree: a nested structure
// restricting which relationship names may be traversed at each level of a
// serialization. The tree distinguishes three states at every node position:
//
//   - a nil *Tree is unrestricted: every relationship is permitted and the
//     nested call receives no restriction;
//   - an empty tree (Empty) forbids every relationship at its level;
//   - a non-empty tree permits exactly the names it contains, where an entry
//     with a nested tree narrows the nested call to that tree and a bare entry
//     permits the relationship but forbids all of its own relationships.
package within

import (
	"fmt"
	"sort"
)

// Tree is one node of a within-permission tree. A nil *Tree means
// unrestricted; see the package documentation for the full semantics.
type Tree struct {
	children map[string]*Tree // nil value = bare marker
}

// Empty returns a tree that forbids all relationships at its level.
func Empty() *Tree { return &Tree{} }

// New builds a tree from entries. A nil entry value is a bare marker:
// the relationship is permitted but its nested call is given Empty.
func New(entries map[string]*Tree) *Tree {
	t := &Tree{children: make(map[string]*Tree, len(entries))}
	for name, child := range entries {
		t.children[name] = child
	}
	return t
}

// Allow returns a tree permitting exactly the given names as bare markers.
func Allow(names ...string) *Tree {
	t := &Tree{children: make(map[string]*Tree, len(names))}
	for _, name := range names {
		t.children[name] = nil
	}
	return t
}

// Step decides whether relationship name may be traversed from t, and with
// which tree the nested call proceeds.
func (t *Tree) Step(name string) (child *Tree, ok bool) {
	if t == nil {
		return nil, true
	}
	child, present := t.children[name]
	if !present {
		return nil, false
	}
	if child == nil {
		return Empty(), true
	}
	return child, true
}

// IsUnrestricted reports whether t permits everything without narrowing.
func (t *Tree) IsUnrestricted() bool { return t == nil }

// Names returns the permitted relationship names at this level, sorted.
func (t *Tree) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.children))
	for name := range t.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromMap converts a loosely-typed structure (as decoded from JSON or YAML)
// into a tree. Map values may be nil or true for a bare marker, or a nested
// map. A nil m yields the unrestricted tree.
func FromMap(m map[string]any) (*Tree, error) {
	if m == nil {
		return nil, nil
	}
	t := &Tree{children: make(map[string]*Tree, len(m))}
	for name, v := range m {
		switch child := v.(type) {
		case nil:
			t.children[name] = nil
		case bool:
			if !child {
				return nil, fmt.Errorf("within entry %q: false is not a valid marker", name)
			}
			t.children[name] = nil
		case map[string]any:
			sub, err := FromMap(child)
			if err != nil {
				return nil, err
			}
			t.children[name] = sub
		default:
			return nil, fmt.Errorf("within entry %q: unsupported value %T", name, v)
		}
	}
	return t, nil
}
