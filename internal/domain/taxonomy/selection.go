package taxonomy

import (
	"fmt"
	"slices"
)

// Selection is the ordered set of attributes chosen for scoring.
type Selection struct {
	names []Name
}

// NewSelection validates that names holds exactly SelectionSize distinct registered attributes.
func NewSelection(r *Registry, names []Name) (Selection, error) {
	if len(names) != SelectionSize {
		return Selection{}, fmt.Errorf("selection needs %d attributes, got %d", SelectionSize, len(names))
	}
	seen := make(map[Name]struct{}, len(names))
	for _, n := range names {
		if _, ok := r.Attribute(n); !ok {
			return Selection{}, fmt.Errorf("unknown attribute %q", n)
		}
		if _, dup := seen[n]; dup {
			return Selection{}, fmt.Errorf("duplicate attribute %q", n)
		}
		seen[n] = struct{}{}
	}
	return Selection{names: slices.Clone(names)}, nil
}

// Names returns the selected attributes in rank order.
func (s Selection) Names() []Name { return slices.Clone(s.names) }

// Len returns the number of selected attributes.
func (s Selection) Len() int { return len(s.names) }

// Contains reports whether name was selected.
func (s Selection) Contains(name Name) bool { return slices.Contains(s.names, name) }
