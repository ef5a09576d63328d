// Package router maps an ad's subcategory to the categories, and thereby the
// receivers, that should get it.
package router

import (
	"fmt"
	"slices"

	"github.com/JakeFAU/adfiller/internal/ad"
)

// Wildcard in a category's id set matches every subcategory.
const Wildcard = 0

// CategoryMap is an ordered category name to subcategory id set mapping.
type CategoryMap struct {
	order []string
	ids   map[string]map[int]struct{}
}

// New builds a CategoryMap preserving the order of categories. Names must be
// unique and non-empty.
func New(categories []ad.Category) (*CategoryMap, error) {
	m := &CategoryMap{ids: make(map[string]map[int]struct{}, len(categories))}
	for _, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("category name is required")
		}
		if _, dup := m.ids[c.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.Name)
		}
		set := make(map[int]struct{}, len(c.IDs))
		for _, id := range c.IDs {
			set[id] = struct{}{}
		}
		m.order = append(m.order, c.Name)
		m.ids[c.Name] = set
	}
	return m, nil
}

// Names returns category names in configured order.
func (m *CategoryMap) Names() []string {
	return slices.Clone(m.order)
}

// Has reports whether name is a configured category.
func (m *CategoryMap) Has(name string) bool {
	_, ok := m.ids[name]
	return ok
}

// Categories returns the map as an ordered list with sorted ids.
func (m *CategoryMap) Categories() []ad.Category {
	out := make([]ad.Category, 0, len(m.order))
	for _, name := range m.order {
		ids := make([]int, 0, len(m.ids[name]))
		for id := range m.ids[name] {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		out = append(out, ad.Category{Name: name, IDs: ids})
	}
	return out
}

// Match returns, in configured order, every category whose set holds subID or
// the wildcard.
func (m *CategoryMap) Match(subID int) []string {
	var out []string
	for _, name := range m.order {
		set := m.ids[name]
		_, hit := set[subID]
		_, all := set[Wildcard]
		if hit || all {
			out = append(out, name)
		}
	}
	return out
}

// Receivers filters list down to receivers subscribed to a category matching
// subID. A destination appears at most once, at its first position in list.
func (m *CategoryMap) Receivers(list []ad.Receiver, subID int) []ad.Receiver {
	matched := m.Match(subID)
	if len(matched) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(list))
	var out []ad.Receiver
	for _, r := range list {
		if !slices.Contains(matched, r.Category) {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
