package scenario

import (
	"strconv"

	"golang.org/x/text/cases"
)

// Catalog is the ordered, immutable list of scenarios. Order defines the
// traversal order of automatic runs.
type Catalog struct {
	scenarios []Scenario
	byName    map[string]int
}

// foldKey folds s for case-insensitive comparison. Casers are stateful,
// so each call gets its own.
func foldKey(s string) string { return cases.Fold().String(s) }

// NewCatalog copies list into a catalog. When names collide (ignoring case)
// lookups by name resolve to the first occurrence.
func NewCatalog(list []Scenario) *Catalog {
	c := &Catalog{
		scenarios: append([]Scenario(nil), list...),
		byName:    make(map[string]int, len(list)),
	}
	for i, s := range c.scenarios {
		key := foldKey(s.Name)
		if _, dup := c.byName[key]; !dup {
			c.byName[key] = i
		}
	}
	return c
}

// Len returns the number of scenarios.
func (c *Catalog) Len() int { return len(c.scenarios) }

// At returns the scenario at index i. It panics when i is out of range.
func (c *Catalog) At(i int) Scenario { return c.scenarios[i] }

// All returns a copy of the scenarios in order.
func (c *Catalog) All() []Scenario { return append([]Scenario(nil), c.scenarios...) }

// IndexOf finds a scenario by exact name, ignoring case.
func (c *Catalog) IndexOf(name string) (int, bool) {
	i, ok := c.byName[foldKey(name)]
	return i, ok
}

// Step moves delta positions from current, clamped to the catalog bounds.
func (c *Catalog) Step(current, delta int) int {
	return c.clamp(current + delta)
}

// Select interprets one line of operator input as a scenario choice:
// "++" and "--" step from current, an exact name (any case) or a decimal
// index selects directly, and anything else keeps current.
func (c *Catalog) Select(line string, current int) int {
	current = c.clamp(current)
	switch line {
	case "++":
		return c.Step(current, 1)
	case "--":
		return c.Step(current, -1)
	}
	if i, ok := c.IndexOf(line); ok {
		return i
	}
	if n, err := strconv.Atoi(line); err == nil && strconv.Itoa(n) == line && n >= 0 && n < len(c.scenarios) {
		return n
	}
	return current
}

func (c *Catalog) clamp(i int) int {
	if i >= len(c.scenarios) {
		i = len(c.scenarios) - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
