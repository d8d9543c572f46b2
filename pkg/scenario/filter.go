package scenario

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// filterEnv is the variable set visible to filter expressions. Field names
// follow the YAML keys so operators write what they see in the file.
type filterEnv struct {
	Name        string   `expr:"name"`
	URL1        string   `expr:"url1"`
	URL2        string   `expr:"url2"`
	ScreenSizes []string `expr:"screen_sizes"`
	Delay       float64  `expr:"delay"`
	Index       int      `expr:"index"`
}

// Filter returns a catalog holding only the scenarios for which expression
// evaluates to true, e.g. `name startsWith "Alumni"` or
// `len(screen_sizes) > 1`. An empty expression returns c unchanged.
func (c *Catalog) Filter(expression string) (*Catalog, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return c, nil
	}
	program, err := expr.Compile(expression, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}

	var kept []Scenario
	for i, s := range c.scenarios {
		env := filterEnv{
			Name:        s.Name,
			URL1:        s.PrimaryURL,
			URL2:        s.ReferenceURL,
			ScreenSizes: s.ScreenSizes,
			Delay:       s.DelaySeconds,
			Index:       i,
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("eval filter on scenario %d (%s): %w", i, s.Name, err)
		}
		if ok, _ := out.(bool); ok {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("filter %q: %w", expression, ErrEmpty)
	}
	return NewCatalog(kept), nil
}
