// Package catalog holds the automation recipe catalog and its matching
// rules. Recipes are loaded once at startup and never mutated; edits
// replace the catalog wholesale.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tunewise/tunewise/internal/models"
)

// ErrCatalogCorrupt is returned when the catalog file is missing, empty,
// or fails validation. It is fatal at startup: the daemon refuses to run
// on an ambiguous catalog.
var ErrCatalogCorrupt = errors.New("recipe catalog corrupt")

// catalogFile is the on-disk shape of the catalog.
type catalogFile struct {
	Recipes []models.AutomationRecipe `yaml:"recipes"`
}

// Catalog is an immutable set of automation recipes in registration order.
type Catalog struct {
	recipes []models.AutomationRecipe
	order   map[string]int // recipe name -> registration index
}

// New builds a catalog from recipes in registration order. The order is
// load-bearing: it is the deterministic tie-break for SelectBest.
func New(recipes []models.AutomationRecipe) (*Catalog, error) {
	if len(recipes) == 0 {
		return nil, fmt.Errorf("%w: no recipes", ErrCatalogCorrupt)
	}

	order := make(map[string]int, len(recipes))
	for i, r := range recipes {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: recipe %d has no name", ErrCatalogCorrupt, i)
		}
		if _, dup := order[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate recipe name %q", ErrCatalogCorrupt, r.Name)
		}
		for res, frac := range r.ResourceAlloc {
			if frac < 0 || frac > 1 {
				return nil, fmt.Errorf("%w: recipe %q allocation for %s out of [0,1]: %v",
					ErrCatalogCorrupt, r.Name, res, frac)
			}
		}
		order[r.Name] = i
	}

	return &Catalog{recipes: recipes, order: order}, nil
}

// Load reads and validates a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogCorrupt, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrCatalogCorrupt, path, err)
	}

	return New(f.Recipes)
}

// Match returns every recipe whose trigger-process set is a subset of the
// running processes, in registration order. An empty input or no match
// yields an empty list, never an error. A recipe with an empty trigger set
// matches any input.
func (c *Catalog) Match(running map[string]struct{}) []models.AutomationRecipe {
	var matches []models.AutomationRecipe
	for _, r := range c.recipes {
		if triggersSatisfied(r, running) {
			matches = append(matches, r)
		}
	}
	return matches
}

func triggersSatisfied(r models.AutomationRecipe, running map[string]struct{}) bool {
	for _, proc := range r.TriggerProcesses {
		if _, ok := running[proc]; !ok {
			return false
		}
	}
	return true
}

// SelectBest picks the match with the largest trigger-set cardinality.
// Ties are broken by registration order, first registered wins; the result
// is deterministic regardless of the order of the input slice.
func (c *Catalog) SelectBest(matches []models.AutomationRecipe) (models.AutomationRecipe, bool) {
	if len(matches) == 0 {
		return models.AutomationRecipe{}, false
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.Specificity() > best.Specificity() {
			best = m
			continue
		}
		if m.Specificity() == best.Specificity() && c.regIndex(m) < c.regIndex(best) {
			best = m
		}
	}
	return best, true
}

// regIndex returns a recipe's registration index; recipes unknown to the
// catalog sort last.
func (c *Catalog) regIndex(r models.AutomationRecipe) int {
	if i, ok := c.order[r.Name]; ok {
		return i
	}
	return len(c.recipes)
}

// Get returns the recipe with the given name.
func (c *Catalog) Get(name string) (models.AutomationRecipe, bool) {
	i, ok := c.order[name]
	if !ok {
		return models.AutomationRecipe{}, false
	}
	return c.recipes[i], true
}

// Recipes returns a copy of all recipes in registration order.
func (c *Catalog) Recipes() []models.AutomationRecipe {
	out := make([]models.AutomationRecipe, len(c.recipes))
	copy(out, c.recipes)
	return out
}

// Len returns the number of registered recipes.
func (c *Catalog) Len() int {
	return len(c.recipes)
}
