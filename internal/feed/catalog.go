package feed

import (
	"strings"
	"sync"

	"github.com/iwvelando/tmr-formulator/internal/domain"
)

// Catalog is an ordered, validated set of ingredients that may be edited
// while formulations run. Readers take a Snapshot before building a ration.
type Catalog struct {
	mu    sync.RWMutex
	items []Ingredient
}

// NewCatalog validates items and returns a catalog holding a copy of them.
func NewCatalog(items []Ingredient) (*Catalog, error) {
	if err := ValidateAll(items); err != nil {
		return nil, err
	}
	return &Catalog{items: append([]Ingredient(nil), items...)}, nil
}

// Len returns the number of ingredients.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Snapshot returns a copy of the ingredients in catalog order.
func (c *Catalog) Snapshot() []Ingredient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Ingredient(nil), c.items...)
}

// Get looks up an ingredient by name.
func (c *Catalog) Get(name string) (Ingredient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx := c.indexOf(name); idx >= 0 {
		return c.items[idx], true
	}
	return Ingredient{}, false
}

// Add appends a new ingredient. It fails when the name is already present.
func (c *Catalog) Add(ingredient Ingredient) error {
	if err := ingredient.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(ingredient.Name) >= 0 {
		return domain.InvalidInputf("duplicate ingredient name %q", ingredient.Name)
	}
	c.items = append(c.items, ingredient)
	return nil
}

// Upsert replaces the ingredient with the same name in place, or appends it.
// It reports whether the ingredient was newly added.
func (c *Catalog) Upsert(ingredient Ingredient) (bool, error) {
	if err := ingredient.Validate(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexOf(ingredient.Name); idx >= 0 {
		c.items[idx] = ingredient
		return false, nil
	}
	c.items = append(c.items, ingredient)
	return true, nil
}

// Remove deletes the named ingredient and reports whether it existed.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(name)
	if idx < 0 {
		return false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return true
}

// Replace swaps the whole catalog for items after validating them.
func (c *Catalog) Replace(items []Ingredient) error {
	if err := ValidateAll(items); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]Ingredient(nil), items...)
	return nil
}

// indexOf must be called with c.mu held.
func (c *Catalog) indexOf(name string) int {
	for i := range c.items {
		if strings.EqualFold(c.items[i].Name, strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}
