// Package catalog holds the immutable cuisine tables the fallback generator draws from.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"lamitna/internal/menu"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Mixed is the "surprise me" cuisine: each resolution picks a concrete cuisine at random.
const Mixed = "mixed"

// DefaultKey names the sample menu and grocery list used when nothing else matches.
const DefaultKey = "default"

var (
	ErrMissingDefault = errors.New("catalog has no default entry")
	ErrEmptyCategory  = errors.New("dish catalog has an empty category")
)

// Cuisine is a cuisine offered to the user.
type Cuisine struct {
	ID   string `yaml:"id"`
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Dishes holds candidate dish names per menu category.
type Dishes map[menu.Category][]string

// Catalog is the full set of tables. It is read-only after Parse returns.
type Catalog struct {
	Cuisines    []Cuisine                     `yaml:"cuisines"`
	Dishes      map[string]Dishes             `yaml:"dishes"`
	SampleMenus map[string][]menu.MenuItem    `yaml:"sample_menus"`
	Groceries   map[string][]menu.GroceryItem `yaml:"groceries"`

	dishKeys []string
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	for key := range c.Dishes {
		c.dishKeys = append(c.dishKeys, key)
	}
	sort.Strings(c.dishKeys)
	return &c, nil
}

func (c *Catalog) validate() error {
	if _, ok := c.SampleMenus[DefaultKey]; !ok {
		return fmt.Errorf("sample menus: %w", ErrMissingDefault)
	}
	if _, ok := c.Groceries[DefaultKey]; !ok {
		return fmt.Errorf("groceries: %w", ErrMissingDefault)
	}
	if len(c.Dishes) == 0 {
		return errors.New("catalog has no dish tables")
	}
	for cuisine, dishes := range c.Dishes {
		for _, cat := range menu.Categories {
			if len(dishes[cat]) == 0 {
				return fmt.Errorf("%s/%s: %w", cuisine, cat, ErrEmptyCategory)
			}
		}
	}
	for key, items := range c.SampleMenus {
		for _, item := range items {
			if !item.Category.Valid() {
				return fmt.Errorf("sample menu %s: unknown category %q", key, item.Category)
			}
		}
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. The document ships with the binary, so a
// decoding failure is a build defect and panics.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// DishCuisines returns the ids that have a full dish table, sorted.
func (c *Catalog) DishCuisines() []string {
	return slices.Clone(c.dishKeys)
}

// RandomDishCuisine picks one cuisine with a dish table uniformly at random.
func (c *Catalog) RandomDishCuisine(r menu.Rand) string {
	if r == nil {
		r = menu.DefaultRand
	}
	return c.dishKeys[r.IntN(len(c.dishKeys))]
}

// DishesFor returns the dish table for a cuisine, if one exists.
func (c *Catalog) DishesFor(cuisineID string) (Dishes, bool) {
	d, ok := c.Dishes[cuisineID]
	return d, ok
}

// SampleMenu returns the fixed menu for a cuisine, or the default one.
func (c *Catalog) SampleMenu(cuisineID string) []menu.MenuItem {
	if items, ok := c.SampleMenus[cuisineID]; ok {
		return items
	}
	return c.SampleMenus[DefaultKey]
}

// GroceryList returns the grocery lines for a cuisine, or the default list.
func (c *Catalog) GroceryList(cuisineID string) []menu.GroceryItem {
	if items, ok := c.Groceries[cuisineID]; ok {
		return items
	}
	return c.Groceries[DefaultKey]
}

// Lookup finds an offered cuisine by id.
func (c *Catalog) Lookup(cuisineID string) (Cuisine, bool) {
	for _, cu := range c.Cuisines {
		if cu.ID == cuisineID {
			return cu, true
		}
	}
	return Cuisine{}, false
}
