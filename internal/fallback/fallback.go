// Package fallback builds menus and grocery lists locally from the static catalogs.
// Nothing here can fail: unknown cuisines degrade to the default sample tables.
package fallback

import (
	"fmt"
	"time"

	"lamitna/internal/catalog"
	"lamitna/internal/menu"
)

// picks is the per-category selection, kept in line with the AI prompt rules.
var picks = []struct {
	category menu.Category
	count    int
	quantity string
}{
	{menu.Appetizers, 2, "1 bowl"},
	{menu.Mains, 1, "1 plate"},
	{menu.Sides, 1, "1 serving"},
	{menu.Drinks, 1, "2 glasses"},
	{menu.Desserts, 1, "1 serving"},
}

// Generator composes random selection and quantity scaling over a catalog.
type Generator struct {
	catalog *catalog.Catalog
	rand    menu.Rand
	now     func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithRand injects the random source, mainly for reproducible tests.
func WithRand(r menu.Rand) Option {
	return func(g *Generator) { g.rand = r }
}

// WithClock overrides the clock used for id stamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator over c, or the embedded catalog when c is nil.
func NewGenerator(c *catalog.Catalog, opts ...Option) *Generator {
	if c == nil {
		c = catalog.Default()
	}
	g := &Generator{catalog: c, rand: menu.DefaultRand, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BuildMenu returns a menu for cuisineID scaled for guestCount people.
func (g *Generator) BuildMenu(cuisineID string, guestCount int) []menu.MenuItem {
	if cuisineID == catalog.Mixed {
		cuisineID = g.catalog.RandomDishCuisine(g.rand)
	}
	if dishes, ok := g.catalog.DishesFor(cuisineID); ok {
		return g.fromDishes(dishes, guestCount)
	}
	return g.fromSample(g.catalog.SampleMenu(cuisineID), guestCount)
}

func (g *Generator) fromDishes(dishes catalog.Dishes, guestCount int) []menu.MenuItem {
	stamp := g.now().UnixMilli()
	items := make([]menu.MenuItem, 0, 6)
	for _, p := range picks {
		quantity := menu.ScaleQuantity(p.quantity, guestCount)
		for _, name := range menu.PickRandom(g.rand, dishes[p.category], p.count) {
			items = append(items, menu.MenuItem{
				ID:       fmt.Sprintf("fb-%d-%d", stamp, len(items)+1),
				Category: p.category,
				Name:     name,
				Quantity: quantity,
			})
		}
	}
	return items
}

func (g *Generator) fromSample(sample []menu.MenuItem, guestCount int) []menu.MenuItem {
	stamp := g.now().UnixMilli()
	items := menu.Shuffle(g.rand, sample)
	for i := range items {
		items[i].ID = fmt.Sprintf("%s-%d-%d", items[i].ID, stamp, i)
		items[i].Quantity = menu.ScaleQuantity(items[i].Quantity, guestCount)
	}
	return items
}

// BuildGroceryList returns a shuffled, unchecked grocery list for cuisineID.
// A "mixed" request draws its own random cuisine, independent of any menu.
func (g *Generator) BuildGroceryList(cuisineID string) []menu.GroceryItem {
	if cuisineID == catalog.Mixed {
		cuisineID = g.catalog.RandomDishCuisine(g.rand)
	}
	stamp := g.now().UnixMilli()
	items := menu.Shuffle(g.rand, g.catalog.GroceryList(cuisineID))
	for i := range items {
		items[i].ID = fmt.Sprintf("%s-%d-%d", items[i].ID, stamp, i)
		items[i].Checked = false
	}
	return items
}
