package menu

import (
	"fmt"
	"strings"
)

// Category is one of the five fixed menu sections.
type Category string

const (
	Appetizers Category = "Appetizers"
	Mains      Category = "Mains"
	Sides      Category = "Sides"
	Drinks     Category = "Drinks"
	Desserts   Category = "Desserts"
)

// Categories lists the menu sections in display order.
var Categories = []Category{Appetizers, Mains, Sides, Drinks, Desserts}

// Valid reports whether c is one of the fixed menu sections.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultGroceryCategory is used when a grocery line carries no label.
const DefaultGroceryCategory = "OTHER"

// MenuItem is a single dish on a plan.
type MenuItem struct {
	ID       string   `json:"id" yaml:"id"`
	Category Category `json:"category" yaml:"category"`
	Name     string   `json:"name" yaml:"name"`
	Quantity string   `json:"quantity" yaml:"quantity"`
}

// GroceryItem is a single shopping line. Its description already embeds an amount.
type GroceryItem struct {
	ID       string `json:"id" yaml:"id"`
	Category string `json:"category" yaml:"category"`
	Name     string `json:"name" yaml:"name"`
	Checked  bool   `json:"checked" yaml:"-"`
}

// FormatGroceryList renders a checklist grouped by category, in first-seen order.
func FormatGroceryList(items []GroceryItem) string {
	var order []string
	byCategory := make(map[string][]GroceryItem)
	for _, item := range items {
		if _, seen := byCategory[item.Category]; !seen {
			order = append(order, item.Category)
		}
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	var sb strings.Builder
	for _, cat := range order {
		sb.WriteString(cat + "\n")
		for _, item := range byCategory[cat] {
			mark := " "
			if item.Checked {
				mark = "x"
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", mark, item.Name)
		}
	}
	return sb.String()
}
