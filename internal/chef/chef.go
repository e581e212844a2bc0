// Package chef produces menus and grocery lists, asking a remote AI chef first and
// falling back to the local catalogs whenever that attempt is not usable.
package chef

import (
	"context"

	"lamitna/internal/llm"
	"lamitna/internal/menu"
)

// DefaultMealType is assumed when a request does not name one.
const DefaultMealType = "iftar"

// Request is the generation request sent to the AI chef.
// Mood, effort and dietary are optional tags and travel as JSON null when unset.
type Request struct {
	GuestCount    int     `json:"guestCount" validate:"gte=0,lte=500"`
	Cuisine       string  `json:"cuisine" validate:"max=64"`
	Mood          *string `json:"mood" validate:"omitempty,max=64"`
	CookingEffort *string `json:"cookingEffort" validate:"omitempty,max=64"`
	Dietary       *string `json:"dietary" validate:"omitempty,max=64"`
	MealType      string  `json:"mealType,omitempty" validate:"omitempty,oneof=iftar suhoor both"`
	Variation     string  `json:"variation,omitempty" validate:"max=128"`
}

// Response is what the AI chef answers: either the two lists or an error shape.
type Response struct {
	MenuItems    []menu.MenuItem    `json:"menuItems,omitempty"`
	GroceryItems []menu.GroceryItem `json:"groceryItems,omitempty"`
	Error        string             `json:"error,omitempty"`
	Details      string             `json:"details,omitempty"`

	Usage llm.TokenUsage `json:"-"`
}

// Failed reports whether the response carries the error shape.
func (r Response) Failed() bool { return r.Error != "" }

// Collaborator is a remote menu generator.
type Collaborator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Unavailable answers every request with the error shape. It is used when no
// AI provider is configured so callers always go through the same path.
type Unavailable struct{}

// Generate implements Collaborator.
func (Unavailable) Generate(context.Context, Request) (Response, error) {
	return Response{Error: "Set GEMINI_API_KEY or OPENAI_API_KEY to enable the AI chef."}, nil
}

// StringPtr returns nil for an empty tag and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
