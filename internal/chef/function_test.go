package chef

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lamitna/internal/llm"
	"lamitna/internal/menu"
)

// MockTextGenerator is a mock implementation of llm.TextGenerator.
type MockTextGenerator struct {
	GenerateContentFunc func(ctx context.Context, prompt string) (llm.ContentResponse, error)
	prompts             []string
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompts = append(m.prompts, prompt)
	return m.GenerateContentFunc(ctx, prompt)
}

func reply(content string) func(context.Context, string) (llm.ContentResponse, error) {
	return func(context.Context, string) (llm.ContentResponse, error) {
		return llm.ContentResponse{Content: content, Usage: llm.TokenUsage{PromptTokens: 12, Model: "test"}}, nil
	}
}

func TestBuildChefPrompt(t *testing.T) {
	t.Run("MixedWithExtras", func(t *testing.T) {
		prompt, err := buildChefPrompt(Request{
			GuestCount:    6,
			Cuisine:       "mixed",
			Mood:          StringPtr("cozy_family"),
			CookingEffort: StringPtr("quick"),
			Dietary:       StringPtr("no_restrictions"),
			Variation:     "42",
		})
		if err != nil {
			t.Fatalf("buildChefPrompt failed: %v", err)
		}
		wantPrefix := "Ramadan menu + grocery. Guests: 6. Cuisine: a mix of Middle Eastern and South Asian. Meal: iftar. cozy family. quick Variation seed: 42."
		if !strings.HasPrefix(prompt, wantPrefix) {
			t.Errorf("unexpected prompt head:\n%s", prompt)
		}
		if strings.Contains(prompt, "no restrictions") {
			t.Error("no_restrictions should be omitted")
		}
		if !strings.HasSuffix(prompt, "Quantities for 6 people. Short names.") {
			t.Errorf("unexpected prompt tail:\n%s", prompt)
		}
	})

	t.Run("Plain", func(t *testing.T) {
		prompt, err := buildChefPrompt(Request{GuestCount: 2, Cuisine: "turkish", MealType: "suhoor", Dietary: StringPtr("vegetarian")})
		if err != nil {
			t.Fatalf("buildChefPrompt failed: %v", err)
		}
		if !strings.HasPrefix(prompt, "Ramadan menu + grocery. Guests: 2. Cuisine: turkish. Meal: suhoor. vegetarian\n") {
			t.Errorf("unexpected prompt:\n%s", prompt)
		}
		if strings.Contains(prompt, "Variation seed") {
			t.Error("variation sentence should be absent")
		}
	})
}

func TestLLMCollaboratorGenerate(t *testing.T) {
	ctx := context.Background()
	fixed := time.UnixMilli(1700000000000)

	t.Run("FencedReplyIsNormalized", func(t *testing.T) {
		gen := &MockTextGenerator{GenerateContentFunc: reply("```json\n" + `{"menuItems":[
			{"category":"Appetizers","name":"Fattoush","quantity":"1 bowl"},
			{"category":"Soups","name":"Lentil soup","quantity":""},
			{"category":"Desserts","name":"","quantity":"1 tray"}],
			"groceryItems":[{"category":"","name":"2 lemons"},{"category":"PRODUCE","name":""}]}` + "\n```")}
		c := NewLLMCollaborator(gen)
		c.now = func() time.Time { return fixed }

		resp, err := c.Generate(ctx, Request{GuestCount: 4, Cuisine: "lebanese"})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if resp.Failed() {
			t.Fatalf("unexpected error shape: %+v", resp)
		}
		if len(resp.MenuItems) != 3 || len(resp.GroceryItems) != 2 {
			t.Fatalf("unexpected lengths: %+v", resp)
		}
		if resp.MenuItems[0].ID != "ai-1700000000000-0" {
			t.Errorf("unexpected id %q", resp.MenuItems[0].ID)
		}
		if resp.MenuItems[1].Category != menu.Mains || resp.MenuItems[1].Quantity != "1 serving" {
			t.Errorf("unknown category not normalized: %+v", resp.MenuItems[1])
		}
		if resp.MenuItems[2].Name != "Dish" {
			t.Errorf("empty name not defaulted: %+v", resp.MenuItems[2])
		}
		if resp.GroceryItems[0].Category != "OTHER" || resp.GroceryItems[1].Name != "Item" {
			t.Errorf("grocery defaults not applied: %+v", resp.GroceryItems)
		}
		if resp.GroceryItems[1].ID != "ai-g-1700000000000-1" {
			t.Errorf("unexpected grocery id %q", resp.GroceryItems[1].ID)
		}
		if resp.Usage.PromptTokens != 12 {
			t.Errorf("usage not carried: %+v", resp.Usage)
		}
	})

	cases := []struct {
		name      string
		gen       func(context.Context, string) (llm.ContentResponse, error)
		wantError string
	}{
		{
			name: "ProviderFailure",
			gen: func(context.Context, string) (llm.ContentResponse, error) {
				return llm.ContentResponse{}, errors.New("boom")
			},
			wantError: "AI request failed",
		},
		{name: "ShortReply", gen: reply("{}"), wantError: "AI returned empty response"},
		{name: "InvalidJSON", gen: reply("here is your menu: soup"), wantError: "AI returned invalid JSON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewLLMCollaborator(&MockTextGenerator{GenerateContentFunc: tc.gen})
			resp, err := c.Generate(ctx, Request{GuestCount: 4, Cuisine: "syrian"})
			if err != nil {
				t.Fatalf("Generate returned error: %v", err)
			}
			if resp.Error != tc.wantError {
				t.Errorf("expected error %q, got %q", tc.wantError, resp.Error)
			}
		})
	}
}
