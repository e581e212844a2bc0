package chef

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"lamitna/internal/catalog"
	"lamitna/internal/llm"
	"lamitna/internal/menu"
)

//go:embed chef_prompt.md
var chefPrompt string

var chefTmpl = template.Must(template.New("Chef").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(chefPrompt))

var fenceRe = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

// minReplyLen is the shortest reply worth trying to parse.
const minReplyLen = 10

type promptData struct {
	GuestCount int
	Cuisine    string
	MealType   string
	Extras     []string
	Variation  string
}

// LLMCollaborator is the generate-menu function run in-process: it prompts a
// text model and turns the reply into a Response.
type LLMCollaborator struct {
	textGen llm.TextGenerator
	now     func() time.Time
}

// NewLLMCollaborator wraps a text generator.
func NewLLMCollaborator(textGen llm.TextGenerator) *LLMCollaborator {
	return &LLMCollaborator{textGen: textGen, now: time.Now}
}

// Generate implements Collaborator. Provider and parse failures come back as the
// error shape; the returned error is reserved for prompt construction.
func (c *LLMCollaborator) Generate(ctx context.Context, req Request) (Response, error) {
	prompt, err := buildChefPrompt(req)
	if err != nil {
		return Response{}, err
	}

	resp, err := c.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return Response{Error: "AI request failed", Details: err.Error(), Usage: resp.Usage}, nil
	}

	raw := strings.TrimSpace(resp.Content)
	if len(raw) < minReplyLen {
		details := raw
		if details == "" {
			details = "(empty)"
		}
		return Response{Error: "AI returned empty response", Details: details, Usage: resp.Usage}, nil
	}

	var parsed Response
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Response{Error: "AI returned invalid JSON", Details: truncate(raw, 500), Usage: resp.Usage}, nil
	}

	out := normalize(parsed, c.now().UnixMilli())
	out.Usage = resp.Usage
	return out, nil
}

func normalize(parsed Response, stamp int64) Response {
	out := Response{
		MenuItems:    make([]menu.MenuItem, 0, len(parsed.MenuItems)),
		GroceryItems: make([]menu.GroceryItem, 0, len(parsed.GroceryItems)),
	}
	for i, item := range parsed.MenuItems {
		category := item.Category
		if !category.Valid() {
			category = menu.Mains
		}
		out.MenuItems = append(out.MenuItems, menu.MenuItem{
			ID:       fmt.Sprintf("ai-%d-%d", stamp, i),
			Category: category,
			Name:     orDefault(item.Name, "Dish"),
			Quantity: orDefault(item.Quantity, "1 serving"),
		})
	}
	for i, item := range parsed.GroceryItems {
		out.GroceryItems = append(out.GroceryItems, menu.GroceryItem{
			ID:       fmt.Sprintf("ai-g-%d-%d", stamp, i),
			Category: orDefault(item.Category, menu.DefaultGroceryCategory),
			Name:     orDefault(item.Name, "Item"),
		})
	}
	return out
}

func buildChefPrompt(req Request) (string, error) {
	data := promptData{
		GuestCount: req.GuestCount,
		Cuisine:    req.Cuisine,
		MealType:   orDefault(req.MealType, DefaultMealType),
		Variation:  req.Variation,
	}
	if data.Cuisine == catalog.Mixed {
		data.Cuisine = "a mix of Middle Eastern and South Asian"
	}
	tags := []*string{req.Mood, req.CookingEffort}
	if req.Dietary != nil && *req.Dietary != "no_restrictions" {
		tags = append(tags, req.Dietary)
	}
	for _, tag := range tags {
		if tag == nil || *tag == "" {
			continue
		}
		data.Extras = append(data.Extras, strings.ReplaceAll(*tag, "_", " "))
	}

	var buf bytes.Buffer
	if err := chefTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render chef prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
