// Package app holds the command-line application's actions.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"lamitna/internal/catalog"
	"lamitna/internal/chef"
	"lamitna/internal/menu"
	"lamitna/internal/metrics"
)

// UsageStore is the part of the metrics store the CLI reports from.
type UsageStore interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// App holds the application's dependencies.
type App struct {
	catalog *catalog.Catalog
	chef    *chef.Service
	usage   UsageStore
	out     io.Writer
}

// NewApp creates and initializes a new App instance. usage may be nil when the
// command does not need the database.
func NewApp(c *catalog.Catalog, svc *chef.Service, usage UsageStore, out io.Writer) *App {
	if out == nil {
		out = os.Stdout
	}
	return &App{catalog: c, chef: svc, usage: usage, out: out}
}

// MenuOptions selects what the menu command generates.
type MenuOptions struct {
	Cuisine  string
	Guests   int
	MealType string
	Mood     string
	Effort   string
	Dietary  string
	// UseAI asks the AI chef first. Otherwise the local tables are used directly.
	UseAI bool
}

// GenerateMenu prints a menu and its grocery list.
func (a *App) GenerateMenu(ctx context.Context, opts MenuOptions) error {
	if _, ok := a.catalog.Lookup(opts.Cuisine); !ok {
		return fmt.Errorf("unknown cuisine %q (see `lamitna cuisines`)", opts.Cuisine)
	}
	if opts.Guests < 1 {
		return fmt.Errorf("guest count must be at least 1, got %d", opts.Guests)
	}

	var result chef.Result
	if opts.UseAI {
		result = a.chef.GenerateMenu(ctx, chef.Request{
			GuestCount:    opts.Guests,
			Cuisine:       opts.Cuisine,
			Mood:          chef.StringPtr(opts.Mood),
			CookingEffort: chef.StringPtr(opts.Effort),
			Dietary:       chef.StringPtr(opts.Dietary),
			MealType:      opts.MealType,
		})
		fmt.Fprintln(a.out, result.Notice())
	} else {
		fb := a.chef.Fallback()
		result = chef.Result{
			MenuItems:    fb.BuildMenu(opts.Cuisine, opts.Guests),
			GroceryItems: fb.BuildGroceryList(opts.Cuisine),
			Provenance:   chef.ProvenanceFallback,
		}
	}

	fmt.Fprintf(a.out, "\nMenu for %d guests\n", opts.Guests)
	a.printMenu(result.MenuItems)
	fmt.Fprintln(a.out, "\nGrocery list")
	fmt.Fprint(a.out, menu.FormatGroceryList(result.GroceryItems))
	return nil
}

func (a *App) printMenu(items []menu.MenuItem) {
	for _, cat := range menu.Categories {
		for _, item := range items {
			if item.Category == cat {
				fmt.Fprintf(a.out, "%-10s %s (%s)\n", cat, item.Name, item.Quantity)
			}
		}
	}
}

// PrintGroceryList prints a fallback grocery list for a cuisine.
func (a *App) PrintGroceryList(cuisineID string) error {
	if _, ok := a.catalog.Lookup(cuisineID); !ok {
		return fmt.Errorf("unknown cuisine %q", cuisineID)
	}
	fmt.Fprint(a.out, menu.FormatGroceryList(a.chef.Fallback().BuildGroceryList(cuisineID)))
	return nil
}

// ListCuisines prints the offered cuisines.
func (a *App) ListCuisines() error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME")
	for _, cu := range a.catalog.Cuisines {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cu.ID, cu.Code, cu.Name)
	}
	return tw.Flush()
}

// ShowUsage prints per-day generation counts.
func (a *App) ShowUsage(ctx context.Context, days int) error {
	if a.usage == nil {
		return errors.New("usage store is not configured")
	}
	usage, err := a.usage.GetDailyUsage(ctx, days)
	if err != nil {
		return err
	}
	if len(usage) == 0 {
		fmt.Fprintln(a.out, "No generations recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAI\tFALLBACK\tPROMPT TOKENS\tCOMPLETION TOKENS")
	for _, u := range usage {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", u.Date, u.AIRuns, u.FallbackRuns, u.PromptTokens, u.CompletionTokens)
	}
	return tw.Flush()
}

// CleanupMetrics deletes generation metrics older than the given number of days.
func (a *App) CleanupMetrics(ctx context.Context, days int) error {
	if a.usage == nil {
		return errors.New("usage store is not configured")
	}
	if days < 1 {
		return fmt.Errorf("days must be at least 1, got %d", days)
	}
	n, err := a.usage.Cleanup(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to clean up metrics: %w", err)
	}
	fmt.Fprintf(a.out, "Removed %d metric rows older than %d days.\n", n, days)
	return nil
}
