package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"lamitna/internal/catalog"
	"lamitna/internal/chef"
	"lamitna/internal/fallback"
	"lamitna/internal/menu"
	"lamitna/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUsage struct {
	days    []metrics.DailyUsage
	cleaned int
}

func (f *fakeUsage) GetDailyUsage(context.Context, int) ([]metrics.DailyUsage, error) {
	return f.days, nil
}

func (f *fakeUsage) Cleanup(_ context.Context, days int) (int64, error) {
	f.cleaned = days
	return 3, nil
}

func newTestApp(usage UsageStore) (*App, *bytes.Buffer) {
	c := catalog.Default()
	svc := chef.NewService(chef.Unavailable{}, fallback.NewGenerator(c), zap.NewNop())
	out := &bytes.Buffer{}
	return NewApp(c, svc, usage, out), out
}

func TestGenerateMenu(t *testing.T) {
	ctx := context.Background()

	t.Run("LocalTables", func(t *testing.T) {
		a, out := newTestApp(nil)
		require.NoError(t, a.GenerateMenu(ctx, MenuOptions{Cuisine: "egyptian", Guests: 8}))
		text := out.String()
		assert.Contains(t, text, "Menu for 8 guests")
		assert.Contains(t, text, "Grocery list")
		assert.NotContains(t, text, "AI not connected")
		menuLines := 0
		for _, line := range strings.Split(text, "\n") {
			for _, cat := range menu.Categories {
				if strings.HasPrefix(line, string(cat)+" ") {
					menuLines++
				}
			}
		}
		assert.Equal(t, 6, menuLines)
	})

	t.Run("AIFallsBackWithNotice", func(t *testing.T) {
		a, out := newTestApp(nil)
		require.NoError(t, a.GenerateMenu(ctx, MenuOptions{Cuisine: "mixed", Guests: 4, UseAI: true}))
		assert.True(t, strings.HasPrefix(out.String(), "Using suggested menu (AI not connected)."))
	})

	t.Run("UnknownCuisine", func(t *testing.T) {
		a, _ := newTestApp(nil)
		assert.Error(t, a.GenerateMenu(ctx, MenuOptions{Cuisine: "atlantean", Guests: 4}))
	})

	t.Run("NoGuests", func(t *testing.T) {
		a, _ := newTestApp(nil)
		assert.Error(t, a.GenerateMenu(ctx, MenuOptions{Cuisine: "egyptian"}))
	})
}

func TestListCuisines(t *testing.T) {
	a, out := newTestApp(nil)
	require.NoError(t, a.ListCuisines())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, len(catalog.Default().Cuisines)+1)
	assert.Contains(t, out.String(), "moroccan")
}

func TestPrintGroceryList(t *testing.T) {
	a, out := newTestApp(nil)
	require.NoError(t, a.PrintGroceryList("iranian"))
	assert.Equal(t, 22, strings.Count(out.String(), "- [ ] "))
}

func TestUsageCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("NotConfigured", func(t *testing.T) {
		a, _ := newTestApp(nil)
		assert.Error(t, a.ShowUsage(ctx, 7))
		assert.Error(t, a.CleanupMetrics(ctx, 30))
	})

	t.Run("ShowUsage", func(t *testing.T) {
		usage := &fakeUsage{days: []metrics.DailyUsage{{Date: "2026-03-10", AIRuns: 2, FallbackRuns: 1, PromptTokens: 180}}}
		a, out := newTestApp(usage)
		require.NoError(t, a.ShowUsage(ctx, 7))
		assert.Contains(t, out.String(), "2026-03-10")
		assert.Contains(t, out.String(), "180")
	})

	t.Run("Cleanup", func(t *testing.T) {
		usage := &fakeUsage{}
		a, out := newTestApp(usage)
		require.NoError(t, a.CleanupMetrics(ctx, 30))
		assert.Equal(t, 30, usage.cleaned)
		assert.Contains(t, out.String(), "Removed 3 metric rows")
		assert.Error(t, a.CleanupMetrics(ctx, 0))
	})
}
