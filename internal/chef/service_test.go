package chef

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lamitna/internal/fallback"
	"lamitna/internal/menu"
	"lamitna/internal/metrics"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collabFunc func(ctx context.Context, req Request) (Response, error)

func (f collabFunc) Generate(ctx context.Context, req Request) (Response, error) { return f(ctx, req) }

type memRecorder struct {
	mu   sync.Mutex
	seen []metrics.GenerationMetric
}

func (r *memRecorder) RecordGeneration(_ context.Context, m metrics.GenerationMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, m)
	return nil
}

func newService(c Collaborator, rec metrics.Recorder, timeout time.Duration) *Service {
	return NewService(c, fallback.NewGenerator(nil), zap.NewNop(), WithTimeout(timeout), WithRecorder(rec))
}

func TestGenerateMenuNeverResolving(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// Ignores its context on purpose: the late call must simply be dropped.
	stuck := collabFunc(func(context.Context, Request) (Response, error) {
		<-release
		return Response{MenuItems: []menu.MenuItem{{ID: "late", Category: menu.Mains, Name: "Late", Quantity: "1"}}}, nil
	})
	rec := &memRecorder{}
	s := newService(stuck, rec, 50*time.Millisecond)

	start := time.Now()
	res := s.GenerateMenu(context.Background(), Request{GuestCount: 4, Cuisine: "egyptian"})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("GenerateMenu took %s, deadline not honoured", elapsed)
	}
	if res.Provenance != ProvenanceFallback || res.Reason != ReasonTimeout {
		t.Fatalf("expected timeout fallback, got %s/%s", res.Provenance, res.Reason)
	}
	if len(res.MenuItems) != 6 {
		t.Errorf("expected 6 fallback items, got %d", len(res.MenuItems))
	}
	if res.Notice() != "Took too long, here's a suggested menu! You can still edit it." {
		t.Errorf("unexpected notice %q", res.Notice())
	}
	if len(rec.seen) != 1 || rec.seen[0].Reason != ReasonTimeout {
		t.Errorf("unexpected metrics %+v", rec.seen)
	}
}

func TestGenerateMenuFallbacks(t *testing.T) {
	cases := []struct {
		name   string
		collab Collaborator
		reason string
	}{
		{
			name: "EmptyMenu",
			collab: collabFunc(func(context.Context, Request) (Response, error) {
				return Response{MenuItems: []menu.MenuItem{}, GroceryItems: []menu.GroceryItem{{Name: "x"}}}, nil
			}),
			reason: ReasonEmpty,
		},
		{
			name: "CallError",
			collab: collabFunc(func(context.Context, Request) (Response, error) {
				return Response{}, errors.New("connection refused")
			}),
			reason: ReasonError,
		},
		{
			name: "ErrorShape",
			collab: collabFunc(func(context.Context, Request) (Response, error) {
				return Response{Error: "AI request failed", Details: "quota"}, nil
			}),
			reason: ReasonRemoteError,
		},
		{name: "Unavailable", collab: Unavailable{}, reason: ReasonRemoteError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newService(tc.collab, &memRecorder{}, time.Second).GenerateMenu(context.Background(), Request{GuestCount: 4, Cuisine: "turkish"})
			if res.Provenance != ProvenanceFallback {
				t.Fatalf("expected fallback, got %s", res.Provenance)
			}
			if res.Reason != tc.reason {
				t.Errorf("expected reason %s, got %s", tc.reason, res.Reason)
			}
			if len(res.MenuItems) == 0 || len(res.GroceryItems) == 0 {
				t.Error("fallback result must not be empty")
			}
			if res.Notice() != "Using suggested menu (AI not connected)." {
				t.Errorf("unexpected notice %q", res.Notice())
			}
		})
	}
}

func TestGenerateMenuAI(t *testing.T) {
	var got Request
	aiMenu := []menu.MenuItem{
		{ID: "m1", Category: menu.Appetizers, Name: "Sambousek", Quantity: "for 6"},
		{Category: menu.Mains, Name: "Mansaf", Quantity: "1 large platter"},
	}
	aiGrocery := []menu.GroceryItem{
		{ID: "g1", Category: "PROTEIN", Name: "3 lb lamb", Checked: true},
		{Category: "DAIRY", Name: "1 jar jameed"},
	}
	collab := collabFunc(func(_ context.Context, req Request) (Response, error) {
		got = req
		return Response{MenuItems: aiMenu, GroceryItems: aiGrocery}, nil
	})
	rec := &memRecorder{}
	s := newService(collab, rec, time.Second)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	res := s.GenerateMenu(context.Background(), Request{GuestCount: 6, Cuisine: "palestinian"})

	if res.Provenance != ProvenanceAI || res.Reason != ReasonOK {
		t.Fatalf("expected ai result, got %s/%s", res.Provenance, res.Reason)
	}
	if got.MealType != "iftar" || got.Variation != "1700000000000" {
		t.Errorf("defaults not applied to request: %+v", got)
	}

	wantMenu := []menu.MenuItem{aiMenu[0], {ID: "ai-1700000000000-1", Category: menu.Mains, Name: "Mansaf", Quantity: "1 large platter"}}
	if diff := cmp.Diff(wantMenu, res.MenuItems); diff != "" {
		t.Errorf("menu mismatch (-want +got):\n%s", diff)
	}
	wantGrocery := []menu.GroceryItem{
		{ID: "g1", Category: "PROTEIN", Name: "3 lb lamb"},
		{ID: "ai-g-1700000000000-1", Category: "DAIRY", Name: "1 jar jameed"},
	}
	if diff := cmp.Diff(wantGrocery, res.GroceryItems); diff != "" {
		t.Errorf("grocery mismatch (-want +got):\n%s", diff)
	}
	if !aiGrocery[0].Checked {
		t.Error("collaborator slice must not be mutated")
	}
	if res.Notice() != "Lamitna crafted your menu!" {
		t.Errorf("unexpected notice %q", res.Notice())
	}
	if len(rec.seen) != 1 || rec.seen[0].Provenance != "ai" {
		t.Errorf("unexpected metrics %+v", rec.seen)
	}
}

func TestGenerateMenuKeepsCallerVariation(t *testing.T) {
	var got Request
	collab := collabFunc(func(_ context.Context, req Request) (Response, error) {
		got = req
		return Response{}, nil
	})
	newService(collab, nil, time.Second).GenerateMenu(context.Background(), Request{Cuisine: "indian", MealType: "suhoor", Variation: "v7"})
	if got.Variation != "v7" || got.MealType != "suhoor" {
		t.Errorf("caller values overwritten: %+v", got)
	}
}
