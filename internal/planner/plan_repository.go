// Package planner keeps the last saved menu and grocery list of each event.
package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"lamitna/internal/database"
	"lamitna/internal/menu"
)

// SavedPlan is the menu and grocery list stored for an event.
type SavedPlan struct {
	MenuItems    []menu.MenuItem    `json:"menuItems"`
	GroceryItems []menu.GroceryItem `json:"groceryItems"`
}

// Complete reports whether both lists are non-empty, which is what a resumable plan needs.
func (p *SavedPlan) Complete() bool {
	return p != nil && len(p.MenuItems) > 0 && len(p.GroceryItems) > 0
}

// Store is a last-write-wins plan store keyed by owner and event.
// Get returns nil when nothing was saved.
type Store interface {
	Get(ctx context.Context, ownerID, eventID string) (*SavedPlan, error)
	Put(ctx context.Context, ownerID, eventID string, plan SavedPlan) error
}

// PlanRepository is a database-backed Store.
type PlanRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d, now: time.Now}
}

// Put replaces the plan saved for the event.
func (r *PlanRepository) Put(ctx context.Context, ownerID, eventID string, plan SavedPlan) error {
	data, err := encodePlan(plan)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO saved_plans (owner_id, event_id, plan_data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, event_id) DO UPDATE SET
			plan_data = excluded.plan_data,
			updated_at = excluded.updated_at`,
		ownerID, eventID, string(data), database.FormatTime(r.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan for event %s: %w", eventID, err)
	}
	return nil
}

// Get retrieves the plan saved for the event.
func (r *PlanRepository) Get(ctx context.Context, ownerID, eventID string) (*SavedPlan, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT plan_data FROM saved_plans WHERE owner_id = ? AND event_id = ?`,
		ownerID, eventID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get plan for event %s: %w", eventID, err)
	}
	return decodePlan([]byte(data))
}

// MemoryStore is an in-process Store, used by the CLI and tests.
type MemoryStore struct {
	mu    sync.Mutex
	plans map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string][]byte)}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, ownerID, eventID string, plan SavedPlan) error {
	data, err := encodePlan(plan)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[planKey(ownerID, eventID)] = data
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, ownerID, eventID string) (*SavedPlan, error) {
	m.mu.Lock()
	data, ok := m.plans[planKey(ownerID, eventID)]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodePlan(data)
}

func planKey(ownerID, eventID string) string {
	return ownerID + "\x00" + eventID
}

func encodePlan(plan SavedPlan) ([]byte, error) {
	if plan.MenuItems == nil {
		plan.MenuItems = []menu.MenuItem{}
	}
	if plan.GroceryItems == nil {
		plan.GroceryItems = []menu.GroceryItem{}
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	return data, nil
}

// decodePlan reads a stored plan. A document missing either list counts as no plan,
// and grocery lines without a category read back as OTHER.
func decodePlan(data []byte) (*SavedPlan, error) {
	var raw struct {
		MenuItems    *[]menu.MenuItem    `json:"menuItems"`
		GroceryItems *[]menu.GroceryItem `json:"groceryItems"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	if raw.MenuItems == nil || raw.GroceryItems == nil {
		return nil, nil
	}

	plan := &SavedPlan{MenuItems: *raw.MenuItems, GroceryItems: *raw.GroceryItems}
	for i := range plan.GroceryItems {
		if plan.GroceryItems[i].Category == "" {
			plan.GroceryItems[i].Category = menu.DefaultGroceryCategory
		}
	}
	return plan, nil
}
