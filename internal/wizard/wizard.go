// Package wizard drives a host through planning an event's menu and grocery list.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"lamitna/internal/catalog"
	"lamitna/internal/chef"
	"lamitna/internal/event"
	"lamitna/internal/menu"
	"lamitna/internal/planner"

	"go.uber.org/zap"
)

// Step is a wizard state. The order is linear apart from Back and Regenerate.
type Step int

const (
	StepGuestCount Step = iota + 1
	StepVibe
	StepCuisine
	StepGeneratingMenu
	StepReviewMenu
	StepGeneratingGrocery
	StepReviewGrocery
	StepSaved
)

var stepNames = map[Step]string{
	StepGuestCount:        "guest_count",
	StepVibe:              "vibe",
	StepCuisine:           "cuisine",
	StepGeneratingMenu:    "generating_menu",
	StepReviewMenu:        "review_menu",
	StepGeneratingGrocery: "generating_grocery",
	StepReviewGrocery:     "review_grocery",
	StepSaved:             "saved",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// DefaultGroceryDelay is the pause before the grocery list is shown.
const DefaultGroceryDelay = 1800 * time.Millisecond

// MaxGuests bounds the guest counter.
const MaxGuests = 200

var (
	ErrWrongStep       = errors.New("action not available at this step")
	ErrAbandoned       = errors.New("wizard moved on before the result arrived")
	ErrEventNotFound   = errors.New("event not found")
	ErrInvalidGuests   = fmt.Errorf("guest count must be between 1 and %d", MaxGuests)
	ErrInvalidVibe     = errors.New("unknown vibe option")
	ErrUnknownCuisine  = errors.New("unknown cuisine")
	ErrEmptyName       = errors.New("dish name is required")
	ErrInvalidCategory = errors.New("unknown menu category")
	ErrItemNotFound    = errors.New("item not found")
)

// MenuGenerator produces a usable menu for a request. chef.Service implements it.
type MenuGenerator interface {
	GenerateMenu(ctx context.Context, req chef.Request) chef.Result
}

// GroceryFallback builds a local grocery list. fallback.Generator implements it.
type GroceryFallback interface {
	BuildGroceryList(cuisineID string) []menu.GroceryItem
}

// EventStore is the part of the event repository the wizard needs.
type EventStore interface {
	GetByID(ctx context.Context, ownerID, id string) (*event.Event, error)
	UpdateHasPlan(ctx context.Context, ownerID, id string, hasPlan bool) error
}

// Deps are the collaborators shared by every wizard.
type Deps struct {
	Chef         MenuGenerator
	Fallback     GroceryFallback
	Plans        planner.Store
	Events       EventStore
	Catalog      *catalog.Catalog
	Logger       *zap.Logger
	GroceryDelay time.Duration
}

// Wizard is one host's planning session for one event. Methods are safe to call
// from several goroutines; step checks decide what is allowed.
type Wizard struct {
	deps    Deps
	ownerID string
	eventID string
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	eventName string
	mealType  event.MealType
	step      Step
	guests    int
	vibe      Vibe
	cuisine   string
	menu      []menu.MenuItem
	grocery   []menu.GroceryItem
	pending   []menu.GroceryItem
	notice    string

	// epoch changes on every step transition. Async work started in one epoch
	// is discarded if the epoch has moved on when it finishes.
	epoch     uint64
	startedAt uint64
}

// State is a copy of the wizard's visible state.
type State struct {
	Step      Step
	EventID   string
	EventName string
	MealType  event.MealType
	Guests    int
	Vibe      Vibe
	Cuisine   string
	Menu      []menu.MenuItem
	Grocery   []menu.GroceryItem
	Notice    string
}

// Open starts a wizard for the owner's event. An event that already has a
// complete saved plan resumes at the grocery review.
func Open(ctx context.Context, deps Deps, ownerID, eventID string) (*Wizard, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}

	e, err := deps.Events.GetByID(ctx, ownerID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if e == nil {
		return nil, ErrEventNotFound
	}

	w := &Wizard{
		deps:      deps,
		ownerID:   ownerID,
		eventID:   eventID,
		logger:    deps.Logger.With(zap.String("event_id", eventID), zap.String("owner_id", ownerID)),
		now:       time.Now,
		eventName: e.Name,
		mealType:  e.MealType,
		step:      StepGuestCount,
		guests:    1,
	}
	if w.mealType == "" {
		w.mealType = event.Iftar
	}

	if e.HasPlan {
		saved, err := deps.Plans.Get(ctx, ownerID, eventID)
		if err != nil {
			w.logger.Warn("failed to load saved plan, starting fresh", zap.Error(err))
		} else if saved.Complete() {
			w.menu = saved.MenuItems
			w.grocery = saved.GroceryItems
			w.step = StepReviewGrocery
		}
	}
	return w, nil
}

// Snapshot returns a copy of the current state.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Step:      w.step,
		EventID:   w.eventID,
		EventName: w.eventName,
		MealType:  w.mealType,
		Guests:    w.guests,
		Vibe:      w.vibe,
		Cuisine:   w.cuisine,
		Menu:      slices.Clone(w.menu),
		Grocery:   slices.Clone(w.grocery),
		Notice:    w.notice,
	}
}

// Notice returns the message describing the last generation.
func (w *Wizard) Notice() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notice
}

// GroceryText renders the grocery list as a shareable checklist.
func (w *Wizard) GroceryText() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return menu.FormatGroceryList(w.grocery)
}

// enter moves to step and starts a new epoch. Caller holds mu.
func (w *Wizard) enter(step Step) {
	w.step = step
	w.epoch++
}

func (w *Wizard) expect(step Step) error {
	if w.step != step {
		return fmt.Errorf("%w: at %s, need %s", ErrWrongStep, w.step, step)
	}
	return nil
}

// SetGuestCount records the head count and moves to the vibe step.
func (w *Wizard) SetGuestCount(n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepGuestCount); err != nil {
		return err
	}
	if n < 1 || n > MaxGuests {
		return ErrInvalidGuests
	}
	w.guests = n
	w.enter(StepVibe)
	return nil
}

// SetVibe records the optional tags and moves to the cuisine step.
func (w *Wizard) SetVibe(v Vibe) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepVibe); err != nil {
		return err
	}
	if !v.valid() {
		return ErrInvalidVibe
	}
	w.vibe = v
	w.enter(StepCuisine)
	return nil
}

// ChooseCuisine records the cuisine and enters menu generation. The caller then
// runs GenerateMenu once.
func (w *Wizard) ChooseCuisine(cuisineID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepCuisine); err != nil {
		return err
	}
	if _, ok := w.deps.Catalog.Lookup(cuisineID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCuisine, cuisineID)
	}
	w.cuisine = cuisineID
	w.enter(StepGeneratingMenu)
	return nil
}

// Regenerate discards the menu and its grocery candidate and enters menu generation again.
func (w *Wizard) Regenerate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepReviewMenu); err != nil {
		return err
	}
	w.menu = nil
	w.pending = nil
	w.enter(StepGeneratingMenu)
	return nil
}

// GenerateMenu performs the single generation attached to the current entry into
// the generating step. If the wizard moves on while the call is out, the result
// is dropped and ErrAbandoned is returned.
func (w *Wizard) GenerateMenu(ctx context.Context) (chef.Result, error) {
	w.mu.Lock()
	if err := w.expect(StepGeneratingMenu); err != nil {
		w.mu.Unlock()
		return chef.Result{}, err
	}
	if w.startedAt == w.epoch {
		w.mu.Unlock()
		return chef.Result{}, fmt.Errorf("%w: generation already started", ErrWrongStep)
	}
	w.startedAt = w.epoch
	epoch := w.epoch
	req := chef.Request{
		GuestCount:    w.guests,
		Cuisine:       w.cuisine,
		Mood:          chef.StringPtr(w.vibe.Mood),
		CookingEffort: chef.StringPtr(w.vibe.CookingEffort),
		Dietary:       chef.StringPtr(w.vibe.Dietary),
		MealType:      string(w.mealType),
	}
	w.mu.Unlock()

	res := w.deps.Chef.GenerateMenu(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		w.logger.Debug("discarding menu for abandoned generation", zap.String("step", w.step.String()))
		return chef.Result{}, ErrAbandoned
	}
	w.menu = res.MenuItems
	w.pending = res.GroceryItems
	w.notice = res.Notice()
	w.enter(StepReviewMenu)
	return res, nil
}

// AddMenuItem appends a dish during menu review. An empty quantity becomes "1 serving".
func (w *Wizard) AddMenuItem(category menu.Category, name, quantity string) (menu.MenuItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepReviewMenu); err != nil {
		return menu.MenuItem{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return menu.MenuItem{}, ErrEmptyName
	}
	if !category.Valid() {
		return menu.MenuItem{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	quantity = strings.TrimSpace(quantity)
	if quantity == "" {
		quantity = "1 serving"
	}

	id := fmt.Sprintf("new-%d", w.now().UnixMilli())
	for n := 1; w.hasMenuID(id); n++ {
		id = fmt.Sprintf("new-%d-%d", w.now().UnixMilli(), n)
	}
	item := menu.MenuItem{ID: id, Category: category, Name: name, Quantity: quantity}
	w.menu = append(w.menu, item)
	return item, nil
}

func (w *Wizard) hasMenuID(id string) bool {
	return slices.ContainsFunc(w.menu, func(m menu.MenuItem) bool { return m.ID == id })
}

// RemoveMenuItem drops a dish during menu review.
func (w *Wizard) RemoveMenuItem(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepReviewMenu); err != nil {
		return err
	}
	n := len(w.menu)
	w.menu = slices.DeleteFunc(w.menu, func(m menu.MenuItem) bool { return m.ID == id })
	if len(w.menu) == n {
		return ErrItemNotFound
	}
	return nil
}

// ContinueToGrocery leaves menu review for the grocery step.
func (w *Wizard) ContinueToGrocery() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepReviewMenu); err != nil {
		return err
	}
	w.enter(StepGeneratingGrocery)
	return nil
}

// PrepareGrocery waits the grocery delay, then adopts the grocery list computed
// with the latest menu, or a local list when that one is empty. It never calls
// the AI chef. Entering the review autosaves the plan.
func (w *Wizard) PrepareGrocery(ctx context.Context) error {
	w.mu.Lock()
	if err := w.expect(StepGeneratingGrocery); err != nil {
		w.mu.Unlock()
		return err
	}
	epoch := w.epoch
	w.mu.Unlock()

	if delay := w.deps.GroceryDelay; delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	w.mu.Lock()
	if w.epoch != epoch {
		w.mu.Unlock()
		return ErrAbandoned
	}
	if len(w.pending) > 0 {
		w.grocery = slices.Clone(w.pending)
	} else {
		cuisine := w.cuisine
		if cuisine == "" {
			cuisine = catalog.DefaultKey
		}
		w.grocery = w.deps.Fallback.BuildGroceryList(cuisine)
	}
	w.enter(StepReviewGrocery)
	plan := w.planLocked()
	w.mu.Unlock()

	w.autosave(ctx, plan)
	return nil
}

// ToggleGrocery flips an item's checked flag and autosaves. It returns the new value.
func (w *Wizard) ToggleGrocery(ctx context.Context, id string) (bool, error) {
	w.mu.Lock()
	if err := w.expect(StepReviewGrocery); err != nil {
		w.mu.Unlock()
		return false, err
	}
	i := slices.IndexFunc(w.grocery, func(g menu.GroceryItem) bool { return g.ID == id })
	if i < 0 {
		w.mu.Unlock()
		return false, ErrItemNotFound
	}
	w.grocery[i].Checked = !w.grocery[i].Checked
	checked := w.grocery[i].Checked
	plan := w.planLocked()
	w.mu.Unlock()

	w.autosave(ctx, plan)
	return checked, nil
}

// Back returns to the previous step. Leaving a generating step abandons its work.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := map[Step]Step{
		StepVibe:              StepGuestCount,
		StepCuisine:           StepVibe,
		StepGeneratingMenu:    StepCuisine,
		StepReviewMenu:        StepCuisine,
		StepGeneratingGrocery: StepReviewMenu,
		StepReviewGrocery:     StepReviewMenu,
	}
	to, ok := prev[w.step]
	if !ok {
		return fmt.Errorf("%w: cannot go back from %s", ErrWrongStep, w.step)
	}
	w.enter(to)
	return nil
}

// SaveReport says which persistence steps of Done succeeded.
type SaveReport struct {
	PlanErr error
	FlagErr error
}

// OK reports whether everything was persisted.
func (r SaveReport) OK() bool { return r.PlanErr == nil && r.FlagErr == nil }

// Done saves the plan, marks the event as planned and ends the wizard. Storage
// failures are reported but do not keep the wizard from finishing.
func (w *Wizard) Done(ctx context.Context) (SaveReport, error) {
	w.mu.Lock()
	if err := w.expect(StepReviewGrocery); err != nil {
		w.mu.Unlock()
		return SaveReport{}, err
	}
	plan := w.planLocked()
	w.enter(StepSaved)
	w.notice = "Ramadan Mubarak! Your plan is saved."
	w.mu.Unlock()

	var report SaveReport
	if err := w.deps.Plans.Put(ctx, w.ownerID, w.eventID, plan); err != nil {
		report.PlanErr = err
		w.logger.Error("failed to save plan", zap.Error(err))
	}
	if err := w.deps.Events.UpdateHasPlan(ctx, w.ownerID, w.eventID, true); err != nil {
		report.FlagErr = err
		w.logger.Error("failed to mark event as planned", zap.Error(err))
	}
	return report, nil
}

func (w *Wizard) planLocked() planner.SavedPlan {
	return planner.SavedPlan{MenuItems: slices.Clone(w.menu), GroceryItems: slices.Clone(w.grocery)}
}

func (w *Wizard) autosave(ctx context.Context, plan planner.SavedPlan) {
	if len(plan.MenuItems) == 0 {
		return
	}
	if err := w.deps.Plans.Put(ctx, w.ownerID, w.eventID, plan); err != nil {
		w.logger.Warn("autosave failed", zap.Error(err))
	}
}
