package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"lamitna/internal/chef"
	"lamitna/internal/config"
	"lamitna/internal/event"
	"lamitna/internal/fallback"
	"lamitna/internal/metrics"
	"lamitna/internal/planner"
	"lamitna/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// lastText returns the text of the most recent message or edit.
func (f *fakeSender) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	}
	return ""
}

type fakeEvents struct {
	mu        sync.Mutex
	events    map[string]*event.Event
	responses map[string][]event.Response
	next      int
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: map[string]*event.Event{}, responses: map[string][]event.Response{}}
}

func (f *fakeEvents) Save(_ context.Context, ownerID string, e *event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		f.next++
		e.ID = fmt.Sprintf("ev%d", f.next)
	}
	e.OwnerID = ownerID
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeEvents) GetByID(_ context.Context, ownerID, id string) (*event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok || e.OwnerID != ownerID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) UpdateHasPlan(_ context.Context, ownerID, id string, hasPlan bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[id].HasPlan = hasPlan
	return nil
}

func (f *fakeEvents) List(_ context.Context, ownerID string) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event.Event
	for _, e := range f.events {
		if e.OwnerID == ownerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEvents) ListResponses(_ context.Context, eventID string) ([]event.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responses[eventID], nil
}

type fakeUsage struct{}

func (fakeUsage) GetDailyUsage(context.Context, int) ([]metrics.DailyUsage, error) {
	return []metrics.DailyUsage{{Date: "2026-03-01", AIRuns: 3, FallbackRuns: 1, PromptTokens: 900, CompletionTokens: 300}}, nil
}

const hostID = 42

func newTestBot(t *testing.T) (*Bot, *fakeSender, *fakeEvents, *planner.MemoryStore) {
	t.Helper()
	sender := &fakeSender{}
	events := newFakeEvents()
	plans := planner.NewMemoryStore()
	deps := wizard.Deps{
		Chef:     chef.NewService(chef.Unavailable{}, nil, zap.NewNop()),
		Fallback: fallback.NewGenerator(nil),
		Plans:    plans,
		Events:   events,
	}
	cfg := &config.Config{
		PublicURL:              "https://lamitna.example",
		TelegramAllowedUserIDs: []int64{hostID},
		AdminTelegramID:        hostID,
		DatabasePath:           t.TempDir() + "/lamitna.db",
	}
	return NewBot(cfg, sender, events, fakeUsage{}, deps, zap.NewNop()), sender, events, plans
}

func command(from int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i > 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func text(from int64, body string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from},
		Chat: &tgbotapi.Chat{ID: from},
		Text: body,
	}}
}

func callback(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

func TestBotPlanningFlow(t *testing.T) {
	ctx := context.Background()
	bot, sender, events, plans := newTestBot(t)

	bot.HandleUpdate(ctx, command(hostID, "/newevent Family iftar | 2026-03-01, 2026-03-02"))
	if !strings.Contains(sender.lastText(), "https://lamitna.example/invite/ev1") {
		t.Fatalf("expected invite link, got %q", sender.lastText())
	}

	bot.HandleUpdate(ctx, callback(hostID, "plan|ev1"))
	if !strings.Contains(sender.lastText(), "How many are joining") {
		t.Fatalf("expected guest prompt, got %q", sender.lastText())
	}

	bot.HandleUpdate(ctx, text(hostID, "6"))
	if !strings.Contains(sender.lastText(), "Vibe check") {
		t.Fatalf("expected mood prompt, got %q", sender.lastText())
	}
	bot.HandleUpdate(ctx, callback(hostID, "vibe|cozy"))
	bot.HandleUpdate(ctx, callback(hostID, "vibe|-"))
	bot.HandleUpdate(ctx, callback(hostID, "vibe|vegetarian"))
	if !strings.Contains(sender.lastText(), "Pick a cuisine") {
		t.Fatalf("expected cuisine prompt, got %q", sender.lastText())
	}

	bot.HandleUpdate(ctx, callback(hostID, "cuisine|turkish"))
	st := bot.session(hostID).wiz.Snapshot()
	if st.Step != wizard.StepReviewMenu || len(st.Menu) != 6 {
		t.Fatalf("expected a 6 dish menu review, got %s with %d", st.Step, len(st.Menu))
	}
	if st.Vibe != (wizard.Vibe{Mood: "cozy", Dietary: "vegetarian"}) {
		t.Errorf("unexpected vibe %+v", st.Vibe)
	}
	if !strings.Contains(sender.lastText(), "Using suggested menu") {
		t.Errorf("expected fallback notice, got %q", sender.lastText())
	}

	bot.HandleUpdate(ctx, command(hostID, "/add Desserts Kunefe | 1 tray"))
	bot.HandleUpdate(ctx, callback(hostID, "rm|"+st.Menu[0].ID))
	if got := len(bot.session(hostID).wiz.Snapshot().Menu); got != 6 {
		t.Errorf("expected 6 dishes after add and remove, got %d", got)
	}

	bot.HandleUpdate(ctx, callback(hostID, "grocery"))
	st = bot.session(hostID).wiz.Snapshot()
	if st.Step != wizard.StepReviewGrocery || len(st.Grocery) == 0 {
		t.Fatalf("expected grocery review, got %s", st.Step)
	}

	bot.HandleUpdate(ctx, callback(hostID, "tg|"+st.Grocery[0].ID))
	bot.HandleUpdate(ctx, callback(hostID, "done"))
	if !strings.Contains(sender.lastText(), "Your plan is saved") {
		t.Errorf("expected saved message, got %q", sender.lastText())
	}

	saved, _ := plans.Get(ctx, "42", "ev1")
	if !saved.Complete() || !saved.GroceryItems[0].Checked {
		t.Errorf("plan not saved as reviewed: %+v", saved)
	}
	if e, _ := events.GetByID(ctx, "42", "ev1"); !e.HasPlan {
		t.Error("event should be flagged as planned")
	}

	bot.HandleUpdate(ctx, callback(hostID, "regen"))
	if bot.session(hostID).wiz.Snapshot().Step != wizard.StepSaved {
		t.Error("stale buttons must not change a finished wizard")
	}
}

func TestBotIgnoresStrangers(t *testing.T) {
	bot, sender, _, _ := newTestBot(t)
	bot.HandleUpdate(context.Background(), command(7, "/events"))
	bot.HandleUpdate(context.Background(), callback(7, "plan|ev1"))
	if len(sender.sent) != 0 {
		t.Errorf("expected no replies to unknown users, got %d", len(sender.sent))
	}
}

func TestParseNewEvent(t *testing.T) {
	e, err := parseNewEvent(" Suhoor night | 2026-03-10 ,2026-03-11| SUHOOR ")
	if err != nil {
		t.Fatalf("parseNewEvent failed: %v", err)
	}
	if e.Name != "Suhoor night" || e.MealType != event.Suhoor || len(e.Dates) != 2 || e.Dates[1] != "2026-03-11" {
		t.Errorf("unexpected event %+v", e)
	}

	if _, err := parseNewEvent(" | 2026-03-10"); err == nil {
		t.Error("expected an error without a name")
	}
	if _, err := parseNewEvent("Party | tomorrow"); err == nil {
		t.Error("expected an error for a bad date")
	}
}

func TestFormatResponses(t *testing.T) {
	dish := "Qatayef"
	e := &event.Event{Name: "Iftar_at_home", Dates: []string{"2026-03-01", "2026-03-02"}}
	out := formatResponses(e, []event.Response{
		{GuestName: "Amira", ChosenDate: "2026-03-01", Dish: &dish},
		{GuestName: "Omar", ChosenDate: "2026-03-01"},
	})

	for _, want := range []string{"Iftar\\_at\\_home", "*2026-03-01* (2)", "• Amira brings Qatayef", "• Omar\n", "*2026-03-02* (0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatMetricsReport(t *testing.T) {
	usage, _ := fakeUsage{}.GetDailyUsage(context.Background(), 7)
	out := formatMetricsReport(usage, metrics.SysHealth{Alloc: "3.1 MiB", Sys: "12 MiB", Goroutines: 9, DataDiskSize: "40 KiB"})

	for _, want := range []string{"📊 *Usage & Health Report*", "• *2026-03-01*: 3 AI / 1 fallback, 1200 tokens", "• RAM: 3.1 MiB (Alloc) / 12 MiB (Sys)", "• Disk Data: 40 KiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
