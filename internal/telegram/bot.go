package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"lamitna/internal/config"
	"lamitna/internal/event"
	"lamitna/internal/menu"
	"lamitna/internal/metrics"
	"lamitna/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of the Telegram API the bot uses. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// EventRepository is what the bot needs from the event store.
type EventRepository interface {
	wizard.EventStore
	Save(ctx context.Context, ownerID string, e *event.Event) error
	List(ctx context.Context, ownerID string) ([]event.Event, error)
	ListResponses(ctx context.Context, eventID string) ([]event.Response, error)
}

// UsageReporter provides the numbers for the admin report.
type UsageReporter interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Bot runs the planning wizard over Telegram chats.
type Bot struct {
	api          Sender
	cfg          *config.Config
	events       EventRepository
	metricsStore UsageReporter
	wizardDeps   wizard.Deps
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// session is one user's open wizard plus the vibe being assembled tag by tag.
type session struct {
	wiz *wizard.Wizard

	mu        sync.Mutex
	draft     wizard.Vibe
	vibeStage int
}

// NewBot creates a Bot. Use SetWebhook to register it with Telegram.
func NewBot(cfg *config.Config, api Sender, events EventRepository, metricsStore UsageReporter, deps wizard.Deps, logger *zap.Logger) *Bot {
	return &Bot{
		api:          api,
		cfg:          cfg,
		events:       events,
		metricsStore: metricsStore,
		wizardDeps:   deps,
		logger:       logger,
		sessions:     make(map[int64]*session),
	}
}

// SetWebhook points Telegram at the configured webhook URL.
func SetWebhook(api *tgbotapi.BotAPI, url string, logger *zap.Logger) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("failed to build webhook for %s: %w", url, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return fmt.Errorf("failed to set webhook to %s: %w", url, err)
	}
	logger.Info("webhook set", zap.String("url", url), zap.String("description", resp.Description))
	return nil
}

// HandleWebhook decodes an update and processes it in the background.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	go b.HandleUpdate(context.Background(), update)
}

// HandleUpdate processes a single update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if !b.allowed(update.CallbackQuery.From) {
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		if !b.allowed(update.Message.From) {
			return
		}
		b.processMessage(ctx, update.Message)
	}
}

func (b *Bot) allowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if len(b.cfg.TelegramAllowedUserIDs) == 0 || slices.Contains(b.cfg.TelegramAllowedUserIDs, from.ID) {
		return true
	}
	b.logger.Warn("unauthorized access attempt", zap.Int64("user_id", from.ID), zap.String("username", from.UserName))
	return false
}

func ownerID(u *tgbotapi.User) string {
	return strconv.FormatInt(u.ID, 10)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText)
	case "newevent":
		b.handleNewEvent(ctx, msg)
	case "events":
		b.handleListEvents(ctx, msg)
	case "plan":
		b.handleOpenPlan(ctx, msg)
	case "responses":
		b.handleResponses(ctx, msg)
	case "add":
		b.handleAddDish(ctx, msg)
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	case "":
		b.handleText(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

const helpText = "🌙 *Lamitna*\n\n" +
	"/newevent Name | 2026-03-01, 2026-03-02 | iftar\n" +
	"/events to list your gatherings\n" +
	"/plan <event id> to plan the menu\n" +
	"/add <Category> <dish> | <quantity> while reviewing the menu\n" +
	"/responses <event id> to see who is coming"

func (b *Bot) handleNewEvent(ctx context.Context, msg *tgbotapi.Message) {
	e, err := parseNewEvent(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, "❌ "+err.Error()+"\nUsage: /newevent Name | 2026-03-01, 2026-03-02 | iftar")
		return
	}
	if err := b.events.Save(ctx, ownerID(msg.From), e); err != nil {
		b.logger.Error("failed to save event", zap.Error(err))
		b.reply(msg.Chat.ID, "❌ Could not save the event: "+escape(err.Error()))
		return
	}

	text := fmt.Sprintf("✅ *%s* created.\nID: `%s`", escape(e.Name), e.ID)
	if link := b.inviteLink(e.ID); link != "" {
		text += "\nInvite: " + link
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🍽 Plan the menu", "plan|"+e.ID),
	))
	b.send(out)
}

// parseNewEvent reads "Name | date, date | mealType".
func parseNewEvent(args string) (*event.Event, error) {
	parts := strings.Split(args, "|")
	e := &event.Event{Name: strings.TrimSpace(parts[0])}
	if e.Name == "" {
		return nil, errors.New("the event needs a name")
	}
	if len(parts) > 1 {
		for _, d := range strings.Split(parts[1], ",") {
			e.Dates = append(e.Dates, strings.TrimSpace(d))
		}
	}
	if len(parts) > 2 {
		e.MealType = event.MealType(strings.ToLower(strings.TrimSpace(parts[2])))
	}
	e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (b *Bot) inviteLink(eventID string) string {
	if b.cfg.PublicURL == "" {
		return ""
	}
	return b.cfg.PublicURL + "/invite/" + eventID
}

func (b *Bot) handleListEvents(ctx context.Context, msg *tgbotapi.Message) {
	events, err := b.events.List(ctx, ownerID(msg.From))
	if err != nil {
		b.logger.Error("failed to list events", zap.Error(err))
		b.reply(msg.Chat.ID, "❌ Error fetching events.")
		return
	}
	if len(events) == 0 {
		b.reply(msg.Chat.ID, "No gatherings yet. Create one with /newevent.")
		return
	}

	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	sb.WriteString("🗓 *Your gatherings*\n\n")
	for _, e := range events {
		status := "no plan yet"
		if e.HasPlan {
			status = "plan saved"
		}
		fmt.Fprintf(&sb, "• *%s* (%s, %s)\n  `%s`\n", escape(e.Name), e.MealType, status, e.ID)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽 "+e.Name, "plan|"+e.ID),
		))
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, sb.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(out)
}

func (b *Bot) handleOpenPlan(ctx context.Context, msg *tgbotapi.Message) {
	eventID := strings.TrimSpace(msg.CommandArguments())
	if eventID == "" {
		b.reply(msg.Chat.ID, "Usage: /plan <event id>")
		return
	}
	sess, err := b.openSession(ctx, msg.From, eventID)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ "+escape(err.Error()))
		return
	}
	text, keyboard := renderSession(sess)
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		out.ReplyMarkup = *keyboard
	}
	b.send(out)
}

func (b *Bot) openSession(ctx context.Context, from *tgbotapi.User, eventID string) (*session, error) {
	wiz, err := wizard.Open(ctx, b.wizardDeps, ownerID(from), eventID)
	if err != nil {
		if errors.Is(err, wizard.ErrEventNotFound) {
			return nil, errors.New("no gathering with that id")
		}
		b.logger.Error("failed to open wizard", zap.Error(err))
		return nil, errors.New("could not open the plan")
	}
	sess := &session{wiz: wiz}
	b.mu.Lock()
	b.sessions[from.ID] = sess
	b.mu.Unlock()
	return sess, nil
}

func (b *Bot) session(userID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[userID]
}

func (b *Bot) handleResponses(ctx context.Context, msg *tgbotapi.Message) {
	eventID := strings.TrimSpace(msg.CommandArguments())
	e, err := b.events.GetByID(ctx, ownerID(msg.From), eventID)
	if err != nil || e == nil {
		b.reply(msg.Chat.ID, "❌ No gathering with that id.")
		return
	}
	responses, err := b.events.ListResponses(ctx, eventID)
	if err != nil {
		b.logger.Error("failed to list responses", zap.Error(err))
		b.reply(msg.Chat.ID, "❌ Error fetching responses.")
		return
	}
	b.reply(msg.Chat.ID, formatResponses(e, responses))
}

func formatResponses(e *event.Event, responses []event.Response) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📨 *Responses for %s*\n\n", escape(e.Name))
	if len(responses) == 0 {
		sb.WriteString("_No responses yet_\n")
		return sb.String()
	}
	for _, d := range e.Dates {
		var names []string
		for _, r := range responses {
			if r.ChosenDate != d {
				continue
			}
			name := escape(r.GuestName)
			if r.Dish != nil {
				name += " brings " + escape(*r.Dish)
			}
			names = append(names, name)
		}
		fmt.Fprintf(&sb, "*%s* (%d)\n", d, len(names))
		for _, n := range names {
			fmt.Fprintf(&sb, "• %s\n", n)
		}
	}
	return sb.String()
}

// handleAddDish reads "/add Category dish name | quantity".
func (b *Bot) handleAddDish(ctx context.Context, msg *tgbotapi.Message) {
	sess := b.session(msg.From.ID)
	if sess == nil {
		b.reply(msg.Chat.ID, "No plan is open. Use /plan <event id> first.")
		return
	}
	args := strings.TrimSpace(msg.CommandArguments())
	category, rest, _ := strings.Cut(args, " ")
	name, quantity, _ := strings.Cut(rest, "|")
	if _, err := sess.wiz.AddMenuItem(menu.Category(strings.TrimSpace(category)), name, quantity); err != nil {
		b.reply(msg.Chat.ID, "❌ "+escape(err.Error())+"\nUsage: /add Desserts Basbousa | 1 tray")
		return
	}
	b.sendSession(msg.Chat.ID, sess)
}

// handleText accepts a typed guest count while the wizard asks for one.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	sess := b.session(msg.From.ID)
	if sess == nil || sess.wiz.Snapshot().Step != wizard.StepGuestCount {
		b.reply(msg.Chat.ID, helpText)
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil {
		b.reply(msg.Chat.ID, "Please send the number of guests.")
		return
	}
	if err := sess.wiz.SetGuestCount(n); err != nil {
		b.reply(msg.Chat.ID, "❌ "+escape(err.Error()))
		return
	}
	b.sendSession(msg.Chat.ID, sess)
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	usage, err := b.metricsStore.GetDailyUsage(ctx, 7)
	if err != nil {
		b.logger.Error("failed to fetch metrics", zap.Error(err))
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.reply(msg.Chat.ID, formatMetricsReport(usage, metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))))
}

func formatMetricsReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Menu Generations*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d AI / %d fallback, %d tokens\n", d.Date, d.AIRuns, d.FallbackRuns, d.PromptTokens+d.CompletionTokens)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %s (Alloc) / %s (Sys)\n", health.Alloc, health.Sys)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}

func (b *Bot) reply(chatID int64, text string) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	b.send(out)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("failed to send telegram message", zap.Error(err))
	}
}

func (b *Bot) sendSession(chatID int64, sess *session) {
	text, keyboard := renderSession(sess)
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		out.ReplyMarkup = *keyboard
	}
	b.send(out)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "'", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
