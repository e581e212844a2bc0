package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lamitna/internal/catalog"
	"lamitna/internal/menu"
	"lamitna/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Callback data is "action|payload" and must stay under Telegram's 64 bytes.
const (
	actPlan     = "plan"
	actGuests   = "guests"
	actVibe     = "vibe"
	actCuisine  = "cuisine"
	actRegen    = "regen"
	actGrocery  = "grocery"
	actRemove   = "rm"
	actToggle   = "tg"
	actBack     = "back"
	actDone     = "done"
	actSkipVibe = "-"
)

var vibeStages = []struct {
	title   string
	options []wizard.Option
}{
	{"✨ *Vibe check*: what's the mood?", wizard.MoodOptions},
	{"👩‍🍳 *How much cooking?*", wizard.EffortOptions},
	{"🥗 *Any dietary needs?*", wizard.DietaryOptions},
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	action, payload, _ := strings.Cut(query.Data, "|")
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	if action == actPlan {
		sess, err := b.openSession(ctx, query.From, payload)
		if err != nil {
			b.reply(chatID, "❌ "+escape(err.Error()))
			return
		}
		b.editSession(chatID, messageID, sess)
		return
	}

	sess := b.session(query.From.ID)
	if sess == nil {
		b.reply(chatID, "No plan is open. Use /plan <event id> first.")
		return
	}

	err := b.applyAction(ctx, sess, action, payload, chatID, messageID)
	switch {
	case err == nil:
	case errors.Is(err, wizard.ErrAbandoned):
		return
	case errors.Is(err, wizard.ErrWrongStep):
		b.api.Request(tgbotapi.NewCallbackWithAlert(query.ID, "That step is over."))
		return
	default:
		b.reply(chatID, "❌ "+escape(err.Error()))
		return
	}
	b.editSession(chatID, messageID, sess)
}

func (b *Bot) applyAction(ctx context.Context, sess *session, action, payload string, chatID int64, messageID int) error {
	wiz := sess.wiz
	switch action {
	case actGuests:
		n, err := strconv.Atoi(payload)
		if err != nil {
			return err
		}
		return wiz.SetGuestCount(n)
	case actVibe:
		return b.applyVibe(sess, payload)
	case actCuisine:
		if err := wiz.ChooseCuisine(payload); err != nil {
			return err
		}
		return b.generate(ctx, sess, chatID, messageID)
	case actRegen:
		if err := wiz.Regenerate(); err != nil {
			return err
		}
		return b.generate(ctx, sess, chatID, messageID)
	case actRemove:
		return wiz.RemoveMenuItem(payload)
	case actGrocery:
		if err := wiz.ContinueToGrocery(); err != nil {
			return err
		}
		b.editSession(chatID, messageID, sess)
		return wiz.PrepareGrocery(ctx)
	case actToggle:
		_, err := wiz.ToggleGrocery(ctx, payload)
		return err
	case actBack:
		if err := wiz.Back(); err != nil {
			return err
		}
		if wiz.Snapshot().Step == wizard.StepVibe {
			sess.mu.Lock()
			sess.vibeStage = 0
			sess.draft = wizard.Vibe{}
			sess.mu.Unlock()
		}
		return nil
	case actDone:
		report, err := wiz.Done(ctx)
		if err != nil {
			return err
		}
		if !report.OK() {
			b.reply(chatID, "⚠️ Your plan is ready but could not be fully saved. It will stay in this chat.")
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func (b *Bot) applyVibe(sess *session, choice string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.wiz.Snapshot().Step != wizard.StepVibe {
		return wizard.ErrWrongStep
	}
	if choice == actSkipVibe {
		choice = ""
	}
	switch sess.vibeStage {
	case 0:
		sess.draft.Mood = choice
	case 1:
		sess.draft.CookingEffort = choice
	default:
		sess.draft.Dietary = choice
	}
	sess.vibeStage++
	if sess.vibeStage < len(vibeStages) {
		return nil
	}
	err := sess.wiz.SetVibe(sess.draft)
	sess.vibeStage = 0
	sess.draft = wizard.Vibe{}
	return err
}

// generate shows the waiting screen and runs the single menu generation for this step entry.
func (b *Bot) generate(ctx context.Context, sess *session, chatID int64, messageID int) error {
	b.editSession(chatID, messageID, sess)
	_, err := sess.wiz.GenerateMenu(ctx)
	if err != nil && !errors.Is(err, wizard.ErrAbandoned) {
		b.logger.Warn("menu generation rejected", zap.Error(err))
	}
	return err
}

func (b *Bot) editSession(chatID int64, messageID int, sess *session) {
	text, keyboard := renderSession(sess)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = keyboard
	b.send(edit)
}

// renderSession turns the wizard state into a message and its keyboard.
func renderSession(sess *session) (string, *tgbotapi.InlineKeyboardMarkup) {
	st := sess.wiz.Snapshot()
	var sb strings.Builder
	fmt.Fprintf(&sb, "🌙 *%s*\n\n", escape(st.EventName))

	var rows [][]tgbotapi.InlineKeyboardButton
	back := tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", actBack)

	switch st.Step {
	case wizard.StepGuestCount:
		sb.WriteString("👥 *How many are joining your table?*\nTap a number or type one.")
		for _, row := range [][]int{{1, 2, 4}, {6, 8, 10}, {12, 16, 20}} {
			var buttons []tgbotapi.InlineKeyboardButton
			for _, n := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(n), actGuests+"|"+strconv.Itoa(n)))
			}
			rows = append(rows, buttons)
		}

	case wizard.StepVibe:
		sess.mu.Lock()
		stage := vibeStages[min(sess.vibeStage, len(vibeStages)-1)]
		sess.mu.Unlock()
		sb.WriteString(stage.title)
		for _, o := range stage.options {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(o.Label, actVibe+"|"+o.ID),
			))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			back, tgbotapi.NewInlineKeyboardButtonData("Skip", actVibe+"|"+actSkipVibe),
		))

	case wizard.StepCuisine:
		sb.WriteString("🌍 *Pick a cuisine*")
		var row []tgbotapi.InlineKeyboardButton
		for _, c := range catalog.Default().Cuisines {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Name, actCuisine+"|"+c.ID))
			if len(row) == 3 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(back))

	case wizard.StepGeneratingMenu:
		sb.WriteString("🧑‍🍳 *Thinking...*\nOur AI chef is crafting something special.")

	case wizard.StepReviewMenu:
		if st.Notice != "" {
			sb.WriteString("_" + escape(st.Notice) + "_\n\n")
		}
		fmt.Fprintf(&sb, "🍽 *Menu for %d*\n", st.Guests)
		sb.WriteString(formatMenu(st.Menu))
		sb.WriteString("\nAdd a dish with /add <Category> <dish> | <quantity>")
		for _, item := range st.Menu {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✖ "+item.Name, actRemove+"|"+item.ID),
			))
		}
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Regenerate", actRegen),
				tgbotapi.NewInlineKeyboardButtonData("🛒 Grocery list", actGrocery),
			),
			tgbotapi.NewInlineKeyboardRow(back),
		)

	case wizard.StepGeneratingGrocery:
		sb.WriteString("🛒 *Preparing your grocery list...*")

	case wizard.StepReviewGrocery:
		checked := 0
		for _, g := range st.Grocery {
			if g.Checked {
				checked++
			}
		}
		fmt.Fprintf(&sb, "🛒 *Grocery list* (%d/%d)\n\n", checked, len(st.Grocery))
		sb.WriteString(escape(menu.FormatGroceryList(st.Grocery)))
		for _, g := range st.Grocery {
			mark := "⬜"
			if g.Checked {
				mark = "✅"
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(mark+" "+g.Name, actToggle+"|"+g.ID),
			))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Menu", actBack),
			tgbotapi.NewInlineKeyboardButtonData("🌙 Done", actDone),
		))

	case wizard.StepSaved:
		sb.WriteString("🎉 " + escape(st.Notice) + "\n\n")
		sb.WriteString(formatMenu(st.Menu))
	}

	if len(rows) == 0 {
		return sb.String(), nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return sb.String(), &keyboard
}

func formatMenu(items []menu.MenuItem) string {
	var sb strings.Builder
	for _, cat := range menu.Categories {
		first := true
		for _, item := range items {
			if item.Category != cat {
				continue
			}
			if first {
				fmt.Fprintf(&sb, "\n*%s*\n", cat)
				first = false
			}
			fmt.Fprintf(&sb, "• %s (%s)\n", escape(item.Name), escape(item.Quantity))
		}
	}
	for _, item := range items {
		if !item.Category.Valid() {
			fmt.Fprintf(&sb, "• %s (%s)\n", escape(item.Name), escape(item.Quantity))
		}
	}
	return sb.String()
}
