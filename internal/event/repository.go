package event

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lamitna/internal/database"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Repository is a SQLite-backed store for events and invite responses.
type Repository struct {
	db      *sql.DB
	entropy *ulid.LockedMonotonicReader
	now     func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		entropy: &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)},
		now:     time.Now,
	}
}

const eventColumns = `id, owner_id, name, meal_type, dish_party, dates, message, has_plan, created_at`

// Save inserts or updates an event owned by ownerID. A new event gets a fresh id.
// Updating an id that belongs to another owner returns ErrNotFound.
func (r *Repository) Save(ctx context.Context, ownerID string, e *Event) error {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	e.OwnerID = ownerID

	dates, err := json.Marshal(e.Dates)
	if err != nil {
		return fmt.Errorf("failed to marshal event dates: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			meal_type = excluded.meal_type,
			dish_party = excluded.dish_party,
			dates = excluded.dates,
			message = excluded.message,
			has_plan = excluded.has_plan
		WHERE events.owner_id = excluded.owner_id`,
		e.ID, ownerID, e.Name, string(e.MealType), e.DishParty, string(dates),
		nullString(e.Message), e.HasPlan, database.FormatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save event %s: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns the owner's event, or nil if there is none.
func (r *Repository) GetByID(ctx context.Context, ownerID, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? AND owner_id = ?`, id, ownerID)
	return r.scanOne(row, id)
}

// GetPublic returns an event by id regardless of owner, for invite pages.
func (r *Repository) GetPublic(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return r.scanOne(row, id)
}

func (r *Repository) scanOne(row *sql.Row, id string) (*Event, error) {
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return e, nil
}

// List returns the owner's events, newest first.
func (r *Repository) List(ctx context.Context, ownerID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Delete removes the owner's event and its responses. Deleting a missing event is not an error.
func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	return nil
}

// UpdateHasPlan flags whether the event has a saved plan.
func (r *Repository) UpdateHasPlan(ctx context.Context, ownerID, id string, hasPlan bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET has_plan = ? WHERE id = ? AND owner_id = ?`, hasPlan, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update has_plan for event %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddResponse records a guest response. The guest name and dish are trimmed and an
// empty dish is stored as NULL.
func (r *Repository) AddResponse(ctx context.Context, eventID, guestName, chosenDate, dish string) (*Response, error) {
	e, err := r.GetPublic(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}

	guestName = strings.TrimSpace(guestName)
	if guestName == "" {
		return nil, fmt.Errorf("%w: guest name is required", ErrInvalid)
	}
	if !e.HasDate(chosenDate) {
		return nil, ErrUnknownDate
	}

	now := r.now()
	resp := &Response{
		ID:         ulid.MustNew(ulid.Timestamp(now), r.entropy).String(),
		EventID:    eventID,
		GuestName:  guestName,
		ChosenDate: chosenDate,
		CreatedAt:  now,
	}
	if d := strings.TrimSpace(dish); d != "" {
		resp.Dish = &d
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO event_responses (id, event_id, guest_name, chosen_date, dish, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		resp.ID, resp.EventID, resp.GuestName, resp.ChosenDate, resp.Dish, database.FormatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert response for event %s: %w", eventID, err)
	}
	return resp, nil
}

// ListResponses returns an event's responses, oldest first.
func (r *Repository) ListResponses(ctx context.Context, eventID string) ([]Response, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, guest_name, chosen_date, dish, created_at
		FROM event_responses
		WHERE event_id = ?
		ORDER BY created_at ASC, id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		var (
			resp      Response
			dish      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&resp.ID, &resp.EventID, &resp.GuestName, &resp.ChosenDate, &dish, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		if dish.Valid {
			resp.Dish = &dish.String
		}
		if resp.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	var (
		e         Event
		mealType  string
		dates     string
		message   sql.NullString
		createdAt string
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Name, &mealType, &e.DishParty, &dates, &message, &e.HasPlan, &createdAt); err != nil {
		return nil, err
	}
	e.MealType = MealType(mealType)
	e.Message = message.String
	if err := json.Unmarshal([]byte(dates), &e.Dates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event dates: %w", err)
	}
	var err error
	if e.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
