// Package event stores gatherings and the guest responses collected through invite links.
package event

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// MealType says which Ramadan meal the gathering is for.
type MealType string

const (
	Iftar  MealType = "iftar"
	Suhoor MealType = "suhoor"
	Both   MealType = "both"
)

// Valid reports whether m is a known meal type.
func (m MealType) Valid() bool {
	return m == Iftar || m == Suhoor || m == Both
}

// DateLayout is the format of candidate dates.
const DateLayout = "2006-01-02"

var (
	ErrNotFound    = errors.New("event not found")
	ErrInvalid     = errors.New("invalid event")
	ErrUnknownDate = errors.New("chosen date is not one of the event dates")
)

// Event is a gathering owned by one host.
type Event struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Name      string    `json:"name"`
	MealType  MealType  `json:"mealType"`
	DishParty bool      `json:"dishParty"`
	Dates     []string  `json:"dates"`
	Message   string    `json:"message,omitempty"`
	HasPlan   bool      `json:"hasPlan"`
	CreatedAt time.Time `json:"createdAt"`
}

// Normalize trims text fields and applies defaults.
func (e *Event) Normalize() {
	e.Name = strings.TrimSpace(e.Name)
	e.Message = strings.TrimSpace(e.Message)
	if e.MealType == "" {
		e.MealType = Iftar
	}
	dates := make([]string, 0, len(e.Dates))
	for _, d := range e.Dates {
		if d = strings.TrimSpace(d); d != "" && !slices.Contains(dates, d) {
			dates = append(dates, d)
		}
	}
	e.Dates = dates
}

// Validate checks the fields a host must provide.
func (e *Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if !e.MealType.Valid() {
		return fmt.Errorf("%w: unknown meal type %q", ErrInvalid, e.MealType)
	}
	for _, d := range e.Dates {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalid, d)
		}
	}
	return nil
}

// HasDate reports whether date is one of the candidate dates.
func (e *Event) HasDate(date string) bool {
	return slices.Contains(e.Dates, date)
}

// Response is one guest's answer to an invite.
type Response struct {
	ID         string    `json:"id"`
	EventID    string    `json:"eventId"`
	GuestName  string    `json:"guestName"`
	ChosenDate string    `json:"chosenDate"`
	Dish       *string   `json:"dish"`
	CreatedAt  time.Time `json:"createdAt"`
}
