package chef

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lamitna/internal/async"
	"lamitna/internal/fallback"
	"lamitna/internal/menu"
	"lamitna/internal/metrics"

	"go.uber.org/zap"
)

// DefaultTimeout is how long the AI chef gets before the local menu is used.
const DefaultTimeout = 25 * time.Second

// Provenance tells where a result came from.
type Provenance string

const (
	ProvenanceAI       Provenance = "ai"
	ProvenanceFallback Provenance = "fallback"
)

// Reasons recorded for each attempt.
const (
	ReasonOK          = "ok"
	ReasonError       = "error"
	ReasonTimeout     = "timeout"
	ReasonEmpty       = "empty"
	ReasonRemoteError = "remote_error"
)

// Result is a usable menu and grocery list.
type Result struct {
	MenuItems    []menu.MenuItem
	GroceryItems []menu.GroceryItem
	Provenance   Provenance
	// Reason is diagnostic only. Callers use it for messaging, never for control flow.
	Reason string
}

// Notice is the informational line shown to the user after generation.
func (r Result) Notice() string {
	switch {
	case r.Provenance == ProvenanceAI:
		return "Lamitna crafted your menu!"
	case r.Reason == ReasonTimeout:
		return "Took too long, here's a suggested menu! You can still edit it."
	default:
		return "Using suggested menu (AI not connected)."
	}
}

// Service generates menus with a deadline-bounded AI attempt and a local fallback.
type Service struct {
	collab   Collaborator
	fallback *fallback.Generator
	timeout  time.Duration
	recorder metrics.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithRecorder sends one metric per generation attempt to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the clock used for variation tokens and latency.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. A nil collaborator behaves like Unavailable.
func NewService(collab Collaborator, fb *fallback.Generator, logger *zap.Logger, opts ...Option) *Service {
	if collab == nil {
		collab = Unavailable{}
	}
	if fb == nil {
		fb = fallback.NewGenerator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		collab:   collab,
		fallback: fb,
		timeout:  DefaultTimeout,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fallback exposes the local generator for callers that need it directly.
func (s *Service) Fallback() *fallback.Generator { return s.fallback }

// GenerateMenu always returns a usable result and never waits longer than the
// configured timeout for the AI chef.
func (s *Service) GenerateMenu(ctx context.Context, req Request) Result {
	start := s.now()
	if req.MealType == "" {
		req.MealType = DefaultMealType
	}
	if req.Variation == "" {
		req.Variation = strconv.FormatInt(start.UnixMilli(), 10)
	}

	outcome := async.WithDeadline(ctx, s.timeout, func(ctx context.Context) (Response, error) {
		return s.collab.Generate(ctx, req)
	})

	result, reason, cause := s.settle(req, outcome, start)
	result.Reason = reason
	latency := s.now().Sub(start)

	log := s.logger.With(
		zap.String("cuisine", req.Cuisine),
		zap.Int("guests", req.GuestCount),
		zap.String("provenance", string(result.Provenance)),
		zap.String("reason", reason),
		zap.Duration("latency", latency),
	)
	if cause != nil {
		log.Warn("AI chef unavailable, using fallback menu", zap.Error(cause))
	} else {
		log.Info("menu generated")
	}

	if s.recorder != nil {
		m := metrics.GenerationMetric{
			Cuisine:    req.Cuisine,
			Provenance: string(result.Provenance),
			Reason:     reason,
			Latency:    latency,
		}
		if outcome.OK() {
			m.Model = outcome.Value.Usage.Model
			m.PromptTokens = outcome.Value.Usage.PromptTokens
			m.CompletionTokens = outcome.Value.Usage.CompletionTokens
		}
		if err := s.recorder.RecordGeneration(context.WithoutCancel(ctx), m); err != nil {
			s.logger.Warn("failed to record generation metric", zap.Error(err))
		}
	}
	return result
}

func (s *Service) settle(req Request, outcome async.Outcome[Response], start time.Time) (Result, string, error) {
	switch outcome.Status {
	case async.StatusTimedOut:
		return s.fallbackResult(req), ReasonTimeout, outcome.Err
	case async.StatusFailed:
		return s.fallbackResult(req), ReasonError, outcome.Err
	}

	resp := outcome.Value
	if resp.Failed() {
		err := errors.New(resp.Error)
		if resp.Details != "" {
			err = fmt.Errorf("%s: %s", resp.Error, resp.Details)
		}
		return s.fallbackResult(req), ReasonRemoteError, err
	}
	if len(resp.MenuItems) == 0 {
		return s.fallbackResult(req), ReasonEmpty, errors.New("AI chef returned no menu items")
	}

	stamp := start.UnixMilli()
	result := Result{
		MenuItems:    make([]menu.MenuItem, len(resp.MenuItems)),
		GroceryItems: make([]menu.GroceryItem, len(resp.GroceryItems)),
		Provenance:   ProvenanceAI,
	}
	copy(result.MenuItems, resp.MenuItems)
	for i := range result.MenuItems {
		if result.MenuItems[i].ID == "" {
			result.MenuItems[i].ID = fmt.Sprintf("ai-%d-%d", stamp, i)
		}
	}
	for i, item := range resp.GroceryItems {
		if item.ID == "" {
			item.ID = fmt.Sprintf("ai-g-%d-%d", stamp, i)
		}
		item.Checked = false
		result.GroceryItems[i] = item
	}
	return result, ReasonOK, nil
}

// fallbackResult pairs BuildMenu with BuildGroceryList. For "mixed" each list
// draws its own cuisine.
func (s *Service) fallbackResult(req Request) Result {
	return Result{
		MenuItems:    s.fallback.BuildMenu(req.Cuisine, req.GuestCount),
		GroceryItems: s.fallback.BuildGroceryList(req.Cuisine),
		Provenance:   ProvenanceFallback,
	}
}
