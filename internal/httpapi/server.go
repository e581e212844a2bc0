// Package httpapi exposes the generate-menu function, the public invite API and the
// operational endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"lamitna/internal/chef"
	"lamitna/internal/event"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultGuestCount = 4
	defaultCuisine    = "mixed"
)

// InviteStore is the part of the event repository the invite API needs.
type InviteStore interface {
	GetPublic(ctx context.Context, id string) (*event.Event, error)
	AddResponse(ctx context.Context, eventID, guestName, chosenDate, dish string) (*event.Response, error)
}

// Deps wires the server to its collaborators. Gatherer and Webhook are optional.
type Deps struct {
	Chef     chef.Collaborator
	Invites  InviteStore
	Gatherer prometheus.Gatherer
	Webhook  http.HandlerFunc
	Logger   *zap.Logger
}

// Server routes the HTTP API.
type Server struct {
	router   *chi.Mux
	chef     chef.Collaborator
	invites  InviteStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewServer builds the router.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collab := deps.Chef
	if collab == nil {
		collab = chef.Unavailable{}
	}

	s := &Server{
		chef:     collab,
		invites:  deps.Invites,
		validate: validator.New(),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.Webhook != nil {
		r.Post("/webhook", deps.Webhook)
	}

	r.Route("/functions", func(r chi.Router) {
		r.Use(cors)
		r.Post("/generate-menu", s.handleGenerateMenu)
	})

	if s.invites != nil {
		r.Route("/invite/{id}", func(r chi.Router) {
			r.Use(cors)
			r.Get("/", s.handleGetInvite)
			r.Post("/responses", s.handleAddResponse)
		})
	}

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleGenerateMenu(w http.ResponseWriter, r *http.Request) {
	if _, off := s.chef.(chef.Unavailable); off {
		resp, _ := s.chef.Generate(r.Context(), chef.Request{})
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	var req chef.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return
	}
	if req.GuestCount <= 0 {
		req.GuestCount = defaultGuestCount
	}
	if req.Cuisine == "" {
		req.Cuisine = defaultCuisine
	}
	if req.MealType == "" {
		req.MealType = chef.DefaultMealType
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	resp, err := s.chef.Generate(r.Context(), req)
	if err != nil {
		s.logger.Warn("generate-menu failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "AI request failed", err.Error())
		return
	}
	if resp.Failed() {
		s.logger.Info("generate-menu returned an error shape",
			zap.String("error", resp.Error), zap.String("details", resp.Details))
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetInvite(w http.ResponseWriter, r *http.Request) {
	e, err := s.invites.GetPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("failed to load invite", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not load event", "")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "Event not found", "")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type responseBody struct {
	GuestName  string `json:"guestName" validate:"required,max=80"`
	ChosenDate string `json:"chosenDate" validate:"required,datetime=2006-01-02"`
	Dish       string `json:"dish" validate:"max=120"`
}

func (s *Server) handleAddResponse(w http.ResponseWriter, r *http.Request) {
	var body responseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid response", err.Error())
		return
	}

	resp, err := s.invites.AddResponse(r.Context(), chi.URLParam(r, "id"), body.GuestName, body.ChosenDate, body.Dish)
	switch {
	case errors.Is(err, event.ErrNotFound):
		writeError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, event.ErrUnknownDate):
		writeError(w, http.StatusUnprocessableEntity, "Pick one of the event dates", "")
	case errors.Is(err, event.ErrInvalid):
		writeError(w, http.StatusBadRequest, "Invalid response", err.Error())
	case err != nil:
		s.logger.Error("failed to save invite response", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not save response", "")
	default:
		writeJSON(w, http.StatusCreated, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, chef.Response{Error: msg, Details: details})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
