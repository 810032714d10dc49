package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/catalog"
	"ms-reservations/internal/errs"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/mediator"
	"ms-reservations/internal/models"
	"ms-reservations/internal/planner"
	"ms-reservations/internal/waitlist"
)

type Handler struct {
	Mediator *mediator.Service
	Catalog  *catalog.Service
	Waitlist *waitlist.Service
	Logger   *logger.Logger
}

func NewHandler(med *mediator.Service, cat *catalog.Service, wl *waitlist.Service, log *logger.Logger) *Handler {
	return &Handler{
		Mediator: med,
		Catalog:  cat,
		Waitlist: wl,
		Logger:   log,
	}
}

// Register mounts every engine route on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/availability/check", h.CheckAvailability)
		r.Post("/assignments/plan", h.PlanAssignment)

		r.Post("/bookings", h.CreateBooking)
		r.Get("/bookings/{bookingId}", h.GetBooking)
		r.Post("/bookings/{bookingId}/transition", h.Transition)
		r.Post("/bookings/{bookingId}/accept", h.AcceptRequest)
		r.Post("/bookings/{bookingId}/decline", h.DeclineRequest)

		r.Get("/tables", h.ListTables)
		r.Post("/tables", h.CreateTable)
		r.Get("/tables/{tableId}", h.GetTable)
		r.Put("/tables/{tableId}", h.UpdateTable)
		r.Delete("/tables/{tableId}", h.DeleteTable)

		r.Post("/waitlist", h.JoinWaitlist)
		r.Get("/waitlist", h.ListWaitlist)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "ok", nil)
}

// ---------------- AVAILABILITY / PLANNING ----------------

type checkAvailabilityRequest struct {
	TableIDs         []string  `json:"table_ids"`
	StartTime        time.Time `json:"start_time"`
	TurnTimeMinutes  int       `json:"turn_time_minutes"`
	ExcludeBookingID string    `json:"exclude_booking_id,omitempty"`
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req checkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CheckAvailability: tables=%v start=%s", req.TableIDs, req.StartTime.Format(time.RFC3339)))

	window := models.NewWindow(req.StartTime, time.Duration(req.TurnTimeMinutes)*time.Minute)
	report, err := h.Mediator.CheckAvailability(r.Context(), req.TableIDs, window, req.ExcludeBookingID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CheckAvailability: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "availability checked", report)
}

type planAssignmentRequest struct {
	PartySize        int       `json:"party_size"`
	StartTime        time.Time `json:"start_time"`
	TurnTimeMinutes  int       `json:"turn_time_minutes"`
	PreferredType    string    `json:"preferred_type,omitempty"`
	ExcludeBookingID string    `json:"exclude_booking_id,omitempty"`
}

func (h *Handler) PlanAssignment(w http.ResponseWriter, r *http.Request) {
	var req planAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("PlanAssignment: party=%d start=%s", req.PartySize, req.StartTime.Format(time.RFC3339)))

	assignment, err := h.Mediator.PlanAssignment(r.Context(), planner.Request{
		PartySize:        req.PartySize,
		Window:           models.NewWindow(req.StartTime, time.Duration(req.TurnTimeMinutes)*time.Minute),
		PreferredType:    req.PreferredType,
		ExcludeBookingID: req.ExcludeBookingID,
	})
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("PlanAssignment: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "assignment planned", assignment)
}

// ---------------- BOOKINGS ----------------

type createBookingRequest struct {
	PartySize       int       `json:"party_size"`
	StartTime       time.Time `json:"start_time"`
	TurnTimeMinutes int       `json:"turn_time_minutes,omitempty"`
	Instant         bool      `json:"instant,omitempty"`
	PreferredType   string    `json:"preferred_type,omitempty"`
	Actor           string    `json:"actor"`
	Source          string    `json:"source,omitempty"`
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateBooking: party=%d instant=%t", req.PartySize, req.Instant))

	booking, err := h.Mediator.CreateBooking(r.Context(), mediator.CreateRequest{
		PartySize:     req.PartySize,
		StartTime:     req.StartTime,
		TurnTime:      time.Duration(req.TurnTimeMinutes) * time.Minute,
		Instant:       req.Instant,
		PreferredType: req.PreferredType,
		Actor:         req.Actor,
		Source:        req.Source,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "booking created", booking)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	h.Logger.Info("API", fmt.Sprintf("GetBooking: bookingId=%s", bookingID))

	booking, err := h.Mediator.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBooking: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "booking found", booking)
}

type transitionRequest struct {
	TargetStatus string            `json:"target_status"`
	Actor        string            `json:"actor"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Transition: bookingId=%s target=%s actor=%s", bookingID, req.TargetStatus, req.Actor))

	booking, err := h.Mediator.Transition(r.Context(), bookingID, models.BookingStatus(req.TargetStatus), req.Actor, req.Metadata)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Transition: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "transition applied", booking)
}

type acceptRequest struct {
	Actor         string   `json:"actor"`
	TableIDs      []string `json:"table_ids,omitempty"`
	PreferredType string   `json:"preferred_type,omitempty"`
}

func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("AcceptRequest: bookingId=%s tables=%v", bookingID, req.TableIDs))

	result, err := h.Mediator.AcceptRequest(r.Context(), bookingID, req.Actor, req.TableIDs, mediator.AcceptOptions{
		PreferredType: req.PreferredType,
	})
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("AcceptRequest: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "booking confirmed", result)
}

type declineRequest struct {
	Actor               string `json:"actor"`
	Reason              string `json:"reason"`
	SuggestAlternatives bool   `json:"suggest_alternatives,omitempty"`
}

func (h *Handler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	var req declineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("DeclineRequest: bookingId=%s reason=%q", bookingID, req.Reason))

	result, err := h.Mediator.DeclineRequest(r.Context(), bookingID, req.Actor, req.Reason, req.SuggestAlternatives)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("DeclineRequest: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "booking declined", result)
}

// ---------------- TABLES ----------------

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.Catalog.ListTables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "tables listed", tables)
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var table models.Table
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	if err := h.Catalog.CreateTable(r.Context(), &table); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateTable: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "table created", table)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.Catalog.GetTable(r.Context(), chi.URLParam(r, "tableId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "table found", table)
}

func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	var table models.Table
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	table.ID = chi.URLParam(r, "tableId")
	if err := h.Catalog.UpdateTable(r.Context(), &table); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateTable: %v", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "table updated", table)
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteTable(r.Context(), chi.URLParam(r, "tableId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- WAITLIST ----------------

type joinWaitlistRequest struct {
	PartySize       int       `json:"party_size"`
	WindowStart     time.Time `json:"window_start"`
	TurnTimeMinutes int       `json:"turn_time_minutes"`
	PreferredType   string    `json:"preferred_type,omitempty"`
	Priority        bool      `json:"priority,omitempty"`
}

func (h *Handler) JoinWaitlist(w http.ResponseWriter, r *http.Request) {
	var req joinWaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid request body: "+err.Error()))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("JoinWaitlist: party=%d start=%s", req.PartySize, req.WindowStart.Format(time.RFC3339)))

	entry, err := h.Waitlist.Join(r.Context(), waitlist.JoinRequest{
		PartySize:     req.PartySize,
		WindowStart:   req.WindowStart,
		TurnTime:      time.Duration(req.TurnTimeMinutes) * time.Minute,
		PreferredType: req.PreferredType,
		Priority:      req.Priority,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "waitlist entry created", entry)
}

func (h *Handler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Waitlist.ListQueued(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "waitlist listed", entries)
}
