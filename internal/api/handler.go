// Package api is the HTTP boundary of the notification service: create and
// query notifications, manage per-user preferences, expose health and
// metrics endpoints.
//
// Delivery faults never surface as 5xx. A channel that fails is folded into
// the final status and the per-channel breakdown of the response body;
// server errors are reserved for broken requests reaching storage or for
// genuine bugs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Dispatcher runs one notification's delivery end to end.
// *delivery.Orchestrator satisfies it.
type Dispatcher interface {
	Deliver(ctx context.Context, n *notification.Notification, pref *notification.Preference, dest channel.Destination) (*delivery.Report, error)
}

// Handler serves the notification API.
type Handler struct {
	dispatcher Dispatcher
	storage    notification.Storage
	prefs      notification.PreferenceStore
	log        *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHandler creates the API handler over its collaborators.
func NewHandler(d Dispatcher, storage notification.Storage, prefs notification.PreferenceStore, opts ...Option) (*Handler, error) {
	if d == nil {
		return nil, ErrDispatcherRequired
	}
	if storage == nil {
		return nil, ErrStorageRequired
	}
	if prefs == nil {
		return nil, ErrPreferencesRequired
	}

	h := &Handler{
		dispatcher: d,
		storage:    storage,
		prefs:      prefs,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type createNotificationRequest struct {
	UserID      string         `json:"user_id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Email       string         `json:"email,omitempty"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	Locale      string         `json:"locale,omitempty"`
}

type notificationResponse struct {
	NotificationID string         `json:"notification_id"`
	Status         string         `json:"status"`
	DeliveryInfo   map[string]any `json:"delivery_info,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// CreateNotification accepts a notification, dispatches it to every enabled
// channel, and responds with the final status and per-channel breakdown.
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	n, err := notification.New(req.UserID, notification.Type(req.Type), req.Title, req.Message,
		notification.WithMetadata(req.Metadata))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.storage.Create(ctx, *n); err != nil {
		h.log.ErrorContext(ctx, "failed to store notification",
			slog.String("notification_id", n.ID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to store notification")
		return
	}

	pref := h.loadPreference(ctx, req.UserID)
	dest := channel.Destination{
		UserID:      req.UserID,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Locale:      req.Locale,
	}

	if _, err := h.dispatcher.Deliver(ctx, n, pref, dest); err != nil {
		// Deliver only errors on misuse or a transition violation, both of
		// which mean a bug here rather than a channel fault.
		h.log.ErrorContext(ctx, "delivery dispatch failed",
			slog.String("notification_id", n.ID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "notification processing failed")
		return
	}

	respondJSON(w, http.StatusOK, toResponse(n))
}

// GetNotification returns the stored delivery status of one notification.
func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	n, err := h.storage.Get(ctx, id)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "notification not found")
			return
		}
		h.log.ErrorContext(ctx, "failed to load notification",
			slog.String("notification_id", id), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load notification")
		return
	}

	respondJSON(w, http.StatusOK, toResponse(n))
}

// GetPreferences returns a user's stored delivery preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	p, err := h.prefs.Preference(ctx, userID)
	if err != nil {
		if errors.Is(err, notification.ErrPreferenceNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no preferences stored for user")
			return
		}
		h.log.ErrorContext(ctx, "failed to load preferences",
			slog.String("user_id", userID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load preferences")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// PutPreferences stores a user's delivery preferences, replacing any
// existing set. The user id always comes from the path.
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	var p notification.Preference
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	p.UserID = userID

	if err := h.prefs.SavePreference(ctx, &p); err != nil {
		h.log.ErrorContext(ctx, "failed to save preferences",
			slog.String("user_id", userID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to save preferences")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadPreference treats a missing preference set as nil, which enables
// every channel downstream.
func (h *Handler) loadPreference(ctx context.Context, userID string) *notification.Preference {
	p, err := h.prefs.Preference(ctx, userID)
	if err != nil {
		if !errors.Is(err, notification.ErrPreferenceNotFound) {
			h.log.WarnContext(ctx, "failed to load preferences, defaulting to all channels",
				slog.String("user_id", userID), slog.Any("error", err))
		}
		return nil
	}
	return p
}

func toResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		NotificationID: n.ID,
		Status:         n.Status.String(),
		DeliveryInfo:   n.DeliveryInfo,
		ErrorMessage:   n.ErrorMessage,
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Code: code, Error: msg})
}
