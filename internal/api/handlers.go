// Package api exposes HTTP handlers for the dashboard service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"example.com/dashboard/internal/auth"
	"example.com/dashboard/internal/dashboard"
	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/feed"
	"example.com/dashboard/internal/persistence"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxRecentLimit  = 20
)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for server-side failures and request logs.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithAllowedOrigin sets the CORS origin allowed to call the API.
func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) { h.allowedOrigin = origin }
}

// Handler coordinates HTTP requests with the activity service and the dashboard aggregator.
type Handler struct {
	service       *domain.Service
	dashboards    *dashboard.Aggregator
	logger        *zap.Logger
	allowedOrigin string
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, dashboards *dashboard.Aggregator, opts ...Option) *Handler {
	h := &Handler{
		service:       service,
		dashboards:    dashboards,
		logger:        zap.NewNop(),
		allowedOrigin: "http://localhost:5173",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/dashboard", h.getDashboard).Methods(http.MethodGet)
	v1.HandleFunc("/dashboard/recent", h.getRecent).Methods(http.MethodGet)
	v1.HandleFunc("/activities", h.createActivity).Methods(http.MethodPost)
	v1.HandleFunc("/activities", h.listActivities).Methods(http.MethodGet)
	v1.HandleFunc("/activities/{id}", h.getActivity).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize returns the caller's claims when they hold one of scopes.
func authorize(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims.Subject == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasAnyScope(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return nil, false
	}
	return claims, true
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeDashboardRead)
	if !ok {
		return
	}

	summary, err := h.dashboards.Summary(r.Context(), claims.Subject)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) getRecent(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeDashboardRead)
	if !ok {
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"), dashboard.RecentActivityLimit, maxRecentLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	records, err := h.dashboards.Recent(r.Context(), claims.Subject, limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecentResponse{Items: feed.Build(records, h.dashboards.Now())})
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	var req CreateActivityRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	record, replay, err := h.service.LogActivity(r.Context(), domain.LogActivityInput{
		UserID:         claims.Subject,
		Type:           req.Type,
		Date:           req.Date,
		DurationMin:    req.Duration,
		Calories:       req.Calories,
		DistanceKm:     req.Distance,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, CreateActivityResponse{Activity: *record, Replay: replay})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	record, err := h.service.GetActivity(r.Context(), claims.Subject, mux.Vars(r)["id"])
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultPageSize, maxPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.ListActivities(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      records,
		NextCursor: persistence.EncodeCursor(next),
	})
}

// writeFailure maps domain and store errors onto problem responses. Store
// causes are logged but never echoed to the client.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		dataAccess *dashboard.DataAccessError
	)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Reason)
	case errors.As(err, &dataAccess):
		h.logger.Error("dashboard data access", zap.String("path", r.URL.Path), zap.String("op", dataAccess.Op), zap.Error(dataAccess.Err))
		writeError(w, http.StatusInternalServerError, "server_error", "failed to fetch dashboard data")
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func parseLimit(raw string, fallback, max int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if parsed > max {
		parsed = max
	}
	return parsed, nil
}

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	Type     string    `json:"type"`
	Date     time.Time `json:"date"`
	Duration int       `json:"duration"`
	Calories int       `json:"calories"`
	Distance *float64  `json:"distance,omitempty"`
}

// CreateActivityResponse describes the response body for create.
type CreateActivityResponse struct {
	Activity domain.ActivityRecord `json:"activity"`
	Replay   bool                  `json:"idempotentReplay"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []domain.ActivityRecord `json:"items"`
	NextCursor string                  `json:"nextCursor,omitempty"`
}

// RecentResponse carries the rendered recent activity feed.
type RecentResponse struct {
	Items []feed.Item `json:"items"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
