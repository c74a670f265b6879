// Package httpapi exposes a dashboard session over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PipelineDash/internal/commands"
	"PipelineDash/internal/domain"
	"PipelineDash/internal/usecase"
)

// Dashboard is the session surface the API serves.
type Dashboard interface {
	Snapshot() domain.Snapshot
	ExportSummary() usecase.Summary
	ExportFull(ctx context.Context) usecase.FullExport
	Logs() []domain.ActivityLogEntry
	CommandStates() map[string]domain.CommandState
	Commands() []string
	Countdown() int
	Trigger(ctx context.Context, name string) (domain.InvokeResult, error)
}

// Handler routes API requests to the dashboard.
type Handler struct {
	dash     Dashboard
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewHandler builds the API. A nil gatherer leaves /metrics unregistered.
func NewHandler(dash Dashboard, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{dash: dash, gatherer: gatherer, logger: logger}
}

// Register mounts every route on router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", h.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/summary", h.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/export", h.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.handleLogs).Methods(http.MethodGet)
	api.HandleFunc("/commands", h.handleCommands).Methods(http.MethodGet)
	api.HandleFunc("/commands/{name}", h.handleTrigger).Methods(http.MethodPost)

	if h.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

// Router returns a fresh router with every route mounted.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	h.Register(router)
	return router
}

type healthResponse struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
	Countdown int       `json:"countdown"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		UpdatedAt: h.dash.Snapshot().UpdatedAt,
		Countdown: h.dash.Countdown(),
	})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Snapshot())
}

func (h *Handler) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.ExportSummary())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))
	if !full {
		writeJSON(w, http.StatusOK, h.dash.ExportSummary())
		return
	}
	writeJSON(w, http.StatusOK, h.dash.ExportFull(r.Context()))
}

func (h *Handler) handleLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Logs())
}

type commandView struct {
	Name  string              `json:"name"`
	State domain.CommandState `json:"state"`
}

func (h *Handler) handleCommands(w http.ResponseWriter, _ *http.Request) {
	states := h.dash.CommandStates()
	out := make([]commandView, 0, len(states))
	for _, name := range h.dash.Commands() {
		out = append(out, commandView{Name: name, State: states[name]})
	}
	writeJSON(w, http.StatusOK, out)
}

type triggerResponse struct {
	Name       string                `json:"name"`
	DurationMS int64                 `json:"durationMs"`
	Result     domain.FunctionResult `json:"result"`
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	res, err := h.dash.Trigger(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrUnknownCommand):
			http.Error(w, "unknown command", http.StatusNotFound)
		case errors.Is(err, usecase.ErrAlreadyRunning):
			http.Error(w, "command already running", http.StatusConflict)
		case errors.Is(err, usecase.ErrMonitorClosed):
			http.Error(w, "dashboard is shutting down", http.StatusServiceUnavailable)
		default:
			h.logger.Warn("command trigger failed", "command", name, "error", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{
		Name:       name,
		DurationMS: res.Duration.Milliseconds(),
		Result:     res.Result,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}
