package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

const maxRequestBytes = 1 << 20

type Submitter interface {
	Submit(ctx context.Context, sub domain.CBCSubmission) (domain.Record, error)
}

type HistoryReader interface {
	List(ctx context.Context) []domain.Record
	Delete(ctx context.Context, id string) (bool, error)
}

type HTTPHandler struct {
	intake  Submitter
	history HistoryReader
	logger  *zap.Logger
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
}

type MessageHTTPResponse struct {
	Message string `json:"message"`
}

func NewHTTPHandler(intake Submitter, history HistoryReader, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{intake: intake, history: history, logger: logger}
}

// Router exposes the handler on its public routes, wrapped with CORS,
// request logging and tracing.
func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/check-anemia", h.CheckAnemia).Methods(http.MethodPost)
	api.HandleFunc("/history", h.ListHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", h.DeleteHistory).Methods(http.MethodDelete)

	r.Use(h.logRequests)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
	return otelhttp.NewHandler(cors(r), "anemia-history")
}

func (h *HTTPHandler) CheckAnemia(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid request body"})
		return
	}

	sub, err := domain.ParseSubmission(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: err.Error()})
		return
	}

	record, err := h.intake.Submit(r.Context(), sub)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"

		if errors.Is(err, domain.ErrPredictionUnavailable) {
			status = http.StatusBadGateway
			message = "prediction service unavailable"
		} else if errors.Is(err, domain.ErrPersistence) {
			message = "failed to save record"
		}

		h.logger.Error("check anemia failed", zap.Error(err))
		writeJSON(w, status, ErrorHTTPResponse{Error: message})
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *HTTPHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.List(r.Context()))
}

func (h *HTTPHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.history.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete record failed", zap.String("record_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Error: "failed to delete record"})
		return
	}

	writeJSON(w, http.StatusOK, MessageHTTPResponse{Message: "Deleted"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *HTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
