package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskapi/internal/models"
	"taskapi/internal/store"
)

// maxBodyBytes caps request bodies for create and update.
const maxBodyBytes = 1 << 20

var errInvalidID = errors.New("invalid task id")

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store  store.Store
	logger *log.Logger
}

// New creates a new Handlers instance.
func New(s store.Store, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handlers{
		store:  s,
		logger: logger,
	}
}

// parseID extracts a positive base-10 task id from URL parameters.
// Zero, negative and non-numeric values are all rejected.
func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// readBody reads at most maxBodyBytes of the request body.
// Handlers call it before taking the store lock, so a slow client never holds it.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.ValidationError{Fields: []models.FieldError{{Message: "body could not be read"}}}
	}
	return data, nil
}

// readTaskInput decodes and validates a create or update body.
func readTaskInput(w http.ResponseWriter, r *http.Request) (models.TaskInput, error) {
	data, err := readBody(w, r)
	if err != nil {
		return models.TaskInput{}, err
	}
	return models.DecodeTaskInput(data)
}

// respondError sends a plain-text error response.
func respondError(w http.ResponseWriter, code int, message string) {
	respondText(w, code, message)
}

func respondText(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	w.Write([]byte(message))
}

func respondInvalidData(w http.ResponseWriter, err error) {
	respondError(w, http.StatusBadRequest, "Invalid task data: "+err.Error())
}

// respondServerError logs err and sends message without any internal detail.
func (h *Handlers) respondServerError(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.logger.Error(message,
		"err", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)
	respondError(w, http.StatusInternalServerError, message)
}

// respondJSON sends payload as a JSON response.
func (h *Handlers) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode response", "err", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
