package customreplies

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/indarelin/backoffice/pkg/logging"
)

// Handler handles admin CRUD requests for custom replies
type Handler struct {
	repo     Repository
	validate *validator.Validate
	logger   *logging.Logger
}

// NewHandler creates a new custom replies handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, validate: validator.New(), logger: logger}
}

// Routes mounts the admin endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/custom-replies", h.List)
	r.Post("/custom-replies", h.Create)
	r.Get("/custom-replies/{id}", h.Get)
	r.Put("/custom-replies/{id}", h.Update)
	r.Delete("/custom-replies/{id}", h.Delete)
}

// List handles GET /admin/custom-replies
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	replies, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list custom replies", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list custom replies")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"replies": replies, "count": len(replies)})
}

// Get handles GET /admin/custom-replies/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	reply, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// Create handles POST /admin/custom-replies
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	reply, err := h.repo.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	h.logger.Info("custom reply created", "id", reply.ID, "trigger", reply.Trigger)
	writeJSON(w, http.StatusCreated, reply)
}

// Update handles PUT /admin/custom-replies/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	reply, err := h.repo.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// Delete handles DELETE /admin/custom-replies/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*ReplyInput, bool) {
	var in ReplyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	in.Normalize()
	if err := h.validate.Struct(&in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &in, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoTrigger):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("custom reply "+op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op+" custom reply")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
