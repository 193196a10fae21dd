package blocklist

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/indarelin/backoffice/pkg/logging"
)

// restrictedReply is returned to blocked clients on the chat endpoint.
const restrictedReply = "Acceso restringido."

// Middleware rejects requests whose client address is blocked. It expects
// chi's RealIP middleware to have run first. Lookup failures let the request
// through so that a database outage does not take the chat down with it.
func Middleware(repo Repository, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			blocked, err := repo.IsBlocked(r.Context(), r.RemoteAddr)
			if err != nil {
				logger.Warn("blocklist lookup failed", "error", err, "remote_ip", r.RemoteAddr)
			}
			if blocked {
				logger.Info("blocked ip rejected", "remote_ip", r.RemoteAddr, "path", r.URL.Path)
				writeJSON(w, http.StatusForbidden, map[string]string{"reply": restrictedReply})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Handler serves the blocked IP admin endpoints.
type Handler struct {
	repo     Repository
	validate *validator.Validate
	logger   *logging.Logger
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, validate: validator.New(), logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/blocked-ips", h.List)
	r.Post("/blocked-ips", h.Create)
	r.Delete("/blocked-ips/{id}", h.Delete)
}

// List handles GET /admin/blocked-ips
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list blocked ips", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list blocked ips")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocked_ips": items, "count": len(items)})
}

// Create handles POST /admin/blocked-ips
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.repo.Create(r.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidIP):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to block ip", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to block ip")
		return
	}
	h.logger.Info("ip blocked", "ip", item.IP, "id", item.ID)
	writeJSON(w, http.StatusCreated, item)
}

// Delete handles DELETE /admin/blocked-ips/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.repo.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to unblock ip", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to unblock ip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
