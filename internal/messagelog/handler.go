package messagelog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/indarelin/backoffice/pkg/logging"
)

// exportPageSize is the page used while streaming a CSV export.
const exportPageSize = MaxListLimit

// Handler exposes the message log to the admin panel.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates a message log handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes mounts the admin message endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/messages", h.ListMessages)
	r.Get("/messages/stats", h.GetStats)
	r.Get("/messages/export.csv", h.ExportCSV)
}

// ListMessagesResponse is the response for listing messages
type ListMessagesResponse struct {
	Messages []Record `json:"messages"`
	Count    int      `json:"count"`
	Offset   int      `json:"offset"`
	Limit    int      `json:"limit"`
}

// ListMessages handles GET /admin/messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	filter = filter.Normalize()

	records, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
		return
	}

	writeJSON(w, http.StatusOK, ListMessagesResponse{
		Messages: records,
		Count:    len(records),
		Offset:   filter.Offset,
		Limit:    filter.Limit,
	})
}

// GetStats handles GET /admin/messages/stats?days=N
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 366 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be between 1 and 366"})
			return
		}
		days = n
	}
	since := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	stats, err := h.store.Stats(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to compute message stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute stats"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportCSV handles GET /admin/messages/export.csv, streaming every matching
// record regardless of the limit/offset parameters.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	filter.Limit = exportPageSize
	filter.Offset = 0

	first, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to export messages", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to export messages"})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="mensajes-%s.csv"`, time.Now().UTC().Format("20060102")))
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "created_at", "role", "source", "session_id", "ip", "text"})

	page := first
	for {
		for _, rec := range page {
			_ = cw.Write([]string{
				rec.ID,
				rec.CreatedAt.UTC().Format(time.RFC3339),
				string(rec.Role),
				string(rec.Source),
				rec.SessionID,
				rec.IP,
				rec.Text,
			})
		}
		if len(page) < filter.Limit {
			break
		}
		last := page[len(page)-1]
		filter.BeforeAt, filter.BeforeID = last.CreatedAt, last.ID
		page, err = h.store.List(r.Context(), filter)
		if err != nil {
			// Headers are already sent; the export is truncated.
			h.logger.Error("message export interrupted", "error", err, "before_id", last.ID)
			break
		}
	}
	cw.Flush()
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter

	if v := q.Get("role"); v != "" {
		f.Role = Role(v)
		if f.Role != RoleUser && f.Role != RoleBot {
			return Filter{}, ErrInvalidRole
		}
	}
	if v := q.Get("source"); v != "" {
		f.Source = Source(v)
		if !f.Source.Valid() {
			return Filter{}, ErrInvalidSource
		}
	}
	var err error
	if f.Since, err = parseTime(q.Get("since")); err != nil {
		return Filter{}, fmt.Errorf("invalid since: %w", err)
	}
	if f.Until, err = parseTime(q.Get("until")); err != nil {
		return Filter{}, fmt.Errorf("invalid until: %w", err)
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return Filter{}, errors.New("invalid limit")
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			return Filter{}, errors.New("invalid offset")
		}
	}
	return f, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
