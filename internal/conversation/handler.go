package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/indarelin/backoffice/pkg/logging"
)

// Visitor-facing replies for requests that never reach a stage.
const (
	emptyMessageReply = "Debes escribir un mensaje."
	serverErrorReply  = "Error en el servidor."
)

// maxChatBody caps the /chat request body.
const maxChatBody = 16 << 10

// Resolver is implemented by Pipeline.
type Resolver interface {
	Resolve(ctx context.Context, msg IncomingMessage) (ReplyResult, error)
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type errorReply struct {
	Reply string `json:"reply"`
}

// Handler wires HTTP requests to the reply pipeline.
type Handler struct {
	resolver Resolver
	logger   *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(resolver Resolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

// Chat handles POST /chat. RemoteAddr is expected to hold the client address
// after chi's RealIP middleware.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		h.logger.Debug("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorReply{Reply: emptyMessageReply})
		return
	}

	result, err := h.resolver.Resolve(r.Context(), IncomingMessage{
		Text:      req.Message,
		SourceIP:  clientIP(r),
		SessionID: req.SessionID,
	})
	switch {
	case errors.Is(err, ErrEmptyMessage):
		h.writeJSON(w, http.StatusBadRequest, errorReply{Reply: emptyMessageReply})
		return
	case err != nil:
		h.logger.Error("failed to resolve chat message", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorReply{Reply: serverErrorReply})
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
