package email

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/foodflow/internal/httpx"
)

type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

type sendRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("email sent", "to", req.To, "subject", req.Subject)

	httpx.WriteJSON(w, h.logger, http.StatusOK, sendResponse{Status: "sent"})
}
