package cart

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/foodflow/internal/httpx"
	"github.com/joao-fontenele/foodflow/internal/identity"
)

type AddItemRequest struct {
	ItemID       string `json:"item_id" validate:"required"`
	Quantity     int    `json:"quantity"`
	Instructions string `json:"instructions" validate:"max=500"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type SummaryResponse struct {
	Total int64 `json:"total"`
	Count int   `json:"count"`
}

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the cart routes on mux.
func (h *Handler) Register(mux httpx.Router) {
	mux.HandleFunc("GET /cart", h.HandleGetCart)
	mux.HandleFunc("GET /cart/summary", h.HandleSummary)
	mux.HandleFunc("POST /cart/items", h.HandleAddItem)
	mux.HandleFunc("PUT /cart/items/{id}", h.HandleUpdateItem)
	mux.HandleFunc("DELETE /cart/items/{id}", h.HandleRemoveItem)
	mux.HandleFunc("DELETE /cart", h.HandleClear)
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, cart)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	total, err := h.service.GetTotal(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	count, err := h.service.GetCount(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, SummaryResponse{Total: total, Count: count})
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	line, err := h.service.AddItem(r.Context(), id.UserID, req.ItemID, req.Quantity, req.Instructions)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusCreated, line)
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	if err := h.service.UpdateQuantity(r.Context(), id.UserID, lineID, req.Quantity); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveItem(r.Context(), id.UserID, lineID); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), id.UserID); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, httpx.CodeUnauthorized, "missing caller identity")
	}
	return id, ok
}

func (h *Handler) lineID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	lineID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || lineID <= 0 {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, httpx.CodeValidation, "invalid cart item id")
		return 0, false
	}
	return lineID, true
}
