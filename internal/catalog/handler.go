package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

type ItemStore interface {
	Reader
	ListAll(ctx context.Context, restaurantID int64) ([]domain.CatalogItem, error)
	SetAvailability(ctx context.Context, itemID string, available bool) error
}

type Handler struct {
	store  ItemStore
	logger *slog.Logger
}

func NewHandler(store ItemStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	var restaurantID int64
	if v := r.URL.Query().Get("restaurant_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid restaurant_id")
			return
		}
		restaurantID = id
	}

	items, err := h.store.ListAll(r.Context(), restaurantID)
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("items listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("itemId")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	item, err := h.store.ResolveItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			h.writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("failed to get item", "error", err, "item_id", itemID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

func (h *Handler) HandleSetAvailability(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("itemId")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Available == nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetAvailability(r.Context(), itemID, *req.Available); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			h.writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("failed to set availability", "error", err, "item_id", itemID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	item, err := h.store.ResolveItem(r.Context(), itemID)
	if err != nil {
		h.logger.Error("failed to get updated item", "error", err, "item_id", itemID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("item availability updated", "item_id", itemID, "available", item.Available)
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
