package orders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/foodflow/internal/domain"
	"github.com/joao-fontenele/foodflow/internal/httpx"
	"github.com/joao-fontenele/foodflow/internal/identity"
)

type Handler struct {
	checkout    *CheckoutService
	fulfillment *FulfillmentService
	ledger      Ledger
	logger      *slog.Logger
}

func NewHandler(checkout *CheckoutService, fulfillment *FulfillmentService, ledger Ledger, logger *slog.Logger) *Handler {
	return &Handler{
		checkout:    checkout,
		fulfillment: fulfillment,
		ledger:      ledger,
		logger:      logger,
	}
}

// Register mounts the order routes on mux.
func (h *Handler) Register(mux httpx.Router) {
	mux.HandleFunc("POST /orders", h.HandleCreate)
	mux.HandleFunc("GET /orders", h.HandleList)
	mux.HandleFunc("GET /orders/mine", h.HandleListMine)
	mux.HandleFunc("GET /orders/stats", h.HandleStats)
	mux.HandleFunc("GET /orders/{id}", h.HandleGet)
	mux.HandleFunc("PUT /orders/{id}/cancel", h.HandleCancel)
	mux.HandleFunc("PUT /orders/{id}/status", h.HandleUpdateStatus)
}

type lineRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1,max=1000"`
}

type createOrderRequest struct {
	RestaurantID    int64         `json:"restaurant_id" validate:"gt=0"`
	Items           []lineRequest `json:"items" validate:"dive"`
	FromCart        bool          `json:"from_cart"`
	DeliveryAddress string        `json:"delivery_address" validate:"required,max=500"`
	Phone           string        `json:"phone" validate:"required,max=32"`
	PaymentMethod   string        `json:"payment_method" validate:"omitempty,oneof=cash card wallet"`
	Notes           string        `json:"notes" validate:"max=1000"`
}

type createOrderResponse struct {
	Order       *domain.Order `json:"order"`
	OrderNumber string        `json:"order_number"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	var (
		order *domain.Order
		err   error
	)
	if req.FromCart {
		order, err = h.checkout.PlaceOrderFromCart(r.Context(), caller.UserID, req.RestaurantID, DeliveryDetails{
			DeliveryAddress: req.DeliveryAddress,
			Phone:           req.Phone,
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
		})
	} else {
		lines := make([]LineRequest, 0, len(req.Items))
		for _, item := range req.Items {
			lines = append(lines, LineRequest{ItemID: item.ItemID, Quantity: item.Quantity})
		}
		order, err = h.checkout.PlaceOrder(r.Context(), PlaceOrderRequest{
			UserID:          caller.UserID,
			RestaurantID:    req.RestaurantID,
			Lines:           lines,
			DeliveryAddress: req.DeliveryAddress,
			Phone:           req.Phone,
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
		})
	}
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusCreated, createOrderResponse{Order: order, OrderNumber: order.OrderNumber})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	if order.UserID != caller.UserID && !caller.HasRole(identity.RoleAdmin, identity.RoleRestaurant) {
		httpx.WriteError(w, h.logger, http.StatusNotFound, httpx.CodeNotFound, "order not found")
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	orders, err := h.ledger.ListByUser(r.Context(), caller.UserID, page)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, identity.RoleAdmin); !ok {
		return
	}
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	var (
		orders []domain.Order
		err    error
	)
	if s := r.URL.Query().Get("status"); s != "" {
		status, parseErr := domain.ParseStatus(s)
		if parseErr != nil {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, httpx.CodeValidation, parseErr.Error())
			return
		}
		orders, err = h.ledger.ListByStatus(r.Context(), status, page)
	} else {
		orders, err = h.ledger.List(r.Context(), page)
	}
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	httpx.WriteJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, identity.RoleAdmin); !ok {
		return
	}

	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, stats)
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	order, err := h.fulfillment.CancelOwn(r.Context(), caller.UserID, id, req.Reason)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status   string `json:"status" validate:"required"`
	Reason   string `json:"reason" validate:"max=500"`
	DriverID string `json:"driver_id" validate:"max=64"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireRole(w, r, identity.RoleAdmin, identity.RoleRestaurant)
	if !ok {
		return
	}
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	order, err := h.fulfillment.SetStatus(r.Context(), TransitionRequest{
		OrderID:  id,
		Status:   req.Status,
		Reason:   req.Reason,
		ActorID:  caller.UserID,
		DriverID: req.DriverID,
	})
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, httpx.CodeUnauthorized, "missing caller identity")
	}
	return id, ok
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, roles ...identity.Role) (identity.Identity, bool) {
	id, ok := h.caller(w, r)
	if !ok {
		return id, false
	}
	if !id.HasRole(roles...) {
		httpx.WriteError(w, h.logger, http.StatusForbidden, httpx.CodeForbidden, "insufficient role")
		return id, false
	}
	return id, true
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, httpx.CodeValidation, "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) (Page, bool) {
	var page Page
	q := r.URL.Query()
	for key, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, httpx.CodeValidation, "invalid "+key)
			return Page{}, false
		}
		*dst = n
	}
	return page.Normalize(), true
}
