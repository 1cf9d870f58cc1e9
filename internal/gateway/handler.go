package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/foodflow/internal/httpx"
)

const codeBadGateway = "BAD_GATEWAY"

type Handler struct {
	ordersProxy  *ServiceProxy
	catalogProxy *ServiceProxy
	logger       *slog.Logger
}

func NewHandler(ordersProxy, catalogProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		ordersProxy:  ordersProxy,
		catalogProxy: catalogProxy,
		logger:       logger,
	}
}

// HandleOrders forwards /orders and /cart to the orders service unchanged.
func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, r.URL.Path)
}

// HandleCatalog maps /catalog onto the catalog service's /items routes.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	path := "/items" + strings.TrimPrefix(r.URL.Path, "/catalog")
	h.proxyRequest(w, r, h.catalogProxy, path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		httpx.WriteError(w, h.logger, http.StatusBadGateway, codeBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}
