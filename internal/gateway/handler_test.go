package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_HandleOrders(t *testing.T) {
	t.Run("proxies GET /orders/mine with query", func(t *testing.T) {
		ordersServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders/mine" {
				t.Errorf("expected /orders/mine, got %s", r.URL.Path)
			}
			if r.URL.Query().Get("limit") != "5" {
				t.Errorf("expected limit=5, got %s", r.URL.RawQuery)
			}
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[{"id":1}]`))
		}))
		defer ordersServer.Close()

		handler := NewHandler(
			NewServiceProxy(ordersServer.URL, ordersServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/orders/mine?limit=5", nil)
		rec := httptest.NewRecorder()

		handler.HandleOrders(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != `[{"id":1}]` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("proxies POST /cart/items with body", func(t *testing.T) {
		ordersServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/cart/items" {
				t.Errorf("expected /cart/items, got %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"item_id":"ITEM-001","quantity":1}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":1}`))
		}))
		defer ordersServer.Close()

		handler := NewHandler(
			NewServiceProxy(ordersServer.URL, ordersServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"item_id":"ITEM-001","quantity":1}`))
		rec := httptest.NewRecorder()

		handler.HandleOrders(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when orders service unavailable", func(t *testing.T) {
		handler := NewHandler(
			NewServiceProxy("http://localhost:99999", &http.Client{}),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()

		handler.HandleOrders(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "service unavailable" || resp["code"] != codeBadGateway {
			t.Errorf("unexpected error body %v", resp)
		}
	})
}

func TestHandler_HandleCatalog(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/catalog", "/items"},
		{"/catalog/ITEM-001", "/items/ITEM-001"},
		{"/catalog/ITEM-001/availability", "/items/ITEM-001/availability"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.want {
					t.Errorf("expected %s, got %s", tt.want, r.URL.Path)
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer catalogServer.Close()

			handler := NewHandler(
				NewServiceProxy("http://unused", http.DefaultClient),
				NewServiceProxy(catalogServer.URL, catalogServer.Client()),
				discardLogger(),
			)

			rec := httptest.NewRecorder()
			handler.HandleCatalog(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
		})
	}

	t.Run("preserves downstream error status", func(t *testing.T) {
		catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"item not found"}`))
		}))
		defer catalogServer.Close()

		handler := NewHandler(
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy(catalogServer.URL, catalogServer.Client()),
			discardLogger(),
		)

		rec := httptest.NewRecorder()
		handler.HandleCatalog(rec, httptest.NewRequest(http.MethodGet, "/catalog/unknown", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}
