package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

func newTestService() (*Service, *memoryStore, staticCatalog) {
	store := newMemoryStore()
	catalog := testCatalog()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, catalog, logger), store, catalog
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("tags line with restaurant", func(t *testing.T) {
		svc, _, _ := newTestService()
		line, err := svc.AddItem(ctx, "u1", "C", 1, " extra basil ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if line.RestaurantID != 2 {
			t.Errorf("expected restaurant 2, got %d", line.RestaurantID)
		}
		if line.Instructions != "extra basil" {
			t.Errorf("expected trimmed instructions, got %q", line.Instructions)
		}
	})

	t.Run("adding same item accumulates quantity", func(t *testing.T) {
		svc, _, _ := newTestService()
		if _, err := svc.AddItem(ctx, "u1", "A", 2, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		line, err := svc.AddItem(ctx, "u1", "A", 3, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if line.Quantity != 5 {
			t.Errorf("expected quantity 5, got %d", line.Quantity)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc, _, _ := newTestService()
		for _, qty := range []int{0, -1} {
			if _, err := svc.AddItem(ctx, "u1", "A", qty, ""); !errors.Is(err, domain.ErrInvalidQuantity) {
				t.Errorf("quantity %d: expected ErrInvalidQuantity, got %v", qty, err)
			}
		}
	})

	t.Run("rejects quantity above bound", func(t *testing.T) {
		svc, store, _ := newTestService()
		if _, err := svc.AddItem(ctx, "u1", "A", domain.MaxQuantity+1, ""); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Errorf("expected ErrInvalidQuantity, got %v", err)
		}
		if count, _ := store.Count(ctx, "u1"); count != 0 {
			t.Errorf("expected empty cart, got %d", count)
		}
	})

	t.Run("rejects accumulated quantity above bound", func(t *testing.T) {
		svc, store, _ := newTestService()
		if _, err := svc.AddItem(ctx, "u1", "A", 600, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.AddItem(ctx, "u1", "A", 600, ""); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Errorf("expected ErrInvalidQuantity, got %v", err)
		}
		if count, _ := store.Count(ctx, "u1"); count != 600 {
			t.Errorf("expected quantity to stay 600, got %d", count)
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		svc, store, _ := newTestService()
		if _, err := svc.AddItem(ctx, "u1", "ZZZ", 1, ""); !errors.Is(err, domain.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
		if count, _ := store.Count(ctx, "u1"); count != 0 {
			t.Errorf("expected empty cart, got %d", count)
		}
	})
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	line, err := svc.AddItem(ctx, "u1", "A", 1, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.UpdateQuantity(ctx, "u1", line.ID, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
	if err := svc.UpdateQuantity(ctx, "u1", line.ID, domain.MaxQuantity+1); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity above bound, got %v", err)
	}
	if err := svc.UpdateQuantity(ctx, "u2", line.ID, 4); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user's line, got %v", err)
	}
	if err := svc.UpdateQuantity(ctx, "u1", line.ID, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := svc.GetCount(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Errorf("expected count 4, got %d", count)
	}
}

func TestGetCart(t *testing.T) {
	ctx := context.Background()
	svc, _, catalog := newTestService()

	if _, err := svc.AddItem(ctx, "u1", "A", 2, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(ctx, "u1", "B", 1, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(ctx, "u2", "C", 1, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("priced from catalog", func(t *testing.T) {
		cart, err := svc.GetCart(ctx, "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cart.Items) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(cart.Items))
		}
		if cart.Total != 13000 {
			t.Errorf("expected total 13000, got %d", cart.Total)
		}
		if cart.Count != 3 {
			t.Errorf("expected count 3, got %d", cart.Count)
		}
	})

	t.Run("missing item shown as unavailable", func(t *testing.T) {
		delete(catalog, "B")
		cart, err := svc.GetCart(ctx, "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cart.Total != 10000 {
			t.Errorf("expected total 10000, got %d", cart.Total)
		}
		for _, item := range cart.Items {
			if item.ItemID == "B" && (item.Available || item.Price != 0) {
				t.Errorf("expected missing item to be unavailable at zero price, got %+v", item)
			}
		}
	})

	t.Run("scoped to restaurant", func(t *testing.T) {
		lines, err := svc.LinesForRestaurant(ctx, "u1", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lines) != 0 {
			t.Errorf("expected no lines for restaurant 2, got %d", len(lines))
		}
	})
}

func TestGetTotal(t *testing.T) {
	ctx := context.Background()
	svc, _, catalog := newTestService()

	total, err := svc.GetTotal(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 {
		t.Errorf("expected empty cart total 0, got %d", total)
	}

	if _, err := svc.AddItem(ctx, "u1", "A", 2, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(ctx, "u1", "C", 1, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total, err = svc.GetTotal(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 18900 {
		t.Errorf("expected total 18900, got %d", total)
	}

	delete(catalog, "C")
	total, err = svc.GetTotal(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 10000 {
		t.Errorf("expected unavailable item priced at zero, got %d", total)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	if _, err := svc.AddItem(ctx, "u1", "A", 1, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(ctx, "u2", "A", 1, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Clear(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count, _ := svc.GetCount(ctx, "u1"); count != 0 {
		t.Errorf("expected u1 cart empty, got %d", count)
	}
	if count, _ := svc.GetCount(ctx, "u2"); count != 1 {
		t.Errorf("expected u2 cart untouched, got %d", count)
	}
}
