package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	lines  []domain.CartLine
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (s *memoryStore) Upsert(_ context.Context, line *domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].UserID == line.UserID && s.lines[i].ItemID == line.ItemID {
			if s.lines[i].Quantity+line.Quantity > domain.MaxQuantity {
				return fmt.Errorf("%w: item %s would exceed %d in cart", domain.ErrInvalidQuantity, line.ItemID, domain.MaxQuantity)
			}
			s.lines[i].Quantity += line.Quantity
			if line.Instructions != "" {
				s.lines[i].Instructions = line.Instructions
			}
			*line = s.lines[i]
			return nil
		}
	}
	s.nextID++
	line.ID = s.nextID
	s.lines = append(s.lines, *line)
	return nil
}

func (s *memoryStore) UpdateQuantity(_ context.Context, userID string, lineID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ID == lineID && s.lines[i].UserID == userID {
			s.lines[i].Quantity = quantity
			return nil
		}
	}
	return fmt.Errorf("%w: cart line %d", domain.ErrNotFound, lineID)
}

func (s *memoryStore) Remove(_ context.Context, userID string, lineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ID == lineID && s.lines[i].UserID == userID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: cart line %d", domain.ErrNotFound, lineID)
}

func (s *memoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.lines[:0]
	for _, line := range s.lines {
		if line.UserID != userID {
			kept = append(kept, line)
		}
	}
	s.lines = kept
	return nil
}

func (s *memoryStore) List(_ context.Context, userID string) ([]domain.CartLine, error) {
	return s.filter(func(l domain.CartLine) bool { return l.UserID == userID }), nil
}

func (s *memoryStore) ListForRestaurant(_ context.Context, userID string, restaurantID int64) ([]domain.CartLine, error) {
	return s.filter(func(l domain.CartLine) bool {
		return l.UserID == userID && l.RestaurantID == restaurantID
	}), nil
}

func (s *memoryStore) Count(_ context.Context, userID string) (int, error) {
	count := 0
	for _, line := range s.filter(func(l domain.CartLine) bool { return l.UserID == userID }) {
		count += line.Quantity
	}
	return count, nil
}

func (s *memoryStore) filter(keep func(domain.CartLine) bool) []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.CartLine{}
	for _, line := range s.lines {
		if keep(line) {
			out = append(out, line)
		}
	}
	return out
}

type staticCatalog map[string]domain.CatalogItem

func (c staticCatalog) ResolveItem(_ context.Context, itemID string) (*domain.CatalogItem, error) {
	item, ok := c[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return &item, nil
}

func testCatalog() staticCatalog {
	return staticCatalog{
		"A": {ID: "A", RestaurantID: 1, Name: "Pad Thai", Price: 5000, Available: true},
		"B": {ID: "B", RestaurantID: 1, Name: "Green Curry", Price: 3000, Available: true},
		"C": {ID: "C", RestaurantID: 2, Name: "Margherita", Price: 8900, Available: true},
	}
}
