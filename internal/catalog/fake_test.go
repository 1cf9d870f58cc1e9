package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

type memoryStore struct {
	mu    sync.Mutex
	items map[string]domain.CatalogItem
}

func newMemoryStore(items ...domain.CatalogItem) *memoryStore {
	s := &memoryStore{items: make(map[string]domain.CatalogItem)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *memoryStore) ResolveItem(_ context.Context, itemID string) (*domain.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return &item, nil
}

func (s *memoryStore) ListAll(_ context.Context, restaurantID int64) ([]domain.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []domain.CatalogItem{}
	for _, item := range s.items {
		if restaurantID == 0 || item.RestaurantID == restaurantID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *memoryStore) SetAvailability(_ context.Context, itemID string, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	item.Available = available
	s.items[itemID] = item
	return nil
}
