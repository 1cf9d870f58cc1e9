package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joao-fontenele/foodflow/internal/catalog"
	"github.com/joao-fontenele/foodflow/internal/domain"
)

type Service struct {
	store   Store
	catalog catalog.Reader
	logger  *slog.Logger
}

func NewService(store Store, reader catalog.Reader, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: reader,
		logger:  logger.With("component", "cart"),
	}
}

// AddItem adds quantity of itemID to the user's cart. The item must exist in
// the catalog so the line can be tagged with its restaurant, and the summed
// quantity may not exceed domain.MaxQuantity.
func (s *Service) AddItem(ctx context.Context, userID, itemID string, quantity int, instructions string) (*domain.CartLine, error) {
	if quantity < 1 || quantity > domain.MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d, got %d", domain.ErrInvalidQuantity, domain.MaxQuantity, quantity)
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", domain.ErrValidation)
	}

	item, err := s.catalog.ResolveItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	line := &domain.CartLine{
		UserID:       userID,
		RestaurantID: item.RestaurantID,
		ItemID:       item.ID,
		Quantity:     quantity,
		Instructions: strings.TrimSpace(instructions),
	}
	if err := s.store.Upsert(ctx, line); err != nil {
		return nil, err
	}

	s.logger.Info("cart item added", "user_id", userID, "item_id", itemID, "quantity", line.Quantity)
	return line, nil
}

// UpdateQuantity sets a line's quantity. Values outside 1..MaxQuantity are
// rejected; callers remove the line instead.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, lineID int64, quantity int) error {
	if quantity < 1 || quantity > domain.MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d, got %d", domain.ErrInvalidQuantity, domain.MaxQuantity, quantity)
	}
	return s.store.UpdateQuantity(ctx, userID, lineID, quantity)
}

func (s *Service) RemoveItem(ctx context.Context, userID string, lineID int64) error {
	return s.store.Remove(ctx, userID, lineID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.store.Clear(ctx, userID)
}

// GetCart returns the user's lines priced with live catalog data. Lines whose
// item has since left the catalog are shown as unavailable at price zero.
func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	lines, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := &domain.Cart{UserID: userID, Items: make([]domain.CartItemView, 0, len(lines))}
	for _, line := range lines {
		view := domain.CartItemView{CartLine: line}

		item, err := s.catalog.ResolveItem(ctx, line.ItemID)
		switch {
		case errors.Is(err, domain.ErrItemNotFound):
			s.logger.Warn("cart line references missing item", "user_id", userID, "item_id", line.ItemID)
		case err != nil:
			return nil, err
		default:
			view.Name = item.Name
			view.Price = item.Price
			view.Available = item.Available
			view.Subtotal = item.Price * int64(line.Quantity)
		}

		cart.Items = append(cart.Items, view)
		cart.Total += view.Subtotal
		cart.Count += line.Quantity
	}

	return cart, nil
}

// GetTotal prices the cart from the catalog; unavailable items count as zero.
func (s *Service) GetTotal(ctx context.Context, userID string) (int64, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return cart.Total, nil
}

func (s *Service) GetCount(ctx context.Context, userID string) (int, error) {
	return s.store.Count(ctx, userID)
}

// LinesForRestaurant feeds checkout with the user's lines for one restaurant.
func (s *Service) LinesForRestaurant(ctx context.Context, userID string, restaurantID int64) ([]domain.CartLine, error) {
	return s.store.ListForRestaurant(ctx, userID, restaurantID)
}
