package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

// Reader resolves catalog items by id. Implementations return an error
// wrapping domain.ErrItemNotFound for unknown ids.
type Reader interface {
	ResolveItem(ctx context.Context, itemID string) (*domain.CatalogItem, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListAll(ctx context.Context, restaurantID int64) ([]domain.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, restaurant_id, name, price, available
		FROM items
		WHERE $1 = 0 OR restaurant_id = $1
		ORDER BY restaurant_id, item_id
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.CatalogItem{}
	for rows.Next() {
		var item domain.CatalogItem
		if err := rows.Scan(&item.ID, &item.RestaurantID, &item.Name, &item.Price, &item.Available); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *Repository) ResolveItem(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	item := &domain.CatalogItem{}

	err := r.db.QueryRowContext(ctx, `
		SELECT item_id, restaurant_id, name, price, available
		FROM items
		WHERE item_id = $1
	`, itemID).Scan(&item.ID, &item.RestaurantID, &item.Name, &item.Price, &item.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
		}
		return nil, err
	}

	return item, nil
}

func (r *Repository) SetAvailability(ctx context.Context, itemID string, available bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE items SET available = $2, updated_at = NOW()
		WHERE item_id = $1
	`, itemID, available)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	return nil
}
