package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

// Store persists cart lines. Every method is scoped to the owning user.
type Store interface {
	Upsert(ctx context.Context, line *domain.CartLine) error
	UpdateQuantity(ctx context.Context, userID string, lineID int64, quantity int) error
	Remove(ctx context.Context, userID string, lineID int64) error
	Clear(ctx context.Context, userID string) error
	List(ctx context.Context, userID string) ([]domain.CartLine, error)
	ListForRestaurant(ctx context.Context, userID string, restaurantID int64) ([]domain.CartLine, error)
	Count(ctx context.Context, userID string) (int, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts the line or, when (user, item) already exists, adds its
// quantity to the stored one. Non-empty instructions replace the old ones.
// A sum above domain.MaxQuantity leaves the stored line unchanged.
func (r *Repository) Upsert(ctx context.Context, line *domain.CartLine) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (user_id, restaurant_id, item_id, quantity, instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (user_id, item_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
		    instructions = CASE WHEN EXCLUDED.instructions = '' THEN cart_items.instructions ELSE EXCLUDED.instructions END,
		    updated_at = NOW()
		WHERE cart_items.quantity + EXCLUDED.quantity <= $6
		RETURNING id, quantity, instructions, created_at, updated_at
	`, line.UserID, line.RestaurantID, line.ItemID, line.Quantity, line.Instructions, domain.MaxQuantity).
		Scan(&line.ID, &line.Quantity, &line.Instructions, &line.CreatedAt, &line.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: item %s would exceed %d in cart", domain.ErrInvalidQuantity, line.ItemID, domain.MaxQuantity)
	}
	if err != nil {
		return fmt.Errorf("%w: upsert cart line: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *Repository) UpdateQuantity(ctx context.Context, userID string, lineID int64, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, lineID, userID, quantity)
	if err != nil {
		return fmt.Errorf("%w: update cart line: %w", domain.ErrPersistence, err)
	}
	return expectOneRow(result, lineID)
}

func (r *Repository) Remove(ctx context.Context, userID string, lineID int64) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE id = $1 AND user_id = $2
	`, lineID, userID)
	if err != nil {
		return fmt.Errorf("%w: remove cart line: %w", domain.ErrPersistence, err)
	}
	return expectOneRow(result, lineID)
}

func (r *Repository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: clear cart: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, userID string) ([]domain.CartLine, error) {
	return r.query(ctx, `
		SELECT id, user_id, restaurant_id, item_id, quantity, instructions, created_at, updated_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
}

func (r *Repository) ListForRestaurant(ctx context.Context, userID string, restaurantID int64) ([]domain.CartLine, error) {
	return r.query(ctx, `
		SELECT id, user_id, restaurant_id, item_id, quantity, instructions, created_at, updated_at
		FROM cart_items
		WHERE user_id = $1 AND restaurant_id = $2
		ORDER BY created_at, id
	`, userID, restaurantID)
}

func (r *Repository) Count(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE user_id = $1
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count cart: %w", domain.ErrPersistence, err)
	}
	return count, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]domain.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list cart: %w", domain.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ID, &line.UserID, &line.RestaurantID, &line.ItemID,
			&line.Quantity, &line.Instructions, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan cart line: %w", domain.ErrPersistence, err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list cart: %w", domain.ErrPersistence, err)
	}

	return lines, nil
}

func expectOneRow(result sql.Result, lineID int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: cart line %d", domain.ErrNotFound, lineID)
	}
	return nil
}
