package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	maxCreateAttempts = 3

	uniqueViolation       = "23505"
	orderNumberConstraint = "orders_order_number_key"
	orderColumns          = `id, order_number, user_id, restaurant_id, status, payment_method, payment_status,
		subtotal, delivery_fee, tax_amount, discount_amount, total, delivery_address, phone, notes,
		driver_id, estimated_delivery_at, delivered_at, cancelled_at, cancel_reason, created_at, updated_at`
)

type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default limit and the cap.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type StatusStats struct {
	Status  domain.OrderStatus `json:"status"`
	Count   int64              `json:"count"`
	Revenue int64              `json:"revenue"`
}

// Effects are the extra writes a transition performs in its transaction.
type Effects struct {
	ClearCart bool
	ActorID   string
	Note      string
}

// TransitionFunc mutates a locked order in place. Returning an error aborts
// the transaction with nothing written.
type TransitionFunc func(order *domain.Order) (Effects, error)

// Ledger is the durable record of orders, their lines and status history.
type Ledger interface {
	Create(ctx context.Context, order *domain.Order) error
	Transition(ctx context.Context, id int64, apply TransitionFunc) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, page Page) ([]domain.Order, error)
	List(ctx context.Context, page Page) ([]domain.Order, error)
	Stats(ctx context.Context) ([]StatusStats, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type OrderRepository struct {
	db           *sql.DB
	numberPrefix string
}

func NewOrderRepository(db *sql.DB, numberPrefix string) *OrderRepository {
	if numberPrefix == "" {
		numberPrefix = DefaultOrderNumberPrefix
	}
	return &OrderRepository{db: db, numberPrefix: numberPrefix}
}

// Create reserves an order number and writes the order, its lines and the
// initial history row in one transaction. IDs and the number are assigned to
// order only once the commit succeeds. A collision on the order number
// retries the whole transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	var lastErr error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		err := r.create(ctx, order)
		if err == nil {
			return nil
		}
		if !isOrderNumberConflict(err) {
			return fmt.Errorf("%w: create order: %w", domain.ErrPersistence, err)
		}
		lastErr = err
	}
	return fmt.Errorf("%w: order number conflict after %d attempts: %w", domain.ErrPersistence, maxCreateAttempts, lastErr)
}

func (r *OrderRepository) create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	day := order.CreatedAt.UTC().Truncate(24 * time.Hour)
	var seq int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO order_number_sequences (day, last_value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = order_number_sequences.last_value + 1
		RETURNING last_value
	`, day).Scan(&seq)
	if err != nil {
		return fmt.Errorf("reserve order number: %w", err)
	}
	number := FormatOrderNumber(r.numberPrefix, order.CreatedAt, seq)

	var orderID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, user_id, restaurant_id, status, payment_method, payment_status,
			subtotal, delivery_fee, tax_amount, discount_amount, total, delivery_address, phone, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		RETURNING id
	`, number, order.UserID, order.RestaurantID, order.Status, order.PaymentMethod, order.PaymentStatus,
		order.Subtotal, order.DeliveryFee, order.TaxAmount, order.DiscountAmount, order.Total,
		order.DeliveryAddress, order.Phone, order.Notes, order.CreatedAt).Scan(&orderID)
	if err != nil {
		return err
	}

	lineIDs := make([]int64, len(order.Lines))
	for i, line := range order.Lines {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, item_id, name, price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, orderID, line.ItemID, line.Name, line.Price, line.Quantity, line.Subtotal).Scan(&lineIDs[i])
		if err != nil {
			return err
		}
	}

	if err := insertHistory(ctx, tx, orderID, "", order.Status, order.UserID, "order placed", order.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	order.ID = orderID
	order.OrderNumber = number
	order.UpdatedAt = order.CreatedAt
	for i := range order.Lines {
		order.Lines[i].ID = lineIDs[i]
		order.Lines[i].OrderID = orderID
	}
	return nil
}

// Transition locks the order row, lets apply mutate it, then persists the
// new state, the requested side effects and a history row atomically.
// Errors returned by apply are passed through unchanged.
func (r *OrderRepository) Transition(ctx context.Context, id int64, apply TransitionFunc) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transition: %w", domain.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := getOrder(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	from := order.Status

	effects, err := apply(order)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, driver_id = $3, estimated_delivery_at = $4, delivered_at = $5,
			cancelled_at = $6, cancel_reason = $7, updated_at = $8
		WHERE id = $1
	`, order.ID, order.Status, nullString(order.DriverID), order.EstimatedDeliveryAt, order.DeliveredAt,
		order.CancelledAt, nullString(order.CancelReason), order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: update order %d: %w", domain.ErrPersistence, id, err)
	}

	if effects.ClearCart {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM cart_items WHERE user_id = $1 AND restaurant_id = $2
		`, order.UserID, order.RestaurantID)
		if err != nil {
			return nil, fmt.Errorf("%w: clear cart: %w", domain.ErrPersistence, err)
		}
	}

	if err := insertHistory(ctx, tx, order.ID, from, order.Status, effects.ActorID, effects.Note, order.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: record status change: %w", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit transition: %w", domain.ErrPersistence, err)
	}

	return order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return getOrder(ctx, r.db, id, false)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page Page) ([]domain.Order, error) {
	page = page.Normalize()
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, page Page) ([]domain.Order, error) {
	page = page.Normalize()
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, status, page.Limit, page.Offset)
}

func (r *OrderRepository) List(ctx context.Context, page Page) ([]domain.Order, error) {
	page = page.Normalize()
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
}

func (r *OrderRepository) Stats(ctx context.Context) ([]StatusStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: order stats: %w", domain.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	byStatus := make(map[domain.OrderStatus]StatusStats)
	for rows.Next() {
		var s StatusStats
		if err := rows.Scan(&s.Status, &s.Count, &s.Revenue); err != nil {
			return nil, fmt.Errorf("%w: scan stats: %w", domain.ErrPersistence, err)
		}
		byStatus[s.Status] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: order stats: %w", domain.ErrPersistence, err)
	}

	stats := make([]StatusStats, 0, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		s := byStatus[status]
		s.Status = status
		stats = append(stats, s)
	}
	return stats, nil
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[int64]*domain.Order)
	var orderIDs []int64

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan order: %w", domain.ErrPersistence, err)
		}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrPersistence, err)
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, item_id, name, price, quantity, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: list order items: %w", domain.ErrPersistence, err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		line, err := scanLine(itemRows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan order item: %w", domain.ErrPersistence, err)
		}
		order := orderMap[line.OrderID]
		order.Lines = append(order.Lines, line)
	}

	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list order items: %w", domain.ErrPersistence, err)
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func getOrder(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get order %d: %w", domain.ErrPersistence, id, err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, item_id, name, price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get order items %d: %w", domain.ErrPersistence, id, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan order item: %w", domain.ErrPersistence, err)
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: get order items %d: %w", domain.ErrPersistence, id, err)
	}

	return order, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		order        domain.Order
		driverID     sql.NullString
		cancelReason sql.NullString
		estimated    sql.NullTime
		delivered    sql.NullTime
		cancelled    sql.NullTime
	)
	err := s.Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.RestaurantID, &order.Status,
		&order.PaymentMethod, &order.PaymentStatus, &order.Subtotal, &order.DeliveryFee, &order.TaxAmount,
		&order.DiscountAmount, &order.Total, &order.DeliveryAddress, &order.Phone, &order.Notes,
		&driverID, &estimated, &delivered, &cancelled, &cancelReason, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	order.DriverID = driverID.String
	order.CancelReason = cancelReason.String
	order.EstimatedDeliveryAt = timePtr(estimated)
	order.DeliveredAt = timePtr(delivered)
	order.CancelledAt = timePtr(cancelled)
	order.Lines = []domain.OrderLine{}
	return &order, nil
}

func scanLine(s scanner) (domain.OrderLine, error) {
	var line domain.OrderLine
	err := s.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.Name, &line.Price, &line.Quantity, &line.Subtotal)
	return line, err
}

func insertHistory(ctx context.Context, tx *sql.Tx, orderID int64, from, to domain.OrderStatus, actor, note string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, changed_by, note, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, nullString(string(from)), to, actor, note, at)
	return err
}

func isOrderNumberConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == orderNumberConstraint
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
