package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

type cartKey struct {
	userID       string
	restaurantID int64
}

// memoryLedger mimics OrderRepository: every write is all-or-nothing and
// orders are handed out as copies.
type memoryLedger struct {
	mu        sync.Mutex
	nextID    int64
	seq       map[string]int
	orders    map[int64]domain.Order
	history   map[int64][]domain.OrderStatus
	cleared   []cartKey
	createErr error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		seq:     make(map[string]int),
		orders:  make(map[int64]domain.Order),
		history: make(map[int64][]domain.OrderStatus),
	}
}

func (l *memoryLedger) Create(_ context.Context, order *domain.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}

	day := order.CreatedAt.UTC().Format("20060102")
	l.seq[day]++
	l.nextID++

	order.ID = l.nextID
	order.OrderNumber = FormatOrderNumber(DefaultOrderNumberPrefix, order.CreatedAt, l.seq[day])
	for i := range order.Lines {
		order.Lines[i].ID = int64(i + 1)
		order.Lines[i].OrderID = order.ID
	}
	l.orders[order.ID] = cloneOrder(*order)
	l.history[order.ID] = []domain.OrderStatus{order.Status}
	return nil
}

func (l *memoryLedger) Transition(_ context.Context, id int64, apply TransitionFunc) (*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}

	working := cloneOrder(stored)
	effects, err := apply(&working)
	if err != nil {
		return nil, err
	}

	if effects.ClearCart {
		l.cleared = append(l.cleared, cartKey{working.UserID, working.RestaurantID})
	}
	l.orders[id] = cloneOrder(working)
	l.history[id] = append(l.history[id], working.Status)
	return &working, nil
}

func (l *memoryLedger) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}
	out := cloneOrder(order)
	return &out, nil
}

func (l *memoryLedger) ListByUser(_ context.Context, userID string, page Page) ([]domain.Order, error) {
	return l.filter(page, func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (l *memoryLedger) ListByStatus(_ context.Context, status domain.OrderStatus, page Page) ([]domain.Order, error) {
	return l.filter(page, func(o domain.Order) bool { return o.Status == status }), nil
}

func (l *memoryLedger) List(_ context.Context, page Page) ([]domain.Order, error) {
	return l.filter(page, func(domain.Order) bool { return true }), nil
}

func (l *memoryLedger) Stats(_ context.Context) ([]StatusStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := make([]StatusStats, 0, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		s := StatusStats{Status: status}
		for _, o := range l.orders {
			if o.Status == status {
				s.Count++
				s.Revenue += o.Total
			}
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func (l *memoryLedger) filter(page Page, keep func(domain.Order) bool) []domain.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	page = page.Normalize()

	matched := []domain.Order{}
	for _, o := range l.orders {
		if keep(o) {
			matched = append(matched, cloneOrder(o))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if page.Offset >= len(matched) {
		return []domain.Order{}
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end]
}

func (l *memoryLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

func cloneOrder(o domain.Order) domain.Order {
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return o
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
		"X": {ID: "X", RestaurantID: 1, Name: "Mango Sticky Rice", Price: 2500, Available: false},
		"P": {ID: "P", RestaurantID: 2, Name: "Margherita", Price: 8900, Available: true},
	}
}

type staticCarts map[cartKey][]domain.CartLine

func (c staticCarts) LinesForRestaurant(_ context.Context, userID string, restaurantID int64) ([]domain.CartLine, error) {
	return c[cartKey{userID, restaurantID}], nil
}

type published struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.topic)
	}
	return out
}

var errBroker = errors.New("broker unavailable")

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	ledger      *memoryLedger
	catalog     staticCatalog
	carts       staticCarts
	publisher   *recordingPublisher
	checkout    *CheckoutService
	fulfillment *FulfillmentService
}

func newFixture() *fixture {
	f := &fixture{
		ledger:    newMemoryLedger(),
		catalog:   testCatalog(),
		carts:     staticCarts{},
		publisher: &recordingPublisher{},
	}
	f.checkout = NewCheckoutService(f.ledger, f.catalog, f.carts, NoPricing{}, f.publisher, nil, discardLogger())
	f.checkout.now = func() time.Time { return fixedNow }
	f.fulfillment = NewFulfillmentService(f.ledger, f.publisher, nil, 0, discardLogger())
	f.fulfillment.now = func() time.Time { return fixedNow }
	return f
}

func basicRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		UserID:          "u1",
		RestaurantID:    1,
		Lines:           []LineRequest{{ItemID: "A", Quantity: 2}, {ItemID: "B", Quantity: 1}},
		DeliveryAddress: "1 Main St",
		Phone:           "555-0100",
	}
}
