package domain

import (
	"errors"
	"testing"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want error
	}{
		{"pending to confirmed", OrderStatusPending, OrderStatusConfirmed, nil},
		{"confirmed to preparing", OrderStatusConfirmed, OrderStatusPreparing, nil},
		{"preparing to ready", OrderStatusPreparing, OrderStatusReady, nil},
		{"ready to out for delivery", OrderStatusReady, OrderStatusOutForDelivery, nil},
		{"out for delivery to delivered", OrderStatusOutForDelivery, OrderStatusDelivered, nil},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, nil},
		{"out for delivery to cancelled", OrderStatusOutForDelivery, OrderStatusCancelled, nil},
		{"pending skips to preparing", OrderStatusPending, OrderStatusPreparing, ErrInvalidStatus},
		{"ready back to preparing", OrderStatusReady, OrderStatusPreparing, ErrInvalidStatus},
		{"confirmed back to pending", OrderStatusConfirmed, OrderStatusPending, ErrInvalidStatus},
		{"pending to pending", OrderStatusPending, OrderStatusPending, ErrInvalidStatus},
		{"delivered to pending", OrderStatusDelivered, OrderStatusPending, ErrTerminalState},
		{"delivered to preparing", OrderStatusDelivered, OrderStatusPreparing, ErrTerminalState},
		{"delivered to cancelled", OrderStatusDelivered, OrderStatusCancelled, ErrTerminalState},
		{"cancelled to confirmed", OrderStatusCancelled, OrderStatusConfirmed, ErrTerminalState},
		{"unknown target", OrderStatusPending, OrderStatus("shipped"), ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckTransition_NeverMovesBackward(t *testing.T) {
	rank := make(map[OrderStatus]int)
	for i, s := range AllStatuses {
		rank[s] = i
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			if CheckTransition(from, to) != nil {
				continue
			}
			if from.IsTerminal() {
				t.Errorf("terminal status %s allowed a move to %s", from, to)
			}
			if to != OrderStatusCancelled && rank[to] != rank[from]+1 {
				t.Errorf("%s -> %s is not a single forward step", from, to)
			}
		}
	}
}

func TestParseStatus(t *testing.T) {
	t.Run("accepts known status", func(t *testing.T) {
		s, err := ParseStatus("out_for_delivery")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s != OrderStatusOutForDelivery {
			t.Errorf("expected out_for_delivery, got %s", s)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := ParseStatus("shipped")
		if !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("expected ErrInvalidStatus, got %v", err)
		}
	})
}
