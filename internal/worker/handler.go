package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

// NotificationHandler turns order lifecycle events into customer emails.
type NotificationHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

type emailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *NotificationHandler) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "event_id", event.EventID)

	msg := emailMessage{
		To:      recipient(event.UserID),
		Subject: "Order received: " + event.OrderNumber,
		Body: fmt.Sprintf("We received your order %s with %d items. Total: %s. The restaurant will confirm it shortly.",
			event.OrderNumber, len(event.Items), formatAmount(event.Total)),
	}
	if err := h.sendEmail(ctx, msg); err != nil {
		h.logger.Error("failed to send order received email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send order received email: %w", err)
	}

	return nil
}

// HandleStatusChanged emails the customer for the transitions they care
// about. preparing and ready are internal to the kitchen and skipped.
func (h *NotificationHandler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal status changed event: %w", err)
	}

	h.logger.Info("processing status changed event",
		"order_id", event.OrderID,
		"event_id", event.EventID,
		"from", event.From,
		"to", event.To,
	)

	msg, ok := statusEmail(event)
	if !ok {
		return nil
	}
	if err := h.sendEmail(ctx, msg); err != nil {
		h.logger.Error("failed to send status email", "error", err, "order_id", event.OrderID, "status", event.To)
		return fmt.Errorf("send %s email: %w", event.To, err)
	}

	return nil
}

func statusEmail(event domain.OrderStatusChangedEvent) (emailMessage, bool) {
	msg := emailMessage{To: recipient(event.UserID)}

	switch event.To {
	case domain.OrderStatusConfirmed:
		msg.Subject = "Order confirmed: " + event.OrderNumber
		msg.Body = fmt.Sprintf("The restaurant confirmed your order %s.", event.OrderNumber)
	case domain.OrderStatusOutForDelivery:
		msg.Subject = "Order on its way: " + event.OrderNumber
		msg.Body = fmt.Sprintf("Your order %s is out for delivery.", event.OrderNumber)
	case domain.OrderStatusDelivered:
		msg.Subject = "Order delivered: " + event.OrderNumber
		msg.Body = fmt.Sprintf("Your order %s was delivered. Enjoy your meal!", event.OrderNumber)
	case domain.OrderStatusCancelled:
		msg.Subject = "Order cancelled: " + event.OrderNumber
		msg.Body = fmt.Sprintf("Your order %s has been cancelled.", event.OrderNumber)
		if event.Reason != "" {
			msg.Body += " Reason: " + event.Reason + "."
		}
	default:
		return emailMessage{}, false
	}

	return msg, true
}

func (h *NotificationHandler) sendEmail(ctx context.Context, msg emailMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

func recipient(userID string) string {
	return userID + "@example.com"
}

// formatAmount renders minor units as a decimal string, sign first.
func formatAmount(minor int64) string {
	sign := ""
	abs := uint64(minor)
	if minor < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}
