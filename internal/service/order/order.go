// Package order implements order placement, the status state machine and the
// status-driven notification fan-out.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/events"
	"github.com/craftberry/shop/internal/logging"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
	"github.com/craftberry/shop/internal/service/notification"
)

// transitions is the fulfillment state machine. cancelled is a terminal side
// branch reachable early, never a cycle back into the happy path.
var transitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

// statusMessages maps a status to its customer-facing notification text.
// Statuses without an entry never notify.
var statusMessages = map[string]string{
	models.OrderStatusConfirmed:  "Your order %s has been confirmed.",
	models.OrderStatusProcessing: "Your order %s is being processed.",
	models.OrderStatusShipped:    "Your order %s has been shipped.",
	models.OrderStatusDelivered:  "Your order %s has been delivered.",
	models.OrderStatusCancelled:  "Your order %s has been cancelled.",
}

const eventsTopic = "order_events"

type Item struct {
	ProductID string  `json:"product_id"`
	Quantity  uint    `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	UnitPrice float64 `json:"unit_price"`
}

type PlaceRequest struct {
	Items   []Item `json:"items"`
	Address string `json:"address"`
}

type Service struct {
	Orders        *repository.Orders
	Carts         *repository.Carts
	Users         *repository.Users
	Notifications *notification.Service
	Producer      *events.Producer
}

// NewOrderID builds a human-legible order code: date, then a time-derived
// running part plus a random suffix for uniqueness.
func NewOrderID(now time.Time) string {
	var suffix [2]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102150405"), hex.EncodeToString(suffix[:]))
}

// Place persists a new pending order, clears the placing user's cart and
// fans out notifications to the customer and every admin. Notification and
// cart-clear failures are logged, never allowed to fail the placement.
func (s *Service) Place(ctx context.Context, userID string, req PlaceRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.place", "user_id", userID)

	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", apperr.ErrValidation)
	}

	var total float64
	items := make([]models.OrderItem, 0, len(req.Items))
	for i := range req.Items {
		it := req.Items[i]
		if it.ProductID == "" {
			return nil, fmt.Errorf("%w: product_id required", apperr.ErrValidation)
		}
		if it.Quantity == 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
		}
		if it.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: unit_price must be >= 0", apperr.ErrValidation)
		}
		lineTotal := float64(it.Quantity) * it.UnitPrice
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			UnitPrice: it.UnitPrice,
			LineTotal: lineTotal,
		})
		total += lineTotal
	}

	now := time.Now()
	ord := &models.Order{
		ID:            NewOrderID(now),
		UserID:        userID,
		Items:         items,
		Total:         total,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Address:       req.Address,
		CreatedAt:     now.Unix(),
	}
	if err := s.Orders.Create(ctx, ord); err != nil {
		return nil, err
	}

	if err := s.Carts.Clear(ctx, userID); err != nil {
		l.Warn("cart_clear_failed", "order_id", ord.ID, "error", err)
	}

	s.notify(ctx, userID, "order_placed", "Order placed",
		fmt.Sprintf("Your order %s has been placed.", ord.ID), ord)

	admins, err := s.Users.Admins(ctx)
	if err != nil {
		l.Warn("admin_scan_failed", "order_id", ord.ID, "error", err)
	}
	for _, admin := range admins {
		s.notify(ctx, admin.ID, "order_received", "New order",
			fmt.Sprintf("Order %s was placed for %.2f.", ord.ID, ord.Total), ord)
	}

	s.publish(ctx, "order_created", ord)
	l.Info("order_placed", "order_id", ord.ID, "total", ord.Total)
	return ord, nil
}

// Update shallow-merges partial fields over the order. A status change is
// validated against the state machine; the customer is notified only when
// the status actually changed and has a defined message.
func (s *Service) Update(ctx context.Context, orderID string, partial map[string]any) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.update", "order_id", orderID)

	prev, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if raw, ok := partial["status"]; ok {
		status, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: status must be a string", apperr.ErrValidation)
		}
		if status != prev.Status {
			if !allowed(prev.Status, status) {
				return nil, fmt.Errorf("%w: cannot move order from %s to %s",
					apperr.ErrValidation, prev.Status, status)
			}
		}
	}

	ord, err := s.Orders.Merge(ctx, orderID, partial)
	if err != nil {
		return nil, err
	}

	if ord.Status != prev.Status {
		if msg, ok := statusMessages[ord.Status]; ok {
			s.notify(ctx, ord.UserID, "order_status", "Order update",
				fmt.Sprintf(msg, ord.ID), ord)
		}
		s.publish(ctx, "order_status_changed", ord)
		l.Info("order_status_changed", "from", prev.Status, "to", ord.Status)
	}

	return ord, nil
}

func allowed(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Service) notify(ctx context.Context, userID, typ, title, message string, ord *models.Order) {
	if s.Notifications == nil {
		return
	}
	data := map[string]any{"order_id": ord.ID, "status": ord.Status}
	if _, err := s.Notifications.Create(ctx, userID, typ, title, message, data); err != nil {
		logging.FromContext(ctx).Warn("notification_create_failed",
			"user_id", userID, "order_id", ord.ID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, ord *models.Order) {
	event := map[string]any{
		"type":     eventType,
		"order_id": ord.ID,
		"user_id":  ord.UserID,
		"status":   ord.Status,
		"total":    ord.Total,
	}
	if err := s.Producer.PublishEvent(ctx, eventsTopic, ord.ID, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "order_id", ord.ID, "error", err)
	}
}
