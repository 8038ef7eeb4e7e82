package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ridehail/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationOrderCreated    NotificationType = "ORDER_CREATED"
	NotificationDriverAssigned  NotificationType = "DRIVER_ASSIGNED"
	NotificationOrderStatus     NotificationType = "ORDER_STATUS_CHANGED"
	NotificationOrderCancelled  NotificationType = "ORDER_CANCELLED"
	NotificationPaymentUpdate   NotificationType = "PAYMENT_UPDATE"
	NotificationPaymentRefunded NotificationType = "PAYMENT_REFUNDED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService hands events to the external delivery collaborator.
// Delivery itself (push/SMS/email) lives outside this subsystem; every call
// here is fire-and-forget and never blocks or fails an operation.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	return &NotificationService{logger: logger}
}

// NotifyOrderCreated tells the customer their order was placed.
func (s *NotificationService) NotifyOrderCreated(ctx context.Context, order *domain.Order) error {
	return s.send(ctx, Notification{
		Type:        NotificationOrderCreated,
		RecipientID: order.CustomerID,
		Title:       "Order Created",
		Message:     fmt.Sprintf("Your order from %s has been created", order.PickupAddress),
		Data:        map[string]interface{}{"order_id": order.ID, "fare": order.Fare},
		CreatedAt:   time.Now(),
	})
}

// NotifyDriverAssigned tells the customer a driver took their order.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, order *domain.Order) error {
	return s.send(ctx, Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: order.CustomerID,
		Title:       "Driver Assigned",
		Message:     "A driver has taken your order",
		Data:        map[string]interface{}{"order_id": order.ID, "driver_id": order.DriverID},
		CreatedAt:   time.Now(),
	})
}

// NotifyOrderStatusChanged tells the customer the order moved.
func (s *NotificationService) NotifyOrderStatusChanged(ctx context.Context, order *domain.Order) error {
	return s.send(ctx, Notification{
		Type:        NotificationOrderStatus,
		RecipientID: order.CustomerID,
		Title:       "Order Update",
		Message:     fmt.Sprintf("Your order is now %s", order.Status),
		Data:        map[string]interface{}{"order_id": order.ID, "status": string(order.Status)},
		CreatedAt:   time.Now(),
	})
}

// NotifyOrderCancelled tells the other party the order was cancelled.
func (s *NotificationService) NotifyOrderCancelled(ctx context.Context, order *domain.Order, cancelledBy string) error {
	recipientID := order.CustomerID
	if cancelledBy == order.CustomerID {
		recipientID = order.DriverID
	}
	if recipientID == "" {
		return nil // no one to notify
	}

	return s.send(ctx, Notification{
		Type:        NotificationOrderCancelled,
		RecipientID: recipientID,
		Title:       "Order Cancelled",
		Message:     "The order has been cancelled",
		Data:        map[string]interface{}{"order_id": order.ID, "cancelled_by": cancelledBy},
		CreatedAt:   time.Now(),
	})
}

// NotifyPaymentProcessed tells the customer how their payment resolved.
func (s *NotificationService) NotifyPaymentProcessed(ctx context.Context, payment *domain.Payment, customerID string) error {
	title := "Payment Update"
	message := fmt.Sprintf("Your payment is %s", payment.Status)
	if payment.Status == domain.PaymentStatusCompleted {
		title = "Payment Successful"
		message = "Your payment has been settled"
	}

	return s.send(ctx, Notification{
		Type:        NotificationPaymentUpdate,
		RecipientID: customerID,
		Title:       title,
		Message:     message,
		Data: map[string]interface{}{
			"payment_id": payment.ID,
			"order_id":   payment.OrderID,
			"amount":     payment.Amount,
			"status":     string(payment.Status),
		},
		CreatedAt: time.Now(),
	})
}

// NotifyPaymentRefunded tells the customer their refund went through.
func (s *NotificationService) NotifyPaymentRefunded(ctx context.Context, payment *domain.Payment, customerID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentRefunded,
		RecipientID: customerID,
		Title:       "Payment Refunded",
		Message:     "Your payment has been refunded",
		Data: map[string]interface{}{
			"payment_id":    payment.ID,
			"order_id":      payment.OrderID,
			"refund_amount": payment.RefundAmount,
		},
		CreatedAt: time.Now(),
	})
}

// send hands the notification to the delivery collaborator.
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	// Delivery is owned by the external notification service; this
	// subsystem only emits the event.
	s.logger.Info("notification",
		zap.String("type", string(notification.Type)),
		zap.String("recipient", notification.RecipientID),
		zap.String("title", notification.Title),
		zap.String("message", notification.Message),
	)
	return nil
}
