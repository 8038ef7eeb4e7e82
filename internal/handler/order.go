package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	CustomerID     string  `json:"customer_id"` // admin only
	PickupAddress  string  `json:"pickup_address"`
	DropoffAddress string  `json:"dropoff_address"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	DropoffLat     float64 `json:"dropoff_lat"`
	DropoffLng     float64 `json:"dropoff_lng"`
	Distance       float64 `json:"distance"`
	Fare           int64   `json:"fare"`
	Discount       int64   `json:"discount"`
	PromotionID    string  `json:"promotion_id"`
}

// UpdateOrderRequest is the HTTP request body for updating an order.
type UpdateOrderRequest struct {
	DriverID       string `json:"driver_id"`
	PickupAddress  string `json:"pickup_address"`
	DropoffAddress string `json:"dropoff_address"`
	Discount       *int64 `json:"discount"`
	PromotionID    string `json:"promotion_id"`
}

// UpdateStatusRequest is the HTTP request body for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// RateOrderRequest is the HTTP request body for rating an order.
type RateOrderRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// OrderResponse is the HTTP response for order operations.
type OrderResponse struct {
	ID             string    `json:"id"`
	CustomerID     string    `json:"customer_id"`
	DriverID       string    `json:"driver_id,omitempty"`
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	PickupLat      float64   `json:"pickup_lat"`
	PickupLng      float64   `json:"pickup_lng"`
	DropoffLat     float64   `json:"dropoff_lat"`
	DropoffLng     float64   `json:"dropoff_lng"`
	Distance       float64   `json:"distance"`
	Fare           int64     `json:"fare"`
	Discount       int64     `json:"discount,omitempty"`
	PromotionID    string    `json:"promotion_id,omitempty"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	Rating         int       `json:"rating,omitempty"`
	Review         string    `json:"review,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		DriverID:       o.DriverID,
		PickupAddress:  o.PickupAddress,
		DropoffAddress: o.DropoffAddress,
		PickupLat:      o.PickupLat,
		PickupLng:      o.PickupLng,
		DropoffLat:     o.DropoffLat,
		DropoffLng:     o.DropoffLng,
		Distance:       o.Distance,
		Fare:           o.Fare,
		Discount:       o.Discount,
		PromotionID:    o.PromotionID,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		Rating:         o.Rating,
		Review:         o.Review,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrderResponses(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), actor, service.CreateOrderRequest{
		CustomerID:     req.CustomerID,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		PickupLat:      req.PickupLat,
		PickupLng:      req.PickupLng,
		DropoffLat:     req.DropoffLat,
		DropoffLng:     req.DropoffLng,
		Distance:       req.Distance,
		Fare:           req.Fare,
		Discount:       req.Discount,
		PromotionID:    req.PromotionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "order created", toOrderResponse(order))
}

// ListOrders handles GET /v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	orders, err := h.orderService.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "orders retrieved", toOrderResponses(orders))
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "order retrieved", toOrderResponse(order))
}

// UpdateOrder handles PUT /v1/orders/:id. A driver sending driver_id takes
// the order; anything else edits trip details.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	order, err := h.orderService.Update(c.Request.Context(), actor, c.Param("id"), service.UpdateOrderRequest{
		DriverID:       req.DriverID,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		Discount:       req.Discount,
		PromotionID:    req.PromotionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "order updated", toOrderResponse(order))
}

// UpdateOrderStatus handles PUT /v1/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Status == "" {
		respondBadRequest(c, "status is required")
		return
	}

	order, err := h.orderService.Advance(c.Request.Context(), actor, c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "order status updated", toOrderResponse(order))
}

// CancelOrder handles POST /v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "order cancelled", toOrderResponse(order))
}

// RateOrder handles POST /v1/orders/:id/rate
func (h *OrderHandler) RateOrder(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	order, err := h.orderService.Rate(c.Request.Context(), actor, c.Param("id"), req.Rating, req.Review)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "order rated", toOrderResponse(order))
}

// TrackOrder handles GET /v1/orders/:id/track
func (h *OrderHandler) TrackOrder(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	order, err := h.orderService.Track(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "order tracking retrieved", toOrderResponse(order))
}
