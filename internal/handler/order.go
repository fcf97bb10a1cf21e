package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/rohn21/e-commerce-webapp/internal/domain/auth"
	"github.com/rohn21/e-commerce-webapp/internal/domain/order"
)

type orderLineResponse struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	CouponCode     string              `json:"couponCode,omitempty"`
	Total          float64             `json:"total"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"paymentStatus"`
	TrackingNumber string              `json:"trackingNumber,omitempty"`
	Lines          []orderLineResponse `json:"lines"`
	CreatedAt      time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:             o.ID,
		CouponCode:     o.CouponCode,
		Total:          o.Total.InexactFloat64(),
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		TrackingNumber: o.TrackingNumber,
		Lines:          lines,
		CreatedAt:      o.CreatedAt,
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByOwner(r.Context(), ownerID(r))
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("orderID"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, err)
		return
	}
	// Someone else's order behaves as missing.
	if o.OwnerID != ownerID(r) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	err := h.lifecycle.Cancel(r.Context(), ownerID(r), r.PathValue("orderID"))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrCannotCancel):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, order.ErrRefundFailed):
			writeError(w, http.StatusBadGateway, "refund failed, order not cancelled")
		default:
			internalError(w, r, err)
		}
		return
	}
	o, err := h.orders.Get(r.Context(), r.PathValue("orderID"))
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type updateOrderStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
}

// updateOrderStatus advances fulfillment state. Restricted to keys holding
// the fulfillment scope; buyers cancel through the cancel route instead.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeFulfillment) {
		return
	}

	var req updateOrderStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	orderID := r.PathValue("orderID")
	var err error
	switch order.Status(req.Status) {
	case order.StatusShipped:
		err = h.lifecycle.MarkShipped(r.Context(), orderID, req.TrackingNumber)
	case order.StatusDelivered:
		err = h.lifecycle.MarkDelivered(r.Context(), orderID)
	default:
		writeError(w, http.StatusBadRequest, "status must be shipped or delivered")
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		default:
			internalError(w, r, err)
		}
		return
	}

	o, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
