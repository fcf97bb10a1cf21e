package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/rohn21/e-commerce-webapp/internal/domain/order"
)

type checkoutRequest struct {
	CouponCode       string `json:"couponCode"`
	AddressID        string `json:"addressId"`
	ShippingMethodID string `json:"shippingMethodId"`
}

type checkoutResponse struct {
	Order       orderResponse `json:"order"`
	RedirectURL string        `json:"redirectUrl"`
}

func (h *Handler) placeCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := h.checkout.Checkout(r.Context(), order.CheckoutRequest{
		OwnerID:          ownerID(r),
		CouponCode:       req.CouponCode,
		AddressID:        req.AddressID,
		ShippingMethodID: req.ShippingMethodID,
	})
	if err != nil {
		if mapCheckoutError(w, err) {
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order:       toOrderResponse(result.Order),
		RedirectURL: result.RedirectURL,
	})
}

type confirmPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

// confirmPayment is the client-initiated reconciliation path: the buyer's
// browser lands on the success URL and the frontend confirms the session.
func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	o, err := h.reconciler.ConfirmSession(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrSessionUnpaid):
			// Order stays pending; the client may retry or wait for the
			// webhook.
			writeJSON(w, http.StatusAccepted, toOrderResponse(o))
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "no order for session")
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
