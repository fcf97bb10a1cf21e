// Package handler exposes the HTTP API, delegating business logic to the
// domain services and mapping domain errors onto status codes.
package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/rohn21/e-commerce-webapp/internal/domain/address"
	"github.com/rohn21/e-commerce-webapp/internal/domain/cart"
	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
	"github.com/rohn21/e-commerce-webapp/internal/domain/order"
	"github.com/rohn21/e-commerce-webapp/internal/domain/product"
)

// maxBodyBytes caps request bodies to keep malformed clients from holding
// memory.
const maxBodyBytes = 1 << 20

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, paths are returned as stored.
	ImageBaseURL string
	// WebhookSecret verifies gateway webhook signatures.
	WebhookSecret []byte
	// WebhookTolerance bounds webhook timestamp drift.
	WebhookTolerance time.Duration
}

// Handler implements the HTTP API on top of the domain services.
type Handler struct {
	cfg Config

	products  product.Repository
	carts     cart.Repository
	addresses address.Repository
	orders    order.Store

	checkout   *order.CheckoutService
	reconciler *order.Reconciler
	lifecycle  *order.Lifecycle
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	carts cart.Repository,
	addresses address.Repository,
	orders order.Store,
	checkout *order.CheckoutService,
	reconciler *order.Reconciler,
	lifecycle *order.Lifecycle,
) *Handler {
	return &Handler{
		cfg:        cfg,
		products:   products,
		carts:      carts,
		addresses:  addresses,
		orders:     orders,
		checkout:   checkout,
		reconciler: reconciler,
		lifecycle:  lifecycle,
	}
}

// Routes registers every API route on mux. auth wraps the authenticated
// surface; the webhook route stays outside it and is verified by signature
// instead.
func (h *Handler) Routes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	authed := func(fn http.HandlerFunc) http.Handler { return auth(fn) }

	mux.Handle("GET /api/products", authed(h.listProducts))
	mux.Handle("GET /api/products/{productID}", authed(h.getProduct))

	mux.Handle("GET /api/cart", authed(h.listCart))
	mux.Handle("POST /api/cart", authed(h.addToCart))
	mux.Handle("DELETE /api/cart/{productID}", authed(h.removeFromCart))
	mux.Handle("DELETE /api/cart", authed(h.clearCart))

	mux.Handle("GET /api/addresses", authed(h.listAddresses))
	mux.Handle("POST /api/addresses", authed(h.createAddress))

	mux.Handle("POST /api/checkout", authed(h.placeCheckout))
	mux.Handle("POST /api/payments/confirm", authed(h.confirmPayment))

	mux.Handle("GET /api/orders", authed(h.listOrders))
	mux.Handle("GET /api/orders/{orderID}", authed(h.getOrder))
	mux.Handle("POST /api/orders/{orderID}/cancel", authed(h.cancelOrder))
	mux.Handle("POST /api/orders/{orderID}/status", authed(h.updateOrderStatus))

	mux.HandleFunc("POST /api/webhooks/payment", h.paymentWebhook)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// decode reads and unmarshals a JSON request body into dst.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

// internalError logs err with request context and answers 500 without
// leaking internals.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// mapCheckoutError translates checkout failures to responses. Unrecognized
// errors fall through to the caller for a 500.
func mapCheckoutError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, "invalid coupon code")
	case errors.Is(err, coupon.ErrExpired):
		writeError(w, http.StatusUnprocessableEntity, "coupon expired")
	case errors.Is(err, address.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, "address not found")
	case errors.Is(err, address.ErrNoDefault):
		writeError(w, http.StatusUnprocessableEntity, "no shipping address available")
	default:
		var pnf *order.ProductNotFoundError
		if errors.As(err, &pnf) {
			writeError(w, http.StatusUnprocessableEntity, pnf.Error())
			return true
		}
		return false
	}
	return true
}
