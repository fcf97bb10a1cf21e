package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/rohn21/e-commerce-webapp/internal/domain/cart"
)

type cartLineResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) listCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.List(r.Context(), ownerID(r))
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]cartLineResponse, len(lines))
	for i, l := range lines {
		resp[i] = cartLineResponse{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}

	// Reject unknown products before touching the cart.
	if _, err := h.products.GetByID(r.Context(), req.ProductID); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "product not found")
		return
	}

	line, err := h.carts.Add(r.Context(), ownerID(r), req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrInvalidQuantity) {
			writeError(w, http.StatusUnprocessableEntity, "quantity must be positive")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartLineResponse{ProductID: line.ProductID, Quantity: line.Quantity})
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	err := h.carts.Remove(r.Context(), ownerID(r), r.PathValue("productID"))
	if err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			writeError(w, http.StatusNotFound, "cart line not found")
			return
		}
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), ownerID(r)); err != nil {
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
