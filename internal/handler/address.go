package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/rohn21/e-commerce-webapp/internal/domain/address"
)

type addressResponse struct {
	ID        string `json:"id"`
	City      string `json:"city"`
	Street    string `json:"street"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	IsDefault bool   `json:"isDefault"`
}

type createAddressRequest struct {
	City      string `json:"city"`
	Street    string `json:"street"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	IsDefault bool   `json:"isDefault"`
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.addresses.ListByOwner(r.Context(), ownerID(r))
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]addressResponse, len(addrs))
	for i, a := range addrs {
		resp[i] = toAddressResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	var req createAddressRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	a := &address.Address{
		ID:        uuid.New().String(),
		OwnerID:   ownerID(r),
		City:      req.City,
		Street:    req.Street,
		State:     req.State,
		Pincode:   req.Pincode,
		IsDefault: req.IsDefault,
	}
	if err := h.addresses.Create(r.Context(), a); err != nil {
		if errors.Is(err, address.ErrInvalidPincode) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAddressResponse(*a))
}

func toAddressResponse(a address.Address) addressResponse {
	return addressResponse{
		ID:        a.ID,
		City:      a.City,
		Street:    a.Street,
		State:     a.State,
		Pincode:   a.Pincode,
		IsDefault: a.IsDefault,
	}
}
