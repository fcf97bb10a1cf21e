package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/rohn21/e-commerce-webapp/internal/payment"
)

// paymentWebhook receives gateway callbacks. The route is unauthenticated;
// the HMAC signature is the only trust anchor, so verification failure
// rejects the delivery before any payload parsing.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	tolerance := h.cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = payment.DefaultTolerance
	}
	sig := r.Header.Get(payment.SignatureHeader)
	if err := payment.VerifySignature(body, sig, h.cfg.WebhookSecret, time.Now(), tolerance); err != nil {
		zctx.From(r.Context()).Warn("webhook signature rejected", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	if err := h.reconciler.ApplyEvent(r.Context(), ev); err != nil {
		// Non-2xx makes the gateway redeliver; ApplyEvent is idempotent so
		// retrying is always safe.
		zctx.From(r.Context()).Error("webhook apply failed",
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "event not applied")
		return
	}
	w.WriteHeader(http.StatusOK)
}
