package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohn21/e-commerce-webapp/internal/domain/order"
	"github.com/rohn21/e-commerce-webapp/internal/payment"
)

const webhookSecret = "whsec_test"

func paidEventPayload(orderID string) []byte {
	return fmt.Appendf(nil, `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "sess-%s",
			"payment_status": "paid",
			"charge": "ch_1",
			"metadata": {"order_id": %q}
		}}
	}`, orderID, orderID)
}

func postWebhook(t *testing.T, url string, payload []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/webhooks/payment", bytes.NewReader(payload))
	require.NoError(t, err)
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestWebhookValidSignatureMarksPaid(t *testing.T) {
	store := &fakeOrderStore{orders: map[string]*order.Order{
		"ord-1": pendingTestOrder("ord-1"),
	}}
	srv := newTestServer(store, testKeyRepo(), webhookSecret)
	defer srv.Close()

	payload := paidEventPayload("ord-1")
	sig := payment.Sign(payload, []byte(webhookSecret), time.Now())

	resp := postWebhook(t, srv.URL, payload, sig)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := store.Get(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, "ch_1", got.PaymentChargeID)
}

func TestWebhookBadSignatureFailsClosed(t *testing.T) {
	store := &fakeOrderStore{orders: map[string]*order.Order{
		"ord-1": pendingTestOrder("ord-1"),
	}}
	srv := newTestServer(store, testKeyRepo(), webhookSecret)
	defer srv.Close()

	payload := paidEventPayload("ord-1")
	sig := payment.Sign(payload, []byte("wrong-secret"), time.Now())

	resp := postWebhook(t, srv.URL, payload, sig)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// No state change happened.
	got, err := store.Get(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPending, got.PaymentStatus)
}

func TestWebhookMissingSignature(t *testing.T) {
	store := &fakeOrderStore{orders: map[string]*order.Order{
		"ord-1": pendingTestOrder("ord-1"),
	}}
	srv := newTestServer(store, testKeyRepo(), webhookSecret)
	defer srv.Close()

	resp := postWebhook(t, srv.URL, paidEventPayload("ord-1"), "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookReplayIsNoOp(t *testing.T) {
	store := &fakeOrderStore{orders: map[string]*order.Order{
		"ord-1": pendingTestOrder("ord-1"),
	}}
	srv := newTestServer(store, testKeyRepo(), webhookSecret)
	defer srv.Close()

	payload := paidEventPayload("ord-1")
	sig := payment.Sign(payload, []byte(webhookSecret), time.Now())

	for range 2 {
		resp := postWebhook(t, srv.URL, payload, sig)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	got, err := store.Get(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentCompleted, got.PaymentStatus)
}

func TestWebhookMalformedPayload(t *testing.T) {
	srv := newTestServer(&fakeOrderStore{orders: map[string]*order.Order{}}, testKeyRepo(), webhookSecret)
	defer srv.Close()

	payload := []byte(`{"id": `)
	sig := payment.Sign(payload, []byte(webhookSecret), time.Now())

	resp := postWebhook(t, srv.URL, payload, sig)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
