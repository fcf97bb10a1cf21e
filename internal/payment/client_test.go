package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.Form.Get("mode"))
		assert.Equal(t, "inr", r.Form.Get("currency"))
		assert.Equal(t, "Waffle", r.Form.Get("line_items[0][name]"))
		assert.Equal(t, "650", r.Form.Get("line_items[0][unit_amount]"))
		assert.Equal(t, "2", r.Form.Get("line_items[0][quantity]"))
		assert.Equal(t, "ord_1", r.Form.Get("metadata[order_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1","payment_status":"unpaid","metadata":{"order_id":"ord_1"}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, SecretKey: "sk_test"})
	sess, err := c.CreateSession(context.Background(), CreateSessionParams{
		Currency: "inr",
		LineItems: []LineItem{
			{Name: "Waffle", UnitAmount: 650, Quantity: 2},
		},
		Metadata: map[string]string{MetaOrderID: "ord_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)
	assert.Equal(t, "https://pay.example/cs_1", sess.URL)
	assert.Equal(t, SessionUnpaid, sess.PaymentStatus)
	assert.Equal(t, "ord_1", sess.Metadata[MetaOrderID])
}

func TestClientGetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"cs_1","payment_status":"paid","charge":"ch_1","metadata":{}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, SecretKey: "sk_test"})
	sess, err := c.GetSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, SessionPaid, sess.PaymentStatus)
	assert.Equal(t, "ch_1", sess.ChargeID)
}

func TestClientRetrieveCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/charges/ch_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"ch_1","status":"succeeded","amount":1300}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, SecretKey: "sk_test"})
	ch, err := c.RetrieveCharge(context.Background(), "ch_1")
	require.NoError(t, err)
	assert.Equal(t, "ch_1", ch.ID)
	assert.True(t, ch.Succeeded())
}

func TestClientCreateRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ch_1", r.Form.Get("charge"))
		_, _ = w.Write([]byte(`{"id":"re_1","status":"succeeded"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, SecretKey: "sk_test"})
	ref, err := c.CreateRefund(context.Background(), "ch_1")
	require.NoError(t, err)
	assert.True(t, ref.Succeeded())
}

func TestClientGatewayErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"card declined"}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, SecretKey: "sk_test"})
	_, err := c.GetSession(context.Background(), "cs_1")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusPaymentRequired, gwErr.StatusCode)
	assert.Equal(t, "card declined", gwErr.Message)
	assert.False(t, gwErr.Retryable())
}

func TestClientRetryableStatuses(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClient(ClientConfig{BaseURL: srv.URL, SecretKey: "sk"})
		_, err := c.GetSession(context.Background(), "cs_1")
		srv.Close()

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr, "status %d", tc.status)
		assert.Equal(t, tc.retryable, gwErr.Retryable(), "status %d", tc.status)
	}
}

func TestClientTransportFailureIsRetryable(t *testing.T) {
	// Point at a closed server to force a transport error.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, SecretKey: "sk"})
	_, err := c.GetSession(context.Background(), "cs_1")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Zero(t, gwErr.StatusCode)
	assert.True(t, gwErr.Retryable())
}
