package payment

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

// ClientConfig configures the HTTP gateway client.
type ClientConfig struct {
	// BaseURL is the gateway API root, e.g. https://api.processor.example.
	BaseURL string
	// SecretKey authenticates server-side API calls.
	SecretKey string
	// Timeout bounds each gateway call. Defaults to 10s.
	Timeout time.Duration
}

// Client implements Gateway over the processor's form-encoded HTTP API.
type Client struct {
	httpc   *http.Client
	baseURL string
	secret  string
}

var _ Gateway = (*Client)(nil)

// NewClient constructs a gateway client. Credentials are injected here at
// startup rather than read from process-wide state.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpc: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.SecretKey,
	}
}

// CreateSession opens a payment session for the given line items.
func (c *Client) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("currency", params.Currency)
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	for i, item := range params.LineItems {
		prefix := "line_items[" + strconv.Itoa(i) + "]"
		form.Set(prefix+"[name]", item.Name)
		form.Set(prefix+"[unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}
	return decodeSession(body, "create session")
}

// GetSession retrieves the current state of a payment session.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeSession(body, "get session")
}

// RetrieveCharge fetches a charge by its reference.
func (c *Client) RetrieveCharge(ctx context.Context, id string) (*Charge, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/charges/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	ch := &Charge{}
	if err := decodeFields(body, func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return strInto(d, &ch.ID)
		case "status":
			return strInto(d, &ch.Status)
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, &GatewayError{Op: "retrieve charge", Err: err}
	}
	return ch, nil
}

// CreateRefund asks the gateway to refund the full charge.
func (c *Client) CreateRefund(ctx context.Context, chargeID string) (*Refund, error) {
	form := url.Values{}
	form.Set("charge", chargeID)

	body, err := c.do(ctx, http.MethodPost, "/v1/refunds", form)
	if err != nil {
		return nil, err
	}
	ref := &Refund{}
	if err := decodeFields(body, func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return strInto(d, &ref.ID)
		case "status":
			return strInto(d, &ref.Status)
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, &GatewayError{Op: "create refund", Err: err}
	}
	return ref, nil
}

// do performs one authenticated request and returns the response body.
// Non-2xx responses and transport failures become *GatewayError.
func (c *Client) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	op := method + " " + path

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}
	return body, nil
}

// decodeSession parses the gateway's session object.
func decodeSession(body []byte, op string) (*Session, error) {
	s := &Session{Metadata: map[string]string{}}
	err := decodeFields(body, func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return strInto(d, &s.ID)
		case "url":
			return strInto(d, &s.URL)
		case "payment_status":
			v, err := d.Str()
			s.PaymentStatus = SessionStatus(v)
			return err
		case "charge":
			return strInto(d, &s.ChargeID)
		case "metadata":
			return d.Obj(func(d *jx.Decoder, k string) error {
				v, err := d.Str()
				s.Metadata[k] = v
				return err
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, &GatewayError{Op: op, Err: errors.Wrap(err, "decode response")}
	}
	return s, nil
}

// errorMessage extracts {"error":{"message":...}} from an error body;
// returns the raw body when it does not parse.
func errorMessage(body []byte) string {
	msg := ""
	err := decodeFields(body, func(d *jx.Decoder, key string) error {
		if key != "error" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, k string) error {
			if k != "message" {
				return d.Skip()
			}
			return strInto(d, &msg)
		})
	})
	if err != nil || msg == "" {
		return strings.TrimSpace(string(body))
	}
	return msg
}

func decodeFields(body []byte, fn func(d *jx.Decoder, key string) error) error {
	d := jx.DecodeBytes(body)
	return d.Obj(fn)
}

func strInto(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Str()
	*dst = v
	return err
}
