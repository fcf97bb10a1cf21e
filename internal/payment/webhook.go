package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// SignatureHeader carries the webhook signature:
// "t=<unix seconds>,v1=<hex hmac-sha256 of "<t>.<payload>">".
const SignatureHeader = "X-Payment-Signature"

// DefaultTolerance is how far a webhook timestamp may drift before the
// event is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// EventCheckoutCompleted is emitted when a payment session finishes.
const EventCheckoutCompleted = "checkout.session.completed"

// ErrBadSignature is returned when webhook signature verification fails.
// Callers must fail closed: reject the delivery and change no state.
var ErrBadSignature = errors.New("webhook signature verification failed")

// Event is a parsed webhook delivery.
type Event struct {
	ID            string
	Type          string
	SessionID     string
	PaymentStatus SessionStatus
	ChargeID      string
	Metadata      map[string]string
}

// OrderID returns the correlation token embedded at session creation.
func (e *Event) OrderID() string { return e.Metadata[MetaOrderID] }

// Paid reports whether the event says the session was paid.
func (e *Event) Paid() bool { return e.PaymentStatus == SessionPaid }

// VerifySignature checks the signature header against the shared secret.
// The timestamp must be within tolerance of now.
func VerifySignature(payload []byte, header string, secret []byte, now time.Time, tolerance time.Duration) error {
	var ts, sig string
	for part := range strings.SplitSeq(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return ErrBadSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	drift := now.Sub(time.Unix(unix, 0))
	if drift < -tolerance || drift > tolerance {
		return ErrBadSignature
	}

	want, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal(want, signPayload(payload, secret, unix)) {
		return ErrBadSignature
	}
	return nil
}

// Sign produces a signature header value for the payload, as the gateway
// would. Used by tests and local tooling.
func Sign(payload []byte, secret []byte, at time.Time) string {
	unix := at.Unix()
	mac := signPayload(payload, secret, unix)
	return "t=" + strconv.FormatInt(unix, 10) + ",v1=" + hex.EncodeToString(mac)
}

func signPayload(payload []byte, secret []byte, unix int64) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(unix, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// ParseEvent decodes a webhook payload of the shape
// {"id","type","data":{"object":{...session...}}}.
func ParseEvent(payload []byte) (*Event, error) {
	ev := &Event{Metadata: map[string]string{}}
	d := jx.DecodeBytes(payload)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return strInto(d, &ev.ID)
		case "type":
			return strInto(d, &ev.Type)
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "object" {
					return d.Skip()
				}
				return d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "id":
						return strInto(d, &ev.SessionID)
					case "payment_status":
						v, err := d.Str()
						ev.PaymentStatus = SessionStatus(v)
						return err
					case "charge":
						return strInto(d, &ev.ChargeID)
					case "metadata":
						return d.Obj(func(d *jx.Decoder, k string) error {
							v, err := d.Str()
							ev.Metadata[k] = v
							return err
						})
					default:
						return d.Skip()
					}
				})
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode webhook payload")
	}
	return ev, nil
}
