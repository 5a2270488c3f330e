package envelope

import (
	"sync"
	"sync/atomic"

	"github.com/neuron-io/broker/internal/schema"
)

// Envelope is the fixed header + variable body exchanged between nodes.
// Context is an opaque correlation id (the design note's stand-in for the
// OpenTelemetry trace context that flows through the source's context
// pointer field); Trace is likewise opaque and passed through untouched.
type Envelope struct {
	Type     Type
	Context  any
	Sender   string
	Receiver string
	Trace    string
	Body     any
}

// Exchange returns a response envelope with sender/receiver swapped so a
// plugin can reply without restating its own name. Context and Trace pass
// through untouched, as the transport never interprets them.
func Exchange(req *Envelope, respType Type, body any) *Envelope {
	return &Envelope{
		Type:     respType,
		Context:  req.Context,
		Sender:   req.Receiver,
		Receiver: req.Sender,
		Trace:    req.Trace,
		Body:     body,
	}
}

// NewError builds an ERROR response envelope for req.
func NewError(req *Envelope, code string) *Envelope {
	return Exchange(req, TypeError, ErrorBody{Code: code})
}

// Refcount is a single-producer multi-consumer refcounted payload for
// TRANS_DATA fan-out: it starts at the subscriber count and the last
// decrementer is responsible for releasing the shared payload. This
// replaces the source's raw heap-pointer-over-socket trick with a Go
// reference count that the mailbox/driver path manages explicitly.
type Refcount struct {
	n        int64
	onZero   func()
	zeroOnce sync.Once
}

// NewRefcount creates a refcount starting at n, invoking onZero exactly
// once when the count reaches zero.
func NewRefcount(n int, onZero func()) *Refcount {
	return &Refcount{n: int64(n), onZero: onZero}
}

// Decrement releases one reference. If this was the last reference,
// onZero fires exactly once.
func (r *Refcount) Decrement() {
	if atomic.AddInt64(&r.n, -1) <= 0 {
		r.zeroOnce.Do(func() {
			if r.onZero != nil {
				r.onZero()
			}
		})
	}
}

// NewTransData builds a TRANS_DATA envelope carrying a shared refcount
// equal to the number of subscribing apps.
func NewTransData(driver, group string, tags []schema.TagValue, subscriberCount int, onZero func()) *Envelope {
	body := TransDataBody{
		Driver:   driver,
		Group:    group,
		Tags:     tags,
		refcount: NewRefcount(subscriberCount, onZero),
	}
	return &Envelope{
		Type: TypeTransData,
		Body: body,
	}
}

// Refcount exposes the body's shared refcount so a consumer can
// decrement it after processing (or after a mailbox drop).
func (b TransDataBody) Refcount() *Refcount { return b.refcount }

// NewTransDataBodyShared builds a TRANS_DATA body for one subscriber in
// a fan-out broadcast, sharing rc (seeded at the subscriber count) across
// every copy so the "last decrementer frees the payload" invariant holds
// regardless of which subscriber's mailbox happens to drain last.
func NewTransDataBodyShared(driver, group string, tags []schema.TagValue, rc *Refcount) TransDataBody {
	return TransDataBody{Driver: driver, Group: group, Tags: tags, refcount: rc}
}
