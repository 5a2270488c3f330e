// Package mailbox implements the bounded FIFO between the reactor
// goroutine (producer) and a node's consumer goroutine, used only for
// APP nodes' bulk telemetry path. Control-plane messages bypass the
// mailbox entirely and run synchronously on the reactor.
package mailbox

import (
	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// Mailbox is a fixed-capacity (schema.MailboxCapacity) FIFO. Overflow
// policy is drop-newest: when full, Push fails and logs a warning rather
// than blocking the reactor goroutine.
type Mailbox struct {
	node string
	ch   chan *envelope.Envelope
}

// New constructs a mailbox for the named node.
func New(node string) *Mailbox {
	return &Mailbox{
		node: node,
		ch:   make(chan *envelope.Envelope, schema.MailboxCapacity),
	}
}

// Push attempts a non-blocking enqueue. Returns false if the mailbox is
// full; the caller must then free the envelope and decrement its
// payload refcount — Push never does this itself so the caller can
// account for drops uniformly regardless of fan-out width.
func (m *Mailbox) Push(e *envelope.Envelope) bool {
	select {
	case m.ch <- e:
		return true
	default:
		cclog.Warnf("[MAILBOX]> %s: full, dropping newest %s envelope", m.node, e.Type)
		return false
	}
}

// Pop blocks until an envelope is available or the mailbox is closed by
// Free, in which case ok is false.
func (m *Mailbox) Pop() (*envelope.Envelope, bool) {
	e, ok := <-m.ch
	return e, ok
}

// Free drains and discards any remaining messages and closes the
// channel, unblocking a consumer parked in Pop. Invoked during node
// teardown.
func (m *Mailbox) Free(onDrop func(*envelope.Envelope)) {
	close(m.ch)
	for e := range m.ch {
		if onDrop != nil {
			onDrop(e)
		}
	}
}

// Len reports the number of envelopes currently queued (best-effort,
// useful for tests and metrics, not for control flow).
func (m *Mailbox) Len() int { return len(m.ch) }
