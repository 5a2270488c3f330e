package manager

import (
	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// Route delivers a control-plane envelope to e.Receiver's control queue.
// It satisfies adapter.Sender, so every adapter can reply upstream
// without importing this package.
func (m *Manager) Route(e *envelope.Envelope) {
	m.persistRouted(e)
	ent, ok := m.lookup(e.Receiver)
	if !ok {
		cclog.Warnf("[MANAGER]> route to unknown node %q dropped (%s)", e.Receiver, e.Type)
		return
	}
	ent.adapter.Deliver(e)
}

// RouteTelemetry delivers a TRANS_DATA/ERROR envelope to e.Receiver's
// mailbox, decrementing the shared refcount if the receiver is unknown
// so a stale subscription never leaks a fan-out's payload. It satisfies
// driver.Router.
func (m *Manager) RouteTelemetry(e *envelope.Envelope) {
	ent, ok := m.lookup(e.Receiver)
	if !ok || ent.kind != schema.KindApp {
		if td, isData := e.Body.(envelope.TransDataBody); isData && td.Refcount() != nil {
			td.Refcount().Decrement()
		}
		cclog.Warnf("[MANAGER]> telemetry route to unknown app %q dropped", e.Receiver)
		return
	}
	if m.mirror != nil {
		m.mirror.Mirror(e)
	}
	ent.adapter.DeliverTelemetry(e)
}
