package adapter

import (
	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/envelope"
)

// handleTelemetry is the APP-only trans_data reactor handler: a closed
// switch over exactly TRANS_DATA and ERROR. TRANS_DATA is pushed to the
// mailbox (and its refcount decremented regardless of accept/drop);
// ERROR is dispatched inline since it may require a prompt reaction.
// Anything else is logged and dropped via the default arm.
func (a *Adapter) handleTelemetry(e *envelope.Envelope) {
	switch e.Type {
	case envelope.TypeTransData:
		accepted := a.mailbox.Push(e)
		if !accepted {
			a.metrics.Update("msgs_dropped", nowMS(), 1)
		}
		if td, ok := e.Body.(envelope.TransDataBody); ok && td.Refcount() != nil {
			td.Refcount().Decrement()
		}
	case envelope.TypeError:
		a.Dispatch(e)
	default:
		cclog.Warnf("[ADAPTER]> %s: unexpected telemetry-socket type %s, dropping", a.name, e.Type)
	}
}

// runConsumer is the APP node's consumer goroutine: pop → plugin.request
// → free envelope. It never returns voluntarily; Close unblocks it by
// calling mailbox.Free, which closes the mailbox so Pop returns ok=false.
func (a *Adapter) runConsumer() {
	defer close(a.consumeDone)
	for {
		e, ok := a.mailbox.Pop()
		if !ok {
			return
		}
		resp := a.plugin.Request(e)
		if resp != nil && a.sender != nil {
			a.sender.Route(resp)
		}
	}
}
