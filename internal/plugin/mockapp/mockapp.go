// Package mockapp is the in-tree reference AppPlugin: a channel-sink
// consumer standing in for a real telemetry-consuming integration (MQTT
// publisher, database writer, ...) named out of scope. Every delivered
// TRANS_DATA envelope's body is pushed onto a buffered channel so a test
// can assert delivery order, count and payload content end to end.
package mockapp

import (
	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/envelope"
)

var _ adapter.AppPlugin = (*App)(nil)

// App is the mock telemetry sink.
type App struct {
	Received chan envelope.TransDataBody

	setting string
}

// New constructs a mock app with a buffered receive channel of the
// given capacity. A capacity of 0 makes sends block until a test reads,
// which is fine for synchronous scenario tests but will stall Close if
// nothing ever drains it — callers running free-running scenarios
// should size this to the expected burst.
func New(capacity int) *App {
	return &App{Received: make(chan envelope.TransDataBody, capacity)}
}

func (a *App) Open() error { return nil }

func (a *App) Init(setting string) error {
	a.setting = setting
	return nil
}

func (a *App) Uninit() {
	close(a.Received)
}

func (a *App) Setting(setting string) error {
	a.setting = setting
	return nil
}

func (a *App) Start() error { return nil }

func (a *App) Stop() error { return nil }

// Request handles delivered telemetry (TRANS_DATA, pushed from this
// node's mailbox by the adapter's consumer goroutine) and any inline
// ERROR notices. Anything else is rejected: an AppPlugin has no
// driver-side capability to service.
func (a *App) Request(req *envelope.Envelope) *envelope.Envelope {
	switch req.Type {
	case envelope.TypeTransData:
		if td, ok := req.Body.(envelope.TransDataBody); ok {
			a.Received <- td
		}
		return nil
	case envelope.TypeError:
		return nil
	default:
		return envelope.NewError(req, "UNSUPPORTED_REQUEST")
	}
}
