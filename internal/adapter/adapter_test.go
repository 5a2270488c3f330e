package adapter_test

import (
	"testing"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/metrics"
	"github.com/neuron-io/broker/internal/plugin/mockapp"
	"github.com/neuron-io/broker/internal/reactor"
	"github.com/neuron-io/broker/internal/schema"
)

type noopSender struct{}

func (noopSender) Route(*envelope.Envelope) {}

func newTestAppAdapter(t *testing.T) (*adapter.Adapter, *reactor.Reactor) {
	t.Helper()
	r := reactor.New()
	reg := metrics.NewRegistry()
	a, err := adapter.New(adapter.Config{
		Name: "app1", Kind: schema.KindApp, Plugin: mockapp.New(16),
		Reactor: r, Registry: reg, Sender: noopSender{},
	})
	if err != nil {
		t.Fatalf("adapter.New: %v", err)
	}
	return a, r
}

func TestLifecycleHappyPath(t *testing.T) {
	a, r := newTestAppAdapter(t)
	defer r.Close()

	if a.State() != schema.StateInit {
		t.Fatalf("expected INIT on construction, got %s", a.State())
	}
	if err := a.ApplySetting("cfg"); err != nil {
		t.Fatalf("ApplySetting: %v", err)
	}
	if a.State() != schema.StateReady {
		t.Fatalf("expected READY after ApplySetting, got %s", a.State())
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if a.State() != schema.StateRunning {
		t.Fatalf("expected RUNNING after Start, got %s", a.State())
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if a.State() != schema.StateStopped {
		t.Fatalf("expected STOPPED after Stop, got %s", a.State())
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestStartRejectedWhenNotReady(t *testing.T) {
	a, r := newTestAppAdapter(t)
	defer r.Close()
	defer func() {
		_ = a.Close()
	}()

	if err := a.Start(); err != adapter.ErrNodeNotReady {
		t.Fatalf("expected ErrNodeNotReady starting from INIT, got %v", err)
	}
}

func TestStartRejectedWhenAlreadyRunning(t *testing.T) {
	a, r := newTestAppAdapter(t)
	defer r.Close()

	if err := a.ApplySetting("cfg"); err != nil {
		t.Fatalf("ApplySetting: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Start(); err != adapter.ErrNodeIsRunning {
		t.Fatalf("expected ErrNodeIsRunning, got %v", err)
	}
	_ = a.Stop()
	_ = a.Close()
}

func TestStopRejectedWhenNotRunning(t *testing.T) {
	a, r := newTestAppAdapter(t)
	defer r.Close()
	defer func() { _ = a.Close() }()

	if err := a.Stop(); err != adapter.ErrNodeNotRunning {
		t.Fatalf("expected ErrNodeNotRunning from INIT, got %v", err)
	}
}

func TestStopRejectedWhenAlreadyStopped(t *testing.T) {
	a, r := newTestAppAdapter(t)
	defer r.Close()

	if err := a.ApplySetting("cfg"); err != nil {
		t.Fatalf("ApplySetting: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := a.Stop(); err != adapter.ErrNodeIsStopped {
		t.Fatalf("expected ErrNodeIsStopped, got %v", err)
	}
	_ = a.Close()
}

func TestStoppedCanRestart(t *testing.T) {
	a, r := newTestAppAdapter(t)
	defer r.Close()

	if err := a.ApplySetting("cfg"); err != nil {
		t.Fatalf("ApplySetting: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("expected STOPPED -> RUNNING restart to succeed: %v", err)
	}
	_ = a.Stop()
	_ = a.Close()
}

func TestApplySettingRoundTrip(t *testing.T) {
	a, r := newTestAppAdapter(t)
	defer r.Close()
	defer func() { _ = a.Close() }()

	if got := a.CurrentSetting(); got != "" {
		t.Fatalf("expected empty setting before ApplySetting, got %q", got)
	}
	if err := a.ApplySetting("some-config"); err != nil {
		t.Fatalf("ApplySetting: %v", err)
	}
	if got := a.CurrentSetting(); got != "some-config" {
		t.Fatalf("expected GetSetting to return what was set, got %q", got)
	}
}

func TestDriverKindGetsDriverOnlyRequestRejectedForApp(t *testing.T) {
	a, r := newTestAppAdapter(t)
	defer r.Close()
	defer func() { _ = a.Close() }()

	req := &envelope.Envelope{Type: envelope.TypeReadGroup, Sender: "x", Receiver: "app1", Body: envelope.ReadGroupRequest{}}
	resp := a.Dispatch(req)
	if resp == nil || resp.Type != envelope.TypeError {
		t.Fatalf("expected ERROR response for driver-only request on APP node, got %#v", resp)
	}
	body, ok := resp.Body.(envelope.ErrorBody)
	if !ok || body.Code != "GROUP_NOT_ALLOW" {
		t.Fatalf("expected GROUP_NOT_ALLOW, got %#v", resp.Body)
	}
}
