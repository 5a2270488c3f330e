package manager

import (
	"fmt"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/influxdata/line-protocol/v2/lineprotocol"

	nats "github.com/neuron-io/broker/pkg/nats"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// Mirror is the optional cross-process telemetry extension point: the
// bus itself is in-process only (spec §1 non-goal: "cross-host
// distribution"), but a deployment may still want an external consumer
// (a dashboard, a second broker instance) to observe the same TRANS_DATA
// stream. Mirror encodes each fanned-out envelope as line protocol and
// publishes it over NATS; it never participates in delivery guarantees
// or refcounting — a lost mirror publish is not a lost telemetry sample
// for any subscribing app.
type Mirror struct {
	client  *nats.Client
	subject string
}

// NewMirror wraps an already-connected NATS client. Pass nil to build a
// Mirror that silently no-ops (useful when NATS is configured but not
// yet connected at manager construction time).
func NewMirror(client *nats.Client, subject string) *Mirror {
	if subject == "" {
		subject = "neuron.telemetry"
	}
	return &Mirror{client: client, subject: subject}
}

// Mirror publishes one TRANS_DATA envelope's tag values as a line
// protocol batch, tagged by driver/group/receiver. Encoding or publish
// failures are logged and otherwise ignored — this is best-effort
// observability, not a delivery path.
func (mr *Mirror) Mirror(e *envelope.Envelope) {
	if mr == nil || mr.client == nil {
		return
	}
	td, ok := e.Body.(envelope.TransDataBody)
	if !ok {
		return
	}
	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Microsecond)
	for _, tv := range td.Tags {
		enc.StartLine("tag_value")
		enc.AddTag("driver", td.Driver)
		enc.AddTag("group", td.Group)
		enc.AddTag("app", e.Receiver)
		enc.AddTag("tag", tv.Tag)
		fv, err := fieldValue(tv)
		if err != nil {
			cclog.Warnf("[MIRROR]> %s/%s/%s: %v", td.Driver, td.Group, tv.Tag, err)
			continue
		}
		enc.AddField("value", fv)
		ts := tv.Timestamp
		if ts == 0 {
			ts = time.Now().UnixMicro()
		}
		enc.EndLine(time.UnixMicro(ts))
	}
	if err := enc.Err(); err != nil {
		cclog.Warnf("[MIRROR]> encode failed: %v", err)
		return
	}
	if err := mr.client.Publish(mr.subject, enc.Bytes()); err != nil {
		cclog.Warnf("[MIRROR]> publish failed: %v", err)
	}
}

// fieldValue converts a tag value into the numeric/string shape line
// protocol can carry. Arrays, custom-JSON and error-typed values have no
// natural scalar field encoding and are skipped (not a wire error — the
// mirror is lossy by design).
func fieldValue(tv schema.TagValue) (lineprotocol.Value, error) {
	switch v := tv.Value.(type) {
	case float64:
		return lineprotocol.FloatValue(v), nil
	case float32:
		return lineprotocol.FloatValue(float64(v)), nil
	case int64:
		return lineprotocol.IntValue(v), nil
	case int:
		return lineprotocol.IntValue(int64(v)), nil
	case uint64:
		return lineprotocol.UintValue(v), nil
	case bool:
		return lineprotocol.BoolValue(v), nil
	case string:
		return lineprotocol.StringValue(v), nil
	default:
		return lineprotocol.Value{}, fmt.Errorf("unsupported value type %T for line protocol", v)
	}
}

// Close releases the underlying NATS client.
func (mr *Mirror) Close() {
	if mr == nil || mr.client == nil {
		return
	}
	mr.client.Close()
}
