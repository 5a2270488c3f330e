// Package snapshot writes point-in-time Avro-encoded config snapshots —
// the full set of groups, tags and subscriptions for a driver — for
// operator backup/restore, reusing the same checkpoint-style Avro
// encoding a metric store would use for periodic sample checkpoints,
// applied here to configuration rather than telemetry.
package snapshot

import (
	"fmt"

	"github.com/linkedin/goavro/v2"

	"github.com/neuron-io/broker/internal/schema"
)

const configSchema = `{
	"type": "record",
	"name": "DriverConfigSnapshot",
	"fields": [
		{"name": "driver", "type": "string"},
		{"name": "groups", "type": {"type": "array", "items": {
			"type": "record", "name": "Group", "fields": [
				{"name": "name", "type": "string"},
				{"name": "interval_ms", "type": "long"},
				{"name": "context", "type": "string"}
			]
		}}},
		{"name": "tags", "type": {"type": "array", "items": {
			"type": "record", "name": "Tag", "fields": [
				{"name": "group_name", "type": "string"},
				{"name": "name", "type": "string"},
				{"name": "address", "type": "string"},
				{"name": "tag_type", "type": "int"},
				{"name": "attrs", "type": "int"},
				{"name": "precision", "type": "int"},
				{"name": "decimal", "type": "int"},
				{"name": "bias", "type": "double"},
				{"name": "description", "type": "string"},
				{"name": "meta_json", "type": "string"},
				{"name": "format_b64", "type": "string"}
			]
		}}},
		{"name": "subscriptions", "type": {"type": "array", "items": {
			"type": "record", "name": "Subscription", "fields": [
				{"name": "app", "type": "string"},
				{"name": "group_name", "type": "string"},
				{"name": "port", "type": "int"},
				{"name": "params", "type": "string"},
				{"name": "static_tags", "type": "string"}
			]
		}}}
	]
}`

// Codec wraps the compiled Avro schema used for every snapshot.
type Codec struct {
	codec *goavro.Codec
}

// NewCodec compiles the config snapshot schema once for reuse.
func NewCodec() (*Codec, error) {
	c, err := goavro.NewCodec(configSchema)
	if err != nil {
		return nil, fmt.Errorf("compile avro schema: %w", err)
	}
	return &Codec{codec: c}, nil
}

// Encode serializes a driver's full configuration to Avro binary.
func (c *Codec) Encode(driver string, groups []schema.GroupRecord, tags []schema.TagRecord, subs []schema.SubscriptionRecord) ([]byte, error) {
	nativeGroups := make([]any, len(groups))
	for i, g := range groups {
		nativeGroups[i] = map[string]any{
			"name": g.Name, "interval_ms": g.IntervalMS, "context": g.Context,
		}
	}
	nativeTags := make([]any, len(tags))
	for i, t := range tags {
		nativeTags[i] = map[string]any{
			"group_name": t.Group, "name": t.Name, "address": t.Address,
			"tag_type": int32(t.Type), "attrs": int32(t.Attrs),
			"precision": int32(t.Precision), "decimal": int32(t.Decimal),
			"bias": t.Bias, "description": t.Description,
			"meta_json": t.MetaJSON, "format_b64": t.FormatB64,
		}
	}
	nativeSubs := make([]any, len(subs))
	for i, s := range subs {
		nativeSubs[i] = map[string]any{
			"app": s.App, "group_name": s.Group, "port": int32(s.Port),
			"params": s.Params, "static_tags": s.StaticTags,
		}
	}

	native := map[string]any{
		"driver": driver, "groups": nativeGroups, "tags": nativeTags, "subscriptions": nativeSubs,
	}
	return c.codec.BinaryFromNative(nil, native)
}

// DecodedSnapshot is the parsed form of an Avro-encoded config snapshot.
type DecodedSnapshot struct {
	Driver        string
	Groups        []schema.GroupRecord
	Tags          []schema.TagRecord
	Subscriptions []schema.SubscriptionRecord
}

// Decode parses a snapshot previously produced by Encode.
func (c *Codec) Decode(data []byte) (*DecodedSnapshot, error) {
	native, _, err := c.codec.NativeFromBinary(data)
	if err != nil {
		return nil, fmt.Errorf("decode avro snapshot: %w", err)
	}
	rec, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected avro native shape")
	}

	out := &DecodedSnapshot{Driver: rec["driver"].(string)}
	for _, g := range rec["groups"].([]any) {
		gm := g.(map[string]any)
		out.Groups = append(out.Groups, schema.GroupRecord{
			Driver: out.Driver, Name: gm["name"].(string),
			IntervalMS: gm["interval_ms"].(int64), Context: gm["context"].(string),
		})
	}
	for _, t := range rec["tags"].([]any) {
		tm := t.(map[string]any)
		out.Tags = append(out.Tags, schema.TagRecord{
			Driver: out.Driver, Group: tm["group_name"].(string), Name: tm["name"].(string),
			Address: tm["address"].(string), Type: int(tm["tag_type"].(int32)),
			Attrs: int(tm["attrs"].(int32)), Precision: int(tm["precision"].(int32)),
			Decimal: int(tm["decimal"].(int32)), Bias: tm["bias"].(float64),
			Description: tm["description"].(string), MetaJSON: tm["meta_json"].(string),
			FormatB64: tm["format_b64"].(string),
		})
	}
	for _, s := range rec["subscriptions"].([]any) {
		sm := s.(map[string]any)
		out.Subscriptions = append(out.Subscriptions, schema.SubscriptionRecord{
			App: sm["app"].(string), Driver: out.Driver, Group: sm["group_name"].(string),
			Port: int(sm["port"].(int32)), Params: sm["params"].(string),
			StaticTags: sm["static_tags"].(string),
		})
	}
	return out, nil
}
