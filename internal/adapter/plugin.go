package adapter

import (
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// CachePolicy selects how a driver plugin's tag cache behaves between
// polls.
type CachePolicy int

const (
	// CacheInterval refreshes the cached value on every poll tick.
	CacheInterval CachePolicy = iota
	// CacheNever disables caching: every read passes through to the plugin.
	CacheNever
)

// Plugin is the capability surface every node's backing implementation
// provides. mockdriver/mockapp are the in-tree reference implementations;
// a real protocol driver or app integration satisfies the same interface.
type Plugin interface {
	// Open is called once, before Init, to acquire any handles the plugin
	// needs regardless of whether a setting is ever applied.
	Open() error
	// Init is called once during adapter construction with an empty
	// string; a persisted setting arrives later through Setting. Returning
	// an error aborts the adapter's construction.
	Init(setting string) error
	// Uninit releases everything Open/Init acquired. Called once, on
	// node destruction from STOPPED.
	Uninit()

	// Setting validates and applies a new setting blob. Returning nil
	// transitions INIT → READY on first acceptance.
	Setting(setting string) error
	// Start begins active operation (device polling, app dispatch).
	Start() error
	// Stop halts active operation without releasing Open/Init resources.
	Stop() error

	// Request services a generic control envelope the dispatch switch
	// did not fully handle itself (plugin-specific DRIVER_ACTION, etc).
	Request(req *envelope.Envelope) *envelope.Envelope
}

// DriverPlugin is the extended capability surface a DRIVER node's plugin
// additionally provides: reading/writing/scanning device tags.
type DriverPlugin interface {
	Plugin

	// ReadGroup reads every tag in tags from the device, returning values
	// in the same order.
	ReadGroup(driver, group string, tags []*schema.Tag) ([]schema.TagValue, error)
	// WriteGroup writes the given tag/value pairs; the returned error is
	// the only completion report.
	WriteGroup(driver, group string, values []envelope.TagValuePair) error
	// TestRead performs a one-shot bypass-cache read of a single tag.
	TestRead(driver, group string, tag schema.Tag) (schema.TagValue, error)
	// ScanTags discovers the tags currently exposed by the device for a
	// group, bypassing the cache.
	ScanTags(driver, group string) ([]schema.Tag, error)
	// CachePolicy reports this plugin's tag cache policy.
	CachePolicy() CachePolicy
}

// AppPlugin is the extended capability surface an APP node's plugin
// additionally provides: consuming delivered telemetry.
type AppPlugin interface {
	Plugin
}
