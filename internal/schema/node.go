package schema

import "fmt"

// NodeKind distinguishes a south-bound driver from a north-bound app.
type NodeKind int

const (
	KindDriver NodeKind = iota
	KindApp
)

// RunState is the adapter lifecycle state machine of the node runtime.
type RunState int

const (
	StateInit RunState = iota
	StateReady
	StateRunning
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// LinkState reflects whether the node's underlying device/transport link
// is connected.
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkConnected
)

// ValidateNodeName enforces the node-name length limit.
func ValidateNodeName(name string) error {
	if len(name) == 0 || len(name) > MaxNodeNameLen {
		return fmt.Errorf("NODE_NAME_TOO_LONG")
	}
	return nil
}

// PluginKind is the provenance of a plugin module.
type PluginKind int

const (
	PluginStatic PluginKind = iota
	PluginSystem
	PluginCustom
)

// PluginType distinguishes driver plugins from app plugins.
type PluginType int

const (
	PluginTypeDriver PluginType = iota
	PluginTypeApp
)

// PluginDescriptor describes a loadable plugin module.
type PluginDescriptor struct {
	LibraryPath      string
	SchemaName       string
	Kind             PluginKind
	Type             PluginType
	Version          string
	SingleInstance   bool
	Display          bool
	SingletonNode    string // optional
	ShortDescription string
	LongDescription  string
}

// Validate checks the plugin descriptor's name-length constraints.
func (p *PluginDescriptor) Validate() error {
	if len(p.SchemaName) == 0 || len(p.SchemaName) > MaxPluginNameLen {
		return fmt.Errorf("PLUGIN_NAME_TOO_LONG")
	}
	if len(p.LibraryPath) > MaxLibraryNameLen {
		return fmt.Errorf("LIBRARY_NAME_TOO_LONG")
	}
	return nil
}

// Subscription is an app's declaration of interest in a driver's group.
type Subscription struct {
	App        string
	Driver     string
	Group      string
	Port       int
	Params     string // opaque JSON
	StaticTags string // opaque JSON
}

// Key returns the unique (app, driver, group) triple identifying this
// subscription.
func (s Subscription) Key() SubscriptionKey {
	return SubscriptionKey{App: s.App, Driver: s.Driver, Group: s.Group}
}

// SubscriptionKey is the unique identity of a subscription.
type SubscriptionKey struct {
	App, Driver, Group string
}
