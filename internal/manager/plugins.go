package manager

import (
	"fmt"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// dispatchAddPlugin registers a plugin descriptor. A factory for its
// schema name must already have been wired via RegisterPluginFactory
// (the in-tree equivalent of dlopen-ing a shared library); ADD_PLUGIN
// only records the descriptor the directory reports back through
// GET_PLUGIN, it does not itself load code.
func (m *Manager) dispatchAddPlugin(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.AddPluginRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	if err := req.Descriptor.Validate(); err != nil {
		return envelope.NewError(e, err.Error())
	}
	m.pluginMu.Lock()
	defer m.pluginMu.Unlock()
	if _, exists := m.plugins[req.Descriptor.SchemaName]; exists {
		return envelope.NewError(e, "PLUGIN_ALREADY_EXISTS")
	}
	m.plugins[req.Descriptor.SchemaName] = req.Descriptor
	return envelope.Exchange(e, e.Type, req)
}

// dispatchDelPlugin removes a descriptor. STATIC plugins cannot be
// unloaded (spec §3 "STATIC instances cannot be unloaded"); their
// factory stays registered and ADD_NODE keeps working, but the
// descriptor itself is still removable so GET_PLUGIN reports it gone.
func (m *Manager) dispatchDelPlugin(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.DelPluginRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	m.pluginMu.Lock()
	defer m.pluginMu.Unlock()
	desc, ok := m.plugins[req.SchemaName]
	if !ok {
		return envelope.NewError(e, "PLUGIN_NOT_FOUND")
	}
	if desc.Kind == schema.PluginStatic {
		return envelope.NewError(e, "PLUGIN_STATIC_NOT_UNLOADABLE")
	}
	delete(m.plugins, req.SchemaName)
	return envelope.Exchange(e, e.Type, req)
}

func (m *Manager) dispatchUpdatePlugin(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.UpdatePluginRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	if err := req.Descriptor.Validate(); err != nil {
		return envelope.NewError(e, err.Error())
	}
	m.pluginMu.Lock()
	defer m.pluginMu.Unlock()
	if _, ok := m.plugins[req.Descriptor.SchemaName]; !ok {
		return envelope.NewError(e, "PLUGIN_NOT_FOUND")
	}
	m.plugins[req.Descriptor.SchemaName] = req.Descriptor
	return envelope.Exchange(e, e.Type, req)
}

func (m *Manager) dispatchGetPlugin(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.GetPluginRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	m.pluginMu.RLock()
	desc, ok := m.plugins[req.SchemaName]
	m.pluginMu.RUnlock()
	if !ok {
		return envelope.NewError(e, "PLUGIN_NOT_FOUND")
	}
	return envelope.Exchange(e, e.Type, envelope.GetPluginResponse{Descriptor: desc})
}

// directoryTypes are the envelope types the manager itself services
// because they have no owning node to route to (node/plugin CRUD,
// fleet-wide state). Every other type targets e.Receiver's own
// Dispatch.
var directoryTypes = map[envelope.Type]bool{
	envelope.TypeAddNode:       true,
	envelope.TypeDelNode:       true,
	envelope.TypeUpdateNode:    true,
	envelope.TypeGetNode:       true,
	envelope.TypeGetNodesState: true,
	envelope.TypeAddPlugin:     true,
	envelope.TypeDelPlugin:     true,
	envelope.TypeUpdatePlugin:  true,
	envelope.TypeGetPlugin:     true,
}

// Submit is the single external entry point for a control-plane request:
// directory-level types are serviced synchronously by the manager itself;
// everything else is delivered to the named receiver's own control queue,
// matching the source's "the reactor dispatches it through a large switch
// on message type" for directory ops, with per-node ops falling through
// to that node's own dispatch switch.
func (m *Manager) Submit(e *envelope.Envelope) (*envelope.Envelope, error) {
	if directoryTypes[e.Type] {
		return m.Dispatch(e), nil
	}
	ent, ok := m.lookup(e.Receiver)
	if !ok {
		return nil, fmt.Errorf("NODE_NOT_FOUND")
	}
	ent.adapter.Deliver(e)
	return nil, nil
}
