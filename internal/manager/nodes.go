package manager

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/driver"
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// Dispatch services the node/plugin directory operations that have no
// owning node to route to: ADD_NODE, DEL_NODE, UPDATE_NODE, GET_NODE,
// GET_NODES_STATE and the plugin-registry CRUD. Every other control-plane
// type is a per-node concern and reaches a node's own Dispatch via Route.
func (m *Manager) Dispatch(e *envelope.Envelope) *envelope.Envelope {
	switch e.Type {
	case envelope.TypeAddNode:
		return m.dispatchAddNode(e)
	case envelope.TypeDelNode:
		return m.dispatchDelNode(e)
	case envelope.TypeUpdateNode:
		return m.dispatchUpdateNode(e)
	case envelope.TypeGetNode:
		return m.dispatchGetNode(e)
	case envelope.TypeGetNodesState:
		return m.dispatchGetNodesState(e)
	case envelope.TypeNodeRename:
		return m.dispatchNodeRename(e)
	case envelope.TypeAddPlugin:
		return m.dispatchAddPlugin(e)
	case envelope.TypeDelPlugin:
		return m.dispatchDelPlugin(e)
	case envelope.TypeUpdatePlugin:
		return m.dispatchUpdatePlugin(e)
	case envelope.TypeGetPlugin:
		return m.dispatchGetPlugin(e)
	default:
		cclog.Warnf("[MANAGER]> unexpected directory-level type %s, dropping", e.Type)
		return envelope.NewError(e, "UNKNOWN_MESSAGE_TYPE")
	}
}

func (m *Manager) dispatchAddNode(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.AddNodeRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	if err := m.AddNode(req.Name, req.Kind, req.PluginName, req.Setting); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (m *Manager) dispatchDelNode(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.DelNodeRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	if err := m.DelNode(req.Name); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (m *Manager) dispatchUpdateNode(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.UpdateNodeRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ent, ok := m.lookup(req.Name)
	if !ok {
		return envelope.NewError(e, "NODE_NOT_FOUND")
	}
	if err := ent.adapter.ApplySetting(req.Setting); err != nil {
		return envelope.NewError(e, err.Error())
	}
	if err := m.store.UpsertNodeSetting(bgCtx, req.Name, req.Setting); err != nil {
		cclog.Warnf("[MANAGER]> %s: persist setting: %v", req.Name, err)
	}
	return envelope.Exchange(e, e.Type, req)
}

func (m *Manager) dispatchNodeRename(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.NodeRenameRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	if err := m.RenameNode(req.OldName, req.NewName); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (m *Manager) dispatchGetNode(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.GetNodeRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ent, ok := m.lookup(req.Name)
	if !ok {
		return envelope.NewError(e, "NODE_NOT_FOUND")
	}
	return envelope.Exchange(e, e.Type, envelope.GetNodeResponse{
		Name: req.Name, Kind: ent.kind, State: ent.adapter.State(), Link: ent.adapter.Link(),
	})
}

func (m *Manager) dispatchGetNodesState(e *envelope.Envelope) *envelope.Envelope {
	m.mu.RLock()
	states := make(map[string]envelope.GetNodeStateResponse, len(m.nodes))
	for name, ent := range m.nodes {
		states[name] = envelope.GetNodeStateResponse{State: ent.adapter.State(), Link: ent.adapter.Link()}
	}
	m.mu.RUnlock()
	return envelope.Exchange(e, e.Type, envelope.GetNodesStateResponse{States: states})
}

// AddNode constructs an adapter (and, for DRIVER kind, its Driver
// extension), restores any persisted setting/groups/tags/subscriptions,
// and registers it in the directory. The persisted setting, or setting
// when none is persisted, is applied (READY) and the node is
// auto-started; setting is ignored when a persisted one exists, mirroring
// the source's "settings-apply can auto-start" lifecycle note.
func (m *Manager) AddNode(name string, kind schema.NodeKind, pluginName, setting string) error {
	if _, exists := m.lookup(name); exists {
		return fmt.Errorf("NODE_ALREADY_EXISTS")
	}
	m.pluginMu.RLock()
	factory, ok := m.factory[pluginName]
	m.pluginMu.RUnlock()
	if !ok {
		return fmt.Errorf("PLUGIN_NOT_FOUND")
	}
	plug, err := factory()
	if err != nil {
		return fmt.Errorf("plugin construction: %w", err)
	}

	port, err := m.allocPort()
	if err != nil {
		return err
	}

	a, err := adapter.New(adapter.Config{
		Name: name, Kind: kind, Plugin: plug, Reactor: m.reactor, Registry: m.registry, Sender: m,
	})
	if err != nil {
		m.freePort(port)
		return err
	}

	var drv *driver.Driver
	if kind == schema.KindDriver {
		dp, ok := plug.(adapter.DriverPlugin)
		if !ok {
			m.freePort(port)
			return fmt.Errorf("PLUGIN_NOT_DRIVER_CAPABLE")
		}
		drv = driver.New(driver.Config{
			Name: name, Plugin: dp, Metrics: a.Metrics(), Reactor: m.reactor, Router: m,
		})
		a.SetDriverExt(drv)
		m.restoreGroupsAndTags(name, drv)
	}

	m.mu.Lock()
	m.nodes[name] = &nodeEntry{adapter: a, driver: drv, kind: kind, port: port}
	m.mu.Unlock()

	persisted, _ := m.store.GetNodeSetting(bgCtx, name)
	if persisted == "" && setting != "" {
		persisted = setting
	}
	if persisted != "" {
		if err := a.ApplySetting(persisted); err != nil {
			cclog.Warnf("[MANAGER]> %s: setting rejected on restore: %v", name, err)
		} else {
			if err := m.store.UpsertNodeSetting(bgCtx, name, persisted); err != nil {
				cclog.Warnf("[MANAGER]> %s: persist setting: %v", name, err)
			}
			if err := a.Start(); err != nil {
				cclog.Warnf("[MANAGER]> %s: auto-start after setting: %v", name, err)
			}
		}
	}
	return nil
}

// DelNode stops and tears down a node, notifies every other node of its
// departure (DRIVER nodes drop any subscription the departed node held;
// APP nodes ignore the notice), and deletes its persisted configuration.
func (m *Manager) DelNode(name string) error {
	if err := m.teardownNode(name); err != nil {
		return err
	}
	m.broadcastNodeDeleted(name)
	if err := m.store.DeleteNode(bgCtx, name); err != nil {
		cclog.Warnf("[MANAGER]> %s: delete persisted state: %v", name, err)
	}
	return nil
}

// RenameNode renames oldName to newName in the directory: the adapter's
// own Rename (which pauses/resumes group polling, migrates metrics
// registration and, for DRIVER nodes, updates the driver's own name)
// runs first so no poll or metrics lookup ever observes a node that
// exists under its new directory key but still answers to its old name
// internally.
func (m *Manager) RenameNode(oldName, newName string) error {
	if err := schema.ValidateNodeName(newName); err != nil {
		return err
	}
	m.mu.Lock()
	ent, ok := m.nodes[oldName]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("NODE_NOT_FOUND")
	}
	if _, clash := m.nodes[newName]; clash {
		m.mu.Unlock()
		return fmt.Errorf("NODE_ALREADY_EXISTS")
	}
	m.mu.Unlock()

	if err := ent.adapter.Rename(newName); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.nodes, oldName)
	m.nodes[newName] = ent
	m.mu.Unlock()
	return nil
}

func (m *Manager) broadcastNodeDeleted(name string) {
	m.mu.RLock()
	targets := make([]*adapter.Adapter, 0, len(m.nodes))
	for _, ent := range m.nodes {
		targets = append(targets, ent.adapter)
	}
	m.mu.RUnlock()
	for _, a := range targets {
		a.Deliver(&envelope.Envelope{
			Type: envelope.TypeNodeDeleted, Receiver: a.Name(),
			Body: envelope.NodeDeletedNotice{Name: name},
		})
	}
}

func (m *Manager) restoreGroupsAndTags(name string, drv *driver.Driver) {
	groups, err := m.store.ListGroups(bgCtx, name)
	if err != nil {
		cclog.Warnf("[MANAGER]> %s: restore groups: %v", name, err)
		return
	}
	for _, g := range groups {
		if err := drv.AddGroup(g.Name, g.IntervalMS, g.Context); err != nil {
			cclog.Warnf("[MANAGER]> %s/%s: restore group: %v", name, g.Name, err)
			continue
		}
		tags, err := m.store.ListTags(bgCtx, name, g.Name)
		if err != nil {
			cclog.Warnf("[MANAGER]> %s/%s: restore tags: %v", name, g.Name, err)
			continue
		}
		for _, tr := range tags {
			t := tagFromRecord(tr)
			if err := drv.AddTag(g.Name, t); err != nil {
				cclog.Warnf("[MANAGER]> %s/%s/%s: restore tag: %v", name, g.Name, t.Name, err)
			}
		}
		subs, err := m.store.ListSubscriptions(bgCtx, name, g.Name)
		if err != nil {
			cclog.Warnf("[MANAGER]> %s/%s: restore subscriptions: %v", name, g.Name, err)
			continue
		}
		for _, sr := range subs {
			sub := schema.Subscription{App: sr.App, Driver: sr.Driver, Group: sr.Group, Params: sr.Params, StaticTags: sr.StaticTags}
			if err := drv.Subscribe(sub); err != nil {
				cclog.Warnf("[MANAGER]> %s/%s: restore subscription for %s: %v", name, g.Name, sr.App, err)
			}
		}
	}
}

func tagToRecord(driverName, group string, t *schema.Tag) schema.TagRecord {
	tr := schema.TagRecord{
		Driver: driverName, Group: group, Name: t.Name, Address: t.Address,
		Type: int(t.Type), Attrs: int(t.Attrs), Precision: t.Precision,
		Decimal: t.Decimal, Bias: t.Bias, Description: t.Description,
	}
	if len(t.Meta) > 0 {
		if b, err := json.Marshal(t.Meta); err == nil {
			tr.MetaJSON = string(b)
		}
	}
	if len(t.Format) > 0 {
		tr.FormatB64 = base64.StdEncoding.EncodeToString(t.Format)
	}
	return tr
}

func tagFromRecord(tr schema.TagRecord) *schema.Tag {
	t := &schema.Tag{
		Driver: tr.Driver, Group: tr.Group, Name: tr.Name, Address: tr.Address,
		Type: schema.TagType(tr.Type), Attrs: schema.TagAttr(tr.Attrs),
		Precision: tr.Precision, Decimal: tr.Decimal, Bias: tr.Bias,
		Description: tr.Description,
	}
	if tr.MetaJSON != "" {
		_ = json.Unmarshal([]byte(tr.MetaJSON), &t.Meta)
	}
	if tr.FormatB64 != "" {
		if b, err := base64.StdEncoding.DecodeString(tr.FormatB64); err == nil {
			t.Format = b
		}
	}
	return t
}
