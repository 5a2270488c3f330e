package adapter

import (
	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// Dispatch is the adapter's control-plane entry point: one switch over
// the envelope taxonomy whose default arm logs any type without a case
// and replies UNKNOWN_MESSAGE_TYPE. The compiler does not check that
// every Type has a case. Per design note §9 this is kept
// as one function rather than split into request/response hierarchies.
//
// DRIVER-only request types arriving at an APP node are rejected with
// GROUP_NOT_ALLOW before the switch proper, matching §4.5.
func (a *Adapter) Dispatch(e *envelope.Envelope) *envelope.Envelope {
	a.metrics.Update("msgs_received", nowMS(), 1)

	if envelope.IsDriverOnly(e.Type) && a.kind != schema.KindDriver {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}

	switch e.Type {
	case envelope.TypeError:
		// Errors arriving on the control plane (e.g. a plugin's async
		// write_response failure) are logged; they carry no reply.
		body, _ := e.Body.(envelope.ErrorBody)
		cclog.Warnf("[ADAPTER]> %s: received ERROR %s from %s", a.name, body.Code, e.Sender)
		return nil

	case envelope.TypeReadGroup:
		return a.dispatchReadGroup(e, false)
	case envelope.TypeReadGroupPaged:
		return a.dispatchReadGroup(e, true)
	case envelope.TypeTestReadTag:
		return a.dispatchTestRead(e)

	case envelope.TypeWriteTag:
		return a.dispatchWriteTag(e)
	case envelope.TypeWriteTags:
		return a.dispatchWriteTags(e)
	case envelope.TypeWriteGTags:
		return a.dispatchWriteGTags(e)
	case envelope.TypeWriteResponse:
		// Async completion from the plugin's write_response callback;
		// forwarded upstream by the driver extension, nothing to reply.
		return nil

	case envelope.TypeSubscribeGroup:
		return a.dispatchSubscribe(e)
	case envelope.TypeUnsubscribeGroup:
		return a.dispatchUnsubscribe(e)
	case envelope.TypeUpdateSubscribeGroup:
		return a.dispatchUpdateSubscribe(e)
	case envelope.TypeSubscribeGroups:
		return a.dispatchSubscribeGroups(e)
	case envelope.TypeGetSubscribeGroup:
		return a.dispatchGetSubscribeGroup(e)
	case envelope.TypeGetSubDriverTags:
		return a.dispatchGetSubDriverTags(e)

	case envelope.TypeNodeSetting:
		return a.dispatchNodeSetting(e)
	case envelope.TypeGetNodeSetting:
		return a.dispatchGetNodeSetting(e)
	case envelope.TypeGetNodeState:
		return a.dispatchGetNodeState(e)
	case envelope.TypeNodeCtl:
		return a.dispatchNodeCtl(e)
	case envelope.TypeNodeRename:
		return a.dispatchNodeRename(e)
	case envelope.TypeNodeUninit:
		return a.dispatchNodeUninit(e)

	case envelope.TypeAddGroup:
		return a.dispatchAddGroup(e)
	case envelope.TypeDelGroup:
		return a.dispatchDelGroup(e)
	case envelope.TypeUpdateGroup:
		return a.dispatchUpdateGroup(e)
	case envelope.TypeGetGroup:
		return a.dispatchGetGroup(e)
	case envelope.TypeUpdateDriverGroup:
		return a.dispatchUpdateGroup(e)
	case envelope.TypeGetDriverGroup:
		return a.dispatchGetDriverGroup(e)

	case envelope.TypeAddTag:
		return a.dispatchAddTag(e)
	case envelope.TypeDelTag:
		return a.dispatchDelTag(e)
	case envelope.TypeUpdateTag:
		return a.dispatchUpdateTag(e)
	case envelope.TypeAddGTag:
		return a.dispatchAddGTag(e)
	case envelope.TypeGetTag:
		return a.dispatchGetTag(e)

	case envelope.TypeTransData:
		// Only reaches here if misrouted to the control plane; the
		// telemetry socket equivalent (handleTelemetry) is the normal
		// path for APP nodes. DRIVER nodes never receive TRANS_DATA.
		cclog.Warnf("[ADAPTER]> %s: TRANS_DATA on control plane, dropping", a.name)
		return nil

	case envelope.TypeNodeDeleted:
		return a.dispatchNodeDeleted(e)

	case envelope.TypeUpdateLogLevel:
		return a.dispatchUpdateLogLevel(e)
	case envelope.TypePrgFileUpload:
		return a.dispatchPrgFileUpload(e)
	case envelope.TypePrgFileProcess:
		return a.dispatchPrgFileProcess(e)
	case envelope.TypeScanTags:
		return a.dispatchScanTags(e)
	case envelope.TypeCheckSchema:
		return a.dispatchCheckSchema(e)
	case envelope.TypeDriverAction:
		return a.dispatchDriverAction(e)

	// ADD_NODE, DEL_NODE, UPDATE_NODE, GET_NODE, GET_NODES_STATE,
	// ADD_PLUGIN, DEL_PLUGIN, UPDATE_PLUGIN, GET_PLUGIN, NODE_INIT,
	// NODES_STATE are manager-directory operations; they are serviced by
	// internal/manager before an envelope ever reaches a node's control
	// channel, so a node seeing one here indicates a routing bug.
	default:
		cclog.Warnf("[ADAPTER]> %s: unexpected control-plane type %s, dropping", a.name, e.Type)
		return envelope.NewError(e, "UNKNOWN_MESSAGE_TYPE")
	}
}

func (a *Adapter) dispatchReadGroup(e *envelope.Envelope, paged bool) *envelope.Envelope {
	req, ok := e.Body.(envelope.ReadGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	values, err := ext.ReadGroup(req.Group, req)
	if err != nil {
		return envelope.Exchange(e, e.Type, envelope.ReadGroupResponse{
			Driver: req.Driver, Group: req.Group, IsError: true,
		})
	}
	resp := envelope.ReadGroupResponse{Driver: req.Driver, Group: req.Group, Tags: values}
	if paged {
		resp.TotalCount = len(values)
	}
	return envelope.Exchange(e, e.Type, resp)
}

func (a *Adapter) dispatchTestRead(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.TestReadTagRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	tv, err := ext.TestRead(req.Group, req.Tag)
	resp := envelope.TestReadTagResponse{Type: req.Tag.Type, Value: tv.Value}
	if err != nil {
		resp.Error = err.Error()
	}
	return envelope.Exchange(e, e.Type, resp)
}

func (a *Adapter) dispatchWriteTag(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.WriteTagRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	err := ext.WriteTags(req.Group, []envelope.TagValuePair{{Tag: req.Tag, Value: req.Value}})
	if err != nil {
		return envelope.NewError(e, err.Error())
	}
	return nil // completion arrives asynchronously via WRITE_RESPONSE
}

func (a *Adapter) dispatchWriteTags(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.WriteTagsRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	if err := ext.WriteTags(req.Group, req.Values); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return nil
}

func (a *Adapter) dispatchWriteGTags(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.WriteGTagsRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	// Groups are handed to WriteTags one after another; the first group
	// that fails returns its error and stops the batch, but writes already
	// queued for earlier groups are not withdrawn.
	for _, g := range req.Groups {
		if err := ext.WriteTags(g.Group, g.Values); err != nil {
			return envelope.NewError(e, err.Error())
		}
	}
	return nil
}

func (a *Adapter) dispatchSubscribe(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.SubscribeGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	err := ext.Subscribe(schema.Subscription{
		App: req.App, Driver: req.Driver, Group: req.Group,
		Port: req.Port, Params: req.Params, StaticTags: req.StaticTags,
	})
	if err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchUnsubscribe(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.UnsubscribeGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	key := schema.SubscriptionKey{App: req.App, Driver: req.Driver, Group: req.Group}
	if err := ext.Unsubscribe(key); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

// dispatchUpdateSubscribe resolves Open Question 1 (DESIGN.md): only
// params/static_tags may change on an existing subscription. A request
// whose (driver, group) doesn't match the subscription's key is rejected
// — changing the target group is modeled as unsubscribe+subscribe.
func (a *Adapter) dispatchUpdateSubscribe(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.SubscribeGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	key := schema.SubscriptionKey{App: req.App, Driver: req.Driver, Group: req.Group}
	params, staticTags := req.Params, req.StaticTags
	if err := ext.UpdateSubscribe(key, &params, &staticTags); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchSubscribeGroups(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.SubscribeGroupsRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	for _, g := range req.Groups {
		sub := schema.Subscription{App: req.App, Driver: g.Driver, Group: g.Group, Port: g.Port, Params: g.Params, StaticTags: g.StaticTags}
		if err := ext.Subscribe(sub); err != nil {
			return envelope.NewError(e, err.Error())
		}
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchGetSubscribeGroup(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.GetSubscribeGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	subs := ext.ListSubscriptions(req.Group)
	return envelope.Exchange(e, e.Type, envelope.GetSubscribeGroupResponse{Subscriptions: subs})
}

func (a *Adapter) dispatchGetSubDriverTags(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.GetSubDriverTagsRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	g, ok := ext.GetGroup(req.Group)
	if !ok {
		return envelope.NewError(e, "GROUP_NOT_FOUND")
	}
	values := make([]schema.TagValue, 0)
	for _, t := range g.GetAll() {
		values = append(values, schema.TagValue{Tag: t.Name, Type: t.Type})
	}
	return envelope.Exchange(e, envelope.TypeReadGroup, envelope.ReadGroupResponse{
		Driver: req.Driver, Group: req.Group, Tags: values,
	})
}

func (a *Adapter) dispatchNodeSetting(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.NodeSettingRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	if err := a.ApplySetting(req.Setting); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchGetNodeSetting(e *envelope.Envelope) *envelope.Envelope {
	s := a.CurrentSetting()
	if s == "" {
		return envelope.NewError(e, "NODE_SETTING_NOT_FOUND")
	}
	return envelope.Exchange(e, e.Type, envelope.GetNodeSettingResponse{Setting: s})
}

func (a *Adapter) dispatchGetNodeState(e *envelope.Envelope) *envelope.Envelope {
	return envelope.Exchange(e, e.Type, envelope.GetNodeStateResponse{State: a.State(), Link: a.Link()})
}

func (a *Adapter) dispatchNodeCtl(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.NodeCtlRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	var err error
	switch req.Op {
	case envelope.CtlStart:
		err = a.Start()
	case envelope.CtlStop:
		err = a.Stop()
	}
	if err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchNodeRename(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.NodeRenameRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	if err := a.Rename(req.NewName); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchNodeUninit(e *envelope.Envelope) *envelope.Envelope {
	// The manager observes RESP_NODE_UNINIT and triggers destruction
	// (adapter.Close) once this response is routed back to it.
	return envelope.Exchange(e, e.Type, envelope.NodeUninitNotice{Name: a.name})
}

func (a *Adapter) dispatchAddGroup(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.AddGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	if err := ext.AddGroup(req.Group, req.IntervalMS, req.Context); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchDelGroup(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.DelGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	if err := ext.DelGroup(req.Group); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchUpdateGroup(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.UpdateGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	newName := req.NewName
	if newName == "" {
		newName = req.Group
	}
	if err := ext.UpdateGroup(req.Group, newName, req.IntervalMS); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchGetGroup(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.GetGroupRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	g, ok := ext.GetGroup(req.Group)
	if !ok {
		return envelope.NewError(e, "GROUP_NOT_FOUND")
	}
	return envelope.Exchange(e, e.Type, envelope.GetGroupResponse{
		Group:      *g,
		TagCount:   g.Count(),
		ChangeTime: g.ChangeTimestamp(),
	})
}

func (a *Adapter) dispatchGetDriverGroup(e *envelope.Envelope) *envelope.Envelope {
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	return envelope.Exchange(e, e.Type, envelope.GetDriverGroupResponse{Groups: ext.ListGroups()})
}

func (a *Adapter) dispatchAddTag(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.AddTagRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	tag := req.Tag
	if err := ext.AddTag(req.Group, &tag); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchDelTag(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.DelTagRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	if err := ext.DelTag(req.Group, req.Tag); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchUpdateTag(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.UpdateTagRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	err := ext.UpdateTag(req.Group, req.Tag, func(t *schema.Tag) (bool, error) {
		changed := false
		if req.NewAddress != "" && req.NewAddress != t.Address {
			t.Address = req.NewAddress
			changed = true
		}
		if req.NewAttrs != 0 && req.NewAttrs != t.Attrs {
			t.Attrs = req.NewAttrs
			changed = true
		}
		if req.NewDescription != "" && req.NewDescription != t.Description {
			t.Description = req.NewDescription
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

// dispatchAddGTag implements the atomic multi-group tag batch of spec
// §8 scenario 5: every group's tags are validated before any are
// committed, so a mid-batch failure leaves no partial state.
func (a *Adapter) dispatchAddGTag(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.AddGTagRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	for _, gt := range req.Groups {
		for _, t := range gt.Tags {
			if err := t.Validate(); err != nil {
				return envelope.NewError(e, err.Error())
			}
		}
	}
	var committed []struct {
		group string
		name  string
	}
	for _, gt := range req.Groups {
		for _, t := range gt.Tags {
			tag := t
			if err := ext.AddTag(gt.Group, &tag); err != nil {
				for _, c := range committed {
					_ = ext.DelTag(c.group, c.name)
				}
				return envelope.NewError(e, err.Error())
			}
			committed = append(committed, struct {
				group string
				name  string
			}{gt.Group, t.Name})
		}
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchGetTag(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.GetTagRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	t, ok := ext.GetTag(req.Group, req.Tag)
	if !ok {
		return envelope.NewError(e, "TAG_NOT_FOUND")
	}
	return envelope.Exchange(e, e.Type, envelope.GetTagResponse{Tag: *t})
}

func (a *Adapter) dispatchNodeDeleted(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.NodeDeletedNotice)
	if !ok {
		return nil
	}
	if ext := a.driver(); ext != nil {
		for _, g := range ext.ListGroups() {
			_ = ext.Unsubscribe(schema.SubscriptionKey{App: req.Name, Driver: g.Driver, Group: g.Name})
		}
	}
	return nil
}

func (a *Adapter) dispatchUpdateLogLevel(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.UpdateLogLevelRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	cclog.Infof("[ADAPTER]> %s: log level -> %s", a.name, req.Level)
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchPrgFileUpload(e *envelope.Envelope) *envelope.Envelope {
	resp := a.plugin.Request(e)
	if resp == nil {
		return envelope.Exchange(e, e.Type, e.Body)
	}
	return resp
}

func (a *Adapter) dispatchPrgFileProcess(e *envelope.Envelope) *envelope.Envelope {
	resp := a.plugin.Request(e)
	if resp == nil {
		return envelope.Exchange(e, e.Type, e.Body)
	}
	return resp
}

func (a *Adapter) dispatchScanTags(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.ScanTagsRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	ext := a.driver()
	if ext == nil {
		return envelope.NewError(e, ErrGroupNotAllow.Error())
	}
	tags, err := ext.ScanTags(req.Group)
	if err != nil {
		return envelope.Exchange(e, e.Type, envelope.ScanTagsResponse{IsError: true, Error: err.Error()})
	}
	return envelope.Exchange(e, e.Type, envelope.ScanTagsResponse{Tags: tags})
}

func (a *Adapter) dispatchCheckSchema(e *envelope.Envelope) *envelope.Envelope {
	req, ok := e.Body.(envelope.CheckSchemaRequest)
	if !ok {
		return envelope.NewError(e, "BAD_REQUEST_BODY")
	}
	if err := a.plugin.Setting(req.Setting); err != nil {
		return envelope.NewError(e, err.Error())
	}
	return envelope.Exchange(e, e.Type, req)
}

func (a *Adapter) dispatchDriverAction(e *envelope.Envelope) *envelope.Envelope {
	return a.plugin.Request(e)
}
