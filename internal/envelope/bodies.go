package envelope

import "github.com/neuron-io/broker/internal/schema"

// Body shapes, one per message type that carries a non-trivial payload.
// Types that carry no extra data beyond the header use ErrorBody or an
// empty struct.

type ErrorBody struct {
	Code string
}

type ReadGroupRequest struct {
	Driver, Group      string
	NameSubstr         string
	DescSubstr         string
	Sync               bool
	TagNames           []string
	CurrentPage        int
	PageSize           int
}

type ReadGroupResponse struct {
	Driver, Group string
	Tags          []schema.TagValue
	IsError       bool
	TotalCount    int // only set for paginated variant
}

type TestReadTagRequest struct {
	Driver, Group string
	Tag           schema.Tag
}

type TestReadTagResponse struct {
	Type     schema.TagType
	JSONType string
	Value    any
	Error    string
}

type WriteTagRequest struct {
	Driver, Group, Tag string
	Value              any
}

type TagValuePair struct {
	Tag   string
	Value any
}

type WriteTagsRequest struct {
	Driver, Group string
	Values        []TagValuePair
}

type GroupTagValues struct {
	Group  string
	Values []TagValuePair
}

type WriteGTagsRequest struct {
	Driver string
	Groups []GroupTagValues
}

type WriteResponseBody struct {
	ReqType Type
	Error   string
}

type SubscribeGroupRequest struct {
	App, Driver, Group string
	Port               int
	Params             string
	StaticTags         string
}

type UnsubscribeGroupRequest struct {
	App, Driver, Group string
}

type SubscribeGroupsRequest struct {
	App    string
	Groups []SubscribeGroupRequest
}

type GetSubscribeGroupRequest struct {
	App, Driver, Group string
}

type GetSubscribeGroupResponse struct {
	Subscriptions []schema.Subscription
}

type GetSubDriverTagsRequest struct {
	App, Driver, Group string
}

type AddNodeRequest struct {
	Name       string
	Kind       schema.NodeKind
	PluginName string
	Setting    string
}

type DelNodeRequest struct {
	Name string
}

type UpdateNodeRequest struct {
	Name    string
	Setting string
}

type GetNodeRequest struct {
	Name string
}

type GetNodeResponse struct {
	Name  string
	Kind  schema.NodeKind
	State schema.RunState
	Link  schema.LinkState
}

type NodeSettingRequest struct {
	Name    string
	Setting string
}

type GetNodeSettingRequest struct {
	Name string
}

type GetNodeSettingResponse struct {
	Setting string
}

type GetNodeStateRequest struct {
	Name string
}

type GetNodeStateResponse struct {
	State schema.RunState
	Link  schema.LinkState
}

type GetNodesStateResponse struct {
	States map[string]GetNodeStateResponse
}

type NodeCtlRequest struct {
	Name string
	Op   NodeCtlOp
}

type NodeRenameRequest struct {
	OldName, NewName string
}

type NodeInitNotice struct {
	Name string
	Kind schema.NodeKind
}

type NodeUninitNotice struct {
	Name string
}

type AddGroupRequest struct {
	Driver, Group string
	IntervalMS    int64
	Context       string
}

type DelGroupRequest struct {
	Driver, Group string
}

type UpdateGroupRequest struct {
	Driver, Group, NewName string
	IntervalMS             int64
}

type GetGroupRequest struct {
	Driver, Group string
}

type GetGroupResponse struct {
	Group      schema.Group
	TagCount   int
	ChangeTime int64
}

type GetDriverGroupRequest struct {
	Driver string
}

type GetDriverGroupResponse struct {
	Groups []schema.GroupRecord
}

type AddTagRequest struct {
	Driver, Group string
	Tag           schema.Tag
}

type DelTagRequest struct {
	Driver, Group, Tag string
}

type UpdateTagRequest struct {
	Driver, Group, Tag string
	NewAddress         string
	NewAttrs           schema.TagAttr
	NewDescription     string
}

type GroupTags struct {
	Group string
	Tags  []schema.Tag
}

type AddGTagRequest struct {
	Driver string
	Groups []GroupTags
}

type GetTagRequest struct {
	Driver, Group, Tag string
}

type GetTagResponse struct {
	Tag schema.Tag
}

type AddPluginRequest struct {
	Descriptor schema.PluginDescriptor
}

type DelPluginRequest struct {
	SchemaName string
}

type UpdatePluginRequest struct {
	Descriptor schema.PluginDescriptor
}

type GetPluginRequest struct {
	SchemaName string
}

type GetPluginResponse struct {
	Descriptor schema.PluginDescriptor
}

type TransDataBody struct {
	Driver, Group string
	Tags          []schema.TagValue
	refcount      *Refcount
}

type NodesStateBody struct {
	States map[string]schema.RunState
}

type NodeDeletedNotice struct {
	Name string
}

type UpdateLogLevelRequest struct {
	Name  string
	Level string
}

type PrgFileUploadRequest struct {
	Name string
	Data []byte
}

type PrgFileProcessRequest struct {
	Name string
}

type ScanTagsRequest struct {
	Driver, Group string
}

type ScanTagsResponse struct {
	Tags    []schema.Tag
	IsError bool
	Error   string
}

type CheckSchemaRequest struct {
	SchemaName string
	Setting    string
}

type DriverActionRequest struct {
	Driver string
	Action string
	Params string
}
