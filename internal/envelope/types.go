// Package envelope defines the typed tagged-union message that flows
// between nodes and the manager: a fixed header plus a body whose shape
// is uniquely determined by Type. This is the in-process rendition of
// the wire envelope described by the message taxonomy — here it is a Go
// struct with an owned Body, passed over a buffered channel per node
// rather than serialized over a socket (design note: prefer direct
// in-memory channels; sockets are for cross-process extension only).
package envelope

// Type is the closed set of message types. The 50 variants are grouped
// exactly as the taxonomy groups them; adding a variant means adding a
// case to the dispatch switch in internal/adapter. The compiler does not
// check that switch for exhaustiveness: a type without a case reaches
// its default arm, which logs it and replies UNKNOWN_MESSAGE_TYPE.
type Type int

const (
	TypeError Type = iota + 1

	// Reads
	TypeReadGroup
	TypeReadGroupPaged
	TypeTestReadTag

	// Writes
	TypeWriteTag
	TypeWriteTags
	TypeWriteGTags
	TypeWriteResponse

	// Subscribe
	TypeSubscribeGroup
	TypeUnsubscribeGroup
	TypeUpdateSubscribeGroup
	TypeSubscribeGroups
	TypeGetSubscribeGroup
	TypeGetSubDriverTags

	// Node CRUD + state
	TypeAddNode
	TypeDelNode
	TypeUpdateNode
	TypeGetNode
	TypeNodeSetting
	TypeGetNodeSetting
	TypeGetNodeState
	TypeGetNodesState
	TypeNodeCtl
	TypeNodeRename
	TypeNodeInit
	TypeNodeUninit

	// Group CRUD
	TypeAddGroup
	TypeDelGroup
	TypeUpdateGroup
	TypeGetGroup
	TypeUpdateDriverGroup
	TypeGetDriverGroup

	// Tag CRUD
	TypeAddTag
	TypeDelTag
	TypeUpdateTag
	TypeAddGTag
	TypeGetTag

	// Plugin CRUD
	TypeAddPlugin
	TypeDelPlugin
	TypeUpdatePlugin
	TypeGetPlugin

	// Telemetry & lifecycle
	TypeTransData
	TypeNodesState
	TypeNodeDeleted

	// Ops
	TypeUpdateLogLevel
	TypePrgFileUpload
	TypePrgFileProcess
	TypeScanTags
	TypeCheckSchema
	TypeDriverAction
)

// NodeCtlOp is the sub-operation of a TypeNodeCtl request.
type NodeCtlOp int

const (
	CtlStart NodeCtlOp = iota
	CtlStop
)

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

var typeNames = map[Type]string{
	TypeError:                "ERROR",
	TypeReadGroup:            "READ_GROUP",
	TypeReadGroupPaged:       "READ_GROUP_PAGED",
	TypeTestReadTag:          "TEST_READ_TAG",
	TypeWriteTag:             "WRITE_TAG",
	TypeWriteTags:            "WRITE_TAGS",
	TypeWriteGTags:           "WRITE_GTAGS",
	TypeWriteResponse:        "WRITE_RESPONSE",
	TypeSubscribeGroup:       "SUBSCRIBE_GROUP",
	TypeUnsubscribeGroup:     "UNSUBSCRIBE_GROUP",
	TypeUpdateSubscribeGroup: "UPDATE_SUBSCRIBE_GROUP",
	TypeSubscribeGroups:      "SUBSCRIBE_GROUPS",
	TypeGetSubscribeGroup:    "GET_SUBSCRIBE_GROUP",
	TypeGetSubDriverTags:     "GET_SUB_DRIVER_TAGS",
	TypeAddNode:              "ADD_NODE",
	TypeDelNode:              "DEL_NODE",
	TypeUpdateNode:           "UPDATE_NODE",
	TypeGetNode:              "GET_NODE",
	TypeNodeSetting:          "NODE_SETTING",
	TypeGetNodeSetting:       "GET_NODE_SETTING",
	TypeGetNodeState:         "GET_NODE_STATE",
	TypeGetNodesState:        "GET_NODES_STATE",
	TypeNodeCtl:              "NODE_CTL",
	TypeNodeRename:           "NODE_RENAME",
	TypeNodeInit:             "NODE_INIT",
	TypeNodeUninit:           "NODE_UNINIT",
	TypeAddGroup:             "ADD_GROUP",
	TypeDelGroup:             "DEL_GROUP",
	TypeUpdateGroup:          "UPDATE_GROUP",
	TypeGetGroup:             "GET_GROUP",
	TypeUpdateDriverGroup:    "UPDATE_DRIVER_GROUP",
	TypeGetDriverGroup:       "GET_DRIVER_GROUP",
	TypeAddTag:               "ADD_TAG",
	TypeDelTag:               "DEL_TAG",
	TypeUpdateTag:            "UPDATE_TAG",
	TypeAddGTag:              "ADD_GTAG",
	TypeGetTag:               "GET_TAG",
	TypeAddPlugin:            "ADD_PLUGIN",
	TypeDelPlugin:            "DEL_PLUGIN",
	TypeUpdatePlugin:         "UPDATE_PLUGIN",
	TypeGetPlugin:            "GET_PLUGIN",
	TypeTransData:            "TRANS_DATA",
	TypeNodesState:           "NODES_STATE",
	TypeNodeDeleted:          "NODE_DELETED",
	TypeUpdateLogLevel:       "UPDATE_LOG_LEVEL",
	TypePrgFileUpload:        "PRGFILE_UPLOAD",
	TypePrgFileProcess:       "PRGFILE_PROCESS",
	TypeScanTags:             "SCAN_TAGS",
	TypeCheckSchema:          "CHECK_SCHEMA",
	TypeDriverAction:         "DRIVER_ACTION",
}

// driverOnly is the set of types that only a DRIVER node may service;
// an APP receiving one of these replies GROUP_NOT_ALLOW immediately.
var driverOnly = map[Type]bool{
	TypeReadGroup:         true,
	TypeReadGroupPaged:    true,
	TypeTestReadTag:       true,
	TypeWriteTag:          true,
	TypeWriteTags:         true,
	TypeWriteGTags:        true,
	TypeAddTag:            true,
	TypeDelTag:            true,
	TypeUpdateTag:         true,
	TypeAddGTag:           true,
	TypeAddGroup:          true,
	TypeDelGroup:          true,
	TypeUpdateGroup:       true,
	TypeUpdateDriverGroup: true,
	TypeGetDriverGroup:    true,
	TypeScanTags:          true,
}

// IsDriverOnly reports whether t may only be serviced by a DRIVER node.
func IsDriverOnly(t Type) bool { return driverOnly[t] }
