// Package schema defines the broker's core data model: tags, groups,
// nodes, subscriptions, plugin descriptors, rolling counters and metric
// entries, as described by the node/group/tag data model.
package schema

// Hard limits taken from the configuration surface. These bound name
// lengths, fleet size and message size the same way the source's
// compile-time constants do.
const (
	MaxNodeNameLen    = 128
	MaxGroupNameLen   = 128
	MaxTagNameLen     = 128
	MaxPluginNameLen  = 32
	MaxLibraryNameLen = 64

	MaxTagMetaLen     = 20
	MaxTagMetaEntries = 32
	MaxFormatDescLen  = 16

	MinGroupIntervalMS = 100
	MaxGroupsPerNode   = 512

	MaxMessageSize = 2048

	DefaultTagCacheExpiry = 60 // seconds

	MailboxCapacity = 1024
)
