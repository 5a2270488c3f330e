// Package persistence defines the narrow CRUD facade the manager and
// driver extension use to persist configuration (nodes, groups, tags,
// subscriptions) across restarts. It deliberately does not persist
// telemetry values: TRANS_DATA is a live, at-most-once stream.
package persistence

import (
	"context"

	"github.com/neuron-io/broker/internal/schema"
)

// Store is the persistence facade. sqlitestore is the only shipped
// implementation; callers depend only on this interface.
type Store interface {
	UpsertNodeSetting(ctx context.Context, node string, setting string) error
	GetNodeSetting(ctx context.Context, node string) (string, error)
	DeleteNode(ctx context.Context, node string) error

	UpsertGroup(ctx context.Context, g schema.GroupRecord) error
	DeleteGroup(ctx context.Context, driver, group string) error
	ListGroups(ctx context.Context, driver string) ([]schema.GroupRecord, error)

	UpsertTag(ctx context.Context, t schema.TagRecord) error
	DeleteTag(ctx context.Context, driver, group, tag string) error
	ListTags(ctx context.Context, driver, group string) ([]schema.TagRecord, error)

	UpsertSubscription(ctx context.Context, s schema.SubscriptionRecord) error
	DeleteSubscription(ctx context.Context, app, driver, group string) error
	ListSubscriptions(ctx context.Context, driver, group string) ([]schema.SubscriptionRecord, error)

	Close() error
}
