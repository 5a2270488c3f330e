// Package sqlitestore is the reference persistence.Store implementation:
// a sqlx.DB wrapped with sqlhooks for query timing, squirrel's statement
// cache for hot-path queries, and golang-migrate/iofs for embedded
// schema migrations.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/schema"
)

//go:embed migrations/*
var migrationFiles embed.FS

// Store wraps a single-connection sqlite3 database: concurrent writers
// serialize on one connection, since sqlite doesn't multiplex writers
// usefully anyway.
type Store struct {
	db        *sqlx.DB
	stmtCache *sq.StmtCache
}

// Open connects to path (a sqlite3 DSN), runs pending migrations, and
// returns a ready Store.
func Open(path string) (*Store, error) {
	sql.Register("sqlite3_neuron", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &timingHooks{}))
	db, err := sqlx.Open("sqlite3_neuron", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, stmtCache: sq.NewStmtCache(db.DB)}, nil
}

func migrateUp(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	cclog.Debug("[SQLITESTORE]> schema up to date")
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) UpsertNodeSetting(ctx context.Context, node string, setting string) error {
	_, err := sq.Insert("node_setting").Columns("node", "setting").Values(node, setting).
		Suffix("ON CONFLICT(node) DO UPDATE SET setting=excluded.setting").
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		cclog.Warnf("[SQLITESTORE]> upsert node setting %s: %v", node, err)
	}
	return err
}

func (s *Store) GetNodeSetting(ctx context.Context, node string) (string, error) {
	var setting string
	err := sq.Select("setting").From("node_setting").Where(sq.Eq{"node": node}).
		RunWith(s.stmtCache).QueryRowContext(ctx).Scan(&setting)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return setting, err
}

func (s *Store) DeleteNode(ctx context.Context, node string) error {
	if _, err := sq.Delete("subscription").Where(sq.Or{sq.Eq{"app": node}, sq.Eq{"driver": node}}).RunWith(s.db).ExecContext(ctx); err != nil {
		return err
	}
	if _, err := sq.Delete("tag_config").Where(sq.Eq{"driver": node}).RunWith(s.db).ExecContext(ctx); err != nil {
		return err
	}
	if _, err := sq.Delete("group_config").Where(sq.Eq{"driver": node}).RunWith(s.db).ExecContext(ctx); err != nil {
		return err
	}
	_, err := sq.Delete("node_setting").Where(sq.Eq{"node": node}).RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Store) UpsertGroup(ctx context.Context, g schema.GroupRecord) error {
	_, err := sq.Insert("group_config").
		Columns("driver", "name", "interval_ms", "context").
		Values(g.Driver, g.Name, g.IntervalMS, g.Context).
		Suffix("ON CONFLICT(driver, name) DO UPDATE SET interval_ms=excluded.interval_ms, context=excluded.context").
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Store) DeleteGroup(ctx context.Context, driver, group string) error {
	_, err := sq.Delete("group_config").Where(sq.Eq{"driver": driver, "name": group}).
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Store) ListGroups(ctx context.Context, driver string) ([]schema.GroupRecord, error) {
	rows, err := sq.Select("driver", "name", "interval_ms", "context").From("group_config").
		Where(sq.Eq{"driver": driver}).OrderBy("name ASC").RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]schema.GroupRecord, 0, 16)
	for rows.Next() {
		var g schema.GroupRecord
		if err := rows.Scan(&g.Driver, &g.Name, &g.IntervalMS, &g.Context); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpsertTag(ctx context.Context, t schema.TagRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tag_config (driver, group_name, name, address, type, attrs, precision, decimal, bias, description, meta_json, format_b64)
		VALUES (:driver, :group_name, :name, :address, :type, :attrs, :precision, :decimal, :bias, :description, :meta_json, :format_b64)
		ON CONFLICT(driver, group_name, name) DO UPDATE SET
			address=excluded.address, type=excluded.type, attrs=excluded.attrs,
			precision=excluded.precision, decimal=excluded.decimal, bias=excluded.bias,
			description=excluded.description, meta_json=excluded.meta_json, format_b64=excluded.format_b64`, t)
	return err
}

func (s *Store) DeleteTag(ctx context.Context, driver, group, tag string) error {
	_, err := sq.Delete("tag_config").
		Where(sq.Eq{"driver": driver, "group_name": group, "name": tag}).
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Store) ListTags(ctx context.Context, driver, group string) ([]schema.TagRecord, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT driver, group_name, name, address, type, attrs, precision, decimal, bias, description, meta_json, format_b64
		FROM tag_config WHERE driver = ? AND group_name = ? ORDER BY name ASC`, driver, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]schema.TagRecord, 0, 32)
	for rows.Next() {
		var t schema.TagRecord
		if err := rows.StructScan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpsertSubscription(ctx context.Context, sub schema.SubscriptionRecord) error {
	_, err := sq.Insert("subscription").
		Columns("app", "driver", "group_name", "port", "params", "static_tags").
		Values(sub.App, sub.Driver, sub.Group, sub.Port, sub.Params, sub.StaticTags).
		Suffix("ON CONFLICT(app, driver, group_name) DO UPDATE SET port=excluded.port, params=excluded.params, static_tags=excluded.static_tags").
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Store) DeleteSubscription(ctx context.Context, app, driver, group string) error {
	_, err := sq.Delete("subscription").
		Where(sq.Eq{"app": app, "driver": driver, "group_name": group}).
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Store) ListSubscriptions(ctx context.Context, driver, group string) ([]schema.SubscriptionRecord, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT app, driver, group_name, port, params, static_tags
		FROM subscription WHERE driver = ? AND group_name = ? ORDER BY app ASC`, driver, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]schema.SubscriptionRecord, 0, 16)
	for rows.Next() {
		var sr schema.SubscriptionRecord
		if err := rows.StructScan(&sr); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}
