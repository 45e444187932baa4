// Package dbtest opens throwaway sqlite databases carrying the service schema.
// The DDL mirrors the goose migrations with sqlite column types.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		rider_id TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_status TEXT NOT NULL DEFAULT 'pending',
		refund_status TEXT NOT NULL DEFAULT 'none',
		subtotal_cents INTEGER NOT NULL,
		delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
		tip_cents INTEGER NOT NULL DEFAULT 0,
		discount_cents INTEGER NOT NULL DEFAULT 0,
		total_cents INTEGER NOT NULL,
		refunded_cents INTEGER NOT NULL DEFAULT 0,
		platform_markup_rate TEXT NOT NULL DEFAULT '0',
		split_store_amount_cents INTEGER NOT NULL DEFAULT 0,
		split_driver_amount_cents INTEGER NOT NULL DEFAULT 0,
		split_platform_amount_cents INTEGER NOT NULL DEFAULT 0,
		split_total_markup_cents INTEGER NOT NULL DEFAULT 0,
		split_discount_absorbed_cents INTEGER NOT NULL DEFAULT 0,
		split_net_earnings_cents INTEGER NOT NULL DEFAULT 0,
		internal_notes TEXT,
		special_instructions TEXT,
		cancellation_reason TEXT,
		cancelled_by TEXT,
		cancelled_at DATETIME,
		rejection_reason TEXT,
		rejected_by TEXT,
		rejected_by_role TEXT,
		rejected_at DATETIME,
		delivered_at DATETIME,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		product_id TEXT,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		total_price_cents INTEGER NOT NULL,
		customizations TEXT,
		selected_variant TEXT
	)`,
	`CREATE TABLE order_tracking_entries (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		actor_role TEXT NOT NULL,
		actor_id TEXT,
		recorded_at DATETIME NOT NULL,
		UNIQUE (order_id, sequence)
	)`,
	`CREATE TABLE order_assignments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		rider_id TEXT NOT NULL,
		assigned_by_user_id TEXT,
		assigned_at DATETIME NOT NULL,
		unassigned_at DATETIME,
		active BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE riders (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		phone TEXT,
		is_available BOOLEAN NOT NULL DEFAULT 0,
		is_suspended BOOLEAN NOT NULL DEFAULT 0,
		current_location TEXT,
		location_updated_at DATETIME,
		active_order_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE refund_requests (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		rider_id TEXT,
		order_snapshot TEXT NOT NULL,
		requested_amount_cents INTEGER NOT NULL,
		approved_amount_cents INTEGER,
		reason TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'pending_review',
		cost_distribution TEXT,
		rationale TEXT,
		rejection_reason TEXT,
		admin_note TEXT,
		reviewed_by TEXT,
		reviewed_at DATETIME,
		processed_at DATETIME,
		completed_at DATETIME,
		failure_reason TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE ledger_events (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		refund_request_id TEXT,
		party TEXT NOT NULL,
		party_id TEXT,
		type TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		actor_user_id TEXT,
		metadata TEXT,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_ledger_events_refund_entry ON ledger_events (refund_request_id, type, party)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		next_attempt_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_outbox_events_event_aggregate ON outbox_events (event_type, aggregate_type, aggregate_id)
		WHERE event_type IN ('order_refunded', 'refund_completed', 'refund_failed')`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME NOT NULL
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		recipient_role TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		template TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		data TEXT,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_notifications_event_id ON notifications (event_id)`,
}

// Open returns an isolated in-memory database with every table created.
// A single connection is used, so callers must not query outside an open
// transaction while it is in progress.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
