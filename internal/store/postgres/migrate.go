package postgres

import (
	"context"
	"fmt"
	"log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stock_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		cost_price NUMERIC(18,4) NOT NULL CHECK (cost_price >= 0),
		sale_price NUMERIC(18,4) NOT NULL CHECK (sale_price >= 0),
		pack_count INTEGER NOT NULL CHECK (pack_count >= 0),
		units_per_pack INTEGER NOT NULL CHECK (units_per_pack >= 1),
		loose_units INTEGER NOT NULL CHECK (loose_units >= 0 AND loose_units < units_per_pack),
		expiry_date DATE,
		deleted BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS supply_batches (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL DEFAULT '',
		supplier TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS supply_lines (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL REFERENCES supply_batches(id),
		position INTEGER NOT NULL,
		stock_item_id TEXT NOT NULL REFERENCES stock_items(id),
		product_name TEXT NOT NULL,
		added_packs INTEGER NOT NULL CHECK (added_packs >= 1),
		cost_price NUMERIC(18,4) NOT NULL,
		markup_percent NUMERIC(9,4) NOT NULL,
		sale_price NUMERIC(18,4) NOT NULL,
		resulting_sale_price NUMERIC(18,4) NOT NULL,
		price_raised BOOLEAN NOT NULL,
		created_item BOOLEAN NOT NULL,
		expiry_date DATE,
		UNIQUE (batch_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		total_cash NUMERIC(18,4) NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS shifts_one_active_per_operator ON shifts (operator_id) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL REFERENCES shifts(id),
		operator_id TEXT NOT NULL,
		idempotency_key TEXT NOT NULL DEFAULT '',
		system_total NUMERIC(18,4) NOT NULL,
		declared_total NUMERIC(18,4) NOT NULL,
		adjustment NUMERIC(18,4) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`DROP INDEX IF EXISTS sales_idempotency_key`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sales_operator_idempotency_key ON sales (operator_id, idempotency_key) WHERE idempotency_key <> ''`,
	`CREATE INDEX IF NOT EXISTS sales_shift_id ON sales (shift_id)`,
	`CREATE TABLE IF NOT EXISTS sale_lines (
		sale_id TEXT NOT NULL REFERENCES sales(id),
		position INTEGER NOT NULL,
		stock_item_id TEXT NOT NULL REFERENCES stock_items(id),
		product_name TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount >= 1),
		unit_kind TEXT NOT NULL CHECK (unit_kind IN ('pack', 'unit')),
		unit_price NUMERIC(18,4) NOT NULL,
		line_total NUMERIC(18,4) NOT NULL,
		PRIMARY KEY (sale_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS credits (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		customer_phone TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		total_amount NUMERIC(18,4) NOT NULL CHECK (total_amount > 0),
		paid_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		due_date DATE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK (paid_amount >= 0 AND paid_amount <= total_amount)
	)`,
	`CREATE TABLE IF NOT EXISTS credit_payments (
		id TEXT PRIMARY KEY,
		credit_id TEXT NOT NULL REFERENCES credits(id) ON DELETE CASCADE,
		amount NUMERIC(18,4) NOT NULL CHECK (amount > 0),
		paid_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		actor_username TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_created_at ON audit_logs (created_at)`,
	`CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the ledger schema. Every statement is idempotent so it runs
// on each start.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	log.Printf("[postgres] schema ready (%d statements)", len(schema))
	return nil
}
