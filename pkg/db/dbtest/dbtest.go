// Package dbtest opens isolated in-memory SQLite databases carrying the
// domain tables, for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Table names accepted by Open.
const (
	Warehouses      = "warehouses"
	Zones           = "zones"
	Customers       = "customers"
	Products        = "products"
	FreightRates    = "freight_rates"
	PriceSheets     = "price_sheets"
	PriceSheetItems = "price_sheet_items"
	Deals           = "manufacturer_deals"
	RateLimits      = "ai_rate_limit_entries"
	Breakers        = "circuit_breaker_states"
	Outbox          = "outbox_events"
)

// The SQLite schema mirrors pkg/migrate/migrations with portable types.
var schema = map[string]string{
	Warehouses: `CREATE TABLE warehouses (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  address TEXT NOT NULL,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  latitude REAL,
  longitude REAL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (org_id, code)
)`,
	Zones: `CREATE TABLE zones (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  name TEXT NOT NULL,
  color TEXT NOT NULL DEFAULT '#2563eb',
  states TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (org_id, name)
)`,
	Customers: `CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  zone_id TEXT,
  name TEXT NOT NULL,
  contact_email TEXT,
  address TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL DEFAULT '',
  formatted_address TEXT,
  latitude REAL,
  longitude REAL,
  geocoded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	Products: `CREATE TABLE products (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  warehouse_id TEXT NOT NULL,
  item_code TEXT NOT NULL,
  description TEXT NOT NULL,
  pack_size TEXT NOT NULL,
  category TEXT,
  unit_cost NUMERIC NOT NULL,
  case_weight_lbs NUMERIC,
  cost_per_lb NUMERIC,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (org_id, item_code)
)`,
	FreightRates: `CREATE TABLE freight_rates (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  origin_warehouse_id TEXT NOT NULL,
  destination_zone_id TEXT NOT NULL,
  rate_per_lb NUMERIC NOT NULL,
  source TEXT NOT NULL DEFAULT 'manual',
  carrier TEXT,
  valid_from DATETIME NOT NULL,
  valid_until DATETIME NOT NULL,
  created_by TEXT,
  created_at DATETIME
)`,
	PriceSheets: `CREATE TABLE price_sheets (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  zone_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  valid_from DATETIME NOT NULL,
  valid_until DATETIME NOT NULL,
  published_at DATETIME,
  archived_at DATETIME,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	PriceSheetItems: `CREATE TABLE price_sheet_items (
  id TEXT PRIMARY KEY,
  price_sheet_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  warehouse_id TEXT NOT NULL,
  freight_rate_id TEXT NOT NULL,
  item_code TEXT NOT NULL,
  description TEXT NOT NULL,
  pack_size TEXT NOT NULL,
  cost_per_lb NUMERIC NOT NULL,
  margin_percent NUMERIC NOT NULL,
  margin_amount NUMERIC NOT NULL,
  freight_per_lb NUMERIC NOT NULL,
  delivered_price_per_lb NUMERIC NOT NULL,
  position INTEGER NOT NULL
)`,
	Deals: `CREATE TABLE manufacturer_deals (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  manufacturer TEXT NOT NULL,
  product_description TEXT NOT NULL,
  price_per_lb NUMERIC NOT NULL,
  quantity TEXT,
  pack_size TEXT,
  case_weight_lbs NUMERIC,
  expiration_date DATETIME,
  terms TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  source_email TEXT NOT NULL,
  rejection_reason TEXT,
  reviewed_by TEXT,
  reviewed_at DATETIME,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	RateLimits: `CREATE TABLE ai_rate_limit_entries (
  id TEXT PRIMARY KEY,
  scope TEXT NOT NULL,
  created_at DATETIME NOT NULL
)`,
	Breakers: `CREATE TABLE circuit_breaker_states (
  name TEXT PRIMARY KEY,
  state TEXT NOT NULL DEFAULT 'closed',
  failure_count INTEGER NOT NULL DEFAULT 0,
  last_failure_at DATETIME,
  opened_at DATETIME,
  trial_started_at DATETIME,
  version INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
)`,
	Outbox: `CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  terminal_at DATETIME
)`,
}

// Open returns a fresh shared-cache in-memory database holding the named
// tables. Each call gets its own database so tests can run in parallel.
func Open(t testing.TB, tables ...string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, table := range tables {
		ddl, ok := schema[table]
		if !ok {
			t.Fatalf("dbtest: unknown table %q", table)
		}
		if err := conn.Exec(ddl).Error; err != nil {
			t.Fatalf("create %s: %v", table, err)
		}
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
