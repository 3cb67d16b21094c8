/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Stores the flat records the derivation packages consume: sales with
  their financial fields, registered payments, occupied resource slots,
  and the warehouse catalog. Installment plans are never stored; they
  are recomputed from these records on every read.

APPEND-ONLY PAYMENTS:
  The payments table takes no UPDATE and no DELETE. A registered
  payment is immutable; a correction would be a new record. Registering
  a payment and bumping the sale's paid counter happen in one database
  transaction.

KEY TABLES:
  sales:          Flat sale records (client, total, installment counts)
  payments:       Immutable payment log, unique per (sale, installment)
  occupied_slots: Busy (day, hour, resource) records for the scheduler
  warehouses:     Named warehouse catalog

WAL MODE:
  SQLite is opened with WAL for better read concurrency. A store-level
  mutex serializes writers.

USAGE:
  store, err := sqlite.New("./data/backoffice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a versioned
  migration tool instead.

SEE ALSO:
  - schedule: Consumes SaleRecord/PaymentRecord
  - availability: Consumes OccupiedSlot and Catalog
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ferrex/backoffice-engine/availability"
	"github.com/ferrex/backoffice-engine/calendar"
	"github.com/ferrex/backoffice-engine/schedule"
)

// Sentinel errors for callers to classify with errors.Is.
var (
	ErrSaleNotFound     = errors.New("sale not found")
	ErrDuplicateSale    = errors.New("sale already exists")
	ErrDuplicatePayment = errors.New("installment already paid")
)

// Store implements persistence for sales, payments, slots and catalog.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at path. Use ":memory:" for an
// in-memory database in tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sales (
		id                 TEXT PRIMARY KEY,
		client             TEXT NOT NULL,
		seller             TEXT NOT NULL,
		sold_at            TEXT NOT NULL,
		condition          TEXT NOT NULL,
		total              TEXT NOT NULL,
		total_installments INTEGER NOT NULL,
		paid_installments  INTEGER NOT NULL,
		created_at         TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payments (
		id                 TEXT PRIMARY KEY,
		sale_id            TEXT NOT NULL REFERENCES sales(id),
		installment_number INTEGER NOT NULL,
		amount             TEXT NOT NULL,
		paid_at            TEXT NOT NULL,
		method             TEXT NOT NULL,
		payer_name         TEXT NOT NULL DEFAULT '',
		created_at         TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_sale_installment
		ON payments(sale_id, installment_number);
	CREATE INDEX IF NOT EXISTS idx_payments_paid_at ON payments(paid_at);

	CREATE TABLE IF NOT EXISTS occupied_slots (
		id            TEXT PRIMARY KEY,
		resource_type TEXT NOT NULL,
		day           TEXT NOT NULL,
		hour          TEXT NOT NULL,
		resource_id   TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_slots_unique
		ON occupied_slots(resource_type, day, hour, resource_id);

	CREATE TABLE IF NOT EXISTS warehouses (
		name       TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// =============================================================================
// SALES
// =============================================================================

// SaveSale inserts a new sale. The id must be unique.
func (s *Store) SaveSale(ctx context.Context, sale schedule.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sales WHERE id = ?)`, sale.ID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("sale %s: %w", sale.ID, ErrDuplicateSale)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (id, client, seller, sold_at, condition, total,
			total_installments, paid_installments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.Client, sale.Seller, sale.SoldAt.ISODay(),
		string(sale.Condition), sale.Total.String(),
		sale.TotalInstallments, sale.PaidInstallments,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetSale loads one sale with its payments.
func (s *Store) GetSale(ctx context.Context, id string) (*schedule.SaleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, client, seller, sold_at, condition, total,
			total_installments, paid_installments
		FROM sales WHERE id = ?`, id)

	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sale %s: %w", id, ErrSaleNotFound)
		}
		return nil, err
	}

	payments, err := s.paymentsForSale(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Payments = payments
	return &sale, nil
}

// ListSales loads all sales with their payments, ordered by sale date
// then id.
func (s *Store) ListSales(ctx context.Context) ([]schedule.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client, seller, sold_at, condition, total,
			total_installments, paid_installments
		FROM sales ORDER BY sold_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []schedule.SaleRecord
	index := make(map[string]int)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		index[sale.ID] = len(sales)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Attach payments in one pass instead of a query per sale.
	prows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, installment_number, amount, paid_at, method, payer_name
		FROM payments ORDER BY paid_at, sale_id, installment_number`)
	if err != nil {
		return nil, err
	}
	defer prows.Close()

	for prows.Next() {
		var saleID string
		p, err := scanPayment(prows, &saleID)
		if err != nil {
			return nil, err
		}
		if i, ok := index[saleID]; ok {
			sales[i].Payments = append(sales[i].Payments, p)
		}
	}
	return sales, prows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (schedule.SaleRecord, error) {
	var (
		sale      schedule.SaleRecord
		soldAt    string
		condition string
		total     string
	)
	err := row.Scan(&sale.ID, &sale.Client, &sale.Seller, &soldAt, &condition,
		&total, &sale.TotalInstallments, &sale.PaidInstallments)
	if err != nil {
		return schedule.SaleRecord{}, err
	}
	sale.Condition = schedule.PaymentCondition(condition)
	if sale.SoldAt, err = calendar.ParseDay(soldAt); err != nil {
		return schedule.SaleRecord{}, fmt.Errorf("sale %s: bad sold_at: %w", sale.ID, err)
	}
	if sale.Total, err = decimal.NewFromString(total); err != nil {
		return schedule.SaleRecord{}, fmt.Errorf("sale %s: bad total: %w", sale.ID, err)
	}
	return sale, nil
}

func scanPayment(row rowScanner, saleID *string) (schedule.PaymentRecord, error) {
	var (
		p      schedule.PaymentRecord
		amount string
		paidAt string
	)
	err := row.Scan(saleID, &p.InstallmentNumber, &amount, &paidAt, &p.Method, &p.PayerName)
	if err != nil {
		return schedule.PaymentRecord{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return schedule.PaymentRecord{}, fmt.Errorf("payment: bad amount: %w", err)
	}
	if p.PaidAt, err = calendar.ParseDay(paidAt); err != nil {
		return schedule.PaymentRecord{}, fmt.Errorf("payment: bad paid_at: %w", err)
	}
	return p, nil
}

func (s *Store) paymentsForSale(ctx context.Context, saleID string) ([]schedule.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, installment_number, amount, paid_at, method, payer_name
		FROM payments WHERE sale_id = ? ORDER BY installment_number`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []schedule.PaymentRecord
	for rows.Next() {
		var id string
		p, err := scanPayment(rows, &id)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// PAYMENTS - Append-only
// =============================================================================

// AppendPayment records a payment and bumps the sale's paid counter in
// one transaction. Paying the same installment twice fails with
// ErrDuplicatePayment. No update or delete path exists.
func (s *Store) AppendPayment(ctx context.Context, saleID string, p schedule.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE sale_id = ? AND installment_number = ?)`,
		saleID, p.InstallmentNumber).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("sale %s installment %d: %w", saleID, p.InstallmentNumber, ErrDuplicatePayment)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, sale_id, installment_number, amount, paid_at,
			method, payer_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), saleID, p.InstallmentNumber, p.Amount.String(),
		p.PaidAt.ISODay(), p.Method, p.PayerName,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sales SET paid_installments = paid_installments + 1 WHERE id = ?`, saleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sale %s: %w", saleID, ErrSaleNotFound)
	}
	return tx.Commit()
}

// =============================================================================
// OCCUPIED SLOTS
// =============================================================================

// AddOccupiedSlot marks a (day, hour, resource) busy. Marking the same
// slot twice fails with availability.ErrSlotOccupied.
func (s *Store) AddOccupiedSlot(ctx context.Context, slot availability.OccupiedSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM occupied_slots
		WHERE resource_type = ? AND day = ? AND hour = ? AND resource_id = ?)`,
		string(slot.Type), slot.Date.ISODay(), slot.Hour, slot.ResourceID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s %s %s %s: %w",
			slot.Type, slot.Date.ISODay(), slot.Hour, slot.ResourceID, availability.ErrSlotOccupied)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO occupied_slots (id, resource_type, day, hour, resource_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), string(slot.Type), slot.Date.ISODay(), slot.Hour,
		slot.ResourceID, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListOccupiedSlots returns all occupied slots of one resource type,
// or of all types when resourceType is empty.
func (s *Store) ListOccupiedSlots(ctx context.Context, resourceType availability.ResourceType) ([]availability.OccupiedSlot, error) {
	query := `SELECT id, resource_type, day, hour, resource_id
		FROM occupied_slots`
	args := []any{}
	if resourceType != "" {
		query += ` WHERE resource_type = ?`
		args = append(args, string(resourceType))
	}
	query += ` ORDER BY day, hour, resource_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []availability.OccupiedSlot
	for rows.Next() {
		var (
			slot availability.OccupiedSlot
			rt   string
			d    string
		)
		if err := rows.Scan(&slot.ID, &rt, &d, &slot.Hour, &slot.ResourceID); err != nil {
			return nil, err
		}
		slot.Type = availability.ResourceType(rt)
		if slot.Date, err = calendar.ParseDay(d); err != nil {
			return nil, fmt.Errorf("slot %s: bad day: %w", slot.ID, err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// =============================================================================
// WAREHOUSE CATALOG
// =============================================================================

// SaveWarehouse adds a warehouse to the catalog. Idempotent.
func (s *Store) SaveWarehouse(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO warehouses (name, created_at) VALUES (?, ?)`,
		name, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Catalog returns the warehouse catalog in name order.
func (s *Store) Catalog(ctx context.Context) (availability.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM warehouses ORDER BY name`)
	if err != nil {
		return availability.Catalog{}, err
	}
	defer rows.Close()

	var catalog availability.Catalog
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return availability.Catalog{}, err
		}
		catalog.Warehouses = append(catalog.Warehouses, name)
	}
	return catalog, rows.Err()
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears every table. Development and fixtures only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, table := range []string{"payments", "sales", "occupied_slots", "warehouses"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}
