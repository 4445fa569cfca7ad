package repository

import (
	"context"
	"database/sql"
	"strings"

	"entgo.io/ent/dialect"
	"github.com/cockroachdb/errors"
)

// Table names.
const (
	tableFiles          = "files"
	tableInvoices       = "invoices"
	tableLineItems      = "invoice_line_items"
	tableVouchers       = "vouchers"
	tableVoucherLines   = "voucher_lines"
	tableProcessingLogs = "processing_logs"
)

// column types per dialect; money is exact NUMERIC on Postgres and
// canonical decimal text on SQLite.
type ddlTypes struct {
	pk, fk, money, ts, date, real string
}

var postgresTypes = ddlTypes{
	pk:    "BIGSERIAL PRIMARY KEY",
	fk:    "BIGINT",
	money: "NUMERIC",
	ts:    "TIMESTAMPTZ",
	date:  "DATE",
	real:  "DOUBLE PRECISION",
}

var sqliteTypes = ddlTypes{
	pk:    "INTEGER PRIMARY KEY AUTOINCREMENT",
	fk:    "INTEGER",
	money: "TEXT",
	ts:    "TEXT",
	date:  "TEXT",
	real:  "REAL",
}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS files (
	id {pk},
	file_name TEXT NOT NULL,
	file_path TEXT NOT NULL,
	mime_type TEXT NOT NULL DEFAULT '',
	size_bytes {fk} NOT NULL DEFAULT 0,
	uploaded_at {ts} NOT NULL
);
CREATE TABLE IF NOT EXISTS invoices (
	id {pk},
	file_id {fk} NOT NULL REFERENCES files(id),
	vendor_name TEXT NOT NULL,
	vendor_address TEXT NOT NULL DEFAULT '',
	invoice_number TEXT NOT NULL DEFAULT '',
	invoice_date {date} NOT NULL,
	due_date {date} NOT NULL,
	subtotal {money} NOT NULL,
	tax_amount {money} NOT NULL,
	total_amount {money} NOT NULL,
	ocr_confidence {real} NOT NULL DEFAULT 0,
	created_at {ts} NOT NULL
);
CREATE TABLE IF NOT EXISTS invoice_line_items (
	id {pk},
	invoice_id {fk} NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	description TEXT NOT NULL,
	quantity {money} NOT NULL,
	unit_price {money} NOT NULL,
	amount {money} NOT NULL
);
CREATE TABLE IF NOT EXISTS vouchers (
	id {pk},
	invoice_id {fk} NOT NULL UNIQUE REFERENCES invoices(id) ON DELETE CASCADE,
	account_classification TEXT NOT NULL,
	expense_category TEXT NOT NULL,
	tax_treatment TEXT NOT NULL,
	compliance_notes TEXT NOT NULL DEFAULT '[]',
	created_at {ts} NOT NULL
);
CREATE TABLE IF NOT EXISTS voucher_lines (
	id {pk},
	voucher_id {fk} NOT NULL REFERENCES vouchers(id) ON DELETE CASCADE,
	account_code TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	debit {money} NOT NULL,
	credit {money} NOT NULL
);
CREATE TABLE IF NOT EXISTS processing_logs (
	id {pk},
	run_id TEXT NOT NULL,
	file_id {fk} REFERENCES files(id),
	invoice_id {fk} REFERENCES invoices(id),
	step TEXT NOT NULL,
	status TEXT NOT NULL,
	details TEXT,
	created_at {ts} NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invoices_file_id ON invoices(file_id);
CREATE INDEX IF NOT EXISTS idx_line_items_invoice_id ON invoice_line_items(invoice_id);
CREATE INDEX IF NOT EXISTS idx_voucher_lines_voucher_id ON voucher_lines(voucher_id);
CREATE INDEX IF NOT EXISTS idx_processing_logs_file_id ON processing_logs(file_id);
CREATE INDEX IF NOT EXISTS idx_processing_logs_invoice_id ON processing_logs(invoice_id);
CREATE INDEX IF NOT EXISTS idx_processing_logs_run_id ON processing_logs(run_id);
`

// SchemaStatements renders the DDL for the given dialect.
func SchemaStatements(d string) ([]string, error) {
	var ty ddlTypes
	switch d {
	case dialect.Postgres:
		ty = postgresTypes
	case "sqlite", dialect.SQLite:
		ty = sqliteTypes
	default:
		return nil, errors.Newf("no schema for dialect %q", d)
	}
	ddl := strings.NewReplacer(
		"{pk}", ty.pk,
		"{fk}", ty.fk,
		"{money}", ty.money,
		"{ts}", ty.ts,
		"{date}", ty.date,
		"{real}", ty.real,
	).Replace(schemaTemplate)

	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}

// Migrate creates any missing tables and indexes. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	stmts, err := SchemaStatements(db.Dialect())
	if err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				db.log.Errorw("db.migrate.failed", "error", err, "statement", firstLine(stmt))
				return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
			}
		}
		db.log.Infow("db.migrate.ok", "dialect", db.Dialect(), "statements", len(stmts))
		return nil
	})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
