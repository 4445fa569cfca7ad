package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

var voucherColumns = []string{
	"id", "invoice_id", "account_classification", "expense_category",
	"tax_treatment", "compliance_notes", "created_at",
}

var voucherLineColumns = []string{"id", "voucher_id", "account_code", "description", "debit", "credit"}

// VoucherRepository stores vouchers. One voucher per invoice.
type VoucherRepository interface {
	// Create inserts the voucher and its lines in one transaction.
	Create(ctx context.Context, v *entity.Voucher) error
	GetByInvoiceID(ctx context.Context, invoiceID int64) (*entity.Voucher, error)
}

type voucherRepository struct {
	db     *DB
	logger *zap.SugaredLogger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *DB, log *zap.SugaredLogger) VoucherRepository {
	return &voucherRepository{db: db, logger: logger.OrNop(log)}
}

func (r *voucherRepository) Create(ctx context.Context, v *entity.Voucher) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	notes, err := json.Marshal(lo.Ternary(v.ComplianceNotes == nil, []string{}, v.ComplianceNotes))
	if err != nil {
		return common.NewPersistenceFailure("encode compliance notes", err)
	}

	err = r.db.inTx(ctx, func(tx *sql.Tx) error {
		b := r.db.builder().Insert(tableVouchers).
			Columns(voucherColumns[1:]...).
			Values(v.InvoiceID, v.AccountClassification, v.ExpenseCategory,
				v.TaxTreatment, string(notes), r.db.ts(v.CreatedAt))
		id, err := r.db.insert(ctx, tx, b)
		if err != nil {
			return err
		}
		v.ID = id

		for i := range v.Lines {
			l := &v.Lines[i]
			l.VoucherID = id
			lb := r.db.builder().Insert(tableVoucherLines).
				Columns(voucherLineColumns[1:]...).
				Values(l.VoucherID, l.AccountCode, l.Description, l.Debit, l.Credit)
			if l.ID, err = r.db.insert(ctx, tx, lb); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Errorw("failed to create voucher", "error", err, "invoice_id", v.InvoiceID)
		v.ID = 0
		return common.NewPersistenceFailure("create voucher", err)
	}
	r.logger.Debugw("voucher.created", "voucher_id", v.ID, "invoice_id", v.InvoiceID, "lines", len(v.Lines))
	return nil
}

func (r *voucherRepository) GetByInvoiceID(ctx context.Context, invoiceID int64) (*entity.Voucher, error) {
	vouchers, err := r.listByInvoiceIDs(ctx, []int64{invoiceID})
	if err != nil {
		return nil, err
	}
	if len(vouchers) == 0 {
		return nil, common.NewAppError(common.CodeNotFound, "no voucher for invoice", nil)
	}
	return &vouchers[0], nil
}

func (r *voucherRepository) listAll(ctx context.Context) ([]entity.Voucher, error) {
	b := r.db.builder()
	query, args := b.Select(voucherColumns...).
		From(b.Table(tableVouchers)).
		OrderBy(entsql.Desc("invoice_id")).
		Query()
	rows, err := r.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Errorw("failed to list vouchers", "error", err)
		return nil, common.NewPersistenceFailure("list vouchers", err)
	}
	vouchers, err := collect(rows, scanVoucher)
	if err != nil {
		return nil, common.NewPersistenceFailure("list vouchers", err)
	}
	return r.withLines(ctx, vouchers)
}

func (r *voucherRepository) listByInvoiceIDs(ctx context.Context, invoiceIDs []int64) ([]entity.Voucher, error) {
	vouchers, err := selectIn(ctx, r.db, tableVouchers, voucherColumns, "invoice_id", invoiceIDs, scanVoucher)
	if err != nil {
		r.logger.Errorw("failed to load vouchers", "error", err, "count", len(invoiceIDs))
		return nil, common.NewPersistenceFailure("load vouchers", err)
	}
	return r.withLines(ctx, vouchers)
}

func (r *voucherRepository) withLines(ctx context.Context, vouchers []entity.Voucher) ([]entity.Voucher, error) {
	ids := lo.Map(vouchers, func(v entity.Voucher, _ int) int64 { return v.ID })
	lines, err := selectIn(ctx, r.db, tableVoucherLines, voucherLineColumns, "voucher_id", ids, scanVoucherLine)
	if err != nil {
		r.logger.Errorw("failed to load voucher lines", "error", err, "count", len(ids))
		return nil, common.NewPersistenceFailure("load voucher lines", err)
	}
	grouped := lo.GroupBy(lines, func(l entity.VoucherLine) int64 { return l.VoucherID })
	for i := range vouchers {
		vouchers[i].Lines = grouped[vouchers[i].ID]
	}
	return vouchers, nil
}

func scanVoucher(rows *sql.Rows) (entity.Voucher, error) {
	var (
		v     entity.Voucher
		notes string
	)
	if err := rows.Scan(&v.ID, &v.InvoiceID, &v.AccountClassification, &v.ExpenseCategory,
		&v.TaxTreatment, &notes, dbTime{&v.CreatedAt}); err != nil {
		return v, err
	}
	if notes != "" {
		if err := json.Unmarshal([]byte(notes), &v.ComplianceNotes); err != nil {
			return v, err
		}
	}
	return v, nil
}

func scanVoucherLine(rows *sql.Rows) (entity.VoucherLine, error) {
	var l entity.VoucherLine
	err := rows.Scan(&l.ID, &l.VoucherID, &l.AccountCode, &l.Description, &l.Debit, &l.Credit)
	return l, err
}
