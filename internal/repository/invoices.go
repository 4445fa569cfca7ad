package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

var invoiceColumns = []string{
	"id", "file_id", "vendor_name", "vendor_address", "invoice_number",
	"invoice_date", "due_date", "subtotal", "tax_amount", "total_amount",
	"ocr_confidence", "created_at",
}

var lineItemColumns = []string{"id", "invoice_id", "description", "quantity", "unit_price", "amount"}

// InvoiceRepository stores validated invoices and assembles processed results.
type InvoiceRepository interface {
	// Create inserts the invoice and its line items in one transaction.
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	// ListProcessed returns every invoice that has a voucher, newest first.
	ListProcessed(ctx context.Context) ([]entity.ProcessedInvoice, error)
	// GetProcessed returns one invoice with its file, voucher (if any) and audit logs.
	GetProcessed(ctx context.Context, id int64) (*entity.ProcessedInvoice, error)
}

type invoiceRepository struct {
	db       *DB
	files    FileRepository
	vouchers *voucherRepository
	logs     ProcessingLogRepository
	logger   *zap.SugaredLogger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *DB, log *zap.SugaredLogger) InvoiceRepository {
	log = logger.OrNop(log)
	return &invoiceRepository{
		db:       db,
		files:    NewFileRepository(db, log),
		vouchers: &voucherRepository{db: db, logger: log},
		logs:     NewProcessingLogRepository(db, log),
		logger:   log,
	}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		b := r.db.builder().Insert(tableInvoices).
			Columns(invoiceColumns[1:]...).
			Values(inv.FileID, inv.VendorName, inv.VendorAddress, inv.InvoiceNumber,
				inv.InvoiceDate, inv.DueDate, inv.Subtotal, inv.TaxAmount, inv.TotalAmount,
				inv.OCRConfidence, r.db.ts(inv.CreatedAt))
		id, err := r.db.insert(ctx, tx, b)
		if err != nil {
			return err
		}
		inv.ID = id

		for i := range inv.LineItems {
			li := &inv.LineItems[i]
			li.InvoiceID = id
			lb := r.db.builder().Insert(tableLineItems).
				Columns(lineItemColumns[1:]...).
				Values(li.InvoiceID, li.Description, li.Quantity, li.UnitPrice, li.Amount)
			if li.ID, err = r.db.insert(ctx, tx, lb); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Errorw("failed to create invoice", "error", err, "file_id", inv.FileID)
		inv.ID = 0
		return common.NewPersistenceFailure("create invoice", err)
	}
	r.logger.Debugw("invoice.created", "invoice_id", inv.ID, "line_items", len(inv.LineItems))
	return nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	invoices, err := r.loadInvoices(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, notFound("invoice", id)
	}
	return &invoices[0], nil
}

func (r *invoiceRepository) ListProcessed(ctx context.Context) ([]entity.ProcessedInvoice, error) {
	vouchers, err := r.vouchers.listAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(vouchers) == 0 {
		return []entity.ProcessedInvoice{}, nil
	}
	invoiceIDs := lo.Map(vouchers, func(v entity.Voucher, _ int) int64 { return v.InvoiceID })
	invoices, err := r.loadInvoices(ctx, invoiceIDs)
	if err != nil {
		return nil, err
	}
	byInvoice := lo.KeyBy(vouchers, func(v entity.Voucher) int64 { return v.InvoiceID })

	out, err := r.assemble(ctx, invoices, byInvoice)
	if err != nil {
		return nil, err
	}
	r.logger.Debugw("invoice.list_processed", "count", len(out))
	return out, nil
}

func (r *invoiceRepository) GetProcessed(ctx context.Context, id int64) (*entity.ProcessedInvoice, error) {
	invoices, err := r.loadInvoices(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, notFound("invoice", id)
	}
	vouchers, err := r.vouchers.listByInvoiceIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	byInvoice := lo.KeyBy(vouchers, func(v entity.Voucher) int64 { return v.InvoiceID })

	out, err := r.assemble(ctx, invoices, byInvoice)
	if err != nil {
		return nil, err
	}
	p := out[0]
	if p.Logs, err = r.logs.ListByFile(ctx, p.File.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

// loadInvoices fetches invoices with their line items, newest first.
func (r *invoiceRepository) loadInvoices(ctx context.Context, ids []int64) ([]entity.Invoice, error) {
	invoices, err := selectIn(ctx, r.db, tableInvoices, invoiceColumns, "id", ids, scanInvoice)
	if err != nil {
		r.logger.Errorw("failed to load invoices", "error", err, "count", len(ids))
		return nil, common.NewPersistenceFailure("load invoices", err)
	}
	items, err := selectIn(ctx, r.db, tableLineItems, lineItemColumns, "invoice_id", ids, scanLineItem)
	if err != nil {
		r.logger.Errorw("failed to load line items", "error", err, "count", len(ids))
		return nil, common.NewPersistenceFailure("load line items", err)
	}
	grouped := lo.GroupBy(items, func(li entity.InvoiceLineItem) int64 { return li.InvoiceID })
	for i := range invoices {
		invoices[i].LineItems = grouped[invoices[i].ID]
	}
	// selectIn orders within each chunk only
	sort.Slice(invoices, func(a, b int) bool { return invoices[a].ID > invoices[b].ID })
	return invoices, nil
}

// assemble attaches files and vouchers, preserving the invoice order.
func (r *invoiceRepository) assemble(ctx context.Context, invoices []entity.Invoice, vouchers map[int64]entity.Voucher) ([]entity.ProcessedInvoice, error) {
	fileIDs := lo.Uniq(lo.Map(invoices, func(inv entity.Invoice, _ int) int64 { return inv.FileID }))
	files, err := r.files.ListByIDs(ctx, fileIDs)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(files, func(f entity.File) int64 { return f.ID })

	out := make([]entity.ProcessedInvoice, 0, len(invoices))
	for _, inv := range invoices {
		p := entity.ProcessedInvoice{File: byID[inv.FileID], Invoice: inv}
		if v, ok := vouchers[inv.ID]; ok {
			p.Voucher = &v
		}
		out = append(out, p)
	}
	return out, nil
}

func scanInvoice(rows *sql.Rows) (entity.Invoice, error) {
	var inv entity.Invoice
	err := rows.Scan(&inv.ID, &inv.FileID, &inv.VendorName, &inv.VendorAddress, &inv.InvoiceNumber,
		&inv.InvoiceDate, &inv.DueDate, &inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount,
		&inv.OCRConfidence, dbTime{&inv.CreatedAt})
	return inv, err
}

func scanLineItem(rows *sql.Rows) (entity.InvoiceLineItem, error) {
	var li entity.InvoiceLineItem
	err := rows.Scan(&li.ID, &li.InvoiceID, &li.Description, &li.Quantity, &li.UnitPrice, &li.Amount)
	return li, err
}
