package export

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

const (
	SheetVouchers = "Vouchers"
	SheetInvoices = "Invoices"
)

var voucherHeaders = []string{
	"Invoice ID",
	"Vendor",
	"Invoice Number",
	"Invoice Date",
	"Account Classification",
	"Expense Category",
	"Tax Treatment",
	"Account Code",
	"Description",
	"Debit",
	"Credit",
}

var invoiceHeaders = []string{
	"Invoice ID",
	"Vendor",
	"Invoice Number",
	"Invoice Date",
	"Due Date",
	"Subtotal",
	"Tax",
	"Total",
	"OCR Confidence",
	"Compliance Notes",
	"File",
}

// Lister yields the processed invoices to export.
type Lister interface {
	ListProcessed(ctx context.Context) ([]entity.ProcessedInvoice, error)
}

// Service renders processed vouchers as an XLSX workbook.
type Service struct {
	invoices Lister
	logger   *zap.SugaredLogger
}

func NewService(invoices Lister, log *zap.SugaredLogger) *Service {
	return &Service{invoices: invoices, logger: logger.OrNop(log)}
}

// ExportVouchersXLSX returns a workbook with one row per voucher line on the
// Vouchers sheet and one row per invoice on the Invoices sheet, newest first.
func (s *Service) ExportVouchersXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	processed, err := s.invoices.ListProcessed(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "query processed invoices")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes Vouchers
	if err := f.SetSheetName("Sheet1", SheetVouchers); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetInvoices); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(SheetVouchers)
	f.SetActiveSheet(idx)

	if err := writeHeader(f, SheetVouchers, voucherHeaders); err != nil {
		return nil, err
	}
	if err := writeHeader(f, SheetInvoices, invoiceHeaders); err != nil {
		return nil, err
	}

	lines := 0
	for i, p := range processed {
		if err := writeRow(f, SheetInvoices, i+2, invoiceRow(p)); err != nil {
			return nil, err
		}
		if p.Voucher == nil {
			continue
		}
		v := p.Voucher
		for _, l := range v.Lines {
			row := []any{
				p.Invoice.ID,
				p.Invoice.VendorName,
				p.Invoice.InvoiceNumber,
				p.Invoice.InvoiceDate.String(),
				v.AccountClassification,
				v.ExpenseCategory,
				v.TaxTreatment,
				l.AccountCode,
				l.Description,
				money(l.Debit),
				money(l.Credit),
			}
			if err := writeRow(f, SheetVouchers, lines+2, row); err != nil {
				return nil, err
			}
			lines++
		}
	}

	_ = f.SetColWidth(SheetVouchers, "B", "B", 28)
	_ = f.SetColWidth(SheetVouchers, "E", "G", 22)
	_ = f.SetColWidth(SheetVouchers, "I", "I", 40)
	_ = f.SetColWidth(SheetInvoices, "B", "B", 28)
	_ = f.SetColWidth(SheetInvoices, "J", "J", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "xlsx write")
	}

	s.logger.Infow("export.xlsx.ok",
		"invoices", len(processed),
		"voucher_lines", lines,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func invoiceRow(p entity.ProcessedInvoice) []any {
	inv := p.Invoice
	notes := ""
	if p.Voucher != nil {
		notes = truncate(strings.Join(p.Voucher.ComplianceNotes, "; "), 500)
	}
	return []any{
		inv.ID,
		inv.VendorName,
		inv.InvoiceNumber,
		inv.InvoiceDate.String(),
		inv.DueDate.String(),
		money(inv.Subtotal),
		money(inv.TaxAmount),
		money(inv.TotalAmount),
		inv.OCRConfidence,
		notes,
		p.File.FileName,
	}
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return writeRow(f, sheet, 1, row)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// money is written as a number; the workbook is for review, the store
// keeps the exact value.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
