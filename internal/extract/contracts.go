package extract

import (
	"context"

	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
)

// OCRResult is the text read from an image and a 0-100 confidence.
type OCRResult struct {
	Text       string
	Confidence float64
	Provider   string
	Warnings   []string
}

// TextRecognizer is stage 1: image -> text.
type TextRecognizer interface {
	PerformOCR(ctx context.Context, imagePath string) (OCRResult, error)
}

// InvoiceDataExtractor is stage 2: text -> invoice draft.
// The raw JSON is returned for the audit log.
type InvoiceDataExtractor interface {
	ExtractInvoiceData(ctx context.Context, ocrText string) (llm.InvoiceDraft, []byte, error)
}

// ComplianceAnalyzer is stage 3: validated invoice -> voucher draft.
type ComplianceAnalyzer interface {
	AnalyzeGAAPCompliance(ctx context.Context, invoice entity.Invoice) (llm.VoucherDraft, []byte, error)
}
