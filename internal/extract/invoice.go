package extract

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

// DefaultTemperature keeps completions close to deterministic.
const DefaultTemperature float32 = 0.1

// InvoiceAdapter asks the model for the invoice fields.
type InvoiceAdapter struct {
	completer   llm.Completer
	temperature float32
	timeout     time.Duration
	log         *zap.SugaredLogger
}

func NewInvoiceAdapter(c llm.Completer, temperature float32, timeout time.Duration, log *zap.SugaredLogger) *InvoiceAdapter {
	return &InvoiceAdapter{completer: c, temperature: temperature, timeout: timeout, log: logger.OrNop(log)}
}

// ExtractInvoiceData implements InvoiceDataExtractor. Every failure is an
// EXTRACTION_FAILURE AppError.
func (a *InvoiceAdapter) ExtractInvoiceData(ctx context.Context, ocrText string) (llm.InvoiceDraft, []byte, error) {
	ctx, cancel := common.WithStageTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()

	req := llm.CompletionRequest{
		System:      llm.InvoiceSystemPrompt(),
		User:        llm.InvoiceUserPrompt(ocrText),
		Temperature: a.temperature,
		JSONMode:    true,
	}
	raw, err := llm.CompleteJSON(ctx, a.completer, req, llm.InvoiceJSONSchema(), llm.InvoiceMoneyFields, a.log)
	if err != nil {
		reason := llm.FailureReason(ctx, err)
		a.log.Errorw("llm.extract.failed", "reason", reason, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.InvoiceDraft{}, raw, common.NewExtractionFailure(reason, err)
	}

	var draft llm.InvoiceDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		a.log.Errorw("llm.extract.decode_failed", "error", err)
		return llm.InvoiceDraft{}, raw, common.NewExtractionFailure(common.ReasonSchemaMismatch, err)
	}

	a.log.Infow("llm.extract.ok",
		"vendor", llm.Str(draft.VendorName),
		"invoice_number", llm.Str(draft.InvoiceNumber),
		"line_items", len(draft.LineItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return draft, raw, nil
}
