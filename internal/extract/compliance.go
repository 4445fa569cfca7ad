package extract

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

// ComplianceAdapter asks the model for a GAAP voucher.
type ComplianceAdapter struct {
	completer   llm.Completer
	temperature float32
	timeout     time.Duration
	log         *zap.SugaredLogger
}

func NewComplianceAdapter(c llm.Completer, temperature float32, timeout time.Duration, log *zap.SugaredLogger) *ComplianceAdapter {
	return &ComplianceAdapter{completer: c, temperature: temperature, timeout: timeout, log: logger.OrNop(log)}
}

// AnalyzeGAAPCompliance implements ComplianceAnalyzer. Every failure is a
// COMPLIANCE_FAILURE AppError. Known labels are canonicalized.
func (a *ComplianceAdapter) AnalyzeGAAPCompliance(ctx context.Context, invoice entity.Invoice) (llm.VoucherDraft, []byte, error) {
	ctx, cancel := common.WithStageTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()

	req := llm.CompletionRequest{
		System:      llm.ComplianceSystemPrompt(),
		User:        llm.ComplianceUserPrompt(invoice),
		Temperature: a.temperature,
		JSONMode:    true,
	}
	raw, err := llm.CompleteJSON(ctx, a.completer, req, llm.VoucherJSONSchema(), llm.VoucherMoneyFields, a.log)
	if err != nil {
		reason := llm.FailureReason(ctx, err)
		a.log.Errorw("llm.compliance.failed", "invoice_id", invoice.ID, "reason", reason, "error", err)
		return llm.VoucherDraft{}, raw, common.NewComplianceFailure(reason, err)
	}

	var draft llm.VoucherDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		a.log.Errorw("llm.compliance.decode_failed", "invoice_id", invoice.ID, "error", err)
		return llm.VoucherDraft{}, raw, common.NewComplianceFailure(common.ReasonSchemaMismatch, err)
	}

	canonicalize(&draft.AccountClassification, constants.AccountClassifications)
	canonicalize(&draft.ExpenseCategory, constants.ExpenseCategories)
	canonicalize(&draft.TaxTreatment, constants.TaxTreatments)

	a.log.Infow("llm.compliance.ok",
		"invoice_id", invoice.ID,
		"classification", llm.Str(draft.AccountClassification),
		"category", llm.Str(draft.ExpenseCategory),
		"lines", len(draft.VoucherLines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return draft, raw, nil
}

func canonicalize(label **string, known []string) {
	if *label == nil {
		return
	}
	if c, _ := constants.CanonicalizeLabel(**label, known); c != "" {
		*label = &c
	}
}
