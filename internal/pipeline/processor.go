// Package pipeline runs one invoice image through OCR, extraction,
// compliance analysis and persistence, recording each transition.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/extract"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
	"github.com/joseph-ayodele/invoice-vouchers/internal/repository"
	"github.com/joseph-ayodele/invoice-vouchers/internal/validation"
)

// Upload is an accepted image. Type and size checks happen before Process.
type Upload struct {
	Data     []byte
	FileName string
	MimeType string
}

// Options configures a Processor.
type Options struct {
	// TempDir holds the per-run image copy; empty means os.TempDir().
	TempDir string
	// AuditLog enables processing_logs rows.
	AuditLog        bool
	StrictLineItems bool
}

// Deps are the stage adapters and stores a Processor drives.
type Deps struct {
	OCR        extract.TextRecognizer
	Extractor  extract.InvoiceDataExtractor
	Compliance extract.ComplianceAnalyzer
	Files      repository.FileRepository
	Invoices   repository.InvoiceRepository
	Vouchers   repository.VoucherRepository
	Logs       repository.ProcessingLogRepository
}

// Processor coordinates OCR, invoice extraction, compliance analysis and
// persistence for one upload at a time. It holds no per-run state, so
// concurrent calls to Process are independent.
type Processor struct {
	deps   Deps
	opts   Options
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewProcessor(deps Deps, opts Options, log *zap.SugaredLogger) *Processor {
	return &Processor{
		deps:   deps,
		opts:   opts,
		logger: logger.OrNop(log),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Process runs the state machine to persisted, or returns a
// *common.ProcessingFailedError naming the stage that failed. Rows written
// before the failure are kept.
func (p *Processor) Process(ctx context.Context, up Upload) (*entity.ProcessedInvoice, error) {
	r := p.newRun(ctx)
	ctx = common.WithRunID(ctx, r.id)
	log := r.log

	log.Infow("pipeline.start", "file_name", up.FileName, "size", len(up.Data))
	start := p.now()

	path, cleanup, err := p.writeTemp(up)
	if err != nil {
		return nil, r.fail(ctx, constants.StageUpload, common.NewAppError(common.CodePersistence, "write temp copy", err), nil)
	}
	defer cleanup()

	// received
	file := entity.File{
		FileName:   up.FileName,
		FilePath:   path,
		MimeType:   constants.NormalizeMime(up.MimeType),
		SizeBytes:  int64(len(up.Data)),
		UploadedAt: p.now(),
	}
	if err := p.deps.Files.Create(ctx, &file); err != nil {
		return nil, r.fail(ctx, constants.StageUpload, err, nil)
	}
	r.fileID = &file.ID
	r.succeed(ctx, constants.StageUpload, details{"fileName": file.FileName, "sizeBytes": file.SizeBytes, "mimeType": file.MimeType})

	// ocr_done
	ocrRes, err := p.deps.OCR.PerformOCR(ctx, path)
	if err != nil {
		return nil, r.fail(ctx, constants.StageOCR, err, nil)
	}
	r.succeed(ctx, constants.StageOCR, details{
		"provider":   ocrRes.Provider,
		"confidence": ocrRes.Confidence,
		"chars":      len(ocrRes.Text),
		"warnings":   ocrRes.Warnings,
	})

	// extracted
	draft, raw, err := p.deps.Extractor.ExtractInvoiceData(ctx, ocrRes.Text)
	if err != nil {
		return nil, r.fail(ctx, constants.StageExtraction, err, nil)
	}
	r.succeed(ctx, constants.StageExtraction, details{"output": rawJSON(raw)})

	// validated_invoice
	invoice, report := validation.ValidateInvoiceDraft(draft, validation.Options{StrictLineItems: p.opts.StrictLineItems})
	if !report.OK() {
		return nil, r.fail(ctx, constants.StageInvoiceValidation, report.Errors.Err(), details{"errors": report.Errors})
	}
	invoice.FileID = file.ID
	invoice.OCRConfidence = ocrRes.Confidence
	invoice.CreatedAt = p.now()
	if err := p.deps.Invoices.Create(ctx, &invoice); err != nil {
		return nil, r.fail(ctx, constants.StagePersistence, err, nil)
	}
	r.invoiceID = &invoice.ID
	r.succeed(ctx, constants.StageInvoiceValidation, details{"warnings": report.Warnings, "invoiceId": invoice.ID})

	// compliance_done
	vdraft, raw, err := p.deps.Compliance.AnalyzeGAAPCompliance(ctx, invoice)
	if err != nil {
		return nil, r.fail(ctx, constants.StageCompliance, err, nil)
	}
	r.succeed(ctx, constants.StageCompliance, details{"output": rawJSON(raw)})

	// validated_voucher
	voucher, vreport := validation.ValidateVoucherDraft(vdraft)
	if !vreport.OK() {
		return nil, r.fail(ctx, constants.StageVoucherValidation, vreport.Errors.Err(), details{"errors": vreport.Errors})
	}
	debit, credit := voucher.Totals()
	r.succeed(ctx, constants.StageVoucherValidation, details{"warnings": vreport.Warnings, "debit": debit, "credit": credit})

	// persisted
	voucher.InvoiceID = invoice.ID
	voucher.CreatedAt = p.now()
	if err := p.deps.Vouchers.Create(ctx, &voucher); err != nil {
		return nil, r.fail(ctx, constants.StagePersistence, err, nil)
	}
	r.succeed(ctx, constants.StagePersistence, details{"voucherId": voucher.ID})

	log.Infow("pipeline.done",
		"file_id", file.ID,
		"invoice_id", invoice.ID,
		"voucher_id", voucher.ID,
		"duration", p.now().Sub(start),
	)
	return &entity.ProcessedInvoice{File: file, Invoice: invoice, Voucher: &voucher}, nil
}

// writeTemp copies the upload to a uniquely named file. The returned
// cleanup removes it and is safe to call on every path.
func (p *Processor) writeTemp(up Upload) (string, func(), error) {
	dir := p.opts.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", func() {}, errors.Wrap(err, "create temp dir")
	}
	ext := constants.NormalizeExt(filepath.Ext(up.FileName))
	if ext != "" {
		ext = "." + ext
	}
	path := filepath.Join(dir, "invoice-"+uuid.NewString()+ext)
	if err := os.WriteFile(path, up.Data, 0o600); err != nil {
		return "", func() {}, errors.Wrap(err, "write temp file")
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warnw("pipeline.temp.remove_failed", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}
