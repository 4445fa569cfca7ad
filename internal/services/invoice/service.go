// Package invoice is the request-facing service: it validates uploads
// before any pipeline work and exposes processed results.
package invoice

import (
	"context"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
	"github.com/joseph-ayodele/invoice-vouchers/internal/pipeline"
	"github.com/joseph-ayodele/invoice-vouchers/internal/repository"
)

// ProcessResponse is the result of a successful submission.
type ProcessResponse struct {
	File          entity.File    `json:"file"`
	Invoice       entity.Invoice `json:"invoice"`
	Voucher       entity.Voucher `json:"voucher"`
	OCRConfidence float64        `json:"ocrConfidence"`
}

// Processor runs one upload through the pipeline.
type Processor interface {
	Process(ctx context.Context, up pipeline.Upload) (*entity.ProcessedInvoice, error)
}

// Exporter renders processed vouchers as XLSX.
type Exporter interface {
	ExportVouchersXLSX(ctx context.Context) ([]byte, error)
}

// Service handles invoice submission and lookup.
type Service struct {
	processor Processor
	invoices  repository.InvoiceRepository
	exporter  Exporter
	logger    *zap.SugaredLogger
}

// NewService creates a new invoice service.
func NewService(p Processor, invoices repository.InvoiceRepository, exp Exporter, log *zap.SugaredLogger) *Service {
	return &Service{processor: p, invoices: invoices, exporter: exp, logger: logger.OrNop(log)}
}

// ProcessInvoice validates req and runs the pipeline. Rejected uploads
// return a VALIDATION_ERROR AppError and create no rows; pipeline failures
// return *common.ProcessingFailedError.
func (s *Service) ProcessInvoice(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	up, err := DecodeRequest(req)
	if err != nil {
		s.logger.Warnw("invoice.upload.rejected", "file_name", req.FileName, "file_type", req.FileType, "error", err,
			"request_id", common.RequestIDFromContext(ctx))
		return nil, err
	}
	return s.process(ctx, up)
}

// ProcessUpload is ProcessInvoice for already decoded bytes.
func (s *Service) ProcessUpload(ctx context.Context, up pipeline.Upload) (*ProcessResponse, error) {
	if err := ValidateUpload(up); err != nil {
		s.logger.Warnw("invoice.upload.rejected", "file_name", up.FileName, "file_type", up.MimeType, "error", err,
			"request_id", common.RequestIDFromContext(ctx))
		return nil, err
	}
	return s.process(ctx, up)
}

func (s *Service) process(ctx context.Context, up pipeline.Upload) (*ProcessResponse, error) {
	s.logger.Infow("invoice.process.start", "file_name", up.FileName, "size", len(up.Data),
		"request_id", common.RequestIDFromContext(ctx))
	res, err := s.processor.Process(ctx, up)
	if err != nil {
		return nil, err
	}
	resp := &ProcessResponse{
		File:          res.File,
		Invoice:       res.Invoice,
		OCRConfidence: res.Invoice.OCRConfidence,
	}
	if res.Voucher != nil {
		resp.Voucher = *res.Voucher
	}
	s.logger.Infow("invoice.process.ok", "invoice_id", res.Invoice.ID, "voucher_id", resp.Voucher.ID)
	return resp, nil
}

// ListProcessedInvoices returns invoices that have a voucher, newest first.
func (s *Service) ListProcessedInvoices(ctx context.Context) ([]entity.ProcessedInvoice, error) {
	return s.invoices.ListProcessed(ctx)
}

// GetInvoice returns one invoice with its audit trail.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*entity.ProcessedInvoice, error) {
	if id <= 0 {
		return nil, common.NewValidationFailure("invalid invoice id", []common.ValidationError{
			{Field: "id", Value: id, Message: "must be a positive integer"},
		})
	}
	return s.invoices.GetProcessed(ctx, id)
}

// ExportVouchers returns the processed vouchers as an XLSX workbook.
func (s *Service) ExportVouchers(ctx context.Context) ([]byte, error) {
	return s.exporter.ExportVouchersXLSX(ctx)
}
