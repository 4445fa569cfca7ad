package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
	"github.com/joseph-ayodele/invoice-vouchers/internal/services/invoice"
)

// XLSXContentType is the MIME type of exported workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InvoiceService is the business API the transports expose.
type InvoiceService interface {
	ProcessInvoice(ctx context.Context, req invoice.ProcessRequest) (*invoice.ProcessResponse, error)
	ListProcessedInvoices(ctx context.Context) ([]entity.ProcessedInvoice, error)
	GetInvoice(ctx context.Context, id int64) (*entity.ProcessedInvoice, error)
	ExportVouchers(ctx context.Context) ([]byte, error)
}

// VoucherServer adapts InvoiceService to VoucherServiceServer.
type VoucherServer struct {
	svc    InvoiceService
	logger *zap.SugaredLogger
}

func NewVoucherServer(svc InvoiceService, log *zap.SugaredLogger) *VoucherServer {
	return &VoucherServer{svc: svc, logger: logger.OrNop(log)}
}

func (s *VoucherServer) ProcessInvoice(ctx context.Context, req *ProcessInvoiceRequest) (*ProcessInvoiceResponse, error) {
	resp, err := s.svc.ProcessInvoice(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *VoucherServer) ListProcessedInvoices(ctx context.Context, _ *ListProcessedInvoicesRequest) (*ListProcessedInvoicesResponse, error) {
	out, err := s.svc.ListProcessedInvoices(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if out == nil {
		out = []entity.ProcessedInvoice{}
	}
	return &ListProcessedInvoicesResponse{Invoices: out}, nil
}

func (s *VoucherServer) GetInvoice(ctx context.Context, req *GetInvoiceRequest) (*GetInvoiceResponse, error) {
	inv, err := s.svc.GetInvoice(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetInvoiceResponse{Invoice: inv}, nil
}

func (s *VoucherServer) ExportVouchers(ctx context.Context, _ *ExportVouchersRequest) (*ExportVouchersResponse, error) {
	b, err := s.svc.ExportVouchers(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ExportVouchersResponse{
		FileName:    ExportFileName(time.Now()),
		ContentType: XLSXContentType,
		Content:     b,
	}, nil
}

// ExportFileName names an export taken at t.
func ExportFileName(t time.Time) string {
	return "vouchers-" + t.UTC().Format("20060102-150405") + ".xlsx"
}
