package server

import (
	"context"

	"google.golang.org/grpc"

	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/services/invoice"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "invoicevoucher.v1.VoucherService"

type (
	ProcessInvoiceRequest  = invoice.ProcessRequest
	ProcessInvoiceResponse = invoice.ProcessResponse
)

type ListProcessedInvoicesRequest struct{}

type ListProcessedInvoicesResponse struct {
	Invoices []entity.ProcessedInvoice `json:"invoices"`
}

type GetInvoiceRequest struct {
	ID int64 `json:"id"`
}

type GetInvoiceResponse struct {
	Invoice *entity.ProcessedInvoice `json:"invoice"`
}

type ExportVouchersRequest struct{}

type ExportVouchersResponse struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

// VoucherServiceServer is the server API for invoicevoucher.v1.VoucherService.
type VoucherServiceServer interface {
	ProcessInvoice(context.Context, *ProcessInvoiceRequest) (*ProcessInvoiceResponse, error)
	ListProcessedInvoices(context.Context, *ListProcessedInvoicesRequest) (*ListProcessedInvoicesResponse, error)
	GetInvoice(context.Context, *GetInvoiceRequest) (*GetInvoiceResponse, error)
	ExportVouchers(context.Context, *ExportVouchersRequest) (*ExportVouchersResponse, error)
}

// VoucherServiceDesc describes the service for grpc.Server.RegisterService.
var VoucherServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VoucherServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ProcessInvoice", VoucherServiceServer.ProcessInvoice),
		unary("ListProcessedInvoices", VoucherServiceServer.ListProcessedInvoices),
		unary("GetInvoice", VoucherServiceServer.GetInvoice),
		unary("ExportVouchers", VoucherServiceServer.ExportVouchers),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterVoucherServiceServer registers srv on s.
func RegisterVoucherServiceServer(s grpc.ServiceRegistrar, srv VoucherServiceServer) {
	s.RegisterService(&VoucherServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](method string, call func(VoucherServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VoucherServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VoucherServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// VoucherServiceClient calls the service with the JSON codec.
type VoucherServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewVoucherServiceClient(cc grpc.ClientConnInterface) *VoucherServiceClient {
	return &VoucherServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *VoucherServiceClient) ProcessInvoice(ctx context.Context, in *ProcessInvoiceRequest, opts ...grpc.CallOption) (*ProcessInvoiceResponse, error) {
	return invoke[ProcessInvoiceResponse](ctx, c.cc, "ProcessInvoice", in, opts)
}

func (c *VoucherServiceClient) ListProcessedInvoices(ctx context.Context, in *ListProcessedInvoicesRequest, opts ...grpc.CallOption) (*ListProcessedInvoicesResponse, error) {
	return invoke[ListProcessedInvoicesResponse](ctx, c.cc, "ListProcessedInvoices", in, opts)
}

func (c *VoucherServiceClient) GetInvoice(ctx context.Context, in *GetInvoiceRequest, opts ...grpc.CallOption) (*GetInvoiceResponse, error) {
	return invoke[GetInvoiceResponse](ctx, c.cc, "GetInvoice", in, opts)
}

func (c *VoucherServiceClient) ExportVouchers(ctx context.Context, in *ExportVouchersRequest, opts ...grpc.CallOption) (*ExportVouchersResponse, error) {
	return invoke[ExportVouchersResponse](ctx, c.cc, "ExportVouchers", in, opts)
}
