package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/pipeline"
	"github.com/joseph-ayodele/invoice-vouchers/internal/services/invoice"
)

// InvoiceService is what the HTTP handlers call.
type InvoiceService interface {
	ProcessInvoice(ctx context.Context, req invoice.ProcessRequest) (*invoice.ProcessResponse, error)
	ProcessUpload(ctx context.Context, up pipeline.Upload) (*invoice.ProcessResponse, error)
	ListProcessedInvoices(ctx context.Context) ([]entity.ProcessedInvoice, error)
	GetInvoice(ctx context.Context, id int64) (*entity.ProcessedInvoice, error)
	ExportVouchers(ctx context.Context) ([]byte, error)
}

type InvoiceHandler struct {
	service InvoiceService
	logger  *zap.SugaredLogger
}

func NewInvoiceHandler(service InvoiceService, logger *zap.SugaredLogger) *InvoiceHandler {
	return &InvoiceHandler{service: service, logger: logger}
}

// ProcessInvoice accepts either a JSON body {fileData, fileName, fileType}
// or a multipart form with a "file" part.
func (h *InvoiceHandler) ProcessInvoice(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		resp *invoice.ProcessResponse
		err  error
	)
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		up, rerr := readPart(c)
		if rerr != nil {
			_ = c.Error(rerr)
			return
		}
		resp, err = h.service.ProcessUpload(ctx, up)
	} else {
		var req invoice.ProcessRequest
		if berr := c.ShouldBindJSON(&req); berr != nil {
			_ = c.Error(common.NewValidationFailure("invalid request body", []common.ValidationError{
				{Field: "body", Message: "must be JSON with fileData, fileName and fileType, or a multipart file"},
			}))
			return
		}
		resp, err = h.service.ProcessInvoice(ctx, req)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// readPart reads at most one byte past the limit so the size rule can
// report an oversized upload without buffering all of it.
func readPart(c *gin.Context) (pipeline.Upload, error) {
	unreadable := common.NewValidationFailure("unreadable upload", []common.ValidationError{
		{Field: "file", Message: "multipart field is missing or unreadable"},
	})
	fh, err := c.FormFile("file")
	if err != nil {
		return pipeline.Upload{}, unreadable
	}
	f, err := fh.Open()
	if err != nil {
		return pipeline.Upload{}, unreadable
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, constants.MaxUploadBytes+1))
	if err != nil {
		return pipeline.Upload{}, unreadable
	}
	return pipeline.Upload{Data: data, FileName: fh.Filename, MimeType: fh.Header.Get("Content-Type")}, nil
}

func (h *InvoiceHandler) ListProcessedInvoices(c *gin.Context) {
	out, err := h.service.ListProcessedInvoices(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if out == nil {
		out = []entity.ProcessedInvoice{}
	}
	c.JSON(http.StatusOK, gin.H{"invoices": out})
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(common.NewValidationFailure("invalid invoice id", []common.ValidationError{
			{Field: "id", Value: c.Param("id"), Message: "must be a positive integer"},
		}))
		return
	}
	inv, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *InvoiceHandler) ExportVouchers(c *gin.Context) {
	b, err := h.service.ExportVouchers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	name := "vouchers-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, b)
}
