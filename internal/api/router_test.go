package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/pipeline"
	"github.com/joseph-ayodele/invoice-vouchers/internal/services/invoice"
)

type fakeService struct {
	gotReq    invoice.ProcessRequest
	gotUpload pipeline.Upload
	err       error
	requestID string
}

func (f *fakeService) ProcessInvoice(ctx context.Context, req invoice.ProcessRequest) (*invoice.ProcessResponse, error) {
	f.gotReq = req
	f.requestID = common.RequestIDFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &invoice.ProcessResponse{Invoice: entity.Invoice{ID: 2}, Voucher: entity.Voucher{ID: 3}}, nil
}

func (f *fakeService) ProcessUpload(ctx context.Context, up pipeline.Upload) (*invoice.ProcessResponse, error) {
	f.gotUpload = up
	if f.err != nil {
		return nil, f.err
	}
	return &invoice.ProcessResponse{Invoice: entity.Invoice{ID: 4}}, nil
}

func (f *fakeService) ListProcessedInvoices(ctx context.Context) ([]entity.ProcessedInvoice, error) {
	return nil, nil
}

func (f *fakeService) GetInvoice(ctx context.Context, id int64) (*entity.ProcessedInvoice, error) {
	if id != 2 {
		return nil, common.NewAppError(common.CodeNotFound, "invoice 9 not found", nil)
	}
	return &entity.ProcessedInvoice{Invoice: entity.Invoice{ID: 2}}, nil
}

func (f *fakeService) ExportVouchers(ctx context.Context) ([]byte, error) {
	return []byte("PK"), nil
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if ct := rec.Header().Get("Content-Type"); len(rec.Body.Bytes()) > 0 && ct != xlsxContentType {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestProcessInvoiceJSON(t *testing.T) {
	svc := &fakeService{}
	r := NewRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices",
		bytes.NewBufferString(`{"fileData":"aGk=","fileName":"a.png","fileType":"image/png"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRequestID, "rid-1")

	rec, body := do(t, r, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "rid-1", svc.requestID)
	assert.Equal(t, "a.png", svc.gotReq.FileName)
	assert.EqualValues(t, 3, body["voucher"].(map[string]any)["id"])
}

func TestProcessInvoiceMultipart(t *testing.T) {
	svc := &fakeService{}
	r := NewRouter(svc, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="scan.jpg"`)
	hdr.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/invoices", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec, _ := do(t, r, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "scan.jpg", svc.gotUpload.FileName)
	assert.Equal(t, "image/jpeg", svc.gotUpload.MimeType)
	assert.Len(t, svc.gotUpload.Data, 4)
}

func TestProcessInvoiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", common.NewValidationFailure("validation failed", []common.ValidationError{{Field: "fileName", Message: "bad"}}),
			http.StatusBadRequest, common.CodeValidation},
		{"pipeline", common.NewProcessingFailed(constants.StageCompliance, common.NewComplianceFailure(common.ReasonInvalidJSON, nil)),
			http.StatusUnprocessableEntity, "PROCESSING_FAILED"},
		{"timeout", common.NewProcessingFailed(constants.StageOCR, common.NewOCRFailure(common.ReasonTimeout, nil)),
			http.StatusGatewayTimeout, "PROCESSING_FAILED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRouter(&fakeService{err: tc.err}, nil, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/invoices", bytes.NewBufferString(`{}`))
			req.Header.Set("Content-Type", "application/json")

			rec, body := do(t, r, req)
			assert.Equal(t, tc.status, rec.Code)
			detail := body["error"].(map[string]any)
			assert.Equal(t, tc.code, detail["code"])
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestProcessInvoiceMalformedBody(t *testing.T) {
	r := NewRouter(&fakeService{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/invoices", bytes.NewBufferString(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec, _ := do(t, r, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListGetExport(t *testing.T) {
	r := NewRouter(&fakeService{}, nil, nil)

	rec, body := do(t, r, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["invoices"])

	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/invoices/2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/invoices/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/invoices/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/vouchers/export", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
}

func TestHealthz(t *testing.T) {
	rec, _ := do(t, NewRouter(&fakeService{}, nil, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := func(context.Context) error { return errors.New("db down") }
	rec, _ = do(t, NewRouter(&fakeService{}, down, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
