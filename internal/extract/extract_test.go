package extract

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
	"github.com/joseph-ayodele/invoice-vouchers/internal/ocr"
)

type recognizerFunc func(ctx context.Context, path string) (ocr.Result, error)

func (f recognizerFunc) Recognize(ctx context.Context, path string) (ocr.Result, error) {
	return f(ctx, path)
}

func appErr(t *testing.T, err error) *common.AppError {
	t.Helper()
	ae, ok := common.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return ae
}

func TestPerformOCR(t *testing.T) {
	ok := recognizerFunc(func(ctx context.Context, path string) (ocr.Result, error) {
		return ocr.Result{Text: "INVOICE", Confidence: 91.5, Provider: "stub"}, nil
	})
	res, err := NewOCRAdapter(ok, nil, time.Second, nil).PerformOCR(context.Background(), "in.png")
	require.NoError(t, err)
	assert.Equal(t, "INVOICE", res.Text)
	assert.Equal(t, 91.5, res.Confidence)
}

func TestPerformOCRFailures(t *testing.T) {
	cases := []struct {
		name   string
		rec    recognizerFunc
		reason string
	}{
		{"blank text", func(ctx context.Context, path string) (ocr.Result, error) {
			return ocr.Result{Text: " \n "}, nil
		}, common.ReasonEmptyText},
		{"provider error", func(ctx context.Context, path string) (ocr.Result, error) {
			return ocr.Result{}, errors.New("tesseract: exit status 1")
		}, common.ReasonProvider},
		{"timeout", func(ctx context.Context, path string) (ocr.Result, error) {
			<-ctx.Done()
			return ocr.Result{}, ctx.Err()
		}, common.ReasonTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOCRAdapter(tc.rec, nil, 20*time.Millisecond, nil).PerformOCR(context.Background(), "in.png")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrOCRFailure))
			assert.Equal(t, tc.reason, appErr(t, err).Reason)
		})
	}
}

func TestPerformOCRPreprocesses(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "invoice.png")
	img := imaging.New(50, 20, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	require.NoError(t, imaging.Save(img, src))

	var seen string
	var bounds image.Rectangle
	rec := recognizerFunc(func(ctx context.Context, path string) (ocr.Result, error) {
		seen = path
		got, err := imaging.Open(path)
		require.NoError(t, err)
		bounds = got.Bounds()
		return ocr.Result{Text: "ok"}, nil
	})
	prep := &ocr.Preprocessor{TargetWidth: 100, Threshold: 160, Dir: dir}
	_, err := NewOCRAdapter(rec, prep, time.Second, nil).PerformOCR(context.Background(), src)
	require.NoError(t, err)

	assert.NotEqual(t, src, seen)
	assert.Equal(t, 100, bounds.Dx())
	assert.NoFileExists(t, seen)
}

const invoiceJSON = `{
	"vendorName": "Acme Corp",
	"vendorAddress": "1 Main St",
	"invoiceNumber": "INV-7",
	"invoiceDate": "2024-03-01",
	"dueDate": "2024-03-31",
	"subtotal": 100.00,
	"taxAmount": 8.25,
	"totalAmount": "$108.25",
	"lineItems": [{"description": "Consulting", "quantity": 2, "unitPrice": 50, "amount": 100}]
}`

func TestExtractInvoiceData(t *testing.T) {
	var req llm.CompletionRequest
	c := llm.CompleterFunc(func(ctx context.Context, r llm.CompletionRequest) (string, error) {
		req = r
		return invoiceJSON, nil
	})
	draft, raw, err := NewInvoiceAdapter(c, DefaultTemperature, time.Second, nil).
		ExtractInvoiceData(context.Background(), "ACME CORP INVOICE INV-7")
	require.NoError(t, err)

	assert.InDelta(t, 0.1, float64(req.Temperature), 1e-6)
	assert.True(t, req.JSONMode)
	assert.Contains(t, req.User, "ACME CORP INVOICE INV-7")

	assert.Equal(t, "Acme Corp", llm.Str(draft.VendorName))
	assert.Equal(t, "108.25", draft.TotalAmount.Value.String())
	require.Len(t, draft.LineItems, 1)
	assert.NotEmpty(t, raw)
}

func TestExtractInvoiceDataFailures(t *testing.T) {
	cases := []struct {
		name    string
		content string
		err     error
		reason  string
	}{
		{"provider", "", errors.New("503 service unavailable"), common.ReasonProvider},
		{"empty", "", nil, common.ReasonEmptyResponse},
		{"prose", "I could not read this invoice.", nil, common.ReasonInvalidJSON},
		{"schema", `{"vendorName": 42}`, nil, common.ReasonSchemaMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := llm.CompleterFunc(func(ctx context.Context, r llm.CompletionRequest) (string, error) {
				return tc.content, tc.err
			})
			_, _, err := NewInvoiceAdapter(c, DefaultTemperature, time.Second, nil).ExtractInvoiceData(context.Background(), "text")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrExtraction))
			assert.Equal(t, tc.reason, appErr(t, err).Reason)
			if tc.err != nil {
				assert.Contains(t, err.Error(), "503 service unavailable")
			}
		})
	}
}

const voucherJSON = `{
	"accountClassification": "opex",
	"expenseCategory": "consulting",
	"taxTreatment": "Partially Recoverable",
	"complianceNotes": ["Expense recognized in the period incurred"],
	"voucherLines": [
		{"accountCode": "6100", "description": "Consulting", "debit": 100, "credit": 0},
		{"accountCode": "1400", "description": "Sales tax", "debit": 8.25, "credit": 0},
		{"accountCode": "2000", "description": "Accounts payable", "debit": 0, "credit": "108.25"}
	]
}`

func TestAnalyzeGAAPCompliance(t *testing.T) {
	var req llm.CompletionRequest
	c := llm.CompleterFunc(func(ctx context.Context, r llm.CompletionRequest) (string, error) {
		req = r
		return voucherJSON, nil
	})
	inv := entity.Invoice{ID: 7, VendorName: "Acme Corp"}
	draft, _, err := NewComplianceAdapter(c, DefaultTemperature, time.Second, nil).AnalyzeGAAPCompliance(context.Background(), inv)
	require.NoError(t, err)

	assert.Contains(t, req.User, "Acme Corp")
	assert.Contains(t, req.System, "total debits must equal total credits")

	assert.Equal(t, "Operating Expense", llm.Str(draft.AccountClassification))
	assert.Equal(t, "Professional Services", llm.Str(draft.ExpenseCategory))
	assert.Equal(t, "Partially Recoverable", llm.Str(draft.TaxTreatment))
	require.Len(t, draft.VoucherLines, 3)
	assert.Equal(t, "108.25", draft.VoucherLines[2].Credit.Value.String())
}

func TestAnalyzeGAAPComplianceTimeout(t *testing.T) {
	c := llm.CompleterFunc(func(ctx context.Context, r llm.CompletionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, _, err := NewComplianceAdapter(c, DefaultTemperature, 10*time.Millisecond, nil).
		AnalyzeGAAPCompliance(context.Background(), entity.Invoice{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrCompliance))
	assert.Equal(t, common.ReasonTimeout, appErr(t, err).Reason)
}

func TestPerformOCRLogsCarryRunID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	empty := recognizerFunc(func(ctx context.Context, path string) (ocr.Result, error) {
		return ocr.Result{Text: "  ", Provider: "stub"}, nil
	})
	ctx := common.WithRunID(context.Background(), "run-42")

	_, err := NewOCRAdapter(empty, nil, time.Second, zap.New(core).Sugar()).PerformOCR(ctx, "in.png")
	require.Error(t, err)

	entries := logs.FilterMessage("ocr.recognize.empty").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-42", entries[0].ContextMap()["run_id"])
}
