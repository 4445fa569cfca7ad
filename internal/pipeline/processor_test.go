package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/extract"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
	"github.com/joseph-ayodele/invoice-vouchers/internal/ocr"
	"github.com/joseph-ayodele/invoice-vouchers/internal/repository"
)

const invoiceJSON = `{
  "vendorName": "Acme Consulting",
  "vendorAddress": "1 Main St",
  "invoiceNumber": "INV-42",
  "invoiceDate": "2024-03-01",
  "dueDate": "2024-03-31",
  "subtotal": 1000.00,
  "taxAmount": 80.00,
  "totalAmount": 1080.00,
  "lineItems": [
    {"description": "Advisory", "quantity": 10, "unitPrice": 100.00, "amount": 1000.00}
  ]
}`

const voucherJSON = `{
  "accountClassification": "Operating Expense",
  "expenseCategory": "Professional Services",
  "taxTreatment": "Taxable",
  "complianceNotes": ["expense recognized on invoice date"],
  "voucherLines": [
    {"accountCode": "6100", "description": "Advisory", "debit": 1000.00, "credit": 0},
    {"accountCode": "1400", "description": "Input tax", "debit": 80.00, "credit": 0},
    {"accountCode": "2000", "description": "Accounts payable", "debit": 0, "credit": 1080.00}
  ]
}`

const unbalancedVoucherJSON = `{
  "accountClassification": "Operating Expense",
  "expenseCategory": "Professional Services",
  "taxTreatment": "Taxable",
  "voucherLines": [
    {"accountCode": "6100", "debit": 1000.00, "credit": 0},
    {"accountCode": "2000", "debit": 0, "credit": 999.99}
  ]
}`

type recognizerFunc func(ctx context.Context, path string) (ocr.Result, error)

func (f recognizerFunc) Recognize(ctx context.Context, path string) (ocr.Result, error) {
	return f(ctx, path)
}

type harness struct {
	proc     *Processor
	db       *repository.DB
	invoices repository.InvoiceRepository
	logs     repository.ProcessingLogRepository
	tempDir  string
	ocrCalls atomic.Int32
	seenPath atomic.Value
}

type stubs struct {
	ocrText    string
	invoice    string
	voucher    string
	completion error
	noAudit    bool
}

func newHarness(t *testing.T, s stubs) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{
		Driver: dialect.SQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "pipeline.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	h := &harness{db: db, tempDir: t.TempDir()}

	rec := recognizerFunc(func(ctx context.Context, path string) (ocr.Result, error) {
		h.ocrCalls.Add(1)
		h.seenPath.Store(path)
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, "temp copy must exist during OCR")
		return ocr.Result{Text: s.ocrText, Confidence: 88, Provider: "stub"}, nil
	})
	completer := llm.CompleterFunc(func(ctx context.Context, req llm.CompletionRequest) (string, error) {
		if s.completion != nil {
			return "", s.completion
		}
		if req.System == llm.InvoiceSystemPrompt() {
			return s.invoice, nil
		}
		return s.voucher, nil
	})

	h.invoices = repository.NewInvoiceRepository(db, nil)
	h.logs = repository.NewProcessingLogRepository(db, nil)
	h.proc = NewProcessor(Deps{
		OCR:        extract.NewOCRAdapter(rec, nil, time.Second, nil),
		Extractor:  extract.NewInvoiceAdapter(completer, extract.DefaultTemperature, time.Second, nil),
		Compliance: extract.NewComplianceAdapter(completer, extract.DefaultTemperature, time.Second, nil),
		Files:      repository.NewFileRepository(db, nil),
		Invoices:   h.invoices,
		Vouchers:   repository.NewVoucherRepository(db, nil),
		Logs:       h.logs,
	}, Options{TempDir: h.tempDir, AuditLog: !s.noAudit}, nil)
	return h
}

func happyStubs() stubs {
	return stubs{ocrText: "ACME CONSULTING\nINVOICE INV-42\nTOTAL $1,080.00", invoice: invoiceJSON, voucher: voucherJSON}
}

func upload() Upload {
	return Upload{Data: []byte("\x89PNG fake"), FileName: "scan.PNG", MimeType: "image/png"}
}

func countRows(t *testing.T, h *harness, table string) int {
	t.Helper()
	var n int
	row := h.db.SQL().QueryRow("SELECT COUNT(*) FROM " + table)
	require.NoError(t, row.Scan(&n))
	return n
}

// logsForRun returns the audit rows of the most recent upload.
func (h *harness) logsForRun(t *testing.T) []entity.ProcessingLog {
	t.Helper()
	var fileID int64
	require.NoError(t, h.db.SQL().QueryRow("SELECT MAX(id) FROM files").Scan(&fileID))
	logs, err := h.logs.ListByFile(context.Background(), fileID)
	require.NoError(t, err)
	return logs
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func failure(t *testing.T, err error) *common.ProcessingFailedError {
	t.Helper()
	var pf *common.ProcessingFailedError
	require.True(t, errors.As(err, &pf), "expected ProcessingFailedError, got %v", err)
	return pf
}

func TestProcessHappyPath(t *testing.T) {
	h := newHarness(t, happyStubs())

	res, err := h.proc.Process(context.Background(), upload())
	require.NoError(t, err)

	assert.NotZero(t, res.File.ID)
	assert.Equal(t, "image/png", res.File.MimeType)
	assert.Equal(t, "Acme Consulting", res.Invoice.VendorName)
	assert.Equal(t, 88.0, res.Invoice.OCRConfidence)
	assert.True(t, res.Invoice.Subtotal.Add(res.Invoice.TaxAmount).Equal(res.Invoice.TotalAmount))
	require.NotNil(t, res.Voucher)
	assert.Equal(t, res.Invoice.ID, res.Voucher.InvoiceID)
	debit, credit := res.Voucher.Totals()
	assert.True(t, debit.Equal(credit))
	assert.Equal(t, "1080", debit.String())

	assertTempDirEmpty(t, h.tempDir)
	seen, _ := h.seenPath.Load().(string)
	assert.Equal(t, ".png", filepath.Ext(seen))

	logs, err := h.logs.ListByFile(context.Background(), res.File.ID)
	require.NoError(t, err)
	require.Len(t, logs, len(constants.Stages))
	for i, l := range logs {
		assert.Equal(t, string(constants.Stages[i]), l.Step)
		assert.Equal(t, string(constants.LogStatusSuccess), l.Status)
	}
	assert.Nil(t, logs[0].InvoiceID, "rows before the invoice exists carry file_id only")
	require.NotNil(t, logs[len(logs)-1].InvoiceID)

	var last map[string]any
	require.NoError(t, json.Unmarshal(logs[len(logs)-1].Details, &last))
	assert.Equal(t, string(constants.StatePersisted), last["state"])

	listed, err := h.invoices.ListProcessed(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, res.Invoice.ID, listed[0].Invoice.ID)
}

func TestProcessEmptyOCRTextFailsAtOCR(t *testing.T) {
	s := happyStubs()
	s.ocrText = ""
	h := newHarness(t, s)

	_, err := h.proc.Process(context.Background(), upload())
	pf := failure(t, err)
	assert.Equal(t, constants.StageOCR, pf.Stage)
	assert.ErrorIs(t, err, common.ErrOCRFailure)

	assert.Equal(t, 1, countRows(t, h, "files"))
	assert.Zero(t, countRows(t, h, "invoices"))
	assertTempDirEmpty(t, h.tempDir)

	logs := h.logsForRun(t)
	require.Len(t, logs, 2)
	assert.Equal(t, string(constants.StageOCR), logs[1].Step)
	assert.Equal(t, string(constants.LogStatusFailed), logs[1].Status)
	assert.Contains(t, string(logs[1].Details), common.ReasonEmptyText)
}

func TestProcessExtractionFailures(t *testing.T) {
	cases := []struct {
		name   string
		stub   func(*stubs)
		reason string
	}{
		{"invalid json", func(s *stubs) { s.invoice = "sorry, I cannot help" }, common.ReasonInvalidJSON},
		{"empty response", func(s *stubs) { s.invoice = "   " }, common.ReasonEmptyResponse},
		{"schema mismatch", func(s *stubs) { s.invoice = `{"vendorName": "x"}` }, common.ReasonSchemaMismatch},
		{"provider error", func(s *stubs) { s.completion = errors.New("503 upstream") }, common.ReasonProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := happyStubs()
			tc.stub(&s)
			h := newHarness(t, s)

			_, err := h.proc.Process(context.Background(), upload())
			pf := failure(t, err)
			assert.Equal(t, constants.StageExtraction, pf.Stage)
			ae, ok := common.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, common.CodeExtraction, ae.Code)
			assert.Equal(t, tc.reason, ae.Reason)
			assert.Zero(t, countRows(t, h, "invoices"))
			assertTempDirEmpty(t, h.tempDir)
		})
	}
}

func TestProcessInvalidInvoiceDraft(t *testing.T) {
	s := happyStubs()
	s.invoice = `{"vendorName": "", "invoiceDate": "yesterday", "dueDate": "2024-03-31",
		"subtotal": 10, "totalAmount": 99, "lineItems": []}`
	h := newHarness(t, s)

	_, err := h.proc.Process(context.Background(), upload())
	pf := failure(t, err)
	assert.Equal(t, constants.StageInvoiceValidation, pf.Stage)
	ae, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeValidation, ae.Code)
	assert.GreaterOrEqual(t, len(ae.Fields), 3, "all rule failures are reported")
	assert.Zero(t, countRows(t, h, "invoices"))
}

func TestProcessUnbalancedVoucherKeepsInvoiceButIsNotListed(t *testing.T) {
	s := happyStubs()
	s.voucher = unbalancedVoucherJSON
	h := newHarness(t, s)

	_, err := h.proc.Process(context.Background(), upload())
	pf := failure(t, err)
	assert.Equal(t, constants.StageVoucherValidation, pf.Stage)

	assert.Equal(t, 1, countRows(t, h, "invoices"))
	assert.Zero(t, countRows(t, h, "vouchers"))

	listed, err := h.invoices.ListProcessed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)

	logs := h.logsForRun(t)
	last := logs[len(logs)-1]
	assert.Equal(t, string(constants.LogStatusFailed), last.Status)
	require.NotNil(t, last.InvoiceID)
}

func TestProcessComplianceFailure(t *testing.T) {
	s := happyStubs()
	s.voucher = "```json\n{not json}\n```"
	h := newHarness(t, s)

	_, err := h.proc.Process(context.Background(), upload())
	pf := failure(t, err)
	assert.Equal(t, constants.StageCompliance, pf.Stage)
	assert.ErrorIs(t, err, common.ErrCompliance)
	assert.Contains(t, pf.Error(), "processing failed at compliance")
}

func TestProcessResubmissionCreatesNewRows(t *testing.T) {
	h := newHarness(t, happyStubs())

	first, err := h.proc.Process(context.Background(), upload())
	require.NoError(t, err)
	second, err := h.proc.Process(context.Background(), upload())
	require.NoError(t, err)

	assert.NotEqual(t, first.File.ID, second.File.ID)
	assert.NotEqual(t, first.Invoice.ID, second.Invoice.ID)
	assert.NotEqual(t, first.Voucher.ID, second.Voucher.ID)
	assert.Equal(t, 2, countRows(t, h, "invoices"))
	assert.Equal(t, 2, countRows(t, h, "vouchers"))

	listed, err := h.invoices.ListProcessed(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.Invoice.ID, listed[0].Invoice.ID)
}

func TestProcessWithoutAuditLog(t *testing.T) {
	s := happyStubs()
	s.noAudit = true
	h := newHarness(t, s)

	_, err := h.proc.Process(context.Background(), upload())
	require.NoError(t, err)
	assert.Zero(t, countRows(t, h, "processing_logs"))
}

func TestProcessConcurrentRunsAreIndependent(t *testing.T) {
	h := newHarness(t, happyStubs())

	const n = 4
	errs := make(chan error, n)
	for range n {
		go func() {
			_, err := h.proc.Process(context.Background(), upload())
			errs <- err
		}()
	}
	for range n {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, n, countRows(t, h, "vouchers"))
	assert.EqualValues(t, n, h.ocrCalls.Load())
	assertTempDirEmpty(t, h.tempDir)
}
