package llm

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func reply(content string, err error) Completer {
	return CompleterFunc(func(ctx context.Context, req CompletionRequest) (string, error) {
		return content, err
	})
}

const validInvoice = `{
	"vendorName": "Acme Corp",
	"invoiceNumber": "INV-1",
	"invoiceDate": "2024-01-02",
	"dueDate": "2024-02-01",
	"subtotal": "$100.00",
	"taxAmount": 10,
	"totalAmount": 110,
	"lineItems": [{"description": "Widget", "quantity": 1, "unitPrice": 100, "amount": 100}]
}`

func TestCompleteJSONValid(t *testing.T) {
	raw, err := CompleteJSON(context.Background(), reply("```json\n"+validInvoice+"\n```", nil),
		CompletionRequest{}, InvoiceJSONSchema(), InvoiceMoneyFields, nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"subtotal":"100.00"`)
}

func TestCompleteJSONFailureReasons(t *testing.T) {
	cases := []struct {
		name    string
		content string
		err     error
		reason  string
	}{
		{"empty", "   ", nil, common.ReasonEmptyResponse},
		{"invalid json", "Sure! Here is the invoice", nil, common.ReasonInvalidJSON},
		{"missing keys", `{"vendorName": "Acme"}`, nil, common.ReasonSchemaMismatch},
		{"array", `[]`, nil, common.ReasonSchemaMismatch},
		{"line items not array", `{"vendorName":"a","invoiceDate":"x","dueDate":"y","subtotal":1,"totalAmount":1,"lineItems":"none"}`, nil, common.ReasonSchemaMismatch},
		{"provider", "", errors.New("connection reset"), common.ReasonProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			_, err := CompleteJSON(ctx, reply(tc.content, tc.err), CompletionRequest{}, InvoiceJSONSchema(), InvoiceMoneyFields, nil)
			require.Error(t, err)
			assert.Equal(t, tc.reason, FailureReason(ctx, err))
		})
	}
}

func TestCompleteJSONTimeout(t *testing.T) {
	slow := CompleterFunc(func(ctx context.Context, req CompletionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := CompleteJSON(ctx, slow, CompletionRequest{}, VoucherJSONSchema(), VoucherMoneyFields, nil)
	require.Error(t, err)
	assert.Equal(t, common.ReasonTimeout, FailureReason(ctx, err))
}

func TestComplianceUserPromptCarriesInvoice(t *testing.T) {
	p := ComplianceUserPrompt(entity.Invoice{VendorName: "Acme Corp", InvoiceDate: entity.NewDate(2024, 1, 2)})
	assert.Contains(t, p, `"vendorName": "Acme Corp"`)
	assert.Contains(t, p, "2024-01-02")
	assert.Contains(t, p, "Operating Expense")
	assert.Contains(t, p, `"voucherLines"`)
}

func TestInvoiceUserPromptTruncates(t *testing.T) {
	long := bytes.Repeat([]byte("a"), maxOCRChars+10)
	p := InvoiceUserPrompt(string(long))
	assert.Contains(t, p, "(truncated)")
}

func TestInvoiceUserPromptTruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes, so the cap falls inside the last rune
	long := strings.Repeat("a", maxOCRChars-1) + strings.Repeat("é", 10)
	p := InvoiceUserPrompt(long)

	assert.True(t, utf8.ValidString(p))
	assert.NotContains(t, p, string(utf8.RuneError))
	assert.Contains(t, p, strings.Repeat("a", maxOCRChars-1)+"\n...(truncated)")
}

func TestComplianceUserPromptKeepsExactUnitPrice(t *testing.T) {
	inv := entity.Invoice{
		VendorName: "Acme Corp",
		LineItems: []entity.InvoiceLineItem{{
			Description: "Bolts",
			Quantity:    decimal.RequireFromString("8"),
			UnitPrice:   decimal.RequireFromString("0.125"),
			Amount:      decimal.RequireFromString("1.00"),
		}},
	}
	p := ComplianceUserPrompt(inv)
	assert.Contains(t, p, `"unitPrice": "0.125"`)
	assert.Contains(t, p, `"quantity": "8"`)
}
