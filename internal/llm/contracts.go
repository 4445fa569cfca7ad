package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	// JSONMode asks the provider to constrain output to a JSON object.
	JSONMode bool
}

// Completer is the narrow interface to a text-generation provider.
// It returns the raw message content.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// InvoiceDraft is the unvalidated invoice shape returned by the model.
// Pointers distinguish missing/null from empty.
type InvoiceDraft struct {
	VendorName    *string         `json:"vendorName"`
	VendorAddress *string         `json:"vendorAddress"`
	InvoiceNumber *string         `json:"invoiceNumber"`
	InvoiceDate   *string         `json:"invoiceDate"`
	DueDate       *string         `json:"dueDate"`
	Subtotal      Amount          `json:"subtotal"`
	TaxAmount     Amount          `json:"taxAmount"`
	TotalAmount   Amount          `json:"totalAmount"`
	LineItems     []LineItemDraft `json:"lineItems"`
}

type LineItemDraft struct {
	Description *string `json:"description"`
	Quantity    Amount  `json:"quantity"`
	UnitPrice   Amount  `json:"unitPrice"`
	Amount      Amount  `json:"amount"`
}

// VoucherDraft is the unvalidated voucher shape returned by the model.
type VoucherDraft struct {
	AccountClassification *string            `json:"accountClassification"`
	ExpenseCategory       *string            `json:"expenseCategory"`
	TaxTreatment          *string            `json:"taxTreatment"`
	ComplianceNotes       []string           `json:"complianceNotes"`
	VoucherLines          []VoucherLineDraft `json:"voucherLines"`
}

type VoucherLineDraft struct {
	AccountCode *string `json:"accountCode"`
	Description *string `json:"description"`
	Debit       Amount  `json:"debit"`
	Credit      Amount  `json:"credit"`
}

// Amount is a money or quantity value as the model wrote it. Decoding never
// fails on type so that problems can be reported per field during validation.
type Amount struct {
	// Raw is the literal JSON text (string contents unquoted).
	Raw string
	// Present is false when the key was absent or null.
	Present bool
	// Valid is true when Raw parsed as a decimal.
	Valid bool
	Value decimal.Decimal
}

// NewAmount is a convenience for tests and callers building drafts by hand.
func NewAmount(s string) Amount {
	var a Amount
	_ = a.UnmarshalJSON([]byte(strconv.Quote(s)))
	return a
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = Amount{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	a.Present = true
	a.Raw = string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		a.Raw = s
		s = strings.TrimSpace(s)
		if s == "" {
			a.Present = false
			return nil
		}
		b = []byte(s)
	}
	if d, err := decimal.NewFromString(string(b)); err == nil {
		a.Value = d
		a.Valid = true
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	switch {
	case !a.Present:
		return []byte("null"), nil
	case a.Valid:
		return []byte(a.Value.String()), nil
	default:
		return json.Marshal(a.Raw)
	}
}

// Str dereferences an optional string, trimming space.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
