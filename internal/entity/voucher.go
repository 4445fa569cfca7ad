package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Voucher is the balanced journal entry derived from one Invoice.
type Voucher struct {
	ID                    int64         `json:"id"`
	InvoiceID             int64         `json:"invoiceId"`
	AccountClassification string        `json:"accountClassification"`
	ExpenseCategory       string        `json:"expenseCategory"`
	TaxTreatment          string        `json:"taxTreatment"`
	ComplianceNotes       []string      `json:"complianceNotes"`
	CreatedAt             time.Time     `json:"createdAt"`
	Lines                 []VoucherLine `json:"voucherLines"`
}

// VoucherLine is a single debit or credit posting.
type VoucherLine struct {
	ID          int64           `json:"id"`
	VoucherID   int64           `json:"voucherId"`
	AccountCode string          `json:"accountCode"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// Totals returns the debit and credit sums.
func (v Voucher) Totals() (debit, credit decimal.Decimal) {
	for _, l := range v.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}
