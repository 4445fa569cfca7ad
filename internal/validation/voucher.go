package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
)

// MinVoucherLines is the smallest balanced double entry.
const MinVoucherLines = 2

// ValidateVoucherDraft checks d and, when the report is OK, returns the
// voucher with lines. Debits must equal credits exactly.
func ValidateVoucherDraft(d llm.VoucherDraft) (entity.Voucher, Report) {
	c := newCollector()

	c.Field("accountClassification", d.AccountClassification, common.Required, common.MaxLength(128))
	c.Field("expenseCategory", d.ExpenseCategory, common.Required, common.MaxLength(128))
	c.Field("taxTreatment", d.TaxTreatment, common.Required, common.MaxLength(128))

	if len(d.VoucherLines) < MinVoucherLines {
		c.Add("voucherLines", len(d.VoucherLines), fmt.Sprintf("must contain at least %d lines", MinVoucherLines))
	}

	lines := make([]entity.VoucherLine, 0, len(d.VoucherLines))
	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	sidesOK := true
	for i, l := range d.VoucherLines {
		c.Field(indexed("voucherLines", i, "accountCode"), l.AccountCode, common.Required)

		if !l.Debit.Present && !l.Credit.Present {
			c.Add(indexed("voucherLines", i, "debit"), nil, "debit or credit is required")
			sidesOK = false
			continue
		}
		debit, okD := c.side(indexed("voucherLines", i, "debit"), l.Debit)
		credit, okC := c.side(indexed("voucherLines", i, "credit"), l.Credit)
		if !okD || !okC {
			sidesOK = false
			continue
		}
		if !debit.IsZero() && !credit.IsZero() {
			c.Add(indexed("voucherLines", i, "credit"), credit.String(), "line must not carry both a debit and a credit")
		}

		totalDebit = totalDebit.Add(debit)
		totalCredit = totalCredit.Add(credit)
		lines = append(lines, entity.VoucherLine{
			AccountCode: llm.Str(l.AccountCode),
			Description: llm.Str(l.Description),
			Debit:       debit,
			Credit:      credit,
		})
	}

	if sidesOK && len(d.VoucherLines) > 0 {
		if !totalDebit.Equal(totalCredit) {
			c.Add("voucherLines", nil, fmt.Sprintf("debits (%s) != credits (%s)", totalDebit.StringFixed(2), totalCredit.StringFixed(2)))
		} else if !totalDebit.IsPositive() {
			c.Add("voucherLines", nil, "voucher total must be greater than zero")
		}
	}

	report := Report{Errors: c.errors()}
	if !report.OK() {
		return entity.Voucher{}, report
	}

	notes := make([]string, 0, len(d.ComplianceNotes))
	for _, n := range d.ComplianceNotes {
		if n = strings.TrimSpace(n); n != "" {
			notes = append(notes, n)
		}
	}
	return entity.Voucher{
		AccountClassification: llm.Str(d.AccountClassification),
		ExpenseCategory:       llm.Str(d.ExpenseCategory),
		TaxTreatment:          llm.Str(d.TaxTreatment),
		ComplianceNotes:       notes,
		Lines:                 lines,
	}, report
}

var hundred = decimal.NewFromInt(100)

// side validates one debit or credit: absent is zero, otherwise numeric,
// non-negative and in whole cents.
func (c collector) side(field string, a llm.Amount) (decimal.Decimal, bool) {
	v, ok := c.amount(field, a, true)
	if !ok {
		return v, false
	}
	if v.IsNegative() {
		c.Add(field, v.String(), "must not be negative")
		return v, false
	}
	if cents := v.Mul(hundred); !cents.Equal(cents.Floor()) {
		c.Add(field, v.String(), "must have at most 2 decimal places")
		return v, false
	}
	return v, true
}
