package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
)

// ValidateInvoiceDraft checks d and, when the report is OK, returns the
// invoice with line items. IDs, FileID and timestamps are left unset.
func ValidateInvoiceDraft(d llm.InvoiceDraft, opts Options) (entity.Invoice, Report) {
	c := newCollector()
	warn := newCollector()

	c.Field("vendorName", d.VendorName, common.Required, common.MaxLength(255))
	invoiceDate := c.date("invoiceDate", d.InvoiceDate)
	dueDate := c.date("dueDate", d.DueDate)

	subtotal, okSub := c.amount("subtotal", d.Subtotal, false)
	tax, okTax := c.amount("taxAmount", d.TaxAmount, true)
	total, okTotal := c.amount("totalAmount", d.TotalAmount, false)

	if okSub && okTax && okTotal {
		if sum := subtotal.Add(tax); !within(sum, total) {
			c.Add("totalAmount", total.String(),
				fmt.Sprintf("does not match subtotal + taxAmount (%s)", sum.StringFixed(2)))
		}
	}

	if len(d.LineItems) == 0 {
		c.Add("lineItems", nil, "must contain at least one line item")
	}

	items := make([]entity.InvoiceLineItem, 0, len(d.LineItems))
	lineSum := decimal.Zero
	linesOK := true
	for i, li := range d.LineItems {
		c.Field(indexed("lineItems", i, "description"), li.Description, common.Required)
		qty, okQ := c.amount(indexed("lineItems", i, "quantity"), li.Quantity, false)
		price, okP := c.amount(indexed("lineItems", i, "unitPrice"), li.UnitPrice, false)
		amt, okA := c.amount(indexed("lineItems", i, "amount"), li.Amount, false)
		linesOK = linesOK && okA

		if okQ && okP && okA {
			if expected := qty.Mul(price); !within(expected, amt) {
				target := warn
				if opts.StrictLineItems {
					target = c
				}
				target.Add(indexed("lineItems", i, "amount"), amt.String(),
					fmt.Sprintf("does not match quantity x unitPrice (%s)", expected.StringFixed(2)))
			}
		}
		lineSum = lineSum.Add(amt)
		items = append(items, entity.InvoiceLineItem{
			Description: llm.Str(li.Description),
			Quantity:    qty,
			UnitPrice:   price,
			Amount:      amt,
		})
	}

	// discounts and fees often sit outside the line items, so this stays advisory
	if okSub && linesOK && len(d.LineItems) > 0 && !within(lineSum, subtotal) {
		warn.Add("lineItems", lineSum.String(),
			fmt.Sprintf("line item amounts do not add up to subtotal (%s)", subtotal.StringFixed(2)))
	}

	report := Report{Errors: c.errors(), Warnings: warn.errors()}
	if !report.OK() {
		return entity.Invoice{}, report
	}
	return entity.Invoice{
		VendorName:    llm.Str(d.VendorName),
		VendorAddress: llm.Str(d.VendorAddress),
		InvoiceNumber: llm.Str(d.InvoiceNumber),
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		Subtotal:      subtotal,
		TaxAmount:     tax,
		TotalAmount:   total,
		LineItems:     items,
	}, report
}

func (c collector) date(field string, s *string) entity.Date {
	if err := common.Required(field, s); err != nil {
		c.Merge([]common.ValidationError{*err})
		return entity.Date{}
	}
	d, err := entity.ParseDate(*s)
	if err != nil {
		c.Add(field, *s, "must be a calendar date (YYYY-MM-DD)")
		return entity.Date{}
	}
	return d
}
