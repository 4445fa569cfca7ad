package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
)

// maxOCRChars caps how much OCR text is sent to the model.
const maxOCRChars = 12000

// InvoiceSystemPrompt is the system message for invoice extraction.
func InvoiceSystemPrompt() string {
	return strings.Join([]string{
		"You are an expert at extracting structured data from invoice text.",
		"Return ONLY a JSON object that matches the JSON Schema provided, with no prose and no markdown fences.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Write every amount and quantity as a bare JSON number: no currency symbols, no thousands separators.",
		"Use null for any field that is not present in the text. Never invent values.",
		"taxAmount is the total tax charged; totalAmount is the amount due including tax.",
		"Each line item needs description, quantity, unitPrice and amount.",
	}, " ")
}

// InvoiceUserPrompt packages the OCR text and the schema.
func InvoiceUserPrompt(ocrText string) string {
	var b strings.Builder
	b.WriteString("Extract the invoice fields from this OCR text.\n\nOCR text:\n")
	ocr := strings.TrimSpace(ocrText)
	if len(ocr) > maxOCRChars {
		b.WriteString(truncateRunes(ocr, maxOCRChars))
		b.WriteString("\n...(truncated)")
	} else {
		b.WriteString(ocr)
	}
	b.WriteString("\n\nJSON Schema:\n")
	b.WriteString(mustJSON(InvoiceJSONSchema()))
	return b.String()
}

// ComplianceSystemPrompt is the system message for the GAAP voucher step.
func ComplianceSystemPrompt() string {
	return strings.Join([]string{
		"You are a certified public accountant and US GAAP expert.",
		"Return ONLY a JSON object that matches the JSON Schema provided, with no prose and no markdown fences.",
		"The voucher must have at least two voucher lines and total debits must equal total credits exactly.",
		"Each line carries either a debit or a credit as a bare non-negative number with at most two decimals; the other side is 0.",
		"Use the account codes of a standard US chart of accounts.",
	}, " ")
}

// ComplianceUserPrompt renders the validated invoice and the label vocabulary.
func ComplianceUserPrompt(inv entity.Invoice) string {
	view := map[string]any{
		"vendorName":    inv.VendorName,
		"vendorAddress": inv.VendorAddress,
		"invoiceNumber": inv.InvoiceNumber,
		"invoiceDate":   inv.InvoiceDate.String(),
		"dueDate":       inv.DueDate.String(),
		"subtotal":      inv.Subtotal.StringFixed(2),
		"taxAmount":     inv.TaxAmount.StringFixed(2),
		"totalAmount":   inv.TotalAmount.StringFixed(2),
	}
	items := make([]map[string]string, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		items = append(items, map[string]string{
			"description": li.Description,
			"quantity":    li.Quantity.String(),
			"unitPrice":   li.UnitPrice.String(),
			"amount":      li.Amount.StringFixed(2),
		})
	}
	view["lineItems"] = items

	var b strings.Builder
	b.WriteString("Analyze this invoice for US GAAP compliance and propose the accounting voucher that records it.\n\nInvoice:\n")
	b.WriteString(mustJSON(view))
	b.WriteString("\n\naccountClassification should be one of: ")
	b.WriteString(strings.Join(constants.AccountClassifications, ", "))
	b.WriteString(".\nexpenseCategory should be one of: ")
	b.WriteString(strings.Join(constants.ExpenseCategories, ", "))
	b.WriteString(".\ntaxTreatment should be one of: ")
	b.WriteString(strings.Join(constants.TaxTreatments, ", "))
	b.WriteString(".\ncomplianceNotes lists short observations relevant to GAAP recognition.")
	b.WriteString("\n\nJSON Schema:\n")
	b.WriteString(mustJSON(VoucherJSONSchema()))
	return b.String()
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
