package llm

// The schemas check structure only: required keys, arrays and objects.
// Value types of amounts are left loose so the validation layer can report
// every bad field at once.

// InvoiceJSONSchema returns the extraction schema as a generic map.
func InvoiceJSONSchema() map[string]any {
	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": optionalString(),
			"quantity":    amountProp(),
			"unitPrice":   amountProp(),
			"amount":      amountProp(),
		},
		"required": []string{"description", "amount"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vendorName":    optionalString(),
			"vendorAddress": optionalString(),
			"invoiceNumber": optionalString(),
			"invoiceDate":   optionalString(),
			"dueDate":       optionalString(),
			"subtotal":      amountProp(),
			"taxAmount":     amountProp(),
			"totalAmount":   amountProp(),
			"lineItems": map[string]any{
				"type":  "array",
				"items": lineItem,
			},
		},
		"required": []string{"vendorName", "invoiceDate", "dueDate", "subtotal", "totalAmount", "lineItems"},
	}
}

// VoucherJSONSchema returns the compliance schema as a generic map.
func VoucherJSONSchema() map[string]any {
	line := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"accountCode": optionalString(),
			"description": optionalString(),
			"debit":       amountProp(),
			"credit":      amountProp(),
		},
		"required": []string{"accountCode"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"accountClassification": optionalString(),
			"expenseCategory":       optionalString(),
			"taxTreatment":          optionalString(),
			"complianceNotes": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"voucherLines": map[string]any{
				"type":  "array",
				"items": line,
			},
		},
		"required": []string{"accountClassification", "expenseCategory", "taxTreatment", "voucherLines"},
	}
}

func optionalString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func amountProp() map[string]any {
	return map[string]any{"type": []string{"number", "string", "null"}}
}
