package constants

import (
	"strings"
)

// Known GAAP labels the compliance step is steered towards. Labels outside
// these sets are kept verbatim.
var (
	AccountClassifications = []string{
		"Operating Expense",
		"Cost of Goods Sold",
		"Capital Expenditure",
		"Prepaid Expense",
		"Accrued Liability",
	}

	ExpenseCategories = []string{
		"Office Supplies",
		"Professional Services",
		"Software Subscription",
		"Utilities",
		"Rent",
		"Travel",
		"Meals and Entertainment",
		"Equipment",
		"Marketing",
		"Repairs and Maintenance",
		"Other",
	}

	TaxTreatments = []string{
		"Taxable",
		"Tax Exempt",
		"Zero Rated",
		"Reverse Charge",
	}
)

var labelSynonyms = map[string]string{
	"opex":               "Operating Expense",
	"operating expenses": "Operating Expense",
	"cogs":               "Cost of Goods Sold",
	"capex":              "Capital Expenditure",
	"capital expense":    "Capital Expenditure",
	"saas":               "Software Subscription",
	"subscription":       "Software Subscription",
	"software":           "Software Subscription",
	"consulting":         "Professional Services",
	"legal":              "Professional Services",
	"supplies":           "Office Supplies",
	"exempt":             "Tax Exempt",
	"non-taxable":        "Tax Exempt",
	"nontaxable":         "Tax Exempt",
	"vat":                "Taxable",
	"standard rated":     "Taxable",
}

// CanonicalizeLabel maps input onto one of known (case-insensitive, with a
// few synonyms). ok is false when input is kept as-is.
func CanonicalizeLabel(input string, known []string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	normalized := strings.ToLower(trimmed)

	for _, k := range known {
		if normalized == strings.ToLower(k) {
			return k, true
		}
	}

	// synonyms only count when they land inside the requested set
	if syn, ok := labelSynonyms[normalized]; ok {
		for _, k := range known {
			if k == syn {
				return k, true
			}
		}
	}

	return trimmed, false
}
