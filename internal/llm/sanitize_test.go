package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`  {"a":1} `))
}

func TestSanitizeMoneyFields(t *testing.T) {
	in := []byte(`{
		"subtotal": "$1,234.50",
		"taxAmount": "N/A",
		"totalAmount": 1234.50,
		"vendorName": "$ Store",
		"lineItems": [
			{"quantity": "2", "unitPrice": "USD 617.25", "amount": "(10.00)"},
			{"quantity": "two", "unitPrice": 1, "amount": 1}
		]
	}`)
	out, changed, err := SanitizeMoneyFields(in, InvoiceMoneyFields)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"subtotal", "taxAmount", "lineItems[].unitPrice", "lineItems[].amount"}, changed)

	var m map[string]any
	dec := json.NewDecoder(bytesReader(out))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&m))

	assert.Equal(t, "1234.50", m["subtotal"])
	assert.Nil(t, m["taxAmount"])
	assert.Equal(t, json.Number("1234.50"), m["totalAmount"])
	assert.Equal(t, "$ Store", m["vendorName"])

	items := m["lineItems"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "617.25", first["unitPrice"])
	assert.Equal(t, "-10.00", first["amount"])
	assert.Equal(t, "two", items[1].(map[string]any)["quantity"])
}

func TestSanitizeMoneyFieldsUnchanged(t *testing.T) {
	in := []byte(`{"voucherLines":[{"debit":100,"credit":0}]}`)
	out, changed, err := SanitizeMoneyFields(in, VoucherMoneyFields)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, in, out)
}

func TestSanitizeMoneyFieldsRejectsNonObject(t *testing.T) {
	_, _, err := SanitizeMoneyFields([]byte(`[1,2]`), InvoiceMoneyFields)
	assert.Error(t, err)
}
