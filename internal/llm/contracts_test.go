package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountDecoding(t *testing.T) {
	var d struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
		D Amount `json:"d"`
		E Amount `json:"e"`
		F Amount `json:"f"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1234.505,"b":"12.30","c":null,"d":"twelve","e":true}`), &d))

	assert.True(t, d.A.Present)
	assert.True(t, d.A.Valid)
	assert.Equal(t, "1234.505", d.A.Value.String())

	assert.True(t, d.B.Valid)
	assert.Equal(t, "12.3", d.B.Value.String())
	assert.Equal(t, "12.30", d.B.Raw)

	assert.False(t, d.C.Present)

	assert.True(t, d.D.Present)
	assert.False(t, d.D.Valid)
	assert.Equal(t, "twelve", d.D.Raw)

	assert.True(t, d.E.Present)
	assert.False(t, d.E.Valid)

	assert.False(t, d.F.Present)
}

func TestAmountRoundTripKeepsLiteral(t *testing.T) {
	a := NewAmount("0.10")
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, "0.1", string(b))

	b, err = json.Marshal(NewAmount("abc"))
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(b))

	b, err = json.Marshal(Amount{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestInvoiceDraftDecodesNulls(t *testing.T) {
	var d InvoiceDraft
	require.NoError(t, json.Unmarshal([]byte(`{
		"vendorName": "Acme", "vendorAddress": null, "invoiceDate": "2024-01-02",
		"subtotal": 100, "taxAmount": null, "totalAmount": "100.00",
		"lineItems": [{"description": "Widget", "quantity": 2, "unitPrice": 50, "amount": 100}]
	}`), &d))

	assert.Equal(t, "Acme", Str(d.VendorName))
	assert.Nil(t, d.VendorAddress)
	assert.Nil(t, d.DueDate)
	assert.False(t, d.TaxAmount.Present)
	require.Len(t, d.LineItems, 1)
	assert.Equal(t, "2", d.LineItems[0].Quantity.Value.String())
}
