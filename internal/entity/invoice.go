package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a validated invoice extracted from one File.
type Invoice struct {
	ID            int64             `json:"id"`
	FileID        int64             `json:"fileId"`
	VendorName    string            `json:"vendorName"`
	VendorAddress string            `json:"vendorAddress,omitempty"`
	InvoiceNumber string            `json:"invoiceNumber,omitempty"`
	InvoiceDate   Date              `json:"invoiceDate"`
	DueDate       Date              `json:"dueDate"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	TaxAmount     decimal.Decimal   `json:"taxAmount"`
	TotalAmount   decimal.Decimal   `json:"totalAmount"`
	OCRConfidence float64           `json:"ocrConfidence"`
	CreatedAt     time.Time         `json:"createdAt"`
	LineItems     []InvoiceLineItem `json:"lineItems"`
}

// InvoiceLineItem is one billed line of an Invoice.
type InvoiceLineItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoiceId"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}
