package entity

import (
	"encoding/json"
	"time"
)

// ProcessingLog is one append-only audit row for a pipeline transition.
// FileID and InvoiceID are nil until those rows exist.
type ProcessingLog struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"runId"`
	FileID    *int64          `json:"fileId,omitempty"`
	InvoiceID *int64          `json:"invoiceId,omitempty"`
	Step      string          `json:"step"`
	Status    string          `json:"status"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProcessedInvoice is the composite of an upload and its results.
// Voucher is nil when the run stopped before compliance.
type ProcessedInvoice struct {
	File    File            `json:"file"`
	Invoice Invoice         `json:"invoice"`
	Voucher *Voucher        `json:"voucher"`
	Logs    []ProcessingLog `json:"processingLogs,omitempty"`
}
