package constants

// State is a pipeline state machine state.
type State string

const (
	StateReceived         State = "received"
	StateOCRDone          State = "ocr_done"
	StateExtracted        State = "extracted"
	StateValidatedInvoice State = "validated_invoice"
	StateComplianceDone   State = "compliance_done"
	StateValidatedVoucher State = "validated_voucher"
	StatePersisted        State = "persisted"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateFailed
}

// Stage is a unit of work that moves the machine to its target State.
// Stored verbatim in processing_logs.step.
type Stage string

const (
	StageUpload            Stage = "upload"
	StageOCR               Stage = "ocr"
	StageExtraction        Stage = "extraction"
	StageInvoiceValidation Stage = "invoice_validation"
	StageCompliance        Stage = "compliance"
	StageVoucherValidation Stage = "voucher_validation"
	StagePersistence       Stage = "persistence"
)

// Stages lists the stages in execution order.
var Stages = []Stage{
	StageUpload,
	StageOCR,
	StageExtraction,
	StageInvoiceValidation,
	StageCompliance,
	StageVoucherValidation,
	StagePersistence,
}

var stageTargets = map[Stage]State{
	StageUpload:            StateReceived,
	StageOCR:               StateOCRDone,
	StageExtraction:        StateExtracted,
	StageInvoiceValidation: StateValidatedInvoice,
	StageCompliance:        StateComplianceDone,
	StageVoucherValidation: StateValidatedVoucher,
	StagePersistence:       StatePersisted,
}

// Target is the state reached when the stage succeeds.
func (s Stage) Target() State {
	return stageTargets[s]
}

// LogStatus is the outcome recorded on a processing log row.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
)
