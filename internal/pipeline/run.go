package pipeline

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
)

type details map[string]any

// run is the state of one Process call.
type run struct {
	p         *Processor
	id        string
	state     constants.State
	fileID    *int64
	invoiceID *int64
	log       *zap.SugaredLogger
}

func (p *Processor) newRun(ctx context.Context) *run {
	id := uuid.NewString()
	log := p.logger.With("run_id", id)
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		log = log.With("request_id", rid)
	}
	return &run{p: p, id: id, log: log}
}

func (r *run) succeed(ctx context.Context, stage constants.Stage, d details) {
	r.state = stage.Target()
	r.log.Infow("pipeline.stage.ok", "stage", stage, "state", r.state)
	r.audit(ctx, stage, constants.LogStatusSuccess, d)
}

// fail moves the run to failed and returns the error the caller sees.
func (r *run) fail(ctx context.Context, stage constants.Stage, err error, d details) error {
	from := r.state
	r.state = constants.StateFailed
	if d == nil {
		d = details{}
	}
	d["error"] = err.Error()
	if ae, ok := common.AsAppError(err); ok {
		d["code"] = ae.Code
		if ae.Reason != "" {
			d["reason"] = ae.Reason
		}
	}
	if from != "" {
		d["from"] = from
	}
	r.log.Errorw("pipeline.stage.failed", "stage", stage, "from", from, "error", err)
	r.audit(ctx, stage, constants.LogStatusFailed, d)
	return common.NewProcessingFailed(stage, err)
}

// audit appends one processing log row. A failed write is logged and does
// not change the outcome of the run.
func (r *run) audit(ctx context.Context, stage constants.Stage, status constants.LogStatus, d details) {
	if !r.p.opts.AuditLog || r.p.deps.Logs == nil {
		return
	}
	if d == nil {
		d = details{}
	}
	d["state"] = r.state
	payload, err := json.Marshal(d)
	if err != nil {
		r.log.Warnw("pipeline.audit.encode_failed", "stage", stage, "error", err)
		payload = nil
	}
	row := entity.ProcessingLog{
		RunID:     r.id,
		FileID:    r.fileID,
		InvoiceID: r.invoiceID,
		Step:      string(stage),
		Status:    string(status),
		Details:   payload,
		Timestamp: r.p.now(),
	}
	// the stage context may already be past its deadline
	if err := r.p.deps.Logs.Append(context.WithoutCancel(ctx), &row); err != nil {
		r.log.Warnw("pipeline.audit.append_failed", "stage", stage, "status", status, "error", err)
	}
}

// rawJSON embeds provider output in a log payload without re-encoding it.
func rawJSON(b []byte) any {
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	return string(b)
}
