package repository

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

var processingLogColumns = []string{"id", "run_id", "file_id", "invoice_id", "step", "status", "details", "created_at"}

// ProcessingLogRepository is the append-only audit trail.
type ProcessingLogRepository interface {
	Append(ctx context.Context, l *entity.ProcessingLog) error
	ListByInvoice(ctx context.Context, invoiceID int64) ([]entity.ProcessingLog, error)
	ListByFile(ctx context.Context, fileID int64) ([]entity.ProcessingLog, error)
	ListByRun(ctx context.Context, runID string) ([]entity.ProcessingLog, error)
}

type processingLogRepository struct {
	db     *DB
	logger *zap.SugaredLogger
}

// NewProcessingLogRepository creates a new processing log repository
func NewProcessingLogRepository(db *DB, log *zap.SugaredLogger) ProcessingLogRepository {
	return &processingLogRepository{db: db, logger: logger.OrNop(log)}
}

func (r *processingLogRepository) Append(ctx context.Context, l *entity.ProcessingLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	var details any
	if len(l.Details) > 0 {
		details = string(l.Details)
	}
	b := r.db.builder().Insert(tableProcessingLogs).
		Columns(processingLogColumns[1:]...).
		Values(l.RunID, l.FileID, l.InvoiceID, l.Step, l.Status, details, r.db.ts(l.Timestamp))
	id, err := r.db.insert(ctx, r.db.SQL(), b)
	if err != nil {
		r.logger.Errorw("failed to append processing log", "error", err, "run_id", l.RunID, "step", l.Step)
		return common.NewPersistenceFailure("append processing log", err)
	}
	l.ID = id
	return nil
}

func (r *processingLogRepository) ListByInvoice(ctx context.Context, invoiceID int64) ([]entity.ProcessingLog, error) {
	return r.list(ctx, entsql.EQ("invoice_id", invoiceID))
}

// ListByFile includes rows written before the invoice existed.
func (r *processingLogRepository) ListByFile(ctx context.Context, fileID int64) ([]entity.ProcessingLog, error) {
	return r.list(ctx, entsql.EQ("file_id", fileID))
}

func (r *processingLogRepository) ListByRun(ctx context.Context, runID string) ([]entity.ProcessingLog, error) {
	return r.list(ctx, entsql.EQ("run_id", runID))
}

func (r *processingLogRepository) list(ctx context.Context, where *entsql.Predicate) ([]entity.ProcessingLog, error) {
	b := r.db.builder()
	query, args := b.Select(processingLogColumns...).
		From(b.Table(tableProcessingLogs)).
		Where(where).
		OrderBy("id").
		Query()
	rows, err := r.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Errorw("failed to list processing logs", "error", err)
		return nil, common.NewPersistenceFailure("list processing logs", err)
	}
	logs, err := collect(rows, scanProcessingLog)
	if err != nil {
		return nil, common.NewPersistenceFailure("list processing logs", err)
	}
	return logs, nil
}

func scanProcessingLog(rows *sql.Rows) (entity.ProcessingLog, error) {
	var (
		l                 entity.ProcessingLog
		fileID, invoiceID sql.NullInt64
		details           sql.NullString
	)
	if err := rows.Scan(&l.ID, &l.RunID, &fileID, &invoiceID, &l.Step, &l.Status, &details, dbTime{&l.Timestamp}); err != nil {
		return l, err
	}
	if fileID.Valid {
		l.FileID = &fileID.Int64
	}
	if invoiceID.Valid {
		l.InvoiceID = &invoiceID.Int64
	}
	if details.Valid && details.String != "" {
		l.Details = []byte(details.String)
	}
	return l, nil
}
