package repository

import (
	"context"
	"database/sql"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

var fileColumns = []string{"id", "file_name", "file_path", "mime_type", "size_bytes", "uploaded_at"}

// FileRepository stores accepted uploads.
type FileRepository interface {
	Create(ctx context.Context, f *entity.File) error
	GetByID(ctx context.Context, id int64) (*entity.File, error)
	ListByIDs(ctx context.Context, ids []int64) ([]entity.File, error)
}

type fileRepository struct {
	db     *DB
	logger *zap.SugaredLogger
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *DB, log *zap.SugaredLogger) FileRepository {
	return &fileRepository{db: db, logger: logger.OrNop(log)}
}

// Create inserts f and sets its ID.
func (r *fileRepository) Create(ctx context.Context, f *entity.File) error {
	b := r.db.builder().Insert(tableFiles).
		Columns("file_name", "file_path", "mime_type", "size_bytes", "uploaded_at").
		Values(f.FileName, f.FilePath, f.MimeType, f.SizeBytes, r.db.ts(f.UploadedAt))
	id, err := r.db.insert(ctx, r.db.SQL(), b)
	if err != nil {
		r.logger.Errorw("failed to create file", "error", err, "file_name", f.FileName)
		return common.NewPersistenceFailure("create file", err)
	}
	f.ID = id
	r.logger.Debugw("file.created", "file_id", id, "file_name", f.FileName)
	return nil
}

func (r *fileRepository) GetByID(ctx context.Context, id int64) (*entity.File, error) {
	files, err := r.ListByIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, notFound("file", id)
	}
	return &files[0], nil
}

func (r *fileRepository) ListByIDs(ctx context.Context, ids []int64) ([]entity.File, error) {
	out, err := selectIn(ctx, r.db, tableFiles, fileColumns, "id", ids, scanFile)
	if err != nil {
		r.logger.Errorw("failed to list files", "error", err, "count", len(ids))
		return nil, common.NewPersistenceFailure("list files", err)
	}
	return out, nil
}

func scanFile(rows *sql.Rows) (entity.File, error) {
	var f entity.File
	err := rows.Scan(&f.ID, &f.FileName, &f.FilePath, &f.MimeType, &f.SizeBytes, dbTime{&f.UploadedAt})
	return f, err
}

// selectIn loads rows whose column matches any of ids, ordered by id.
func selectIn[T any](ctx context.Context, db *DB, table string, columns []string, column string, ids []int64, scan func(*sql.Rows) (T, error)) ([]T, error) {
	var out []T
	for _, chunk := range lo.Chunk(ids, inChunk) {
		args := lo.ToAnySlice(chunk)
		b := db.builder()
		query, qargs := b.Select(columns...).
			From(b.Table(table)).
			Where(entsql.In(column, args...)).
			OrderBy("id").
			Query()
		rows, err := db.SQL().QueryContext(ctx, query, qargs...)
		if err != nil {
			return nil, err
		}
		part, err := collect(rows, scan)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}
