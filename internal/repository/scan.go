package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
)

// dbTime scans timestamps from either native TIMESTAMPTZ or SQLite text.
type dbTime struct{ t *time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (d dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d.t = time.Time{}
		return nil
	case time.Time:
		*d.t = v.UTC()
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (d dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// collect drains rows through scan and closes them.
func collect[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func notFound(what string, id int64) error {
	return common.NewAppError(common.CodeNotFound, fmt.Sprintf("%s %d not found", what, id), nil)
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// inChunk bounds IN (...) lists below the SQLite variable limit.
const inChunk = 500
