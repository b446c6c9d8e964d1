package store

import (
	"database/sql"
	"time"

	"github.com/datallboy/godl/internal/domain"
)

// outcomeDBO maps to the outcomes table
type outcomeDBO struct {
	ID          string         `db:"id"`
	Tag         sql.NullString `db:"tag"`
	URL         string         `db:"url"`
	Destination string         `db:"destination"`
	StatusCode  int            `db:"status_code"`
	Kind        string         `db:"kind"`
	Detail      sql.NullString `db:"detail"`
	Skipped     bool           `db:"skipped"`
	Bytes       int64          `db:"bytes"`
	FinishedAt  int64          `db:"finished_at"` // unix milliseconds
}

// Mapper: DBO to Domain Outcome
func (d *outcomeDBO) ToDomain() domain.Outcome {
	// Unknown labels (written by a newer build) read back as the zero kind
	kind, _ := domain.ParseKind(d.Kind)

	return domain.Outcome{
		ID:          d.ID,
		Tag:         d.Tag.String,
		URL:         d.URL,
		Destination: d.Destination,
		StatusCode:  d.StatusCode,
		Kind:        kind,
		Detail:      d.Detail.String,
		Skipped:     d.Skipped,
		Bytes:       d.Bytes,
		FinishedAt:  time.UnixMilli(d.FinishedAt).UTC(),
	}
}

// Mapper: Domain Outcome to DBO
func (d *outcomeDBO) FromDomain(o domain.Outcome) {
	d.ID = o.ID
	d.Tag = sql.NullString{String: o.Tag, Valid: o.Tag != ""}
	d.URL = o.URL
	d.Destination = o.Destination
	d.StatusCode = o.StatusCode
	d.Kind = o.Kind.Label()
	d.Detail = sql.NullString{String: o.Detail, Valid: o.Detail != ""}
	d.Skipped = o.Skipped
	d.Bytes = o.Bytes

	if !o.FinishedAt.IsZero() {
		d.FinishedAt = o.FinishedAt.UnixMilli()
	} else {
		d.FinishedAt = 0
	}
}

func (d *outcomeDBO) scanTargets() []any {
	return []any{&d.ID, &d.Tag, &d.URL, &d.Destination, &d.StatusCode, &d.Kind, &d.Detail, &d.Skipped, &d.Bytes, &d.FinishedAt}
}

const outcomeColumns = "id, tag, url, destination, status_code, kind, detail, skipped, bytes, finished_at"
