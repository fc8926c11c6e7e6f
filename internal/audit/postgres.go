package audit

import (
	"context"
	"database/sql"
	"time"

	"verenigingsloket.org/internal/ids"
	"verenigingsloket.org/internal/obs"
)

var _ Recorder = (*PGStore)(nil)

// PGStore appends access records to the access_log table.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into access_log(id, occurred_at, resource_ref, reason_ref, actor, success, error_detail)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.Timestamp, nullable(rec.ResourceReference), nullable(rec.ReasonReference),
		nullable(rec.Actor), rec.Success, nullable(rec.ErrorDetail),
	)
	if err != nil {
		return err
	}
	logRecord(rec)
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// logRecord mirrors every appended record to the structured log so access
// attempts stay visible even when nobody queries the table.
func logRecord(rec *Record) {
	entry := map[string]any{
		"level":   "info",
		"msg":     "data access",
		"type":    "audit",
		"id":      rec.ID,
		"ts":      rec.Timestamp.Format(time.RFC3339Nano),
		"success": rec.Success,
	}
	if rec.ResourceReference != "" {
		entry["resource"] = rec.ResourceReference
	}
	if rec.ReasonReference != "" {
		entry["reason"] = rec.ReasonReference
	}
	if rec.Actor != "" {
		entry["actor"] = rec.Actor
	}
	if rec.ErrorDetail != "" {
		entry["error"] = rec.ErrorDetail
	}
	obs.Log(entry)
}
