package audit

import (
	"context"
	"time"
)

// Record is one access attempt against sensitive data, granted or denied.
// Records are append-only; nothing in the service updates or deletes them.
type Record struct {
	ID                string
	Timestamp         time.Time
	ResourceReference string
	ReasonReference   string
	Actor             string
	Success           bool
	ErrorDetail       string
}

// Recorder persists access records. Append must complete before the
// caller of the guarded operation learns its outcome.
type Recorder interface {
	Append(ctx context.Context, rec *Record) error
}
