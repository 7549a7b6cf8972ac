// Package batch accumulates the writes of one unit of work and hands them to
// a Committer that applies them all or none.
package batch

import (
	"time"

	"prospect_backend/internal/prospects/domain"
)

// Write is one staged mutation. The set of implementations is closed.
type Write interface {
	kind() string
}

// ProspectUpsert inserts the prospect or, when it exists, overwrites only the
// fields in Fields. Creation defaults must already be applied to Prospect.
type ProspectUpsert struct {
	Prospect domain.Prospect
	Fields   domain.FieldMask
	At       time.Time
}

// ContactCreate appends a contact to its prospect.
type ContactCreate struct {
	Contact domain.Contact
}

// SignalCreate appends a signal to its prospect.
type SignalCreate struct {
	Signal domain.Signal
}

// AuditAppend appends an audit record.
type AuditAppend struct {
	Record domain.AuditRecord
}

// ScoreUpdate writes score, stage and updated_at of an existing prospect.
type ScoreUpdate struct {
	Rescore domain.Rescore
	At      time.Time
}

func (ProspectUpsert) kind() string { return "prospect_upsert" }
func (ContactCreate) kind() string  { return "contact_create" }
func (SignalCreate) kind() string   { return "signal_create" }
func (AuditAppend) kind() string    { return "audit_append" }
func (ScoreUpdate) kind() string    { return "score_update" }

// Kind names the write for logs and errors.
func Kind(w Write) string {
	return w.kind()
}

// Chunks splits writes into consecutive slices of at most size elements.
func Chunks(writes []Write, size int) [][]Write {
	if size <= 0 || len(writes) <= size {
		if len(writes) == 0 {
			return nil
		}
		return [][]Write{writes}
	}
	out := make([][]Write, 0, (len(writes)+size-1)/size)
	for start := 0; start < len(writes); start += size {
		end := min(start+size, len(writes))
		out = append(out, writes[start:end])
	}
	return out
}
