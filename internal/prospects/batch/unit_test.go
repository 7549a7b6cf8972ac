package batch

import (
	"context"
	"errors"
	"testing"

	"prospect_backend/internal/prospects/domain"
)

type recordingCommitter struct {
	calls  int
	writes []Write
	err    error
}

func (c *recordingCommitter) Apply(_ context.Context, writes []Write) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, writes...)
	return nil
}

func TestUnitCommitsAllStagedWritesOnce(t *testing.T) {
	c := &recordingCommitter{}
	u := NewUnit(c, 10)

	if err := u.Stage(ProspectUpsert{Prospect: domain.Prospect{ID: "a_verity"}}, AuditAppend{}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := u.Stage(ContactCreate{}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := u.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if c.calls != 1 || len(c.writes) != 3 {
		t.Fatalf("expected one apply with 3 writes, got %d calls %d writes", c.calls, len(c.writes))
	}
	if err := u.Commit(context.Background()); !errors.Is(err, ErrAlreadyCommitted) {
		t.Fatalf("expected ErrAlreadyCommitted, got %v", err)
	}
}

func TestUnitRejectsOverflowBeforeCommit(t *testing.T) {
	c := &recordingCommitter{}
	u := NewUnit(c, 2)

	if err := u.Stage(AuditAppend{}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	err := u.Stage(AuditAppend{}, AuditAppend{})
	if !errors.Is(err, ErrTooManyWrites) {
		t.Fatalf("expected ErrTooManyWrites, got %v", err)
	}
	if u.Len() != 1 {
		t.Fatalf("overflowing stage must not be partially applied, got %d writes", u.Len())
	}
	if c.calls != 0 {
		t.Fatalf("committer must not be called")
	}
}

func TestUnitCommitFailureIsWrapped(t *testing.T) {
	boom := errors.New("storage rejected")
	u := NewUnit(&recordingCommitter{err: boom}, 0)
	_ = u.Stage(AuditAppend{})

	if err := u.Commit(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestChunks(t *testing.T) {
	writes := make([]Write, 7)
	for i := range writes {
		writes[i] = AuditAppend{}
	}

	chunks := Chunks(writes, 3)
	if len(chunks) != 3 || len(chunks[0]) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunking: %d chunks", len(chunks))
	}
	if got := Chunks(writes, 0); len(got) != 1 || len(got[0]) != 7 {
		t.Fatalf("size 0 must yield a single chunk")
	}
	if got := Chunks(nil, 3); got != nil {
		t.Fatalf("expected nil for no writes")
	}
}
