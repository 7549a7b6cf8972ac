package batch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTooManyWrites is returned by Stage when the unit would exceed its limit.
	ErrTooManyWrites = errors.New("batch write limit exceeded")
	// ErrAlreadyCommitted is returned when a unit is reused after Commit.
	ErrAlreadyCommitted = errors.New("batch already committed")
)

// Committer applies a list of writes atomically.
type Committer interface {
	Apply(ctx context.Context, writes []Write) error
}

// Unit is one atomic commit unit. It is not safe for concurrent use.
type Unit struct {
	committer Committer
	maxWrites int
	writes    []Write
	done      bool
}

// NewUnit creates a unit. maxWrites <= 0 means no limit.
func NewUnit(committer Committer, maxWrites int) *Unit {
	return &Unit{committer: committer, maxWrites: maxWrites}
}

// Stage adds writes to the unit. Either all of them are staged or none.
func (u *Unit) Stage(writes ...Write) error {
	if u.done {
		return ErrAlreadyCommitted
	}
	if u.maxWrites > 0 && len(u.writes)+len(writes) > u.maxWrites {
		return fmt.Errorf("%w: %d staged, %d more, limit %d", ErrTooManyWrites, len(u.writes), len(writes), u.maxWrites)
	}
	u.writes = append(u.writes, writes...)
	return nil
}

// Len returns the number of staged writes.
func (u *Unit) Len() int {
	return len(u.writes)
}

// Writes returns the staged writes.
func (u *Unit) Writes() []Write {
	return u.writes
}

// Commit applies every staged write or none. An empty unit commits trivially.
func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrAlreadyCommitted
	}
	u.done = true
	if len(u.writes) == 0 {
		return nil
	}
	if err := u.committer.Apply(ctx, u.writes); err != nil {
		return fmt.Errorf("commit %d writes: %w", len(u.writes), err)
	}
	return nil
}
