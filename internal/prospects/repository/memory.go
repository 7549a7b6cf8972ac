package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"prospect_backend/internal/prospects/assignment"
	"prospect_backend/internal/prospects/batch"
	"prospect_backend/internal/prospects/domain"
)

// ErrInjected is returned by MemoryStore.Apply after FailNextApply.
var ErrInjected = errors.New("injected commit failure")

type prospectKey struct {
	tenantID string
	id       string
}

type memoryState struct {
	prospects map[prospectKey]domain.Prospect
	contacts  []domain.Contact
	signals   []domain.Signal
	audit     []domain.AuditRecord
}

func (s memoryState) clone() memoryState {
	return memoryState{
		prospects: maps.Clone(s.prospects),
		contacts:  slices.Clone(s.contacts),
		signals:   slices.Clone(s.signals),
		audit:     slices.Clone(s.audit),
	}
}

// MemoryStore keeps prospects, cursors and audit records in process. It
// enforces the same constraints as the Postgres schema and applies a commit
// to a copy of its state, so a failed commit leaves nothing behind.
type MemoryStore struct {
	mu        sync.Mutex
	state     memoryState
	cursors   map[string]domain.RotationCursor
	failNext  bool
	applyRuns int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state:   memoryState{prospects: map[prospectKey]domain.Prospect{}},
		cursors: map[string]domain.RotationCursor{},
	}
}

// FailNextApply makes the next commit fail after its writes were applied to
// the working copy.
func (m *MemoryStore) FailNextApply() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

// ApplyCount returns how many commits were attempted.
func (m *MemoryStore) ApplyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyRuns
}

// Apply commits writes atomically.
func (m *MemoryStore) Apply(ctx context.Context, writes []batch.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(writes)
}

func (m *MemoryStore) applyLocked(writes []batch.Write) error {
	m.applyRuns++
	work := m.state.clone()
	for _, w := range writes {
		if err := work.apply(w); err != nil {
			return fmt.Errorf("%s: %w", batch.Kind(w), err)
		}
	}
	if m.failNext {
		m.failNext = false
		return ErrInjected
	}
	m.state = work
	return nil
}

func (s *memoryState) apply(w batch.Write) error {
	switch typed := w.(type) {
	case batch.ProspectUpsert:
		p := typed.Prospect
		if err := checkProspect(p); err != nil {
			return err
		}
		key := prospectKey{p.TenantID, p.ID}
		stored, exists := s.prospects[key]
		if !exists {
			p.Wedges = slices.Clone(nonNil(p.Wedges))
			p.CurrentTools = slices.Clone(nonNil(p.CurrentTools))
			p.CreatedAt = typed.At
			p.UpdatedAt = typed.At
			s.prospects[key] = p
			return nil
		}
		stored.Merge(p, typed.Fields)
		stored.UpdatedAt = typed.At
		s.prospects[key] = stored
	case batch.ContactCreate:
		if _, ok := s.prospects[prospectKey{typed.Contact.TenantID, typed.Contact.ProspectID}]; !ok {
			return fmt.Errorf("contact references missing prospect %s", typed.Contact.ProspectID)
		}
		s.contacts = append(s.contacts, typed.Contact)
	case batch.SignalCreate:
		if _, ok := s.prospects[prospectKey{typed.Signal.TenantID, typed.Signal.ProspectID}]; !ok {
			return fmt.Errorf("signal references missing prospect %s", typed.Signal.ProspectID)
		}
		s.signals = append(s.signals, typed.Signal)
	case batch.AuditAppend:
		s.audit = append(s.audit, typed.Record)
	case batch.ScoreUpdate:
		key := prospectKey{typed.Rescore.TenantID, typed.Rescore.ID}
		stored, ok := s.prospects[key]
		if !ok {
			return nil
		}
		if typed.Rescore.Score < domain.MinScore || typed.Rescore.Score > domain.MaxScore {
			return fmt.Errorf("score %d out of range", typed.Rescore.Score)
		}
		stored.Score = typed.Rescore.Score
		stored.Stage = typed.Rescore.Stage
		stored.UpdatedAt = typed.At
		s.prospects[key] = stored
	default:
		return fmt.Errorf("unsupported write %T", w)
	}
	return nil
}

func checkProspect(p domain.Prospect) error {
	switch {
	case p.TenantID == "" || p.ID == "":
		return errors.New("prospect key is empty")
	case p.Score < domain.MinScore || p.Score > domain.MaxScore:
		return fmt.Errorf("score %d out of range", p.Score)
	case !p.Product.Valid():
		return fmt.Errorf("invalid product %q", p.Product)
	case !p.Stage.Valid() || !p.Status.Valid() || !p.Priority.Valid():
		return errors.New("invalid enumeration value")
	}
	return nil
}

// Advance implements assignment.CursorStore.
func (m *MemoryStore) Advance(ctx context.Context, scope assignment.Scope, poolSize int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.cursors[scope.Key()]
	next := assignment.NextIndex(cur.LastIndex, exists, poolSize)
	m.cursors[scope.Key()] = domain.RotationCursor{
		ScopeKey:  scope.Key(),
		TenantID:  scope.TenantID,
		Region:    scope.Region,
		LastIndex: next,
		Count:     cur.Count + 1,
		UpdatedAt: time.Now().UTC(),
	}
	return next, nil
}

// Cursor returns the stored cursor for key.
func (m *MemoryStore) Cursor(key string) (domain.RotationCursor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.cursors[key]
	return cur, ok
}

// GetProspect loads one prospect by tenant and id.
func (m *MemoryStore) GetProspect(_ context.Context, tenantID, id string) (domain.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.prospects[prospectKey{tenantID, id}]
	if !ok {
		return domain.Prospect{}, ErrNotFound
	}
	return p, nil
}

// CountProspects returns the number of stored prospects.
func (m *MemoryStore) CountProspects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.prospects)
}

// ListContacts returns the contacts of a prospect, oldest first.
func (m *MemoryStore) ListContacts(_ context.Context, tenantID, prospectID string) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Contact, 0)
	for _, c := range m.state.contacts {
		if c.TenantID == tenantID && c.ProspectID == prospectID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListSignals returns the signals of a prospect, oldest first.
func (m *MemoryStore) ListSignals(_ context.Context, tenantID, prospectID string) ([]domain.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Signal, 0)
	for _, s := range m.state.signals {
		if s.TenantID == tenantID && s.ProspectID == prospectID {
			out = append(out, s)
		}
	}
	return out, nil
}

// ListAuditRecords returns the audit trail of a prospect in write order.
func (m *MemoryStore) ListAuditRecords(_ context.Context, tenantID, prospectID string) ([]domain.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditRecord, 0)
	for _, a := range m.state.audit {
		if a.TenantID == tenantID && a.ProspectID == prospectID {
			out = append(out, a)
		}
	}
	return out, nil
}

// AuditCount returns the number of audit records in the store.
func (m *MemoryStore) AuditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.audit)
}

type memoryScoringTx struct {
	store *MemoryStore
	work  memoryState
}

func (t *memoryScoringTx) ListForScoring(ctx context.Context) ([]domain.Prospect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := slices.SortedFunc(maps.Keys(t.work.prospects), func(a, b prospectKey) int {
		return cmp.Or(cmp.Compare(a.tenantID, b.tenantID), cmp.Compare(a.id, b.id))
	})
	out := make([]domain.Prospect, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.work.prospects[k])
	}
	return out, nil
}

func (t *memoryScoringTx) Apply(ctx context.Context, writes []batch.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.applyRuns++
	for _, w := range writes {
		if err := t.work.apply(w); err != nil {
			return fmt.Errorf("%s: %w", batch.Kind(w), err)
		}
	}
	if t.store.failNext {
		t.store.failNext = false
		return ErrInjected
	}
	return nil
}

// RunScoring holds the store lock for the whole run and publishes the
// working copy only when fn succeeds.
func (m *MemoryStore) RunScoring(ctx context.Context, fn func(ctx context.Context, tx ScoringTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryScoringTx{store: m, work: m.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.work
	return nil
}
