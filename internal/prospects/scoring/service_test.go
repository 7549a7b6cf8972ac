package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"prospect_backend/internal/prospects/batch"
	"prospect_backend/internal/prospects/domain"
	"prospect_backend/internal/prospects/repository"
	"prospect_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var fixedNow = time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *repository.MemoryStore, id string, score int, stage domain.Stage, contactedDaysAgo int) {
	t.Helper()
	p := domain.Prospect{
		TenantID:        "acme",
		ID:              id,
		InstitutionName: "Example",
		Domain:          "example.edu",
		Product:         domain.ProductVerity,
		Score:           score,
		Stage:           stage,
	}
	if contactedDaysAgo >= 0 {
		last := fixedNow.Add(-time.Duration(contactedDaysAgo) * 24 * time.Hour)
		p.LastContactedAt = &last
	}
	p.ApplyDefaults()
	err := store.Apply(context.Background(), []batch.Write{batch.ProspectUpsert{Prospect: p, At: fixedNow.Add(-time.Hour)}})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func newService(store Store, locker Locker, preserveHold bool) *Service {
	svc := New(store, locker, nil, logger.Discard(), Options{PreserveHold: preserveHold})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestRecalculateAppliesDecayAndThresholds(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "a_verity", 82, domain.StageNurture, 5)
	seed(t, store, "b_verity", 61, domain.StageResearch, 1)
	seed(t, store, "c_verity", 1, domain.StageResearch, 10)
	seed(t, store, "d_verity", 90, domain.StageHold, -1)

	summary, err := newService(store, nil, false).Recalculate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Rescored != 4 || summary.Decayed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	want := map[string]struct {
		score int
		stage domain.Stage
	}{
		"a_verity": {80, domain.StageP1},
		"b_verity": {61, domain.StageNurture},
		"c_verity": {0, domain.StageResearch},
		"d_verity": {90, domain.StageP1},
	}
	for id, w := range want {
		p, err := store.GetProspect(context.Background(), "acme", id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if p.Score != w.score || p.Stage != w.stage {
			t.Fatalf("%s: expected %d/%s, got %d/%s", id, w.score, w.stage, p.Score, p.Stage)
		}
		if !p.UpdatedAt.Equal(fixedNow) {
			t.Fatalf("%s: expected updated_at to be written even when unchanged", id)
		}
	}
}

func TestRecalculatePreserveHold(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "a_verity", 90, domain.StageHold, 4)

	if _, err := newService(store, nil, true).Recalculate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := store.GetProspect(context.Background(), "acme", "a_verity")
	if p.Stage != domain.StageHold || p.Score != 88 {
		t.Fatalf("expected hold with decayed score 88, got %s/%d", p.Stage, p.Score)
	}
}

func TestRecalculateFailureIsNotPartiallyApplied(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "a_verity", 82, domain.StageNurture, 5)
	seed(t, store, "b_verity", 70, domain.StageNurture, 5)
	store.FailNextApply()

	if _, err := newService(store, nil, false).Recalculate(context.Background()); !errors.Is(err, repository.ErrInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	for id, score := range map[string]int{"a_verity": 82, "b_verity": 70} {
		p, _ := store.GetProspect(context.Background(), "acme", id)
		if p.Score != score {
			t.Fatalf("%s: expected untouched score %d, got %d", id, score, p.Score)
		}
	}
}

func TestRecalculateSkipsWhileLockIsHeld(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "a_verity", 82, domain.StageNurture, 5)
	locker, mr := newRedisLocker(t)

	if err := mr.Set(LockKey, "someone-else"); err != nil {
		t.Fatalf("preset lock: %v", err)
	}

	_, err := newService(store, locker, false).Recalculate(context.Background())
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	p, _ := store.GetProspect(context.Background(), "acme", "a_verity")
	if p.Score != 82 {
		t.Fatalf("expected no writes while skipped, got %d", p.Score)
	}
	if got, _ := mr.Get(LockKey); got != "someone-else" {
		t.Fatalf("foreign lock must not be released, got %q", got)
	}
}

func TestRecalculateReleasesLock(t *testing.T) {
	store := repository.NewMemoryStore()
	locker, mr := newRedisLocker(t)

	if _, err := newService(store, locker, false).Recalculate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(LockKey) {
		t.Fatalf("expected lock to be released after the run")
	}
	if _, err := newService(store, locker, false).Recalculate(context.Background()); err != nil {
		t.Fatalf("second run should acquire the lock again: %v", err)
	}
}

func TestRedisLockerTTL(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first lock, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := locker.TryLock(ctx, "k", time.Minute); ok {
		t.Fatalf("expected second lock to fail")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := locker.TryLock(ctx, "k", time.Minute); !ok {
		t.Fatalf("expected lock after TTL expiry")
	}
}
