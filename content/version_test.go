package content

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func TestStore_CreateNewVersion_Chain(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	v1 := mustCreate(t, store, "A")
	tag, err := store.CreateTag(ctx, "promo")
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := store.AttachTag(ctx, v1.ID, tag.ID, "alice"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	v2, err := store.CreateNewVersion(ctx, v1.ID, "bob")
	if err != nil {
		t.Fatalf("v2: %v", err)
	}
	if v2.Version != 2 {
		t.Fatalf("expected version 2, got %d", v2.Version)
	}
	if v2.ID == v1.ID {
		t.Fatal("expected a new id for the new version")
	}
	if v2.Title != v1.Title || v2.Content != v1.Content || v2.ItemType != v1.ItemType ||
		v2.IsActive != v1.IsActive || v2.SortOrder != v1.SortOrder {
		t.Errorf("expected copied fields, got %+v", v2)
	}
	if v2.CreatedBy != "bob" {
		t.Errorf("expected created_by bob, got %q", v2.CreatedBy)
	}

	rels, err := store.ItemTagRelations(ctx, v2.ID)
	if err != nil {
		t.Fatalf("relations: %v", err)
	}
	if len(rels) != 1 || rels[0].TagID != tag.ID {
		t.Fatalf("expected the parent's tag on v2, got %+v", rels)
	}
	if rels[0].CreatedBy != "bob" || rels[0].UpdatedBy != "bob" {
		t.Errorf("expected copied relation stamped with bob, got %q/%q", rels[0].CreatedBy, rels[0].UpdatedBy)
	}

	v3, err := store.CreateNewVersion(ctx, v2.ID, "carol")
	if err != nil {
		t.Fatalf("v3: %v", err)
	}
	if v3.Version != 3 {
		t.Fatalf("expected version 3, got %d", v3.Version)
	}

	versions, err := store.ListVersions(ctx, "A")
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	got := make([]int, 0, len(versions))
	for _, item := range versions {
		got = append(got, item.Version)
	}
	if len(got) != 3 || got[0] != 3 || got[1] != 2 || got[2] != 1 {
		t.Errorf("expected versions [3 2 1], got %v", got)
	}

	parent, err := store.GetItem(ctx, v1.ID)
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if parent.Version != 1 || parent.Content != v1.Content {
		t.Errorf("expected parent untouched, got %+v", parent)
	}
}

func TestStore_CreateNewVersion_FromOlderParent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	v1 := mustCreate(t, store, "A")
	if _, err := store.CreateNewVersion(ctx, v1.ID, "bob"); err != nil {
		t.Fatalf("v2: %v", err)
	}

	next, err := store.CreateNewVersion(ctx, v1.ID, "bob")
	if err != nil {
		t.Fatalf("v3: %v", err)
	}
	if next.Version != 3 {
		t.Errorf("expected the title maximum to drive the number, got %d", next.Version)
	}
}

func TestStore_CreateNewVersion_StampsActorAsGiven(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	v1 := mustCreate(t, store, "A")

	tests := []struct {
		name  string
		actor Actor
	}{
		{name: "named actor", actor: "bob"},
		{name: "empty actor", actor: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := store.CreateNewVersion(ctx, v1.ID, tt.actor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next.CreatedBy != tt.actor || next.UpdatedBy != tt.actor {
				t.Errorf("expected created_by and updated_by %q, got %q and %q", tt.actor, next.CreatedBy, next.UpdatedBy)
			}

			stored, err := store.GetItem(ctx, next.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if stored.CreatedBy != tt.actor {
				t.Errorf("expected stored created_by %q, got %q", tt.actor, stored.CreatedBy)
			}
		})
	}
}

func TestStore_CreateNewVersion_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateNewVersion(context.Background(), uuid.New(), "bob")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_CreateNewVersion_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	parent := mustCreate(t, store, "Race")
	other := mustCreate(t, store, "Bystander")

	const callers = 12
	var wg sync.WaitGroup
	results := make(chan *Item, callers)
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := store.CreateNewVersion(ctx, parent.ID, "worker")
			if err != nil {
				errs <- err
				return
			}
			results <- item
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	var numbers []int
	for item := range results {
		numbers = append(numbers, item.Version)
	}
	sort.Ints(numbers)
	if len(numbers) != callers {
		t.Fatalf("expected %d new versions, got %d", callers, len(numbers))
	}
	for i, n := range numbers {
		if n != i+2 {
			t.Fatalf("expected versions 2..%d without duplicates, got %v", callers+1, numbers)
		}
	}

	original, err := store.GetItem(ctx, parent.ID)
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if original.Version != 1 {
		t.Errorf("expected parent to stay at version 1, got %d", original.Version)
	}

	bystanders, err := store.ListVersions(ctx, other.Title)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(bystanders) != 1 {
		t.Errorf("expected other titles to be untouched, got %d versions", len(bystanders))
	}
}

func TestStore_WriteTx_LostRaceExhaustsIntoConflict(t *testing.T) {
	store := newTestStore(t)

	calls := 0
	err := store.writeTx(context.Background(), "test", func(ctx context.Context, tx bun.Tx) error {
		calls++
		return &lostRaceError{err: errors.New("duplicate")}
	})
	if !IsLockConflict(err) || !IsConflict(err) {
		t.Fatalf("expected lock conflict, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestStore_WriteTx_TransientThenSuccess(t *testing.T) {
	transient := errors.New("database is locked")
	store := newTestStore(t, WithTransientClassifier(func(err error) bool {
		return errors.Is(err, transient)
	}))

	calls := 0
	err := store.writeTx(context.Background(), "test", func(ctx context.Context, tx bun.Tx) error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on the third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestStore_WriteTx_NonTransientNotRetried(t *testing.T) {
	store := newTestStore(t, WithRetryPolicy(RetryPolicy{Attempts: 3, BaseDelay: time.Hour}))

	calls := 0
	err := store.writeTx(context.Background(), "test", func(ctx context.Context, tx bun.Tx) error {
		calls++
		return errors.New("constraint failed")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if IsLockConflict(err) {
		t.Errorf("expected a store failure, got lock conflict")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}
