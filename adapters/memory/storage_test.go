package memory

import (
	"context"
	"errors"
	"testing"

	"gimmefy/core"
)

func TestUserLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetUser(ctx, "alice"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	u := core.NewUser("alice", 0, 200)
	if err := s.InsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertUser(ctx, u); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}

	u.TotalMoney = 50
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalMoney != 50 {
		t.Fatalf("money = %d", got.TotalMoney)
	}

	// reads are snapshots, not aliases
	got.OwnedTables = append(got.OwnedTables, "oak")
	again, _ := s.GetUser(ctx, "alice")
	if len(again.OwnedTables) != 1 {
		t.Fatal("stored user mutated through a read")
	}

	n, err := s.CountUsers(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d err = %v", n, err)
	}
}

func TestObjectsPerKind(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertObject(ctx, core.KindTable, core.Object{ID: "oak", Cost: 150}); err != nil {
		t.Fatal(err)
	}

	// kinds are separate namespaces
	if _, err := s.GetObject(ctx, core.KindChair, "oak"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	obj, err := s.GetObject(ctx, core.KindTable, "oak")
	if err != nil || obj.Cost != 150 {
		t.Fatalf("got %+v err %v", obj, err)
	}

	deleted, err := s.PruneObjects(ctx, core.KindTable, map[string]struct{}{})
	if err != nil || deleted != 1 {
		t.Fatalf("deleted = %d err = %v", deleted, err)
	}
	if objs, _ := s.ListObjects(ctx, core.KindTable); len(objs) != 0 {
		t.Fatal("prune left objects behind")
	}
}

func TestRuleTables(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertLevelRule(ctx, core.RuleLevel{Level: 2, ExpGTE: 50}); err != nil {
		t.Fatal(err)
	}
	// upserting the same level replaces it
	if _, err := s.UpsertLevelRule(ctx, core.RuleLevel{Level: 2, ExpGTE: 75}); err != nil {
		t.Fatal(err)
	}
	rules, err := s.ListLevelRules(ctx)
	if err != nil || len(rules) != 1 || rules[0].ExpGTE != 75 {
		t.Fatalf("got %+v err %v", rules, err)
	}

	if _, err := s.UpsertItemRule(ctx, core.RuleItem{Item: "chest_1", Level: 2, ExpGTE: 100}); err != nil {
		t.Fatal(err)
	}
	deleted, err := s.PruneItemRules(ctx, map[string]struct{}{"chest_1": {}})
	if err != nil || deleted != 0 {
		t.Fatalf("deleted = %d err = %v", deleted, err)
	}
	deleted, _ = s.PruneLevelRules(ctx, map[int]struct{}{})
	if deleted != 1 {
		t.Fatalf("deleted = %d", deleted)
	}
}
