package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gimmefy/core"
)

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "state.json")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	u := core.NewUser("alice", 0, 200)
	u.Level = 3
	if err := s.InsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertObject(ctx, core.KindTable, core.Object{ID: "oak", Cost: 150}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertLevelRule(ctx, core.RuleLevel{Level: 2, ExpGTE: 50}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertItemRule(ctx, core.RuleItem{Item: "chest_1", Level: 2, ExpGTE: 100}); err != nil {
		t.Fatal(err)
	}

	// a second store reading the same file sees everything
	reloaded, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.GetUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != 3 || got.TotalMoney != 200 {
		t.Fatalf("got %+v", got)
	}
	if obj, err := reloaded.GetObject(ctx, core.KindTable, "oak"); err != nil || obj.Cost != 150 {
		t.Fatalf("got %+v err %v", obj, err)
	}
	rules, err := reloaded.ListLevelRules(ctx)
	if err != nil || len(rules) != 1 {
		t.Fatalf("got %+v err %v", rules, err)
	}
	items, err := reloaded.ListItemRules(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("got %+v err %v", items, err)
	}
}

func TestMissingFileStartsEmpty(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if n, err := s.CountUsers(context.Background()); err != nil || n != 0 {
		t.Fatalf("count = %d err = %v", n, err)
	}
}

func TestConflictAndPrune(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	u := core.NewUser("bob", 0, 0)
	if err := s.InsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertUser(ctx, u); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}

	if _, err := s.UpsertObject(ctx, core.KindMisc, core.Object{ID: "plant"}); err != nil {
		t.Fatal(err)
	}
	deleted, err := s.PruneObjects(ctx, core.KindMisc, map[string]struct{}{})
	if err != nil || deleted != 1 {
		t.Fatalf("deleted = %d err = %v", deleted, err)
	}
	if _, err := s.GetObject(ctx, core.KindMisc, "plant"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}
