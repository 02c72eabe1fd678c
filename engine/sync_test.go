package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	mem "gimmefy/adapters/memory"
	"gimmefy/core"
)

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		Tables: []core.Object{
			{ID: "default", Cost: 0, MinLevel: 1},
			{ID: "oak", Cost: 150, MinLevel: 2},
		},
		Chairs: []core.Object{
			{ID: "default", Cost: 0, MinLevel: 1},
		},
		Misc: []core.Object{
			{ID: "plant", Cost: 50, MinLevel: 1},
		},
		RuleLevels: []core.RuleLevel{
			{Level: 2, ExpGTE: 50},
			{Level: 3, ExpGTE: 150},
		},
		RuleItems: []core.RuleItem{
			{Item: "chest_1", Level: 2, ExpGTE: 100},
		},
	}
}

func TestReconcile(t *testing.T) {
	store := mem.New()
	bus := NewEventBus(DispatchSync)
	svc := NewService(store, bus, nil, DefaultConfig())
	ctx := context.Background()

	snap := testSnapshot()
	res, err := svc.Reconcile(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	// 4 objects + 2 level rules + 1 item rule
	if res.Modified != 7 || res.Deleted != 0 {
		t.Fatalf("got %+v", res)
	}

	// rerunning the same snapshot counts every entry touched again and
	// deletes nothing
	res, err = svc.Reconcile(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.Modified != 7 || res.Deleted != 0 {
		t.Fatalf("rerun got %+v", res)
	}

	// a shrunken snapshot prunes everything absent from it
	small := core.Snapshot{
		Tables:     []core.Object{{ID: "default"}},
		RuleLevels: []core.RuleLevel{{Level: 2, ExpGTE: 50}},
	}
	res, err = svc.Reconcile(ctx, small)
	if err != nil {
		t.Fatal(err)
	}
	// dropped: oak table, default chair, plant, level-3 rule, chest_1 rule
	if res.Modified != 2 || res.Deleted != 5 {
		t.Fatalf("shrink got %+v", res)
	}

	out, err := svc.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Tables) != 1 || len(out.Chairs) != 0 || len(out.Misc) != 0 {
		t.Fatalf("export mismatch: %+v", out)
	}
	if len(out.RuleLevels) != 1 || len(out.RuleItems) != 0 {
		t.Fatalf("rules not pruned: %+v", out)
	}
}

func TestReloadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	data, err := json.Marshal(testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	store := mem.New()
	bus := NewEventBus(DispatchSync)
	cfg := DefaultConfig()
	cfg.CatalogPath = path
	svc := NewService(store, bus, nil, cfg)

	res, err := svc.ReloadCatalog(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Modified != 7 {
		t.Fatalf("got %+v", res)
	}

	// no configured path is an error, not a silent no-op
	svc = NewService(store, bus, nil, DefaultConfig())
	if _, err := svc.ReloadCatalog(context.Background()); err == nil {
		t.Fatal("expected error without a catalog path")
	}
}
