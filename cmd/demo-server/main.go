package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	mem "gimmefy/adapters/memory"
	"gimmefy/api/httpapi"
	"gimmefy/core"
	"gimmefy/engine"
	"gimmefy/gimmefy"
	"gimmefy/realtime"
)

// demoSnapshot seeds a small catalog with a couple of level and item
// thresholds so the demo is playable out of the box.
func demoSnapshot() core.Snapshot {
	return core.Snapshot{
		Tables: []core.Object{
			{ID: "default", Description: "Plain desk", Asset: "tables/default.png", Cost: 0, MinLevel: 1},
			{ID: "oak", Description: "Oak desk", Asset: "tables/oak.png", Cost: 150, MinLevel: 2},
		},
		Chairs: []core.Object{
			{ID: "default", Description: "Plain chair", Asset: "chairs/default.png", Cost: 0, MinLevel: 1},
			{ID: "leather", Description: "Leather chair", Asset: "chairs/leather.png", Cost: 250, MinLevel: 3},
		},
		Misc: []core.Object{
			{ID: "plant", Description: "Window plant", Asset: "misc/plant.png", Cost: 50, MinLevel: 1},
		},
		RuleLevels: []core.RuleLevel{
			{Level: 2, ExpGTE: 50},
			{Level: 3, ExpGTE: 150},
			{Level: 4, ExpGTE: 400},
		},
		RuleItems: []core.RuleItem{
			{Item: "chest_1", Level: 2, ExpGTE: 100},
			{Item: "chest_2", Level: 3, ExpGTE: 300},
		},
	}
}

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	ctx := context.Background()
	store := mem.New()
	hub := realtime.NewHub()
	svc := gimmefy.New(
		gimmefy.WithStorage(store),
		gimmefy.WithRealtime(hub),
		gimmefy.WithDispatchMode(engine.DispatchAsync),
	)

	if _, err := svc.Reconcile(ctx, demoSnapshot()); err != nil {
		slog.Error("failed to seed demo catalog", "error", err)
		os.Exit(1)
	}

	handler := httpapi.NewMux(svc, hub, httpapi.Options{})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", handler); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
