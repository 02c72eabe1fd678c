package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gimmefy/core"
)

// Reconcile makes the incoming snapshot authoritative: for each of the five
// entity kinds it upserts every entry keyed by its natural id, then deletes
// every persisted entry of that kind absent from the snapshot. Kinds are
// reconciled independently; a failure leaves earlier kinds applied.
func (s *Service) Reconcile(ctx context.Context, snap core.Snapshot) (core.SyncResult, error) {
	var res core.SyncResult

	for _, kind := range core.Kinds() {
		keep := make(map[string]struct{})
		for _, obj := range snap.Objects(kind) {
			n, err := s.storage.UpsertObject(ctx, kind, obj)
			if err != nil {
				return res, fmt.Errorf("upsert %s %q: %w", kind, obj.ID, err)
			}
			res.Modified += n
			keep[obj.ID] = struct{}{}
		}
		d, err := s.storage.PruneObjects(ctx, kind, keep)
		if err != nil {
			return res, fmt.Errorf("prune %s: %w", kind, err)
		}
		res.Deleted += d
	}

	keepLevels := make(map[int]struct{})
	for _, rule := range snap.RuleLevels {
		n, err := s.storage.UpsertLevelRule(ctx, rule)
		if err != nil {
			return res, fmt.Errorf("upsert level rule %d: %w", rule.Level, err)
		}
		res.Modified += n
		keepLevels[rule.Level] = struct{}{}
	}
	d, err := s.storage.PruneLevelRules(ctx, keepLevels)
	if err != nil {
		return res, fmt.Errorf("prune level rules: %w", err)
	}
	res.Deleted += d

	keepItems := make(map[string]struct{})
	for _, rule := range snap.RuleItems {
		n, err := s.storage.UpsertItemRule(ctx, rule)
		if err != nil {
			return res, fmt.Errorf("upsert item rule %q: %w", rule.Item, err)
		}
		res.Modified += n
		keepItems[rule.Item] = struct{}{}
	}
	d, err = s.storage.PruneItemRules(ctx, keepItems)
	if err != nil {
		return res, fmt.Errorf("prune item rules: %w", err)
	}
	res.Deleted += d

	return res, nil
}

// Export assembles the current catalog and rule tables into a snapshot.
func (s *Service) Export(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	var err error
	if snap.Tables, err = s.storage.ListObjects(ctx, core.KindTable); err != nil {
		return snap, err
	}
	if snap.Chairs, err = s.storage.ListObjects(ctx, core.KindChair); err != nil {
		return snap, err
	}
	if snap.Misc, err = s.storage.ListObjects(ctx, core.KindMisc); err != nil {
		return snap, err
	}
	if snap.RuleLevels, err = s.storage.ListLevelRules(ctx); err != nil {
		return snap, err
	}
	if snap.RuleItems, err = s.storage.ListItemRules(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// ReloadCatalog reconciles from the configured snapshot file.
func (s *Service) ReloadCatalog(ctx context.Context) (core.SyncResult, error) {
	if s.cfg.CatalogPath == "" {
		return core.SyncResult{}, fmt.Errorf("no catalog path configured")
	}
	snap, err := LoadSnapshotFile(s.cfg.CatalogPath)
	if err != nil {
		return core.SyncResult{}, err
	}
	return s.Reconcile(ctx, snap)
}

// LoadSnapshotFile parses a catalog snapshot document: a single JSON object
// with the five entity arrays.
func LoadSnapshotFile(path string) (core.Snapshot, error) {
	var snap core.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}
