package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gimmefy/core"
)

// newTestStore spins up a miniredis server and returns a store plus cleanup.
func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewWithClient(client)
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return store, cleanup
}

func TestStore_Users(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.GetUser(ctx, "alice")
	require.ErrorIs(t, err, core.ErrNotFound)

	u := core.NewUser("alice", 10, 200)
	require.NoError(t, store.InsertUser(ctx, u))

	err = store.InsertUser(ctx, u)
	require.ErrorIs(t, err, core.ErrConflict)

	got, err := store.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.Username("alice"), got.Username)
	assert.Equal(t, 200, got.TotalMoney)
	assert.Equal(t, []string{core.DefaultItemID}, got.OwnedTables)

	got.TotalMoney = 50
	got.CurrentStreak = 2
	require.NoError(t, store.UpdateUser(ctx, got))

	again, err := store.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, again.TotalMoney)
	assert.Equal(t, 2, again.CurrentStreak)

	n, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Catalog(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	oak := core.Object{ID: "oak", Description: "Oak desk", Cost: 150, MinLevel: 2}
	n, err := store.UpsertObject(ctx, core.KindTable, oak)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// kinds live in separate hashes
	_, err = store.GetObject(ctx, core.KindChair, "oak")
	require.ErrorIs(t, err, core.ErrNotFound)

	got, err := store.GetObject(ctx, core.KindTable, "oak")
	require.NoError(t, err)
	assert.Equal(t, oak, *got)

	_, err = store.UpsertObject(ctx, core.KindTable, core.Object{ID: "default"})
	require.NoError(t, err)

	deleted, err := store.PruneObjects(ctx, core.KindTable, map[string]struct{}{"default": {}})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	objs, err := store.ListObjects(ctx, core.KindTable)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "default", objs[0].ID)
}

func TestStore_Rules(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.UpsertLevelRule(ctx, core.RuleLevel{Level: 2, ExpGTE: 50})
	require.NoError(t, err)
	_, err = store.UpsertLevelRule(ctx, core.RuleLevel{Level: 3, ExpGTE: 150})
	require.NoError(t, err)
	// replacing a level keeps one entry per level
	_, err = store.UpsertLevelRule(ctx, core.RuleLevel{Level: 2, ExpGTE: 75})
	require.NoError(t, err)

	rules, err := store.ListLevelRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	deleted, err := store.PruneLevelRules(ctx, map[int]struct{}{2: {}})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.UpsertItemRule(ctx, core.RuleItem{Item: "chest_1", Level: 2, ExpGTE: 100})
	require.NoError(t, err)
	items, err := store.ListItemRules(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "chest_1", items[0].Item)

	deleted, err = store.PruneItemRules(ctx, map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
