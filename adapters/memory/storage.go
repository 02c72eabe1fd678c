package memory

import (
	"context"
	"fmt"
	"sync"

	"gimmefy/core"
)

// Store is a concurrent in-memory Storage implementation, used for tests and
// demos.
type Store struct {
	mu         sync.RWMutex
	users      map[core.Username]*core.User
	objects    map[core.ObjectKind]map[string]core.Object
	levelRules map[int]core.RuleLevel
	itemRules  map[string]core.RuleItem
}

func New() *Store {
	objects := make(map[core.ObjectKind]map[string]core.Object)
	for _, kind := range core.Kinds() {
		objects[kind] = make(map[string]core.Object)
	}
	return &Store{
		users:      make(map[core.Username]*core.User),
		objects:    objects,
		levelRules: make(map[int]core.RuleLevel),
		itemRules:  make(map[string]core.RuleItem),
	}
}

func (s *Store) GetUser(_ context.Context, username core.Username) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	return u.Clone(), nil
}

func (s *Store) InsertUser(_ context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return fmt.Errorf("user %q: %w", user.Username, core.ErrConflict)
	}
	s.users[user.Username] = user.Clone()
	return nil
}

func (s *Store) UpdateUser(_ context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user.Clone()
	return nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) GetObject(_ context.Context, kind core.ObjectKind, id string) (*core.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[kind][id]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", kind, id, core.ErrNotFound)
	}
	return &obj, nil
}

func (s *Store) ListObjects(_ context.Context, kind core.ObjectKind) ([]core.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Object, 0, len(s.objects[kind]))
	for _, obj := range s.objects[kind] {
		out = append(out, obj)
	}
	return out, nil
}

func (s *Store) UpsertObject(_ context.Context, kind core.ObjectKind, obj core.Object) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[kind][obj.ID] = obj
	return 1, nil
}

func (s *Store) PruneObjects(_ context.Context, kind core.ObjectKind, keep map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id := range s.objects[kind] {
		if _, ok := keep[id]; !ok {
			delete(s.objects[kind], id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) ListLevelRules(_ context.Context) ([]core.RuleLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RuleLevel, 0, len(s.levelRules))
	for _, r := range s.levelRules {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) UpsertLevelRule(_ context.Context, rule core.RuleLevel) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levelRules[rule.Level] = rule
	return 1, nil
}

func (s *Store) PruneLevelRules(_ context.Context, keep map[int]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for level := range s.levelRules {
		if _, ok := keep[level]; !ok {
			delete(s.levelRules, level)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) ListItemRules(_ context.Context) ([]core.RuleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RuleItem, 0, len(s.itemRules))
	for _, r := range s.itemRules {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) UpsertItemRule(_ context.Context, rule core.RuleItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemRules[rule.Item] = rule
	return 1, nil
}

func (s *Store) PruneItemRules(_ context.Context, keep map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for item := range s.itemRules {
		if _, ok := keep[item]; !ok {
			delete(s.itemRules, item)
			deleted++
		}
	}
	return deleted, nil
}
