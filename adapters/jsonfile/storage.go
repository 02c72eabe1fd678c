package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gimmefy/core"
)

// Store persists the entire state to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	data fileState
}

type fileState struct {
	Users      map[string]*core.User             `json:"users"`
	Catalog    map[string]map[string]core.Object `json:"catalog"`
	LevelRules map[string]core.RuleLevel         `json:"rule_levels"`
	ItemRules  map[string]core.RuleItem          `json:"rule_items"`
}

func newFileState() fileState {
	catalog := make(map[string]map[string]core.Object)
	for _, kind := range core.Kinds() {
		catalog[string(kind)] = make(map[string]core.Object)
	}
	return fileState{
		Users:      make(map[string]*core.User),
		Catalog:    catalog,
		LevelRules: make(map[string]core.RuleLevel),
		ItemRules:  make(map[string]core.RuleItem),
	}
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: newFileState()}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	loaded := newFileState()
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	for _, kind := range core.Kinds() {
		if loaded.Catalog[string(kind)] == nil {
			loaded.Catalog[string(kind)] = make(map[string]core.Object)
		}
	}
	s.data = loaded
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) GetUser(_ context.Context, username core.Username) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data.Users[string(username)]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	return u.Clone(), nil
}

func (s *Store) InsertUser(_ context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Users[string(user.Username)]; ok {
		return fmt.Errorf("user %q: %w", user.Username, core.ErrConflict)
	}
	s.data.Users[string(user.Username)] = user.Clone()
	return s.persist()
}

func (s *Store) UpdateUser(_ context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Users[string(user.Username)] = user.Clone()
	return s.persist()
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.Users), nil
}

func (s *Store) GetObject(_ context.Context, kind core.ObjectKind, id string) (*core.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.data.Catalog[string(kind)][id]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", kind, id, core.ErrNotFound)
	}
	return &obj, nil
}

func (s *Store) ListObjects(_ context.Context, kind core.ObjectKind) ([]core.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.data.Catalog[string(kind)]
	out := make([]core.Object, 0, len(bucket))
	for _, obj := range bucket {
		out = append(out, obj)
	}
	return out, nil
}

func (s *Store) UpsertObject(_ context.Context, kind core.ObjectKind, obj core.Object) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Catalog[string(kind)][obj.ID] = obj
	return 1, s.persist()
}

func (s *Store) PruneObjects(_ context.Context, kind core.ObjectKind, keep map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.data.Catalog[string(kind)]
	deleted := 0
	for id := range bucket {
		if _, ok := keep[id]; !ok {
			delete(bucket, id)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, nil
	}
	return deleted, s.persist()
}

func (s *Store) ListLevelRules(_ context.Context) ([]core.RuleLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RuleLevel, 0, len(s.data.LevelRules))
	for _, r := range s.data.LevelRules {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) UpsertLevelRule(_ context.Context, rule core.RuleLevel) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LevelRules[strconv.Itoa(rule.Level)] = rule
	return 1, s.persist()
}

func (s *Store) PruneLevelRules(_ context.Context, keep map[int]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, rule := range s.data.LevelRules {
		if _, ok := keep[rule.Level]; !ok {
			delete(s.data.LevelRules, key)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, nil
	}
	return deleted, s.persist()
}

func (s *Store) ListItemRules(_ context.Context) ([]core.RuleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RuleItem, 0, len(s.data.ItemRules))
	for _, r := range s.data.ItemRules {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) UpsertItemRule(_ context.Context, rule core.RuleItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ItemRules[rule.Item] = rule
	return 1, s.persist()
}

func (s *Store) PruneItemRules(_ context.Context, keep map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for item := range s.data.ItemRules {
		if _, ok := keep[item]; !ok {
			delete(s.data.ItemRules, item)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, nil
	}
	return deleted, s.persist()
}
