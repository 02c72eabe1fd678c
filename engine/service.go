package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gimmefy/core"
)

// Config tunes the progression service.
type Config struct {
	// Score holds the activity score constants.
	Score core.ScoreParams
	// DefaultExp and DefaultMoney seed explicitly created users. Lazily
	// created users always start from zero.
	DefaultExp   float64
	DefaultMoney int
	// TipRetries bounds the tip regeneration loop.
	TipRetries int
	// CatalogPath is the snapshot file used by ReloadCatalog.
	CatalogPath string
}

// DefaultConfig returns the stock service configuration.
func DefaultConfig() Config {
	return Config{
		Score:        core.DefaultScoreParams(),
		DefaultExp:   0,
		DefaultMoney: 200,
		TipRetries:   3,
	}
}

// Telemetry is the externally accumulated activity signal attached to
// avatar/tip/level requests.
type Telemetry struct {
	TotalScore       float64
	ExpavgScore      float64
	CPUs             int
	RegistrationTime time.Time
}

// Service owns every user state transition: scoring, promotion, payment,
// purchases, streaks and the presentation projections. Per-user mutations are
// serialized on a keyed lock so concurrent requests for one username cannot
// lose updates; the store's single-document atomicity covers the rest.
type Service struct {
	storage Storage
	bus     *EventBus
	gen     TextGenerator
	cfg     Config
	locks   userLocks
	now     func() time.Time
}

// NewService wires storage, event bus and a text generator into the
// progression engine. gen may be nil, in which case tips always fall back to
// the static phrase pools.
func NewService(storage Storage, bus *EventBus, gen TextGenerator, cfg Config) *Service {
	if storage == nil || bus == nil {
		panic("NewService requires non-nil storage and bus")
	}
	if cfg.TipRetries <= 0 {
		cfg.TipRetries = 3
	}
	return &Service{
		storage: storage,
		bus:     bus,
		gen:     gen,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers a handler on the engine's event bus.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

// Close stops the event bus workers.
func (s *Service) Close() { s.bus.Close() }

// Defaults returns the configured seed experience and money for new users.
func (s *Service) Defaults() (float64, int) {
	return s.cfg.DefaultExp, s.cfg.DefaultMoney
}

// CountUsers reports the total number of user records.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.storage.CountUsers(ctx)
}

// Create makes a new user with the given seed values, failing with
// core.ErrConflict if the username is taken. One zero-delta promotion and
// payment normalize the derived fields before the user is returned.
func (s *Service) Create(ctx context.Context, username core.Username, defaultExp float64, defaultMoney int) (*core.User, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(username)
	defer unlock()
	return s.createLocked(ctx, username, defaultExp, defaultMoney)
}

func (s *Service) createLocked(ctx context.Context, username core.Username, defaultExp float64, defaultMoney int) (*core.User, error) {
	if _, err := s.storage.GetUser(ctx, username); err == nil {
		return nil, fmt.Errorf("user %q: %w", username, core.ErrConflict)
	} else if !isNotFound(err) {
		return nil, err
	}
	u := core.NewUser(username, defaultExp, defaultMoney)
	u.LastOnline = s.now()
	if err := s.storage.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, core.NewUserCreated(username))
	if err := s.promoteLocked(ctx, u, promotion{}); err != nil {
		return nil, err
	}
	if err := s.payLocked(ctx, u, 0); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns the user record, failing with core.ErrNotFound when absent.
func (s *Service) Get(ctx context.Context, username core.Username) (*core.User, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return s.storage.GetUser(ctx, username)
}

// GetOrCreate returns the user record, lazily creating it with zero seed
// values when absent. This is the single lazy-creation policy point; read
// paths that require existence use Get instead.
func (s *Service) GetOrCreate(ctx context.Context, username core.Username) (*core.User, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(username)
	defer unlock()
	return s.getOrCreateLocked(ctx, username)
}

func (s *Service) getOrCreateLocked(ctx context.Context, username core.Username) (*core.User, error) {
	u, err := s.storage.GetUser(ctx, username)
	if err == nil {
		return u, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return s.createLocked(ctx, username, 0, 0)
}

// Promote adds experience to an existing user and recomputes the derived
// progression state.
func (s *Service) Promote(ctx context.Context, username core.Username, expAdded float64) (*core.User, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(username)
	defer unlock()
	u, err := s.storage.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.promoteLocked(ctx, u, promotion{expAdded: expAdded}); err != nil {
		return nil, err
	}
	return u, nil
}

// Pay adds currency to an existing user. Negative deltas are allowed for
// administrative corrections.
func (s *Service) Pay(ctx context.Context, username core.Username, moneyAdded int) (*core.User, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(username)
	defer unlock()
	u, err := s.storage.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.payLocked(ctx, u, moneyAdded); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) payLocked(ctx context.Context, u *core.User, moneyAdded int) error {
	u.TotalMoney += moneyAdded
	return s.storage.UpdateUser(ctx, u)
}

// Purchase buys a catalog object for the user. It fails with core.ErrNotFound
// when the object does not exist, core.ErrAlreadyOwned when the id is already
// owned, and core.ErrInsufficientFunds when the balance cannot cover the
// cost. On success the cost is debited, the id joins the ownership set, and —
// when selectAfter is set — the object is equipped.
func (s *Service) Purchase(ctx context.Context, username core.Username, kind core.ObjectKind, id string, selectAfter bool) (*core.User, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(username)
	defer unlock()

	u, err := s.storage.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	obj, err := s.storage.GetObject(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if u.Owns(kind, id) {
		return nil, fmt.Errorf("%s %q: %w", kind, id, core.ErrAlreadyOwned)
	}
	if u.TotalMoney < obj.Cost {
		return nil, fmt.Errorf("%s %q costs %d, balance %d: %w", kind, id, obj.Cost, u.TotalMoney, core.ErrInsufficientFunds)
	}

	u.TotalMoney -= obj.Cost
	switch kind {
	case core.KindTable:
		u.OwnedTables = append(u.OwnedTables, id)
		if selectAfter {
			u.Table = id
		}
	case core.KindChair:
		u.OwnedChairs = append(u.OwnedChairs, id)
		if selectAfter {
			u.Chair = id
		}
	default:
		u.OwnedMisc = append(u.OwnedMisc, id)
		if selectAfter {
			u.Misc = append(u.Misc, id)
		}
	}
	if err := s.storage.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, core.NewPurchase(username, kind, id, obj.Cost))
	return u, nil
}

// SwitchGender toggles the user's gender, lazily creating the user.
func (s *Service) SwitchGender(ctx context.Context, username core.Username) error {
	return s.toggle(ctx, username, func(u *core.User) { u.Gender = u.Gender.Toggle() })
}

// SwitchTheme toggles the user's display theme, lazily creating the user.
func (s *Service) SwitchTheme(ctx context.Context, username core.Username) error {
	return s.toggle(ctx, username, func(u *core.User) { u.Theme = u.Theme.Toggle() })
}

func (s *Service) toggle(ctx context.Context, username core.Username, apply func(*core.User)) error {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(username)
	defer unlock()
	u, err := s.getOrCreateLocked(ctx, username)
	if err != nil {
		return err
	}
	apply(u)
	return s.storage.UpdateUser(ctx, u)
}

// Fill resolves the user's equipped and owned ids to catalog objects. A
// dangling reference surfaces as core.ErrInvalidState rather than being
// silently dropped.
func (s *Service) Fill(ctx context.Context, username core.Username) (*core.FilledUser, error) {
	u, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}

	table, err := s.mustObject(ctx, core.KindTable, u.Table)
	if err != nil {
		return nil, err
	}
	chair, err := s.mustObject(ctx, core.KindChair, u.Chair)
	if err != nil {
		return nil, err
	}
	misc := make([]core.Object, 0, len(u.Misc))
	for _, id := range u.Misc {
		obj, err := s.mustObject(ctx, core.KindMisc, id)
		if err != nil {
			return nil, err
		}
		misc = append(misc, *obj)
	}

	fill := func(kind core.ObjectKind, ids []string) ([]core.Object, error) {
		objs := make([]core.Object, 0, len(ids))
		for _, id := range ids {
			obj, err := s.mustObject(ctx, kind, id)
			if err != nil {
				return nil, err
			}
			objs = append(objs, *obj)
		}
		return objs, nil
	}
	ownedTables, err := fill(core.KindTable, u.OwnedTables)
	if err != nil {
		return nil, err
	}
	ownedChairs, err := fill(core.KindChair, u.OwnedChairs)
	if err != nil {
		return nil, err
	}
	ownedMisc, err := fill(core.KindMisc, u.OwnedMisc)
	if err != nil {
		return nil, err
	}

	return &core.FilledUser{
		Username:    u.Username,
		Gender:      u.Gender,
		Theme:       u.Theme,
		Level:       u.Level,
		TotalExp:    u.TotalExp,
		TotalMoney:  u.TotalMoney,
		Table:       *table,
		Chair:       *chair,
		Misc:        misc,
		OwnedTables: ownedTables,
		OwnedChairs: ownedChairs,
		OwnedMisc:   ownedMisc,
	}, nil
}

// mustObject resolves a referenced id, translating absence to ErrInvalidState:
// the user record points at a catalog object that no longer exists.
func (s *Service) mustObject(ctx context.Context, kind core.ObjectKind, id string) (*core.Object, error) {
	obj, err := s.storage.GetObject(ctx, kind, id)
	if isNotFound(err) {
		return nil, fmt.Errorf("%s %q referenced but missing: %w", kind, id, core.ErrInvalidState)
	}
	return obj, err
}

// AvatarInfo is the presentation projection produced for avatar requests.
type AvatarInfo struct {
	Key  string     `json:"key"`
	Path string     `json:"path"`
	User *core.User `json:"user"`
}

// Avatar runs score computation and promotion for the telemetry signal, then
// derives the avatar presentation key.
func (s *Service) Avatar(ctx context.Context, username core.Username, t Telemetry, hasAndroid bool) (*AvatarInfo, error) {
	u, err := s.promoteTelemetry(ctx, username, t, hasAndroid)
	if err != nil {
		return nil, err
	}
	return &AvatarInfo{
		Key:  core.AvatarKey(u),
		Path: core.RenderedAvatarPath(u),
		User: u,
	}, nil
}

// Level runs score computation and promotion for the telemetry signal and
// returns the resulting progression state.
func (s *Service) Level(ctx context.Context, username core.Username, t Telemetry, hasAndroid bool) (*core.User, error) {
	return s.promoteTelemetry(ctx, username, t, hasAndroid)
}

func (s *Service) promoteTelemetry(ctx context.Context, username core.Username, t Telemetry, hasAndroid bool) (*core.User, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(username)
	defer unlock()

	u, err := s.getOrCreateLocked(ctx, username)
	if err != nil {
		return nil, err
	}
	score := s.cfg.Score.Score(t.TotalScore, t.ExpavgScore, t.CPUs, t.RegistrationTime, s.now())
	p := promotion{
		expAbsolute: score,
		hasAndroid:  hasAndroid,
		totalHosts:  t.CPUs,
	}
	if err := s.promoteLocked(ctx, u, p); err != nil {
		return nil, err
	}
	return u, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}

// userLocks serializes mutations per username.
type userLocks struct {
	mu sync.Mutex
	m  map[core.Username]*sync.Mutex
}

func (l *userLocks) lock(username core.Username) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[core.Username]*sync.Mutex)
	}
	um, ok := l.m[username]
	if !ok {
		um = &sync.Mutex{}
		l.m[username] = um
	}
	l.mu.Unlock()
	um.Lock()
	return um.Unlock
}
