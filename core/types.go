package core

import (
	"errors"
	"strings"
	"time"
)

// Username identifies a user. Usernames are unique and immutable.
type Username string

// Gender is a two-valued display attribute.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Toggle flips between the two genders. Unknown values normalize to male.
func (g Gender) Toggle() Gender {
	if g == GenderMale {
		return GenderFemale
	}
	return GenderMale
}

// Theme is the user's display theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle flips between the two themes. Unknown values normalize to dark.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// DefaultItemID is the catalog id every user owns from the start for the
// single-slot kinds (table, chair).
const DefaultItemID = "default"

// User is the persistent progression record, one per username.
//
// Invariants maintained by the engine: TotalExp and Level never decrease,
// ownership sets only grow, equipped items are always owned, and
// CurrentStreak <= MaxStreak.
type User struct {
	Username Username `json:"username"`
	Gender   Gender   `json:"gender"`
	Theme    Theme    `json:"theme"`

	LastOnline time.Time `json:"last_online"`

	Level          int     `json:"level"`
	LevelName      string  `json:"level_name"`
	Year           string  `json:"year"`
	TotalExp       float64 `json:"total_exp"`
	UntilNextLevel float64 `json:"until_next_level"`

	TotalMoney int `json:"total_money"`

	ItemLevel     int     `json:"item_level"`
	NextItem      string  `json:"next_item"`
	UntilNextItem float64 `json:"until_next_item"`

	CurrentStreak int `json:"current_streak"`
	MaxStreak     int `json:"max_streak"`

	HasAndroid bool `json:"has_android"`
	TotalHosts int  `json:"total_hosts"`

	Table string   `json:"table"`
	Chair string   `json:"chair"`
	Misc  []string `json:"misc"`

	OwnedTables []string `json:"owned_tables"`
	OwnedChairs []string `json:"owned_chairs"`
	OwnedMisc   []string `json:"owned_misc"`
}

// NewUser seeds a fresh user record with the starting equipment.
func NewUser(username Username, defaultExp float64, defaultMoney int) *User {
	return &User{
		Username:    username,
		Gender:      GenderMale,
		Theme:       ThemeLight,
		LastOnline:  time.Now().UTC(),
		Level:       1,
		ItemLevel:   1,
		TotalExp:    defaultExp,
		TotalMoney:  defaultMoney,
		Table:       DefaultItemID,
		Chair:       DefaultItemID,
		Misc:        []string{},
		OwnedTables: []string{DefaultItemID},
		OwnedChairs: []string{DefaultItemID},
		OwnedMisc:   []string{},
	}
}

// Clone returns a deep copy so storage adapters can hand out snapshots
// without aliasing the slices.
func (u *User) Clone() *User {
	cp := *u
	cp.Misc = append([]string(nil), u.Misc...)
	cp.OwnedTables = append([]string(nil), u.OwnedTables...)
	cp.OwnedChairs = append([]string(nil), u.OwnedChairs...)
	cp.OwnedMisc = append([]string(nil), u.OwnedMisc...)
	return &cp
}

// Owned returns the ownership set for the given catalog kind.
func (u *User) Owned(kind ObjectKind) []string {
	switch kind {
	case KindTable:
		return u.OwnedTables
	case KindChair:
		return u.OwnedChairs
	default:
		return u.OwnedMisc
	}
}

// Owns reports whether the user already owns the given catalog object.
func (u *User) Owns(kind ObjectKind, id string) bool {
	for _, owned := range u.Owned(kind) {
		if owned == id {
			return true
		}
	}
	return false
}

// NormalizeUsername trims and lowercases usernames.
func NormalizeUsername(name Username) (Username, error) {
	s := strings.TrimSpace(string(name))
	if s == "" {
		return "", errors.New("empty username")
	}
	return Username(strings.ToLower(s)), nil
}

// ObjectKind tags the catalog collection an object belongs to.
type ObjectKind string

const (
	KindTable ObjectKind = "table"
	KindChair ObjectKind = "chair"
	KindMisc  ObjectKind = "misc"
)

// Kinds lists all catalog kinds in reconciliation order.
func Kinds() []ObjectKind {
	return []ObjectKind{KindTable, KindChair, KindMisc}
}

// ParseObjectKind validates a kind token from an external caller.
func ParseObjectKind(s string) (ObjectKind, error) {
	switch ObjectKind(s) {
	case KindTable, KindChair, KindMisc:
		return ObjectKind(s), nil
	}
	return "", errors.New("unknown object kind: " + s)
}

// Object is a purchasable catalog item. Immutable except via catalog sync.
type Object struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Asset       string `json:"asset"`
	Cost        int    `json:"cost"`
	MinLevel    int    `json:"min_level"`
}

// RuleLevel maps a level to the minimum cumulative experience required to
// reach it. Unique per level.
type RuleLevel struct {
	Level  int     `json:"level"`
	ExpGTE float64 `json:"exp_gte"`
}

// RuleItem maps an item-tier token to its level and experience threshold.
type RuleItem struct {
	Item   string  `json:"item"`
	Level  int     `json:"level"`
	ExpGTE float64 `json:"exp_gte"`
}

// Snapshot is the catalog transfer payload: all purchasable objects plus the
// progression rule tables, reconciled as one authoritative unit per kind.
type Snapshot struct {
	Tables     []Object    `json:"tables"`
	Chairs     []Object    `json:"chairs"`
	Misc       []Object    `json:"misc"`
	RuleLevels []RuleLevel `json:"rule_levels"`
	RuleItems  []RuleItem  `json:"rule_items"`
}

// Objects returns the snapshot collection for a kind.
func (s Snapshot) Objects(kind ObjectKind) []Object {
	switch kind {
	case KindTable:
		return s.Tables
	case KindChair:
		return s.Chairs
	default:
		return s.Misc
	}
}

// SyncResult reports the outcome of a catalog reconciliation.
type SyncResult struct {
	Modified int `json:"modified_count"`
	Deleted  int `json:"deleted_count"`
}

// FilledUser is a read-side projection of User with ownership ids resolved
// to full catalog objects.
type FilledUser struct {
	Username Username `json:"username"`
	Gender   Gender   `json:"gender"`
	Theme    Theme    `json:"theme"`

	Level      int     `json:"level"`
	TotalExp   float64 `json:"total_exp"`
	TotalMoney int     `json:"total_money"`

	Table Object   `json:"table"`
	Chair Object   `json:"chair"`
	Misc  []Object `json:"misc"`

	OwnedTables []Object `json:"owned_tables"`
	OwnedChairs []Object `json:"owned_chairs"`
	OwnedMisc   []Object `json:"owned_misc"`
}

// Tip is the generated advice text returned to clients.
type Tip struct {
	Text string `json:"text"`
}
