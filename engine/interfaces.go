package engine

import (
	"context"

	"gimmefy/core"
)

// Storage abstracts the persistent document store. Single-document writes are
// atomic; nothing larger is. Implementations return core.ErrNotFound and
// core.ErrConflict where noted, everything else is an infrastructure error.
type Storage interface {
	// GetUser returns the user record or core.ErrNotFound.
	GetUser(ctx context.Context, username core.Username) (*core.User, error)
	// InsertUser creates a user record, returning core.ErrConflict if the
	// username is taken.
	InsertUser(ctx context.Context, user *core.User) error
	// UpdateUser overwrites the user record keyed by username.
	UpdateUser(ctx context.Context, user *core.User) error
	// CountUsers reports the total number of user records.
	CountUsers(ctx context.Context) (int, error)

	// GetObject returns a catalog object or core.ErrNotFound.
	GetObject(ctx context.Context, kind core.ObjectKind, id string) (*core.Object, error)
	// ListObjects returns every catalog object of a kind.
	ListObjects(ctx context.Context, kind core.ObjectKind) ([]core.Object, error)
	// UpsertObject writes a catalog object keyed by id, reporting the number
	// of documents written (always 1 on success).
	UpsertObject(ctx context.Context, kind core.ObjectKind, obj core.Object) (int, error)
	// PruneObjects deletes every object of a kind whose id is not in keep,
	// reporting the number deleted.
	PruneObjects(ctx context.Context, kind core.ObjectKind, keep map[string]struct{}) (int, error)

	// ListLevelRules returns the full level rule table.
	ListLevelRules(ctx context.Context) ([]core.RuleLevel, error)
	UpsertLevelRule(ctx context.Context, rule core.RuleLevel) (int, error)
	PruneLevelRules(ctx context.Context, keep map[int]struct{}) (int, error)

	// ListItemRules returns the full item rule table.
	ListItemRules(ctx context.Context) ([]core.RuleItem, error)
	UpsertItemRule(ctx context.Context, rule core.RuleItem) (int, error)
	PruneItemRules(ctx context.Context, keep map[string]struct{}) (int, error)
}

// TextGenerator produces tip text from a seed phrase. Output is treated as a
// black box: it may be empty, truncated, or contain digits, so the engine
// post-processes and retries.
type TextGenerator interface {
	Generate(ctx context.Context, seed string) (string, error)
}
