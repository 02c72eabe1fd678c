package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates progression domain events.
type EventType string

const (
	EventUserCreated  EventType = "user_created"
	EventLevelUp      EventType = "level_up"
	EventItemUnlocked EventType = "item_unlocked"
	EventPurchase     EventType = "purchase"
)

// Event is an immutable progression event published on the engine bus and
// broadcast to realtime subscribers.
type Event struct {
	ID       string     `json:"id"`
	Type     EventType  `json:"type"`
	Time     time.Time  `json:"time"`
	Username Username   `json:"username"`
	Level    int        `json:"level,omitempty"`
	Item     string     `json:"item,omitempty"`
	Kind     ObjectKind `json:"kind,omitempty"`
	ObjectID string     `json:"object_id,omitempty"`
	Cost     int        `json:"cost,omitempty"`
}

func newEvent(typ EventType, user Username) Event {
	return Event{ID: uuid.NewString(), Type: typ, Time: time.Now().UTC(), Username: user}
}

func NewUserCreated(user Username) Event {
	return newEvent(EventUserCreated, user)
}

func NewLevelUp(user Username, level int) Event {
	ev := newEvent(EventLevelUp, user)
	ev.Level = level
	return ev
}

func NewItemUnlocked(user Username, itemLevel int, item string) Event {
	ev := newEvent(EventItemUnlocked, user)
	ev.Level = itemLevel
	ev.Item = item
	return ev
}

func NewPurchase(user Username, kind ObjectKind, objectID string, cost int) Event {
	ev := newEvent(EventPurchase, user)
	ev.Kind = kind
	ev.ObjectID = objectID
	ev.Cost = cost
	return ev
}
