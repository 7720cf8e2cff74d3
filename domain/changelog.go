package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeAction identifies what happened to an object.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ObjectChange records a single mutation of a tracked object. The pre and
// post snapshots are the object's JSON representation before and after the
// change; creates have no pre snapshot and deletes no post snapshot.
type ObjectChange struct {
	ID         uuid.UUID      `json:"id"`
	ObjectKind ObjectKind     `json:"object_kind"`
	ObjectID   uuid.UUID      `json:"object_id"`
	Action     ChangeAction   `json:"action"`
	Actor      string         `json:"actor"` // API token name or "system".
	Time       time.Time      `json:"time"`
	PreChange  map[string]any `json:"pre_change"`
	PostChange map[string]any `json:"post_change"`
}

// ChangeFilter narrows ListChanges results. Zero values are ignored.
type ChangeFilter struct {
	ObjectKind ObjectKind
	ObjectID   uuid.UUID
	Action     ChangeAction
	Actor      string
	Since      time.Time
	Limit      int
	Offset     int
}

// ChangeRepository defines the interface for the object changelog.
type ChangeRepository interface {
	InsertChange(change *ObjectChange) error
	ListChanges(filter ChangeFilter) ([]*ObjectChange, error)
	// PruneChanges deletes changelog entries older than the cutoff and
	// returns how many were removed.
	PruneChanges(cutoff time.Time) (int64, error)
}
