package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScriptKind distinguishes the two ways a Lua script can hook into the
// object lifecycle.
type ScriptKind string

const (
	// ScriptValidator scripts run before a write commits and can reject it.
	ScriptValidator ScriptKind = "validator"
	// ScriptHook scripts run after a write commits and observe the change.
	ScriptHook ScriptKind = "hook"
)

// Script is a user-supplied Lua program attached to one or more object kinds.
type Script struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"` // Unique.
	Kind        ScriptKind   `json:"kind"`
	ObjectKinds []ObjectKind `json:"object_kinds"`
	Enabled     bool         `json:"enabled"`
	Source      string       `json:"source"` // Lua source code.
	Created     time.Time    `json:"created"`
	LastUpdated time.Time    `json:"last_updated"`
}

// Validate checks script fields that do not require repository access.
func (s *Script) Validate() error {
	if s.Name == "" {
		return errors.New("script name is required")
	}
	if s.Kind != ScriptValidator && s.Kind != ScriptHook {
		return fmt.Errorf("invalid script kind %q", s.Kind)
	}
	if len(s.ObjectKinds) == 0 {
		return errors.New("script must attach to at least one object kind")
	}
	for _, kind := range s.ObjectKinds {
		if !kind.Valid() {
			return fmt.Errorf("unknown object kind %q", kind)
		}
	}
	if s.Source == "" {
		return errors.New("script source is empty")
	}
	return nil
}

// AppliesTo reports whether the script is attached to the given object kind.
func (s *Script) AppliesTo(kind ObjectKind) bool {
	if !s.Enabled {
		return false
	}
	for _, k := range s.ObjectKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ScriptRepository defines the interface for managing scripts.
type ScriptRepository interface {
	CreateScript(script *Script) error
	GetScript(id uuid.UUID) (*Script, error)
	ListScripts() ([]*Script, error)
	UpdateScript(script *Script) error
	DeleteScript(id uuid.UUID) error
}
