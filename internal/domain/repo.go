// Package domain maps crewvault's typed domain objects - agents, tasks,
// crews, tools, run results - to and from the generic entity payload.
//
// Every object is a flat attribute-to-field projection persisted through
// the entity store under its own entity type. Cross-object relationships
// (a task's agent, a crew's members) are stored as plain ID fields inside
// the payload and resolved here at load time; the storage layer knows
// nothing about them. Dangling IDs are dropped silently.
//
// Ordering is established here, not in the store: collections sort on the
// created_at field carried inside the payload.
package domain

import (
	"encoding/json"
	"fmt"

	"github.com/crewvault/crewvault/internal/store"
)

// Entity type discriminators. All types share one table and one
// primary-key space.
const (
	TypeAgent      = "agent"
	TypeTask       = "task"
	TypeCrew       = "crew"
	TypeTool       = "tool"
	TypeResult     = "result"
	TypeToolsState = "tools_state"
)

// Repo exposes typed persistence over the generic entity store.
type Repo struct {
	store *store.Store
}

// NewRepo builds a repo over the given entity store.
func NewRepo(s *store.Store) *Repo {
	return &Repo{store: s}
}

// encodePayload projects a typed value onto the generic payload through
// one JSON round-trip, so the store's canonical encoding stays the single
// source of truth for field names and value types.
func encodePayload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return m, nil
}

// decodePayload is the inverse of encodePayload.
func decodePayload(m map[string]any, v any) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
