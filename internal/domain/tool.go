package domain

import (
	"context"
	"fmt"
)

// Tool is one configurable capability an agent can use. Concrete behavior
// lives in implementation packages; the persistence layer only sees the
// type name and the parameter map.
type Tool interface {
	// ID returns the tool instance's identifier.
	ID() string
	// Name returns the tool's type name, used for registry lookup.
	Name() string
	// Description returns the human-readable description.
	Description() string
	// Parameters returns the tool's configured parameters.
	Parameters() map[string]any
	// SetParameters applies persisted parameters to the instance.
	SetParameters(params map[string]any) error
}

type toolPayload struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SaveTool upserts a tool instance: its type name, description, and
// parameter map.
func (r *Repo) SaveTool(ctx context.Context, t Tool) error {
	data, err := encodePayload(toolPayload{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	})
	if err != nil {
		return err
	}
	return r.store.Save(ctx, TypeTool, t.ID(), data)
}

// LoadTools returns all tool instances, each constructed through the
// registry from its persisted type name and re-parameterized.
func (r *Repo) LoadTools(ctx context.Context) ([]Tool, error) {
	entities, err := r.store.Load(ctx, TypeTool)
	if err != nil {
		return nil, err
	}

	tools := make([]Tool, 0, len(entities))
	for _, e := range entities {
		var p toolPayload
		if err := decodePayload(e.Data, &p); err != nil {
			return nil, err
		}
		t, err := NewTool(p.Name, e.ID)
		if err != nil {
			return nil, err
		}
		if err := t.SetParameters(p.Parameters); err != nil {
			return nil, fmt.Errorf("configure tool %s: %w", e.ID, err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// DeleteTool removes a tool instance. Idempotent.
func (r *Repo) DeleteTool(ctx context.Context, id string) error {
	return r.store.Delete(ctx, TypeTool, id)
}
