package domain

import "context"

// toolsStateID is the fixed entity ID for the single enabled-tools row.
const toolsStateID = "enabled_tools"

type toolsStatePayload struct {
	EnabledTools map[string]bool `json:"enabled_tools"`
}

// SaveToolsState persists which tool types are enabled in the workbench.
// There is exactly one such row.
func (r *Repo) SaveToolsState(ctx context.Context, enabled map[string]bool) error {
	data, err := encodePayload(toolsStatePayload{EnabledTools: enabled})
	if err != nil {
		return err
	}
	return r.store.Save(ctx, TypeToolsState, toolsStateID, data)
}

// LoadToolsState returns the enabled-tools map, or an empty map when
// nothing has been saved yet.
func (r *Repo) LoadToolsState(ctx context.Context) (map[string]bool, error) {
	entities, err := r.store.Load(ctx, TypeToolsState)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return map[string]bool{}, nil
	}

	var p toolsStatePayload
	if err := decodePayload(entities[0].Data, &p); err != nil {
		return nil, err
	}
	if p.EnabledTools == nil {
		return map[string]bool{}, nil
	}
	return p.EnabledTools, nil
}
