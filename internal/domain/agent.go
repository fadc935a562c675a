package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Agent is one configured LLM worker: a role with a goal, a backstory,
// and an assigned set of tools.
type Agent struct {
	ID               string
	Role             string
	Backstory        string
	Goal             string
	AllowDelegation  bool
	Verbose          bool
	Cache            bool
	LLMProviderModel string
	Temperature      float64
	MaxIter          int
	CreatedAt        time.Time
	Tools            []Tool
}

// NewAgent mints an agent with a fresh ID and creation timestamp.
// All other fields are set by the caller.
func NewAgent() *Agent {
	return &Agent{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

type agentPayload struct {
	Role             string    `json:"role"`
	Backstory        string    `json:"backstory"`
	Goal             string    `json:"goal"`
	AllowDelegation  bool      `json:"allow_delegation"`
	Verbose          bool      `json:"verbose"`
	Cache            bool      `json:"cache"`
	LLMProviderModel string    `json:"llm_provider_model"`
	Temperature      float64   `json:"temperature"`
	MaxIter          int       `json:"max_iter"`
	CreatedAt        time.Time `json:"created_at"`
	ToolIDs          []string  `json:"tool_ids"`
}

// SaveAgent upserts an agent. Tool assignments are stored as tool IDs.
func (r *Repo) SaveAgent(ctx context.Context, a *Agent) error {
	toolIDs := make([]string, 0, len(a.Tools))
	for _, t := range a.Tools {
		toolIDs = append(toolIDs, t.ID())
	}

	data, err := encodePayload(agentPayload{
		Role:             a.Role,
		Backstory:        a.Backstory,
		Goal:             a.Goal,
		AllowDelegation:  a.AllowDelegation,
		Verbose:          a.Verbose,
		Cache:            a.Cache,
		LLMProviderModel: a.LLMProviderModel,
		Temperature:      a.Temperature,
		MaxIter:          a.MaxIter,
		CreatedAt:        a.CreatedAt,
		ToolIDs:          toolIDs,
	})
	if err != nil {
		return err
	}
	return r.store.Save(ctx, TypeAgent, a.ID, data)
}

// LoadAgents returns all agents sorted by creation time, with tool
// assignments resolved. Tool IDs that no longer exist are dropped.
func (r *Repo) LoadAgents(ctx context.Context) ([]*Agent, error) {
	tools, err := r.LoadTools(ctx)
	if err != nil {
		return nil, err
	}
	toolsByID := make(map[string]Tool, len(tools))
	for _, t := range tools {
		toolsByID[t.ID()] = t
	}

	entities, err := r.store.Load(ctx, TypeAgent)
	if err != nil {
		return nil, err
	}

	agents := make([]*Agent, 0, len(entities))
	for _, e := range entities {
		var p agentPayload
		if err := decodePayload(e.Data, &p); err != nil {
			return nil, err
		}
		a := &Agent{
			ID:               e.ID,
			Role:             p.Role,
			Backstory:        p.Backstory,
			Goal:             p.Goal,
			AllowDelegation:  p.AllowDelegation,
			Verbose:          p.Verbose,
			Cache:            p.Cache,
			LLMProviderModel: p.LLMProviderModel,
			Temperature:      p.Temperature,
			MaxIter:          p.MaxIter,
			CreatedAt:        p.CreatedAt,
		}
		for _, id := range p.ToolIDs {
			if t, ok := toolsByID[id]; ok {
				a.Tools = append(a.Tools, t)
			}
		}
		agents = append(agents, a)
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].CreatedAt.Before(agents[j].CreatedAt)
	})
	return agents, nil
}

// DeleteAgent removes an agent. Idempotent.
func (r *Repo) DeleteAgent(ctx context.Context, id string) error {
	return r.store.Delete(ctx, TypeAgent, id)
}
