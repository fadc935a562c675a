package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Crew groups agents and tasks into one runnable unit with its own
// process settings.
type Crew struct {
	ID           string
	Name         string
	Process      string
	Verbose      bool
	Agents       []*Agent
	Tasks        []*Task
	Memory       bool
	Cache        bool
	Planning     bool
	MaxRPM       int
	ManagerLLM   string
	ManagerAgent *Agent
	CreatedAt    time.Time
}

// NewCrew mints a crew with a fresh ID and creation timestamp.
func NewCrew() *Crew {
	return &Crew{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

type crewPayload struct {
	Name           string    `json:"name"`
	Process        string    `json:"process"`
	Verbose        bool      `json:"verbose"`
	AgentIDs       []string  `json:"agent_ids"`
	TaskIDs        []string  `json:"task_ids"`
	Memory         bool      `json:"memory"`
	Cache          bool      `json:"cache"`
	Planning       bool      `json:"planning"`
	MaxRPM         int       `json:"max_rpm"`
	ManagerLLM     string    `json:"manager_llm"`
	ManagerAgentID string    `json:"manager_agent_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// SaveCrew upserts a crew. Members, tasks, and the manager agent are
// stored as plain IDs.
func (r *Repo) SaveCrew(ctx context.Context, c *Crew) error {
	agentIDs := make([]string, 0, len(c.Agents))
	for _, a := range c.Agents {
		agentIDs = append(agentIDs, a.ID)
	}
	taskIDs := make([]string, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		taskIDs = append(taskIDs, t.ID)
	}
	var managerID string
	if c.ManagerAgent != nil {
		managerID = c.ManagerAgent.ID
	}

	data, err := encodePayload(crewPayload{
		Name:           c.Name,
		Process:        c.Process,
		Verbose:        c.Verbose,
		AgentIDs:       agentIDs,
		TaskIDs:        taskIDs,
		Memory:         c.Memory,
		Cache:          c.Cache,
		Planning:       c.Planning,
		MaxRPM:         c.MaxRPM,
		ManagerLLM:     c.ManagerLLM,
		ManagerAgentID: managerID,
		CreatedAt:      c.CreatedAt,
	})
	if err != nil {
		return err
	}
	return r.store.Save(ctx, TypeCrew, c.ID, data)
}

// LoadCrews returns all crews sorted by creation time, with agent, task,
// and manager references resolved. Dangling IDs are dropped.
func (r *Repo) LoadCrews(ctx context.Context) ([]*Crew, error) {
	agents, err := r.LoadAgents(ctx)
	if err != nil {
		return nil, err
	}
	agentsByID := make(map[string]*Agent, len(agents))
	for _, a := range agents {
		agentsByID[a.ID] = a
	}

	tasks, err := r.LoadTasks(ctx)
	if err != nil {
		return nil, err
	}
	tasksByID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		tasksByID[t.ID] = t
	}

	entities, err := r.store.Load(ctx, TypeCrew)
	if err != nil {
		return nil, err
	}

	crews := make([]*Crew, 0, len(entities))
	for _, e := range entities {
		var p crewPayload
		if err := decodePayload(e.Data, &p); err != nil {
			return nil, err
		}
		c := &Crew{
			ID:           e.ID,
			Name:         p.Name,
			Process:      p.Process,
			Verbose:      p.Verbose,
			Memory:       p.Memory,
			Cache:        p.Cache,
			Planning:     p.Planning,
			MaxRPM:       p.MaxRPM,
			ManagerLLM:   p.ManagerLLM,
			ManagerAgent: agentsByID[p.ManagerAgentID],
			CreatedAt:    p.CreatedAt,
		}
		for _, id := range p.AgentIDs {
			if a, ok := agentsByID[id]; ok {
				c.Agents = append(c.Agents, a)
			}
		}
		for _, id := range p.TaskIDs {
			if t, ok := tasksByID[id]; ok {
				c.Tasks = append(c.Tasks, t)
			}
		}
		crews = append(crews, c)
	}

	sort.Slice(crews, func(i, j int) bool {
		return crews[i].CreatedAt.Before(crews[j].CreatedAt)
	})
	return crews, nil
}

// DeleteCrew removes a crew. Idempotent.
func (r *Repo) DeleteCrew(ctx context.Context, id string) error {
	return r.store.Delete(ctx, TypeCrew, id)
}
