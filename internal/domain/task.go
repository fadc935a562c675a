package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Task is one unit of work a crew executes, optionally owned by an agent.
type Task struct {
	ID                      string
	Description             string
	ExpectedOutput          string
	AsyncExecution          bool
	Agent                   *Agent
	ContextFromAsyncTaskIDs []string
	ContextFromSyncTaskIDs  []string
	CreatedAt               time.Time
}

// NewTask mints a task with a fresh ID and creation timestamp.
func NewTask() *Task {
	return &Task{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

type taskPayload struct {
	Description             string    `json:"description"`
	ExpectedOutput          string    `json:"expected_output"`
	AsyncExecution          bool      `json:"async_execution"`
	AgentID                 string    `json:"agent_id"`
	ContextFromAsyncTaskIDs []string  `json:"context_from_async_tasks_ids"`
	ContextFromSyncTaskIDs  []string  `json:"context_from_sync_tasks_ids"`
	CreatedAt               time.Time `json:"created_at"`
}

// SaveTask upserts a task. The owning agent is stored as a plain ID.
func (r *Repo) SaveTask(ctx context.Context, t *Task) error {
	var agentID string
	if t.Agent != nil {
		agentID = t.Agent.ID
	}

	data, err := encodePayload(taskPayload{
		Description:             t.Description,
		ExpectedOutput:          t.ExpectedOutput,
		AsyncExecution:          t.AsyncExecution,
		AgentID:                 agentID,
		ContextFromAsyncTaskIDs: t.ContextFromAsyncTaskIDs,
		ContextFromSyncTaskIDs:  t.ContextFromSyncTaskIDs,
		CreatedAt:               t.CreatedAt,
	})
	if err != nil {
		return err
	}
	return r.store.Save(ctx, TypeTask, t.ID, data)
}

// LoadTasks returns all tasks sorted by creation time, with the owning
// agent resolved. A task whose agent no longer exists loads with a nil
// Agent.
func (r *Repo) LoadTasks(ctx context.Context) ([]*Task, error) {
	agents, err := r.LoadAgents(ctx)
	if err != nil {
		return nil, err
	}
	agentsByID := make(map[string]*Agent, len(agents))
	for _, a := range agents {
		agentsByID[a.ID] = a
	}

	entities, err := r.store.Load(ctx, TypeTask)
	if err != nil {
		return nil, err
	}

	tasks := make([]*Task, 0, len(entities))
	for _, e := range entities {
		var p taskPayload
		if err := decodePayload(e.Data, &p); err != nil {
			return nil, err
		}
		tasks = append(tasks, &Task{
			ID:                      e.ID,
			Description:             p.Description,
			ExpectedOutput:          p.ExpectedOutput,
			AsyncExecution:          p.AsyncExecution,
			Agent:                   agentsByID[p.AgentID],
			ContextFromAsyncTaskIDs: p.ContextFromAsyncTaskIDs,
			ContextFromSyncTaskIDs:  p.ContextFromSyncTaskIDs,
			CreatedAt:               p.CreatedAt,
		})
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// DeleteTask removes a task. Idempotent.
func (r *Repo) DeleteTask(ctx context.Context, id string) error {
	return r.store.Delete(ctx, TypeTask, id)
}
