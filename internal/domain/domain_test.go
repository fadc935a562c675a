package domain

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crewvault/crewvault/internal/db"
	"github.com/crewvault/crewvault/internal/store"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	ctx := context.Background()
	require.NoError(t, database.InitSchema(ctx))

	s, err := store.New(ctx, database)
	require.NoError(t, err)
	return NewRepo(s)
}

func at(day int) time.Time {
	return time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)
}

// stubTool is a minimal registry-constructed tool for tests.
type stubTool struct {
	id     string
	params map[string]any
}

func newStubTool(id string) Tool { return &stubTool{id: id} }

func (s *stubTool) ID() string                 { return s.id }
func (s *stubTool) Name() string               { return "stub_search" }
func (s *stubTool) Description() string        { return "stub search tool" }
func (s *stubTool) Parameters() map[string]any { return s.params }

func (s *stubTool) SetParameters(p map[string]any) error {
	s.params = p
	return nil
}

func TestAgentRoundTrip(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	second := NewAgent()
	second.Role = "writer"
	second.CreatedAt = at(2)
	first := NewAgent()
	first.Role = "researcher"
	first.Goal = "find sources"
	first.Backstory = "ex-journalist"
	first.Temperature = 0.7
	first.MaxIter = 25
	first.LLMProviderModel = "openai/gpt-4o"
	first.AllowDelegation = true
	first.CreatedAt = at(1)

	require.NoError(t, r.SaveAgent(ctx, second))
	require.NoError(t, r.SaveAgent(ctx, first))

	agents, err := r.LoadAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	// Sorted by creation time, not save order.
	require.Equal(t, first.ID, agents[0].ID)
	require.Equal(t, second.ID, agents[1].ID)

	got := agents[0]
	require.Equal(t, "researcher", got.Role)
	require.Equal(t, "find sources", got.Goal)
	require.Equal(t, "ex-journalist", got.Backstory)
	require.Equal(t, 0.7, got.Temperature)
	require.Equal(t, 25, got.MaxIter)
	require.Equal(t, "openai/gpt-4o", got.LLMProviderModel)
	require.True(t, got.AllowDelegation)
	require.True(t, got.CreatedAt.Equal(at(1)))
}

func TestDeleteAgent_Idempotent(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	a := NewAgent()
	require.NoError(t, r.SaveAgent(ctx, a))
	require.NoError(t, r.DeleteAgent(ctx, a.ID))
	require.NoError(t, r.DeleteAgent(ctx, a.ID))

	agents, err := r.LoadAgents(ctx)
	require.NoError(t, err)
	require.Empty(t, agents)
}

func TestTaskAgentResolution(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	owner := NewAgent()
	owner.Role = "researcher"
	owner.CreatedAt = at(1)
	require.NoError(t, r.SaveAgent(ctx, owner))

	owned := NewTask()
	owned.Description = "collect articles"
	owned.Agent = owner
	owned.CreatedAt = at(2)
	require.NoError(t, r.SaveTask(ctx, owned))

	orphan := NewTask()
	orphan.Description = "unassigned"
	orphan.CreatedAt = at(3)
	require.NoError(t, r.SaveTask(ctx, orphan))

	tasks, err := r.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	require.NotNil(t, tasks[0].Agent)
	require.Equal(t, owner.ID, tasks[0].Agent.ID)
	require.Nil(t, tasks[1].Agent)

	// A deleted agent becomes a dangling reference, dropped at load.
	require.NoError(t, r.DeleteAgent(ctx, owner.ID))
	tasks, err = r.LoadTasks(ctx)
	require.NoError(t, err)
	require.Nil(t, tasks[0].Agent)
}

func TestCrewResolution(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	a1 := NewAgent()
	a1.Role = "researcher"
	a1.CreatedAt = at(1)
	a2 := NewAgent()
	a2.Role = "writer"
	a2.CreatedAt = at(2)
	require.NoError(t, r.SaveAgent(ctx, a1))
	require.NoError(t, r.SaveAgent(ctx, a2))

	task := NewTask()
	task.Description = "draft article"
	task.Agent = a2
	task.CreatedAt = at(3)
	require.NoError(t, r.SaveTask(ctx, task))

	crew := NewCrew()
	crew.Name = "newsroom"
	crew.Process = "sequential"
	crew.MaxRPM = 60
	crew.Agents = []*Agent{a1, a2}
	crew.Tasks = []*Task{task}
	crew.ManagerAgent = a1
	crew.CreatedAt = at(4)
	require.NoError(t, r.SaveCrew(ctx, crew))

	crews, err := r.LoadCrews(ctx)
	require.NoError(t, err)
	require.Len(t, crews, 1)

	got := crews[0]
	require.Equal(t, "newsroom", got.Name)
	require.Equal(t, "sequential", got.Process)
	require.Equal(t, 60, got.MaxRPM)
	require.Len(t, got.Agents, 2)
	require.Len(t, got.Tasks, 1)
	require.NotNil(t, got.ManagerAgent)
	require.Equal(t, a1.ID, got.ManagerAgent.ID)

	// Deleting a member drops it from the crew without error.
	require.NoError(t, r.DeleteAgent(ctx, a2.ID))
	crews, err = r.LoadCrews(ctx)
	require.NoError(t, err)
	require.Len(t, crews[0].Agents, 1)
	require.Equal(t, a1.ID, crews[0].Agents[0].ID)
}

func TestToolRoundTrip(t *testing.T) {
	RegisterTool("stub_search", newStubTool)
	defer UnregisterAllTools()

	r := testRepo(t)
	ctx := context.Background()

	tool := &stubTool{id: "tool-1", params: map[string]any{"depth": float64(3)}}
	require.NoError(t, r.SaveTool(ctx, tool))

	tools, err := r.LoadTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.Equal(t, "tool-1", tools[0].ID())
	require.Equal(t, "stub_search", tools[0].Name())
	require.Equal(t, map[string]any{"depth": float64(3)}, tools[0].Parameters())
}

func TestLoadTools_UnknownType(t *testing.T) {
	RegisterTool("stub_search", newStubTool)
	r := testRepo(t)
	ctx := context.Background()

	tool := &stubTool{id: "tool-1"}
	require.NoError(t, r.SaveTool(ctx, tool))
	UnregisterAllTools()

	_, err := r.LoadTools(ctx)
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestAgentToolAssignment(t *testing.T) {
	RegisterTool("stub_search", newStubTool)
	defer UnregisterAllTools()

	r := testRepo(t)
	ctx := context.Background()

	tool := &stubTool{id: "tool-1"}
	require.NoError(t, r.SaveTool(ctx, tool))

	a := NewAgent()
	a.Role = "researcher"
	a.Tools = []Tool{tool}
	require.NoError(t, r.SaveAgent(ctx, a))

	agents, err := r.LoadAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	require.Len(t, agents[0].Tools, 1)
	require.Equal(t, "tool-1", agents[0].Tools[0].ID())
}

func TestRegistry(t *testing.T) {
	defer UnregisterAllTools()

	require.False(t, IsToolRegistered("stub_search"))
	RegisterTool("stub_search", newStubTool)
	require.True(t, IsToolRegistered("stub_search"))
	require.Equal(t, []string{"stub_search"}, RegisteredToolTypes())

	require.Panics(t, func() { RegisterTool("stub_search", newStubTool) })
	require.Panics(t, func() { RegisterTool("nil_factory", nil) })

	_, err := NewTool("never_registered", "id-1")
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestResultsNewestFirst(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	older := NewResult()
	older.CrewName = "newsroom"
	older.Output = "first run"
	older.CreatedAt = at(1)
	newer := NewResult()
	newer.CrewName = "newsroom"
	newer.Output = "second run"
	newer.Inputs = map[string]any{"topic": "storage"}
	newer.CreatedAt = at(2)

	require.NoError(t, r.SaveResult(ctx, older))
	require.NoError(t, r.SaveResult(ctx, newer))

	results, err := r.LoadResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "second run", results[0].Output)
	require.Equal(t, map[string]any{"topic": "storage"}, results[0].Inputs)
	require.Equal(t, "first run", results[1].Output)
}

func TestToolsState(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	state, err := r.LoadToolsState(ctx)
	require.NoError(t, err)
	require.Empty(t, state)

	require.NoError(t, r.SaveToolsState(ctx, map[string]bool{
		"stub_search": true,
		"scraper":     false,
	}))

	state, err = r.LoadToolsState(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"stub_search": true, "scraper": false}, state)
}
