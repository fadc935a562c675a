package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Result is the recorded output of one crew run.
type Result struct {
	ID        string
	CrewID    string
	CrewName  string
	Inputs    map[string]any
	Output    string
	CreatedAt time.Time
}

// NewResult mints a result with a fresh ID and creation timestamp.
func NewResult() *Result {
	return &Result{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

type resultPayload struct {
	CrewID    string         `json:"crew_id"`
	CrewName  string         `json:"crew_name"`
	Inputs    map[string]any `json:"inputs"`
	Result    string         `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

// SaveResult upserts a crew run result.
func (r *Repo) SaveResult(ctx context.Context, res *Result) error {
	data, err := encodePayload(resultPayload{
		CrewID:    res.CrewID,
		CrewName:  res.CrewName,
		Inputs:    res.Inputs,
		Result:    res.Output,
		CreatedAt: res.CreatedAt,
	})
	if err != nil {
		return err
	}
	return r.store.Save(ctx, TypeResult, res.ID, data)
}

// LoadResults returns all results, newest first.
func (r *Repo) LoadResults(ctx context.Context) ([]*Result, error) {
	entities, err := r.store.Load(ctx, TypeResult)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(entities))
	for _, e := range entities {
		var p resultPayload
		if err := decodePayload(e.Data, &p); err != nil {
			return nil, err
		}
		results = append(results, &Result{
			ID:        e.ID,
			CrewID:    p.CrewID,
			CrewName:  p.CrewName,
			Inputs:    p.Inputs,
			Output:    p.Result,
			CreatedAt: p.CreatedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// DeleteResult removes a result. Idempotent.
func (r *Repo) DeleteResult(ctx context.Context, id string) error {
	return r.store.Delete(ctx, TypeResult, id)
}
