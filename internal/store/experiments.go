package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/promptlabs/promptlab/internal/types"
)

// ExperimentStore persists experiment documents in PostgreSQL. Sample results
// are stored as a JSONB column so the document round-trips unchanged.
type ExperimentStore struct {
	db *pgxpool.Pool
}

func NewExperimentStore(db *pgxpool.Pool) *ExperimentStore {
	return &ExperimentStore{db: db}
}

func (s *ExperimentStore) Insert(ctx context.Context, result *types.ExperimentResult) error {
	samplesJSON, err := json.Marshal(result.SampleResults)
	if err != nil {
		return fmt.Errorf("marshal sample results: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO experiments
			(experiment_id, prompt, model, accuracy, avg_tokens, estimated_cost,
			 samples_tested, created_at, sample_results)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		result.ExperimentID,
		result.Prompt,
		result.Model,
		result.Accuracy,
		result.AvgTokens,
		result.EstimatedCost,
		result.SamplesTested,
		result.CreatedAt,
		samplesJSON,
	)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}
	return nil
}

// ListRecent returns the most recently created experiments, newest first.
func (s *ExperimentStore) ListRecent(ctx context.Context, limit int) ([]types.ExperimentResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT experiment_id, prompt, model, accuracy, avg_tokens, estimated_cost,
		       samples_tested, created_at, sample_results
		FROM experiments
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query experiments: %w", err)
	}
	defer rows.Close()

	return scanExperiments(rows)
}

func (s *ExperimentStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM experiments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count experiments: %w", err)
	}
	return count, nil
}

// GetByIDs returns the experiments matching the given identifiers. Unknown
// identifiers are silently skipped.
func (s *ExperimentStore) GetByIDs(ctx context.Context, ids []string) ([]types.ExperimentResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT experiment_id, prompt, model, accuracy, avg_tokens, estimated_cost,
		       samples_tested, created_at, sample_results
		FROM experiments
		WHERE experiment_id = ANY($1)
		ORDER BY created_at DESC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query experiments by id: %w", err)
	}
	defer rows.Close()

	return scanExperiments(rows)
}

// DeleteAll removes every experiment document and reports how many were
// deleted. Deleting an empty table succeeds.
func (s *ExperimentStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM experiments`)
	if err != nil {
		return 0, fmt.Errorf("delete experiments: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanExperiments(rows pgxRows) ([]types.ExperimentResult, error) {
	var experiments []types.ExperimentResult
	for rows.Next() {
		var exp types.ExperimentResult
		var samplesJSON []byte
		if err := rows.Scan(
			&exp.ExperimentID,
			&exp.Prompt,
			&exp.Model,
			&exp.Accuracy,
			&exp.AvgTokens,
			&exp.EstimatedCost,
			&exp.SamplesTested,
			&exp.CreatedAt,
			&samplesJSON,
		); err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		if len(samplesJSON) > 0 {
			if err := json.Unmarshal(samplesJSON, &exp.SampleResults); err != nil {
				return nil, fmt.Errorf("unmarshal sample results: %w", err)
			}
		}
		experiments = append(experiments, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate experiments: %w", err)
	}
	return experiments, nil
}
