package experiment

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/promptlabs/promptlab/internal/llm"
	"github.com/promptlabs/promptlab/internal/prompt"
	"github.com/promptlabs/promptlab/internal/types"
)

// ExperimentStore persists finished experiment documents.
type ExperimentStore interface {
	Insert(ctx context.Context, result *types.ExperimentResult) error
}

// UsageStore maintains the singleton usage counter. Increment must be atomic
// at the storage layer; concurrent experiments race only on this counter.
type UsageStore interface {
	Increment(ctx context.Context, delta types.UsageDelta) error
	Touch(ctx context.Context) error
}

// Runner fans a prompt template out across every test sample, aggregates
// token and cost totals, and persists the outcome.
type Runner struct {
	invoker     llm.Invoker
	experiments ExperimentStore
	usage       UsageStore
}

func NewRunner(invoker llm.Invoker, experiments ExperimentStore, usage UsageStore) *Runner {
	return &Runner{
		invoker:     invoker,
		experiments: experiments,
		usage:       usage,
	}
}

// Run executes the experiment. Every sample invocation runs concurrently and
// settles independently; a failed sample never aborts the batch. Store errors
// are the only faults that propagate to the caller.
func (r *Runner) Run(ctx context.Context, req types.ExperimentRequest, creds types.Credentials) (*types.ExperimentResult, error) {
	createdAt := time.Now().UTC()
	id := newExperimentID(req.Prompt, createdAt)

	results := make([]llm.Result, len(req.TestSamples))
	var wg sync.WaitGroup
	for i, sample := range req.TestSamples {
		wg.Add(1)
		go func(i int, sample types.Sample) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					results[i] = llm.Result{Err: fmt.Sprintf("%v", p)}
				}
			}()
			filled := prompt.Fill(req.Prompt, sample)
			results[i] = r.invoker.Invoke(ctx, req.Model, filled, creds)
		}(i, sample)
	}
	wg.Wait()

	sampleResults := make([]types.SampleResult, 0, len(req.TestSamples))
	var totalTokens int
	var totalCost float64
	var successes int

	for i, res := range results {
		sample := req.TestSamples[i]
		sr := types.SampleResult{
			Input:    sampleInput(sample),
			Expected: sampleExpected(sample),
		}
		if res.Success {
			successes++
			totalTokens += res.Tokens
			totalCost += res.Cost
			sr.Output = res.Response
			sr.Tokens = res.Tokens
			sr.Cost = res.Cost
		} else {
			sr.Error = res.Err
			if sr.Error == "" {
				sr.Error = "Unknown error"
			}
		}
		sr.Success = res.Success
		sampleResults = append(sampleResults, sr)
	}

	result := &types.ExperimentResult{
		ExperimentID:  id,
		Prompt:        req.Prompt,
		Model:         req.Model,
		SamplesTested: len(req.TestSamples),
		CreatedAt:     createdAt,
		SampleResults: sampleResults,
	}

	if successes == 0 {
		// Nothing to persist, but the counter timestamp still records the
		// API activity.
		if err := r.usage.Touch(ctx); err != nil {
			return nil, fmt.Errorf("touch usage counter: %w", err)
		}
		slog.Info("experiment finished with no successful samples",
			"experiment_id", id,
			"model", req.Model,
			"samples", len(req.TestSamples),
		)
		return result, nil
	}

	result.AvgTokens = totalTokens / successes
	result.EstimatedCost = totalCost

	if err := r.experiments.Insert(ctx, result); err != nil {
		return nil, fmt.Errorf("insert experiment: %w", err)
	}

	delta := types.UsageDelta{
		Experiments: 1,
		Samples:     int64(result.SamplesTested),
		Tokens:      int64(result.AvgTokens) * int64(result.SamplesTested),
		Cost:        result.EstimatedCost,
	}
	if err := r.usage.Increment(ctx, delta); err != nil {
		return nil, fmt.Errorf("increment usage counter: %w", err)
	}

	slog.Info("experiment finished",
		"experiment_id", id,
		"model", req.Model,
		"samples", result.SamplesTested,
		"successes", successes,
		"avg_tokens", result.AvgTokens,
		"estimated_cost", result.EstimatedCost,
	)
	return result, nil
}

// newExperimentID derives a short opaque token from the prompt and creation
// time. Collisions are not guarded.
func newExperimentID(promptText string, createdAt time.Time) string {
	sum := md5.Sum([]byte(promptText + createdAt.String()))
	return hex.EncodeToString(sum[:])[:8]
}

func sampleInput(sample types.Sample) string {
	if text, ok := sample["text"].(string); ok {
		return text
	}
	return fmt.Sprintf("%v", map[string]any(sample))
}

func sampleExpected(sample types.Sample) string {
	if expected, ok := sample["expected_answer"].(string); ok {
		return expected
	}
	return ""
}
