package types

import "time"

// Sample is one test input for a prompt template. Keys are substituted into
// {key} placeholders; by convention every sample carries a "text" field and
// optionally an "expected_answer" field.
type Sample map[string]any

// ExperimentRequest is the canonical representation of a run-experiment call.
type ExperimentRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model"`
	TestSamples []Sample `json:"test_samples"`
}

// SampleResult is the outcome of running one sample through the model.
// A failed sample always has empty output and zero tokens/cost.
type SampleResult struct {
	Input    string  `json:"input"`
	Expected string  `json:"expected,omitempty"`
	Output   string  `json:"output"`
	Tokens   int     `json:"tokens"`
	Cost     float64 `json:"cost"`
	Accuracy float64 `json:"accuracy"`
	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
}

// ExperimentResult aggregates one full batch run. AvgTokens and EstimatedCost
// cover successful samples only; SamplesTested counts every sample.
// Accuracy defaults to 0 and is set later by manual rating.
type ExperimentResult struct {
	ExperimentID  string         `json:"experiment_id"`
	Prompt        string         `json:"prompt"`
	Model         string         `json:"model"`
	Accuracy      float64        `json:"accuracy"`
	AvgTokens     int            `json:"avg_tokens"`
	EstimatedCost float64        `json:"estimated_cost"`
	SamplesTested int            `json:"samples_tested"`
	CreatedAt     time.Time      `json:"created_at"`
	SampleResults []SampleResult `json:"sample_results"`
}

// UsageStats is the running total of all experiment activity. Every field is
// zero when the counter row does not exist yet.
type UsageStats struct {
	TotalExperiments int64     `json:"total_experiments"`
	TotalSamples     int64     `json:"total_samples"`
	TotalTokens      int64     `json:"total_tokens"`
	TotalCost        float64   `json:"total_cost"`
	LastUpdated      time.Time `json:"last_updated"`
}

// UsageDelta is one experiment's contribution to the usage counter.
type UsageDelta struct {
	Experiments int64
	Samples     int64
	Tokens      int64
	Cost        float64
}

// Credentials carries the per-request provider API keys. They are passed
// through to the provider adapters and never stored.
type Credentials struct {
	OpenAIKey    string
	AnthropicKey string
	TogetherKey  string
}
