package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/promptlabs/promptlab/internal/types"
)

type fakeRunner struct {
	calls  int
	result *types.ExperimentResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, req types.ExperimentRequest, _ types.Credentials) (*types.ExperimentResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &types.ExperimentResult{
		ExperimentID:  "abc12345",
		Prompt:        req.Prompt,
		Model:         req.Model,
		SamplesTested: len(req.TestSamples),
		CreatedAt:     time.Now().UTC(),
		SampleResults: make([]types.SampleResult, len(req.TestSamples)),
	}, nil
}

type fakeExperiments struct {
	experiments []types.ExperimentResult
	deleteCalls int
	err         error
}

func (f *fakeExperiments) ListRecent(_ context.Context, limit int) ([]types.ExperimentResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.experiments) > limit {
		return f.experiments[:limit], nil
	}
	return f.experiments, nil
}

func (f *fakeExperiments) Count(_ context.Context) (int64, error) {
	return int64(len(f.experiments)), f.err
}

func (f *fakeExperiments) GetByIDs(_ context.Context, ids []string) ([]types.ExperimentResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	var found []types.ExperimentResult
	for _, exp := range f.experiments {
		for _, id := range ids {
			if exp.ExperimentID == id {
				found = append(found, exp)
			}
		}
	}
	return found, nil
}

func (f *fakeExperiments) DeleteAll(_ context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.deleteCalls++
	deleted := int64(len(f.experiments))
	f.experiments = nil
	return deleted, nil
}

type fakeUsage struct {
	stats      types.UsageStats
	resetCalls int
	err        error
}

func (f *fakeUsage) Increment(_ context.Context, _ types.UsageDelta) error { return f.err }
func (f *fakeUsage) Touch(_ context.Context) error                         { return f.err }
func (f *fakeUsage) Get(_ context.Context) (types.UsageStats, error)       { return f.stats, f.err }
func (f *fakeUsage) Reset(_ context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.resetCalls++
	f.stats = types.UsageStats{}
	return nil
}

func testLimits() Limits {
	return Limits{MaxPromptLength: 10000, MaxTestSamples: 10000, DailyExperiments: 10000}
}

func newTestHandler(runner *fakeRunner, experiments *fakeExperiments, usage *fakeUsage) *Handler {
	return NewHandler(runner, experiments, usage, nil, nil, testLimits, "test")
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestRunExperiment_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "empty prompt",
			body:    `{"prompt": "  ", "model": "gpt-4o", "test_samples": [{"text": "a"}]}`,
			wantMsg: "Prompt template cannot be empty",
		},
		{
			name:    "missing model",
			body:    `{"prompt": "p", "test_samples": [{"text": "a"}]}`,
			wantMsg: "Model selection is required",
		},
		{
			name:    "no samples",
			body:    `{"prompt": "p", "model": "gpt-4o", "test_samples": []}`,
			wantMsg: "At least one test sample is required",
		},
		{
			name:    "empty sample text",
			body:    `{"prompt": "p", "model": "gpt-4o", "test_samples": [{"text": "a"}, {"text": ""}]}`,
			wantMsg: "Sample 2 has empty text",
		},
		{
			name:    "invalid json",
			body:    `{`,
			wantMsg: "Invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			h := newTestHandler(runner, &fakeExperiments{}, &fakeUsage{})

			w := doJSON(t, h.RunExperiment, http.MethodPost, "/api/experiments", tt.body, map[string]string{
				"X-OpenAI-API-Key": "sk-test",
			})
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantMsg) {
				t.Errorf("body = %s, want message %q", w.Body.String(), tt.wantMsg)
			}
			if runner.calls != 0 {
				t.Errorf("runner called %d times for invalid request", runner.calls)
			}
		})
	}
}

func TestRunExperiment_MissingCredentialFailsFast(t *testing.T) {
	tests := []struct {
		model   string
		headers map[string]string
		wantMsg string
	}{
		{"gpt-4o", nil, "OpenAI API key required"},
		{"claude-3-haiku", nil, "Anthropic API key required"},
		{"together/meta-llama/Llama-3-8b", nil, "Together AI API key required"},
		{"deepseek-v3", map[string]string{"X-OpenAI-API-Key": "sk"}, "Together AI API key required"},
	}

	for _, tt := range tests {
		runner := &fakeRunner{}
		h := newTestHandler(runner, &fakeExperiments{}, &fakeUsage{})

		body := `{"prompt": "p", "model": "` + tt.model + `", "test_samples": [{"text": "a"}]}`
		w := doJSON(t, h.RunExperiment, http.MethodPost, "/api/experiments", body, tt.headers)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.model, w.Code)
		}
		if !strings.Contains(w.Body.String(), tt.wantMsg) {
			t.Errorf("%s: body = %s", tt.model, w.Body.String())
		}
		if runner.calls != 0 {
			t.Errorf("%s: orchestration started despite missing credential", tt.model)
		}
	}
}

func TestRunExperiment_Success(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestHandler(runner, &fakeExperiments{}, &fakeUsage{})

	body := `{"prompt": "Hello {name}", "model": "gpt-4o", "test_samples": [{"text": "a"}, {"text": "b"}]}`
	w := doJSON(t, h.RunExperiment, http.MethodPost, "/api/experiments", body, map[string]string{
		"X-OpenAI-API-Key": "sk-test",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if runner.calls != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls)
	}

	var result types.ExperimentResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if result.SamplesTested != 2 || len(result.SampleResults) != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRunExperiment_RunnerErrorHidden(t *testing.T) {
	runner := &fakeRunner{err: errors.New("pgx: connection refused on 10.0.0.5")}
	h := newTestHandler(runner, &fakeExperiments{}, &fakeUsage{})

	body := `{"prompt": "p", "model": "gpt-4o", "test_samples": [{"text": "a"}]}`
	w := doJSON(t, h.RunExperiment, http.MethodPost, "/api/experiments", body, map[string]string{
		"X-OpenAI-API-Key": "sk-test",
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "pgx") || strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Errorf("internal error details leaked: %s", w.Body.String())
	}
}

func TestListExperiments(t *testing.T) {
	experiments := &fakeExperiments{}
	for i := 0; i < 12; i++ {
		experiments.experiments = append(experiments.experiments, types.ExperimentResult{
			ExperimentID: "exp-" + string(rune('a'+i)),
		})
	}
	h := newTestHandler(&fakeRunner{}, experiments, &fakeUsage{})

	w := doJSON(t, h.ListExperiments, http.MethodGet, "/api/experiments", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Experiments []types.ExperimentResult `json:"experiments"`
		Total       int64                    `json:"total"`
		Message     string                   `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Experiments) != 10 {
		t.Errorf("experiments = %d, want 10", len(resp.Experiments))
	}
	if resp.Total != 12 {
		t.Errorf("total = %d, want 12", resp.Total)
	}
	if resp.Message != "Showing last 10 experiments" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestUsageStats_ZeroDefault(t *testing.T) {
	h := newTestHandler(&fakeRunner{}, &fakeExperiments{}, &fakeUsage{})

	w := doJSON(t, h.UsageStats, http.MethodGet, "/api/usage", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var stats types.UsageStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if stats.TotalExperiments != 0 || stats.TotalTokens != 0 || stats.TotalCost != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestReset_Scopes(t *testing.T) {
	tests := []struct {
		scope       string
		wantDeletes int
		wantUsage   int
	}{
		{"experiments", 1, 0},
		{"usage", 0, 1},
		{"all", 1, 1},
		{"", 1, 0}, // defaults to experiments
	}

	for _, tt := range tests {
		t.Run("scope_"+tt.scope, func(t *testing.T) {
			experiments := &fakeExperiments{experiments: []types.ExperimentResult{{ExperimentID: "x"}}}
			usage := &fakeUsage{stats: types.UsageStats{TotalExperiments: 1}}
			h := newTestHandler(&fakeRunner{}, experiments, usage)

			target := "/api/reset"
			if tt.scope != "" {
				target += "?reset_type=" + tt.scope
			}
			w := doJSON(t, h.Reset, http.MethodDelete, target, "", nil)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if experiments.deleteCalls != tt.wantDeletes {
				t.Errorf("experiment deletes = %d, want %d", experiments.deleteCalls, tt.wantDeletes)
			}
			if usage.resetCalls != tt.wantUsage {
				t.Errorf("usage resets = %d, want %d", usage.resetCalls, tt.wantUsage)
			}
		})
	}
}

func TestReset_Idempotent(t *testing.T) {
	experiments := &fakeExperiments{}
	usage := &fakeUsage{}
	h := newTestHandler(&fakeRunner{}, experiments, usage)

	for i := 0; i < 2; i++ {
		w := doJSON(t, h.Reset, http.MethodDelete, "/api/reset?reset_type=all", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d", i, w.Code)
		}
	}
}

func TestReset_InvalidScope(t *testing.T) {
	h := newTestHandler(&fakeRunner{}, &fakeExperiments{}, &fakeUsage{})
	w := doJSON(t, h.Reset, http.MethodDelete, "/api/reset?reset_type=everything", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExport(t *testing.T) {
	experiments := &fakeExperiments{experiments: []types.ExperimentResult{
		{ExperimentID: "exp-1", Prompt: "Summarize, briefly: {text}", Model: "gpt-4o", Accuracy: 85, EstimatedCost: 0.042},
		{ExperimentID: "exp-2", Prompt: "plain", Model: "claude-3-haiku"},
	}}
	h := newTestHandler(&fakeRunner{}, experiments, &fakeUsage{})

	w := doJSON(t, h.Export, http.MethodPost, "/api/export", `{"experiment_ids": ["exp-1", "missing"]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Format string `json:"format"`
		Data   string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Format != "csv" {
		t.Errorf("format = %q", resp.Format)
	}

	lines := strings.Split(strings.TrimSpace(resp.Data), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header + 1 row: %q", len(lines), resp.Data)
	}
	if lines[0] != "experiment_id,prompt,model,accuracy,cost" {
		t.Errorf("header = %q", lines[0])
	}
	// The prompt contains a comma, so it must be quoted.
	if !strings.Contains(lines[1], `"Summarize, briefly: {text}"`) {
		t.Errorf("row = %q, want quoted prompt", lines[1])
	}
}

func TestExport_EmptySelection(t *testing.T) {
	h := newTestHandler(&fakeRunner{}, &fakeExperiments{}, &fakeUsage{})
	w := doJSON(t, h.Export, http.MethodPost, "/api/export", `{"experiment_ids": []}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No experiments selected") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&fakeRunner{}, &fakeExperiments{}, &fakeUsage{})
	w := doJSON(t, h.Health, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("body = %s", w.Body.String())
	}
}
