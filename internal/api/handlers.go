package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/promptlabs/promptlab/internal/httputil"
	"github.com/promptlabs/promptlab/internal/llm"
	"github.com/promptlabs/promptlab/internal/ratelimit"
	"github.com/promptlabs/promptlab/internal/store"
	"github.com/promptlabs/promptlab/internal/telemetry"
	"github.com/promptlabs/promptlab/internal/types"
)

const recentExperimentsLimit = 10

// ExperimentRunner runs one experiment batch end to end.
type ExperimentRunner interface {
	Run(ctx context.Context, req types.ExperimentRequest, creds types.Credentials) (*types.ExperimentResult, error)
}

// ExperimentStore is the persistence surface the handlers need.
type ExperimentStore interface {
	ListRecent(ctx context.Context, limit int) ([]types.ExperimentResult, error)
	Count(ctx context.Context) (int64, error)
	GetByIDs(ctx context.Context, ids []string) ([]types.ExperimentResult, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Limits bounds incoming experiment requests.
type Limits struct {
	MaxPromptLength  int
	MaxTestSamples   int
	DailyExperiments int
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	runner      ExperimentRunner
	experiments ExperimentStore
	usage       store.UsageStore
	limiter     *ratelimit.ExperimentLimiter
	metrics     *telemetry.Metrics
	limits      func() Limits
	version     string
}

func NewHandler(runner ExperimentRunner, experiments ExperimentStore, usage store.UsageStore, limiter *ratelimit.ExperimentLimiter, metrics *telemetry.Metrics, limits func() Limits, version string) *Handler {
	return &Handler{
		runner:      runner,
		experiments: experiments,
		usage:       usage,
		limiter:     limiter,
		metrics:     metrics,
		limits:      limits,
		version:     version,
	}
}

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	limits := h.limits()
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to Promptlab",
		"version": h.version,
		"docs":    "/docs",
		"limits": map[string]any{
			"max_samples":             limits.MaxTestSamples,
			"max_experiments_per_day": limits.DailyExperiments,
		},
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// RunExperiment handles POST /api/experiments
func (h *Handler) RunExperiment(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var req types.ExperimentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	if msg, field := validateRequest(req, h.limits()); msg != "" {
		httputil.WriteValidationError(w, reqID, msg, field)
		return
	}

	creds := types.Credentials{
		OpenAIKey:    r.Header.Get("X-OpenAI-API-Key"),
		AnthropicKey: r.Header.Get("X-Anthropic-API-Key"),
		TogetherKey:  r.Header.Get("X-Together-API-Key"),
	}

	// Reject a missing credential for the selected model's family before any
	// orchestration begins.
	if provider, msg := missingCredential(req.Model, creds); msg != "" {
		httputil.WriteAPIKeyError(w, reqID, provider, msg)
		return
	}

	if h.limiter != nil {
		if res := h.limiter.Allow(r.Context()); !res.Allowed {
			httputil.WriteRateLimitError(w, reqID, "Daily experiment limit reached. Please try again later.")
			return
		}
	}

	result, err := h.runner.Run(r.Context(), req, creds)
	if err != nil {
		slog.Error("experiment run failed", "request_id", reqID, "model", req.Model, "error", err)
		httputil.WriteInternalError(w, reqID, "An unexpected error occurred. Please try again.")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordExperiment(experimentLabels(result, time.Since(receivedAt)))
	}

	writeJSON(w, http.StatusOK, result)
}

// ListExperiments handles GET /api/experiments
func (h *Handler) ListExperiments(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	experiments, err := h.experiments.ListRecent(r.Context(), recentExperimentsLimit)
	if err != nil {
		slog.Error("failed to list experiments", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to list experiments")
		return
	}
	total, err := h.experiments.Count(r.Context())
	if err != nil {
		slog.Error("failed to count experiments", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to list experiments")
		return
	}

	if experiments == nil {
		experiments = []types.ExperimentResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"experiments": experiments,
		"total":       total,
		"message":     "Showing last 10 experiments",
	})
}

// UsageStats handles GET /api/usage
func (h *Handler) UsageStats(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	stats, err := h.usage.Get(r.Context())
	if err != nil {
		slog.Error("failed to read usage counter", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to read usage statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Reset handles DELETE /api/reset?reset_type=all|experiments|usage
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	resetType := r.URL.Query().Get("reset_type")
	if resetType == "" {
		resetType = "experiments"
	}
	if resetType != "all" && resetType != "experiments" && resetType != "usage" {
		httputil.WriteValidationError(w, reqID, "Invalid reset_type: "+resetType, "reset_type")
		return
	}

	if resetType == "all" || resetType == "experiments" {
		deleted, err := h.experiments.DeleteAll(r.Context())
		if err != nil {
			slog.Error("failed to reset experiments", "request_id", reqID, "error", err)
			httputil.WriteInternalError(w, reqID, "Failed to reset data")
			return
		}
		slog.Info("deleted experiments", "request_id", reqID, "count", deleted)
	}

	if resetType == "all" || resetType == "usage" {
		if err := h.usage.Reset(r.Context()); err != nil {
			slog.Error("failed to reset usage counter", "request_id", reqID, "error", err)
			httputil.WriteInternalError(w, reqID, "Failed to reset data")
			return
		}
		slog.Info("reset usage statistics", "request_id", reqID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Successfully reset " + resetType + " data",
		"reset_type": resetType,
	})
}

func experimentLabels(result *types.ExperimentResult, duration time.Duration) telemetry.ExperimentLabels {
	var successes, tokens int
	var cost float64
	for _, sr := range result.SampleResults {
		if sr.Success {
			successes++
			tokens += sr.Tokens
			cost += sr.Cost
		}
	}
	status := "success"
	if successes == 0 {
		status = "failure"
	}
	return telemetry.ExperimentLabels{
		Model:             result.Model,
		Provider:          providerLabel(result.Model),
		Status:            status,
		SuccessfulSamples: successes,
		FailedSamples:     result.SamplesTested - successes,
		Tokens:            tokens,
		CostUSD:           cost,
		DurationMs:        float64(duration.Milliseconds()),
	}
}

func providerLabel(model string) string {
	if family := llm.FamilyFor(model); family != llm.FamilyUnknown {
		return string(family)
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
