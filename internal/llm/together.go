package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// togetherAdapter handles the Together aggregator API, which serves the
// external-model catalog behind an OpenAI-compatible endpoint.
type togetherAdapter struct {
	baseURL string
	client  *http.Client
}

func newTogetherAdapter(baseURL string, client *http.Client) *togetherAdapter {
	return &togetherAdapter{baseURL: baseURL, client: client}
}

// togetherModelIDs maps the short catalog names to Together's fully
// qualified model identifiers. Unmapped names fall back to stripping the
// together/ prefix.
var togetherModelIDs = map[string]string{
	"llama-3.3-70b-turbo":   "meta-llama/Llama-3.3-70B-Instruct-Turbo",
	"llama-3.2-3b":          "meta-llama/Llama-3.2-3B-Instruct-Turbo",
	"qwen-2.5-72b":          "Qwen/Qwen2.5-72B-Instruct-Turbo",
	"qwen-2.5-7b":           "Qwen/Qwen2.5-7B-Instruct-Turbo",
	"deepseek-v3":           "deepseek-ai/DeepSeek-V3",
	"deepseek-r1-qwen-1.5b": "deepseek-ai/DeepSeek-R1-Distill-Qwen-1.5B",
	"mixtral-8x7b":          "mistralai/Mixtral-8x7B-Instruct-v0.1",
	"llama-4-scout":         "meta-llama/Llama-4-Scout",
	"kimi-k2-instruct":      "kimi/Kimi-K2-Instruct",
}

func (a *togetherAdapter) invoke(ctx context.Context, model, prompt, key string) (Result, error) {
	apiModel, ok := togetherModelIDs[model]
	if !ok {
		apiModel = strings.TrimPrefix(model, "together/")
	}

	body := chatCompletionRequest{
		Model:       apiModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("marshal together request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("create together request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := a.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("together request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read together response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("Together AI error: %s", string(raw))
	}

	var cr chatCompletionResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Result{}, fmt.Errorf("unmarshal together response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Result{}, fmt.Errorf("together response has no choices")
	}

	return Result{
		Success:  true,
		Response: cr.Choices[0].Message.Content,
		Tokens:   cr.Usage.TotalTokens,
		Cost:     TogetherCost(cr.Usage.TotalTokens),
	}, nil
}
