package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// anthropicAdapter handles the Anthropic Messages API.
type anthropicAdapter struct {
	baseURL string
	client  *http.Client
}

func newAnthropicAdapter(baseURL string, client *http.Client) *anthropicAdapter {
	return &anthropicAdapter{baseURL: baseURL, client: client}
}

// anthropicModelIDs maps short model names to the dated API identifiers.
// Unmapped names pass through unchanged.
var anthropicModelIDs = map[string]string{
	"claude-3-haiku":    "claude-3-haiku-20240307",
	"claude-3-sonnet":   "claude-3-sonnet-20240229",
	"claude-3-opus":     "claude-3-opus-20240229",
	"claude-3.5-sonnet": "claude-3-5-sonnet-20241022",
}

func (a *anthropicAdapter) invoke(ctx context.Context, model, prompt, key string) (Result, error) {
	apiModel := model
	if mapped, ok := anthropicModelIDs[model]; ok {
		apiModel = mapped
	}

	body := anthropicRequest{
		Model:     apiModel,
		MaxTokens: defaultMaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, errorMessage(raw))
	}

	var ar anthropicResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return Result{}, fmt.Errorf("unmarshal anthropic response: %w", err)
	}

	var text string
	for _, block := range ar.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	tokens := ar.Usage.InputTokens + ar.Usage.OutputTokens

	return Result{
		Success:  true,
		Response: text,
		Tokens:   tokens,
		Cost:     AnthropicCost(model, tokens),
	}, nil
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
