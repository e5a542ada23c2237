package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// openAIAdapter handles both OpenAI surfaces: the chat-completions endpoint
// for standard GPT models and the Responses API for the reasoning tier.
type openAIAdapter struct {
	baseURL string
	client  *http.Client
}

func newOpenAIAdapter(baseURL string, client *http.Client) *openAIAdapter {
	return &openAIAdapter{baseURL: baseURL, client: client}
}

func (a *openAIAdapter) invokeChat(ctx context.Context, model, prompt, key string) (Result, error) {
	body := chatCompletionRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := a.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read openai response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, errorMessage(raw))
	}

	var cr chatCompletionResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Result{}, fmt.Errorf("unmarshal openai response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Result{}, fmt.Errorf("openai response has no choices")
	}

	return Result{
		Success:  true,
		Response: cr.Choices[0].Message.Content,
		Tokens:   cr.Usage.TotalTokens,
		Cost:     OpenAIChatCost(model, cr.Usage.PromptTokens, cr.Usage.CompletionTokens),
	}, nil
}

// invokeResponses calls the Responses API for the reasoning-tier models.
// A failure that mentions organization verification is surfaced with a
// remediation URL; every other failure reports the same verification error,
// because these model ids are incompatible with the chat-completions path.
func (a *openAIAdapter) invokeResponses(ctx context.Context, model, prompt, key string) (Result, error) {
	body := responsesRequest{
		Model: model,
		Input: prompt,
		Reasoning: responsesReasoning{
			Effort: "minimal",
		},
		Text: responsesText{
			Verbosity: "medium",
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return failure(verificationError(model)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/responses", bytes.NewReader(data))
	if err != nil {
		return failure(verificationError(model)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := a.client.Do(req)
	if err != nil {
		return failure(verificationError(model)), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(verificationError(model)), nil
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("responses api error", "model", model, "status", resp.StatusCode, "message", errorMessage(raw))
		return failure(verificationError(model)), nil
	}

	var rr responsesResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return failure(verificationError(model)), nil
	}

	usage := rr.Usage
	tokens := usage.TotalTokens
	if tokens == 0 {
		tokens = usage.InputTokens + usage.OutputTokens + usage.ReasoningTokens
	}

	return Result{
		Success:  true,
		Response: rr.text(),
		Tokens:   tokens,
		Cost:     ReasoningCost(model, usage.InputTokens, usage.OutputTokens, usage.ReasoningTokens),
	}, nil
}

func verificationError(model string) string {
	return fmt.Sprintf("Your OpenAI organization needs to be verified to use %s. "+
		"Please visit https://platform.openai.com/settings/organization/general to verify your organization.", model)
}

// errorMessage extracts the provider error message from an error body, or
// returns the raw body when it is not the expected shape.
func errorMessage(raw []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(raw)
}

const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type responsesReasoning struct {
	Effort string `json:"effort"`
}

type responsesText struct {
	Verbosity string `json:"verbosity"`
}

type responsesRequest struct {
	Model     string             `json:"model"`
	Input     string             `json:"input"`
	Reasoning responsesReasoning `json:"reasoning"`
	Text      responsesText      `json:"text"`
}

type responsesResponse struct {
	Output json.RawMessage `json:"output"`
	Text   json.RawMessage `json:"text"`
	Usage  struct {
		InputTokens     int `json:"input_tokens"`
		OutputTokens    int `json:"output_tokens"`
		ReasoningTokens int `json:"reasoning_tokens"`
		TotalTokens     int `json:"total_tokens"`
	} `json:"usage"`
}

// text extracts the output text from a Responses API body. The output field
// is either a plain string or a list of message items with text content parts.
func (r *responsesResponse) text() string {
	if s, ok := rawString(r.Output); ok {
		return s
	}

	var items []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(r.Output, &items); err == nil {
		var b strings.Builder
		for _, item := range items {
			for _, part := range item.Content {
				if part.Type == "output_text" || part.Type == "text" {
					b.WriteString(part.Text)
				}
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}

	if s, ok := rawString(r.Text); ok {
		return s
	}
	return ""
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
