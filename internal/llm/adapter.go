package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/promptlabs/promptlab/internal/config"
	"github.com/promptlabs/promptlab/internal/types"
)

// Result is the normalized outcome of a single provider invocation. A failed
// invocation always has empty Response and zero Tokens/Cost.
type Result struct {
	Success  bool
	Response string
	Tokens   int
	Cost     float64
	Err      string
}

// Invoker executes a filled prompt against whichever provider serves the
// model. Implementations never return an error value: every fault is
// normalized into a failure Result.
type Invoker interface {
	Invoke(ctx context.Context, model, prompt string, creds types.Credentials) Result
}

// Family identifies which provider credential a model requires.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyTogether  Family = "together"
	FamilyUnknown   Family = ""
)

// reasoningModels are served exclusively by the OpenAI Responses API. They
// are declared incompatible with the chat-completions fallback path.
var reasoningModels = map[string]bool{
	"gpt-5":      true,
	"gpt-5-mini": true,
	"gpt-5-nano": true,
}

// togetherShortIDs enumerates external models served via the Together API
// without the together/ prefix.
var togetherShortIDs = map[string]bool{
	"llama-3.3-70b-turbo":   true,
	"llama-3.2-3b":          true,
	"qwen-2.5-72b":          true,
	"qwen-2.5-7b":           true,
	"deepseek-v3":           true,
	"deepseek-r1-qwen-1.5b": true,
	"mixtral-8x7b":          true,
	"llama-4-scout":         true,
	"kimi-k2-instruct":      true,
}

// FamilyFor resolves the provider family for a model name.
func FamilyFor(model string) Family {
	switch {
	case strings.HasPrefix(model, "gpt"):
		return FamilyOpenAI
	case strings.HasPrefix(model, "claude"):
		return FamilyAnthropic
	case strings.HasPrefix(model, "together/"), togetherShortIDs[model]:
		return FamilyTogether
	default:
		return FamilyUnknown
	}
}

// Client dispatches invocations to the provider adapters. It holds no
// credentials; keys arrive with each call.
type Client struct {
	openai    *openAIAdapter
	anthropic *anthropicAdapter
	together  *togetherAdapter
}

// NewClient builds the provider adapters from config. Each adapter gets its
// own HTTP client with the configured timeout.
func NewClient(cfg config.ProvidersConfig) *Client {
	return &Client{
		openai:    newOpenAIAdapter(cfg.OpenAI.BaseURL, httpClient(cfg.OpenAI)),
		anthropic: newAnthropicAdapter(cfg.Anthropic.BaseURL, httpClient(cfg.Anthropic)),
		together:  newTogetherAdapter(cfg.Together.BaseURL, httpClient(cfg.Together)),
	}
}

func httpClient(cfg config.ProviderConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// Invoke routes the prompt by model name, checks that the required credential
// is present before any network call, and normalizes every adapter fault into
// a failure Result.
func (c *Client) Invoke(ctx context.Context, model, prompt string, creds types.Credentials) Result {
	switch FamilyFor(model) {
	case FamilyOpenAI:
		if creds.OpenAIKey == "" {
			return failure("OpenAI API key not provided")
		}
		if reasoningModels[model] {
			return normalize(c.openai.invokeResponses(ctx, model, prompt, creds.OpenAIKey))
		}
		return normalize(c.openai.invokeChat(ctx, model, prompt, creds.OpenAIKey))
	case FamilyAnthropic:
		if creds.AnthropicKey == "" {
			return failure("Anthropic API key not provided")
		}
		return normalize(c.anthropic.invoke(ctx, model, prompt, creds.AnthropicKey))
	case FamilyTogether:
		if creds.TogetherKey == "" {
			return failure("Together AI API key not provided")
		}
		return normalize(c.together.invoke(ctx, model, prompt, creds.TogetherKey))
	default:
		return failure("Unsupported model: " + model)
	}
}

// normalize converts an adapter error into the common failure shape so no
// fault escapes Invoke as an error value.
func normalize(res Result, err error) Result {
	if err != nil {
		return failure(err.Error())
	}
	return res
}

func failure(msg string) Result {
	return Result{Success: false, Err: msg}
}
