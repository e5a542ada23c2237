package api

import (
	"fmt"
	"strings"

	"github.com/promptlabs/promptlab/internal/llm"
	"github.com/promptlabs/promptlab/internal/types"
)

// validateRequest checks the experiment request against the configured
// limits. It returns an empty message when the request is valid.
func validateRequest(req types.ExperimentRequest, limits Limits) (msg, field string) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "Prompt template cannot be empty", "prompt"
	}
	if limits.MaxPromptLength > 0 && len(req.Prompt) > limits.MaxPromptLength {
		return fmt.Sprintf("Prompt template too long (max %d characters)", limits.MaxPromptLength), "prompt"
	}
	if req.Model == "" {
		return "Model selection is required", "model"
	}
	if len(req.TestSamples) == 0 {
		return "At least one test sample is required", "test_samples"
	}
	if limits.MaxTestSamples > 0 && len(req.TestSamples) > limits.MaxTestSamples {
		return fmt.Sprintf("Too many test samples (max %d)", limits.MaxTestSamples), "test_samples"
	}
	for i, sample := range req.TestSamples {
		text, _ := sample["text"].(string)
		if strings.TrimSpace(text) == "" {
			return fmt.Sprintf("Sample %d has empty text", i+1), fmt.Sprintf("test_samples[%d]", i)
		}
	}
	return "", ""
}

// missingCredential reports which provider credential the model needs but the
// request did not carry. Models of an unknown family need no credential; they
// fail per sample with an unsupported-model error instead.
func missingCredential(model string, creds types.Credentials) (provider, msg string) {
	switch llm.FamilyFor(model) {
	case llm.FamilyOpenAI:
		if creds.OpenAIKey == "" {
			return "OpenAI", "OpenAI API key required for GPT models. Please configure in API Settings."
		}
	case llm.FamilyAnthropic:
		if creds.AnthropicKey == "" {
			return "Anthropic", "Anthropic API key required for Claude models. Please configure in API Settings."
		}
	case llm.FamilyTogether:
		if creds.TogetherKey == "" {
			return "Together AI", "Together AI API key required for Together models. Please configure in API Settings."
		}
	}
	return "", ""
}
