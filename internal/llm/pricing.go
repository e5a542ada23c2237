package llm

// Static pricing tables, USD per 1K tokens.

type chatPrice struct {
	Input  float64
	Output float64
}

type reasoningPrice struct {
	Input     float64
	Output    float64
	Reasoning float64
}

var openAIChatPrices = map[string]chatPrice{
	"gpt-5":         {Input: 0.015, Output: 0.075},
	"gpt-5-mini":    {Input: 0.003, Output: 0.015},
	"gpt-5-nano":    {Input: 0.0003, Output: 0.0015},
	"gpt-4o":        {Input: 0.005, Output: 0.015},
	"gpt-4-turbo":   {Input: 0.01, Output: 0.03},
	"gpt-4":         {Input: 0.03, Output: 0.06},
	"gpt-3.5-turbo": {Input: 0.0005, Output: 0.0015},
}

// defaultOpenAIChatModel is the fallback pricing entry for unmapped models.
const defaultOpenAIChatModel = "gpt-3.5-turbo"

var reasoningPrices = map[string]reasoningPrice{
	"gpt-5":      {Input: 0.015, Output: 0.075, Reasoning: 0.001},
	"gpt-5-mini": {Input: 0.003, Output: 0.015, Reasoning: 0.0005},
	"gpt-5-nano": {Input: 0.0003, Output: 0.0015, Reasoning: 0.0001},
}

const defaultReasoningModel = "gpt-5-mini"

var anthropicPrices = map[string]float64{
	"claude-3-haiku":    0.00025,
	"claude-3-sonnet":   0.003,
	"claude-3-opus":     0.015,
	"claude-3.5-sonnet": 0.003,
}

const defaultAnthropicPrice = 0.003

// Together does not expose per-direction pricing; cost is approximated with
// a flat per-token rate.
const togetherPerTokenRate = 0.0001

// OpenAIChatCost prices a chat-completion call from per-direction token
// counts. Unmapped models fall back to the default entry.
func OpenAIChatCost(model string, promptTokens, completionTokens int) float64 {
	p, ok := openAIChatPrices[model]
	if !ok {
		p = openAIChatPrices[defaultOpenAIChatModel]
	}
	return float64(promptTokens)/1000*p.Input + float64(completionTokens)/1000*p.Output
}

// ReasoningCost prices a Responses API call, including the reasoning-token
// dimension.
func ReasoningCost(model string, inputTokens, outputTokens, reasoningTokens int) float64 {
	p, ok := reasoningPrices[model]
	if !ok {
		p = reasoningPrices[defaultReasoningModel]
	}
	return float64(inputTokens)/1000*p.Input +
		float64(outputTokens)/1000*p.Output +
		float64(reasoningTokens)/1000*p.Reasoning
}

// AnthropicCost prices a Messages API call from the combined token count.
func AnthropicCost(model string, totalTokens int) float64 {
	rate, ok := anthropicPrices[model]
	if !ok {
		rate = defaultAnthropicPrice
	}
	return float64(totalTokens) / 1000 * rate
}

// TogetherCost approximates the cost of an aggregator call.
func TogetherCost(totalTokens int) float64 {
	return float64(totalTokens) * togetherPerTokenRate
}
