package prompt

import (
	"testing"

	"github.com/promptlabs/promptlab/internal/types"
)

func TestFill(t *testing.T) {
	tests := []struct {
		name     string
		template string
		sample   types.Sample
		expected string
	}{
		{
			name:     "multiple placeholders",
			template: "Hello {name}, you are {age}",
			sample:   types.Sample{"name": "Ana", "age": 30},
			expected: "Hello Ana, you are 30",
		},
		{
			name:     "unmatched placeholder left verbatim",
			template: "Hello {name}, your id is {missing}",
			sample:   types.Sample{"name": "Ana"},
			expected: "Hello Ana, your id is {missing}",
		},
		{
			name:     "repeated placeholder",
			template: "{text} and again {text}",
			sample:   types.Sample{"text": "once"},
			expected: "once and again once",
		},
		{
			name:     "no placeholders",
			template: "static prompt",
			sample:   types.Sample{"text": "unused"},
			expected: "static prompt",
		},
		{
			name:     "empty sample",
			template: "Summarize: {text}",
			sample:   types.Sample{},
			expected: "Summarize: {text}",
		},
		{
			name:     "float value from json decoding",
			template: "score: {score}",
			sample:   types.Sample{"score": 92.5},
			expected: "score: 92.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fill(tt.template, tt.sample)
			if got != tt.expected {
				t.Errorf("Fill(%q) = %q, want %q", tt.template, got, tt.expected)
			}
		})
	}
}

func TestFill_NoRecursiveSubstitution(t *testing.T) {
	// A substituted value containing another placeholder pattern must not be
	// expanded: each key is applied in a single pass.
	got := Fill("{b}", types.Sample{"b": "{a}", "a": "deep"})
	if got != "{a}" {
		t.Errorf("expected later key's value to stay verbatim, got %q", got)
	}
}
