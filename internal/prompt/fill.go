package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/promptlabs/promptlab/internal/types"
)

// Fill substitutes every {key} placeholder in template with the string form
// of the corresponding sample value. Each key is applied in a single pass, so
// a substituted value containing another {key} pattern is not expanded again.
// Keys are applied in sorted order to keep the output deterministic.
// Placeholders with no matching key are left verbatim.
func Fill(template string, sample types.Sample) string {
	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filled := template
	for _, k := range keys {
		filled = strings.ReplaceAll(filled, "{"+k+"}", stringify(sample[k]))
	}
	return filled
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
