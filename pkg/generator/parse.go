package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/kaptinlin/jsonrepair"
)

// ErrUnreadableJSON marks a response that could not be turned into a JSON
// object or array, even after repair.
var ErrUnreadableJSON = errors.New("fatal JSON parsing error")

var (
	fenceJSONRe  = regexp.MustCompile("```json\\s*")
	fenceRe      = regexp.MustCompile("```\\s*")
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// RemoveThinkTags removes <think> tags and everything in between them from a string.
func RemoveThinkTags(input string) string {
	return thinkBlockRe.ReplaceAllString(input, "")
}

// parseAndRepair strips markdown fences and reasoning blocks, repairs the
// remaining text and decodes it. A non-empty array yields its first element.
func parseAndRepair(text string) (any, bool, error) {
	text = RemoveThinkTags(text)
	text = fenceJSONRe.ReplaceAllString(text, "")
	text = fenceRe.ReplaceAllString(text, "")

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreadableJSON, err)
	}

	var parsed any
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreadableJSON, err)
	}

	switch v := parsed.(type) {
	case map[string]any:
		return v, false, nil
	case []any:
		if len(v) == 0 {
			return nil, false, fmt.Errorf("%w: empty JSON array", ErrUnreadableJSON)
		}
		return v[0], true, nil
	default:
		return nil, false, fmt.Errorf("%w: parsed result is not a valid JSON structure (object or array)", ErrUnreadableJSON)
	}
}
