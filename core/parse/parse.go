package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON is returned when the content holds no JSON object or array.
var ErrNoJSON = errors.New("no JSON value found in content")

// JSONAs decodes content into T, tolerating the usual model artifacts.
//
// Example:
//
//	type verdict struct {
//	    Draft      string  `json:"draft"`
//	    Confidence float64 `json:"confidence"`
//	}
//
//	parsed, err := parse.JSONAs[verdict]("```json\n{draft: 'x', confidence: 0.7,}\n```")
func JSONAs[T any](content string) (T, error) {
	var result T

	candidate := extractJSON(content)
	if candidate == "" {
		return result, ErrNoJSON
	}

	err := json.Unmarshal([]byte(candidate), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	if err = json.Unmarshal([]byte(repaired), &result); err == nil {
		return result, nil
	}

	unwrapped, unwrapErr := unwrapSchemaValues(repaired)
	if unwrapErr == nil {
		var unwrappedResult T
		if json.Unmarshal([]byte(unwrapped), &unwrappedResult) == nil {
			return unwrappedResult, nil
		}
	}

	return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w", result, err)
}

// extractJSON returns the span from the first '{' or '[' to the matching last
// '}' or ']', after removing markdown code fences.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
			trimmed = trimmed[newline+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return ""
	}

	closing := byte('}')
	if trimmed[start] == '[' {
		closing = ']'
	}

	end := strings.LastIndexByte(trimmed, closing)
	if end < start {
		// Truncated output: let jsonrepair close it.
		return trimmed[start:]
	}
	return trimmed[start : end+1]
}

// unwrapSchemaValues replaces {"type": ..., "value": v} envelopes with v.
//
// Example input:
//
//	{"draft": {"type": "string", "value": "text"}, "confidence": {"type": "number", "value": 0.8}}
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}

	result, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(result), nil
}

func recursiveUnwrap(data any) any {
	switch typed := data.(type) {
	case map[string]any:
		if _, hasType := typed["type"]; hasType {
			if value, hasValue := typed["value"]; hasValue && len(typed) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(typed))
		for key, value := range typed {
			result[key] = recursiveUnwrap(value)
		}
		return result

	case []any:
		result := make([]any, len(typed))
		for index, value := range typed {
			result[index] = recursiveUnwrap(value)
		}
		return result

	default:
		return data
	}
}
