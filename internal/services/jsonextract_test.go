package services

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSONObjectClean(t *testing.T) {
	payload, err := ExtractJSONObject(`{"summary":"x","confidence":0.5}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if payload != `{"summary":"x","confidence":0.5}` {
		t.Errorf("Unexpected payload: %s", payload)
	}
}

func TestExtractJSONObjectMarkdownFence(t *testing.T) {
	response := "Here is the result:\n```json\n{\"summary\":\"x\",\"confidence\":0.5,\"keywords\":[\"timeout\"]}\n```\nThanks"
	payload, err := ExtractJSONObject(response)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var parsed struct {
		Summary    string   `json:"summary"`
		Confidence float64  `json:"confidence"`
		Keywords   []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		t.Fatalf("Extracted payload is not valid JSON: %v", err)
	}
	if parsed.Summary != "x" || parsed.Confidence != 0.5 {
		t.Errorf("Unexpected parse result: %+v", parsed)
	}
}

func TestExtractJSONObjectNestedAndStrings(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected string
	}{
		{
			name:     "nested objects",
			response: `prose {"a":{"b":{"c":1}},"d":2} trailing`,
			expected: `{"a":{"b":{"c":1}},"d":2}`,
		},
		{
			name:     "braces inside strings",
			response: `{"summary":"use {curly} braces","n":1}`,
			expected: `{"summary":"use {curly} braces","n":1}`,
		},
		{
			name:     "escaped quotes inside strings",
			response: `{"summary":"he said \"}\" loudly"}`,
			expected: `{"summary":"he said \"}\" loudly"}`,
		},
		{
			name:     "closing brace in string before real close",
			response: `{"a":"}}}","b":2} extra }`,
			expected: `{"a":"}}}","b":2}`,
		},
	}

	for _, test := range tests {
		payload, err := ExtractJSONObject(test.response)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if payload != test.expected {
			t.Errorf("%s: expected %q, got %q", test.name, test.expected, payload)
		}
	}
}

func TestExtractJSONObjectNoObject(t *testing.T) {
	if _, err := ExtractJSONObject("the model refused to answer"); !errors.Is(err, ErrNoJSONObject) {
		t.Errorf("Expected ErrNoJSONObject, got %v", err)
	}
}

func TestExtractJSONObjectUnbalanced(t *testing.T) {
	inputs := []string{
		`{"summary":"x"`,
		`{"a":{"b":1}`,
		`{"a":"unterminated string}`,
	}
	for _, input := range inputs {
		if _, err := ExtractJSONObject(input); !errors.Is(err, ErrUnbalancedJSON) {
			t.Errorf("Expected ErrUnbalancedJSON for %q, got %v", input, err)
		}
	}
}
