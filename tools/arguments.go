// Copyright 2026 The OpenConvo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ParseArguments decodes a tool-call arguments string into a parameter
// object. Models frequently emit slightly broken JSON, so a strict parse
// is followed by a repair pass; only when both fail is an error returned.
// An empty string decodes to an empty object.
func ParseArguments(arguments string) (map[string]any, error) {
	arguments = strings.TrimSpace(arguments)
	if arguments == "" {
		return map[string]any{}, nil
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(arguments), &params); err == nil {
		return params, nil
	}

	repaired := repairJSON(arguments)
	if err := json.Unmarshal([]byte(repaired), &params); err != nil {
		return nil, fmt.Errorf("unparsable tool arguments: %w", err)
	}
	return params, nil
}

// repairJSON applies the small set of fixes that cover the common model
// mistakes: code-fence wrappers, text around the object, trailing commas
// and unclosed braces or strings.
func repairJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	// Narrow to the outermost object, dropping prose around it.
	if i := strings.IndexByte(s, '{'); i > 0 {
		s = s[i:]
	}
	if i := strings.LastIndexByte(s, '}'); i >= 0 && i < len(s)-1 {
		s = s[:i+1]
	}

	// Close an unterminated string literal.
	inString := false
	escaped := false
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
			}
		}
	}
	if inString {
		s += `"`
	}

	// Drop a trailing comma before closing what is still open.
	trimmed := strings.TrimRight(s, " \t\n\r")
	if strings.HasSuffix(trimmed, ",") {
		s = strings.TrimSuffix(trimmed, ",")
	}
	for range depth {
		s += "}"
	}
	return s
}

// Canonical re-serializes a parameter object deterministically so every
// downstream consumer sees valid JSON with sorted keys.
func Canonical(params map[string]any) string {
	b, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// FilterArguments drops every parameter the schema does not declare.
// Unknown keys are never forwarded to a tool.
func FilterArguments(schema map[string]any, params map[string]any) map[string]any {
	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	filtered := make(map[string]any, len(params))
	for key, value := range params {
		if _, declared := properties[key]; declared {
			filtered[key] = value
		}
	}
	return filtered
}

// ValidateArguments checks the serialized parameter object against the
// tool's schema.
func ValidateArguments(schema map[string]any, jsonValue string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewStringLoader(jsonValue),
	)
	if err != nil {
		return fmt.Errorf("failed to load and validate JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("JSON validation failed with the following errors:\n")
	for _, e := range result.Errors() {
		_, _ = fmt.Fprintf(&sb, "- %s\n", e)
	}
	return fmt.Errorf("%s", sb.String())
}
