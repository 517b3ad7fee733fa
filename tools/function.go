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
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
)

var nonWireNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// WireName lowercases a display name and replaces everything outside
// [a-zA-Z0-9_-] with underscores, which is what model providers accept
// as a tool name.
func WireName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = nonWireNameChars.ReplaceAllString(name, "_")
	return strings.ToLower(name)
}

// NewFunctionTool builds a FunctionTool from a typed handler. The name
// is normalized with WireName; the parameter schema is derived by
// reflection from Args, so the schema and the decoding of arguments can
// never drift apart.
func NewFunctionTool[Args any](name, description string, handler func(ctx context.Context, args Args) (any, error)) FunctionTool {
	return FunctionTool{
		Name:             WireName(name),
		Description:      description,
		ParamsJSONSchema: reflectSchema[Args](),
		OnInvoke: func(ctx context.Context, arguments string) (any, error) {
			var args Args
			if arguments != "" {
				if err := json.Unmarshal([]byte(arguments), &args); err != nil {
					return nil, fmt.Errorf("failed to parse arguments: %w", err)
				}
			}
			return handler(ctx, args)
		},
	}
}

func reflectSchema[Args any]() map[string]any {
	argsType := reflect.TypeOf((*Args)(nil)).Elem()
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	// An inline struct type reflects with an empty name, which the
	// expanded-root lookup inside the reflector cannot resolve.
	reflector.Namer = func(t reflect.Type) string {
		if t == argsType && t.Name() == "" {
			return "ToolArgs"
		}
		return t.Name()
	}
	schema := reflector.ReflectFromType(argsType)
	schema.Version = ""

	b, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	delete(m, "$schema")
	if _, ok := m["properties"]; !ok {
		m["properties"] = map[string]any{}
	}
	m["type"] = "object"
	return m
}
