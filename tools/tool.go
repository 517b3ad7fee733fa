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
	"sort"
)

// A Tool that the model may request by name. The catalog supplies the
// parameter schema and the invocation strategy; the engine never cares
// where a tool actually runs.
type Tool interface {
	isTool()

	ToolName() string

	// ParamsSchema returns the JSON schema of the tool's parameter
	// object. Arguments are filtered to this schema's declared property
	// set before invocation.
	ParamsSchema() map[string]any
}

// FunctionTool executes in-process by calling the supplied function.
type FunctionTool struct {
	// The name of the tool, as shown to the model.
	Name string

	// A description of the tool, as shown to the model.
	Description string

	// The JSON schema for the tool's parameters.
	ParamsJSONSchema map[string]any

	// OnInvoke is called with the canonical JSON arguments string. The
	// returned value may be any of the result shapes understood by
	// Normalize. A returned error becomes the textual tool result; it
	// never aborts the turn.
	OnInvoke func(ctx context.Context, arguments string) (any, error)

	// Citable marks the tool's textual results as citation sources.
	Citable bool
}

func (FunctionTool) isTool()                      {}
func (t FunctionTool) ToolName() string           { return t.Name }
func (t FunctionTool) ParamsSchema() map[string]any { return t.ParamsJSONSchema }

// ClientTool executes in the live client session. The engine issues an
// RPC request through its remote caller and awaits the reply.
type ClientTool struct {
	// The name of the tool, as shown to the model.
	Name string

	// A description of the tool, as shown to the model.
	Description string

	// The JSON schema for the tool's parameters.
	ParamsJSONSchema map[string]any

	// SessionID identifies the client session hosting the tool.
	SessionID string

	// Citable marks the tool's textual results as citation sources.
	Citable bool
}

func (ClientTool) isTool()                      {}
func (t ClientTool) ToolName() string           { return t.Name }
func (t ClientTool) ParamsSchema() map[string]any { return t.ParamsJSONSchema }

// Resolver looks tools up by name. A false result means the call is
// ignored: no output item is appended for an unresolvable name.
type Resolver interface {
	ResolveTool(name string) (Tool, bool)
}

// Lister enumerates the tools a resolver holds, so they can be offered
// to the model. Resolvers that cannot enumerate simply don't implement it.
type Lister interface {
	ListTools() []Tool
}

// Catalog is a Resolver backed by a plain map.
type Catalog map[string]Tool

func (c Catalog) ResolveTool(name string) (Tool, bool) {
	t, ok := c[name]
	return t, ok
}

// Add registers a tool under its own name.
func (c Catalog) Add(t Tool) {
	c[t.ToolName()] = t
}

// ListTools returns the registered tools in name order.
func (c Catalog) ListTools() []Tool {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Tool, len(names))
	for i, name := range names {
		out[i] = c[name]
	}
	return out
}
