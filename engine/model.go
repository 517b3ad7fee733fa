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

package engine

import (
	"context"
	"iter"

	"github.com/openconvo/convoengine/tools"
)

// Turn is one role-tagged entry of the conversation sent to the model.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`

	// ToolCalls is set on assistant turns that requested tool calls.
	ToolCalls []ToolCallSpec `json:"tool_calls,omitempty"`

	// ToolCallID is set on tool-result turns.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCallSpec is the conversation form of one requested tool call.
type ToolCallSpec struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSchema is the wire description of a callable tool.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one model invocation: the conversation so far plus the
// tools the model may call.
type Request struct {
	Turns []Turn
	Tools []ToolSchema
}

// ModelClient opens a completion stream against the model backend. The
// sequence yields raw stream lines, JSON-per-line; the engine recognizes
// both the structured-event and the chat-delta conventions, skips
// malformed lines and stops at the stream terminator.
type ModelClient interface {
	StreamCompletion(ctx context.Context, req Request) (iter.Seq2[[]byte, error], error)
}

// SchemaForTool converts a catalog tool into its wire description.
func SchemaForTool(t tools.Tool) ToolSchema {
	schema := ToolSchema{
		Name:       t.ToolName(),
		Parameters: t.ParamsSchema(),
	}
	switch v := t.(type) {
	case tools.FunctionTool:
		schema.Description = v.Description
	case tools.ClientTool:
		schema.Description = v.Description
	}
	return schema
}

// UserTurn and SystemTurn are small conveniences for building requests.

func UserTurn(text string) Turn   { return Turn{Role: "user", Content: text} }
func SystemTurn(text string) Turn { return Turn{Role: "system", Content: text} }
