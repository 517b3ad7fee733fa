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
	"fmt"

	"github.com/google/uuid"

	"github.com/openconvo/convoengine/timeline"
	"github.com/openconvo/convoengine/tools"
)

const maxSourceSnippet = 1000

// promotePendingCalls turns the accumulated tool-call fragments into
// FunctionCall timeline items, in wire order. Calls naming a tool the
// resolver does not know are dropped here, so every call on the
// timeline can be paired with an output. Arguments are repaired and
// canonicalized; calls whose arguments cannot be parsed at all are
// promoted with an empty object so the failure surfaces as a tool
// result instead of a lost call.
func (d *Driver) promotePendingCalls(s *session, em *emitter) {
	calls := s.takePendingCalls()
	if len(calls) == 0 {
		return
	}
	promoted := false
	for _, call := range calls {
		if _, ok := d.resolveTool(call.Name); !ok {
			Logger().Debug("dropping call to unknown tool", "tool", call.Name)
			continue
		}
		arguments := "{}"
		switch {
		case call.argsObject != nil:
			arguments = tools.Canonical(call.argsObject)
		case call.Arguments != "":
			params, err := tools.ParseArguments(call.Arguments)
			if err != nil {
				Logger().Warn("tool call arguments unparseable",
					"tool", call.Name, "error", err)
			} else {
				arguments = tools.Canonical(params)
			}
		}

		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}
		s.timeline.Append(&timeline.FunctionCall{
			CallID:    id,
			Name:      call.Name,
			Arguments: arguments,
			Status:    timeline.StatusCompleted,
		})
		promoted = true
	}
	if promoted {
		em.TextChanged()
	}
}

// executeToolCalls runs every promoted call that has no output yet and
// appends the paired FunctionCallOutput items. Each output is appended
// in progress before its tool runs, so live snapshots taken during a
// slow tool show the execution region. Tool failures become textual
// results; only context cancellation aborts the loop. The first result
// reports whether anything actually ran.
func (d *Driver) executeToolCalls(ctx context.Context, s *session, em *emitter) (bool, error) {
	executed := false
	for _, call := range s.timeline.PendingCalls() {
		if err := ctx.Err(); err != nil {
			return executed, CanceledErrorf("turn cancelled during tool execution: %w", context.Canceled)
		}

		tool, ok := d.resolveTool(call.Name)
		if !ok {
			// Promotion filters unresolvable names; a call can still slip
			// through when the resolver changes between turns.
			Logger().Debug("ignoring call to unknown tool", "tool", call.Name)
			continue
		}
		executed = true

		em.Event(ToolCallEvent{CallID: call.CallID, Name: call.Name, Status: timeline.StatusInProgress})

		output := &timeline.FunctionCallOutput{
			CallID: call.CallID,
			Status: timeline.StatusInProgress,
		}
		s.timeline.Append(output)
		em.TextChanged()

		normalized := tools.Normalize(d.invokeTool(ctx, tool, call))
		if normalized.Text != "" {
			output.Output = []timeline.ContentPart{timeline.TextPart(normalized.Text)}
		}

		for _, attachment := range normalized.Attachments {
			ref, err := d.externalizeAttachment(ctx, s, attachment.Name, attachment.MimeType, attachment.Data)
			if err != nil {
				Logger().Warn("failed to externalize tool attachment",
					"tool", call.Name, "error", err)
				continue
			}
			output.Files = append(output.Files, ref)
		}
		if len(output.Files) > 0 {
			em.Event(FilesEvent{Files: output.Files})
		}

		if len(normalized.Embeds) > 0 {
			output.Embeds = normalized.Embeds
			s.embeds = append(s.embeds, normalized.Embeds...)
			em.Event(EmbedsEvent{Embeds: normalized.Embeds})
		}

		if isCitable(tool) && normalized.Text != "" {
			src := Source{Name: call.Name, Snippet: truncate(normalized.Text, maxSourceSnippet)}
			s.sources = append(s.sources, src)
			em.Event(SourcesEvent{Sources: []Source{src}})
		}

		output.Status = timeline.StatusCompleted
		em.TextChanged()
		em.Event(ToolCallEvent{CallID: call.CallID, Name: call.Name, Status: timeline.StatusCompleted})
	}

	if !executed {
		return false, nil
	}

	// The follow-up model stream continues in a fresh message bubble.
	s.timeline.Append(timeline.NewAssistantMessage())
	s.toolTurns++
	return true, nil
}

// invokeTool validates the arguments and dispatches to the tool's
// execution strategy. Every failure path returns a value that Normalize
// turns into the textual result fed back to the model.
func (d *Driver) invokeTool(ctx context.Context, tool tools.Tool, call *timeline.FunctionCall) any {
	params, err := tools.ParseArguments(call.Arguments)
	if err != nil {
		return fmt.Errorf("Error: invalid tool arguments: %w", err)
	}
	schema := tool.ParamsSchema()
	arguments := tools.Canonical(tools.FilterArguments(schema, params))
	if err := tools.ValidateArguments(schema, arguments); err != nil {
		return fmt.Errorf("Error: tool arguments rejected by schema: %w", err)
	}

	switch t := tool.(type) {
	case tools.FunctionTool:
		result, err := t.OnInvoke(ctx, arguments)
		if err != nil {
			return err
		}
		return result
	case tools.ClientTool:
		if d.callRemote == nil {
			return fmt.Errorf("Error: no client connection for tool %q", t.Name)
		}
		reply, err := d.callRemote(ctx, map[string]any{
			"type":       "execute:tool",
			"name":       t.Name,
			"session_id": t.SessionID,
			"arguments":  arguments,
		})
		if err != nil {
			return err
		}
		if msg, ok := reply["error"].(string); ok && msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return reply["result"]
	default:
		return fmt.Errorf("Error: tool %q has no execution strategy", tool.ToolName())
	}
}

func (d *Driver) resolveTool(name string) (tools.Tool, bool) {
	if d.resolver == nil {
		return nil, false
	}
	return d.resolver.ResolveTool(name)
}

func isCitable(tool tools.Tool) bool {
	switch t := tool.(type) {
	case tools.FunctionTool:
		return t.Citable
	case tools.ClientTool:
		return t.Citable
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
