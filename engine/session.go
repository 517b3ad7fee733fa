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
	"fmt"

	"github.com/openconvo/convoengine/timeline"
	"github.com/openconvo/convoengine/usage"
)

// session is the state of one in-flight assistant turn. It is owned
// exclusively by the driver task, so no locking is needed; snapshots are
// taken for every persist and emit.
type session struct {
	chatID    string
	messageID string

	// The conversation as submitted by the client, before anything this
	// turn generated.
	baseTurns []Turn

	timeline *timeline.Timeline
	usage    *usage.Usage

	// Usage reported by the current model stream. Chat chunks carry a
	// cumulative counter, so the reducer overwrites rather than adds;
	// the stream loop folds it into usage once per request.
	streamUsage *usage.Usage

	sources []Source
	files   []timeline.FileRef
	embeds  []timeline.Embed

	// Tool-call fragments accumulated from the current model stream,
	// addressed by wire index. Not part of the timeline until the stream
	// for this turn ends.
	pendingCalls map[int64]*pendingCall
	callOrder    []int64

	// Loop counters, each independently bounded.
	toolTurns int
	codeTurns int
}

// pendingCall accumulates name/arguments fragments positionally until
// the stream ends and the call is promoted to a FunctionCall item.
type pendingCall struct {
	ID        string
	Name      string
	Arguments string

	// Set instead of Arguments when a structured stream delivers argument
	// deltas as partial objects rather than string fragments.
	argsObject map[string]any
}

func newSession(chatID, messageID string, baseTurns []Turn) *session {
	return &session{
		chatID:       chatID,
		messageID:    messageID,
		baseTurns:    baseTurns,
		timeline:     timeline.New(),
		usage:        usage.NewUsage(),
		pendingCalls: make(map[int64]*pendingCall),
	}
}

// accumulateToolCall merges one tool_calls[] delta fragment into the
// pending list.
func (s *session) accumulateToolCall(index int64, id, name, arguments string) {
	call, ok := s.pendingCalls[index]
	if !ok {
		call = new(pendingCall)
		s.pendingCalls[index] = call
		s.callOrder = append(s.callOrder, index)
	}
	call.ID += id
	call.Name += name
	call.Arguments += arguments
}

// takePendingCalls returns the accumulated calls in wire order and
// resets the pending list for the next stream.
func (s *session) takePendingCalls() []*pendingCall {
	calls := make([]*pendingCall, 0, len(s.callOrder))
	for _, index := range s.callOrder {
		calls = append(calls, s.pendingCalls[index])
	}
	s.pendingCalls = make(map[int64]*pendingCall)
	s.callOrder = nil
	return calls
}

// conversationTurns rebuilds the full role-tagged conversation: the
// client's turns, collected sources as extra context, then everything
// this turn has produced so far.
func (s *session) conversationTurns() []Turn {
	turns := make([]Turn, 0, len(s.baseTurns)+len(s.timeline.Items)+1)
	turns = append(turns, s.baseTurns...)

	if len(s.sources) > 0 {
		turns = append(turns, SystemTurn(sourcesContext(s.sources)))
	}

	var assistant *Turn
	flush := func() {
		if assistant != nil {
			turns = append(turns, *assistant)
			assistant = nil
		}
	}
	ensure := func() *Turn {
		if assistant == nil {
			assistant = &Turn{Role: "assistant"}
		}
		return assistant
	}

	for _, item := range s.timeline.Items {
		switch v := item.(type) {
		case *timeline.Message:
			ensure().Content += v.Text()
		case *timeline.Reasoning:
			// Hidden reasoning is not replayed to the model.
		case *timeline.FunctionCall:
			t := ensure()
			t.ToolCalls = append(t.ToolCalls, ToolCallSpec{
				ID:        v.CallID,
				Name:      v.Name,
				Arguments: v.Arguments,
			})
		case *timeline.FunctionCallOutput:
			flush()
			turns = append(turns, Turn{
				Role:       "tool",
				Content:    v.Text(),
				ToolCallID: v.CallID,
			})
		case *timeline.CodeInterpreter:
			t := ensure()
			t.Content += fmt.Sprintf("\n```%s\n%s\n```\n", v.Lang, v.Code)
			if v.Output != "" {
				flush()
				turns = append(turns, SystemTurn("Code execution output:\n"+v.Output))
			}
		}
	}
	flush()
	return turns
}

func sourcesContext(sources []Source) string {
	text := "Use the following sources when answering:\n"
	for i, src := range sources {
		text += fmt.Sprintf("[%d] %s", i+1, src.Name)
		if src.URL != "" {
			text += " <" + src.URL + ">"
		}
		if src.Snippet != "" {
			text += "\n" + src.Snippet
		}
		text += "\n"
	}
	return text
}
