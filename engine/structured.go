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
	"encoding/json"
	"time"

	"github.com/openconvo/convoengine/timeline"
	"github.com/openconvo/convoengine/usage"
)

// responseEvent is the envelope of one structured stream event. Only the
// fields an event type actually uses are populated.
type responseEvent struct {
	Type        string          `json:"type"`
	OutputIndex int64           `json:"output_index"`
	ItemID      string          `json:"item_id"`
	Delta       json.RawMessage `json:"delta"`
	Item        *responseItem   `json:"item"`
	Part        *responsePart   `json:"part"`
	Response    *responseBody   `json:"response"`
}

type responseItem struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments string         `json:"arguments"`
	Status    string         `json:"status"`
	Content   []responsePart `json:"content"`
	Summary   []responsePart `json:"summary"`
}

type responsePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseBody struct {
	Usage *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
		TotalTokens  int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const reasoningProvenanceStructured = "structured"

// reduceResponseEvent folds one structured ("response.*") event into the
// session. Unknown event types are ignored so newer upstream event kinds
// degrade to no-ops instead of failures.
func (d *Driver) reduceResponseEvent(ctx context.Context, s *session, em *emitter, line []byte) (bool, error) {
	var ev responseEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		Logger().Debug("skipping undecodable response event", "error", err)
		return false, nil
	}

	switch ev.Type {
	case "response.created", "response.in_progress", "response.content_part.added":
		// Lifecycle markers carry no timeline content.

	case "response.output_item.added":
		d.openOutputItem(s, ev)

	case "response.output_text.delta", "response.refusal.delta":
		d.appendContent(ctx, s, em, deltaText(ev.Delta))

	case "response.reasoning_text.delta":
		d.appendStructuredReasoning(s, em, deltaText(ev.Delta), false)

	case "response.reasoning_summary_text.delta":
		d.appendStructuredReasoning(s, em, deltaText(ev.Delta), true)

	case "response.function_call_arguments.delta":
		d.appendArgumentsDelta(s, ev)

	case "response.content_part.done":
		// The snapshot text supersedes whatever the merged deltas
		// produced for this part.
		if ev.Part != nil && ev.Part.Text != "" {
			if msg, ok := s.timeline.Active().(*timeline.Message); ok {
				msg.SetText(ev.Part.Text)
				em.TextChanged()
			}
		}

	case "response.output_item.done":
		d.closeOutputItem(s, em, ev)

	case "response.completed":
		if ev.Response != nil && ev.Response.Usage != nil {
			s.streamUsage = &usage.Usage{
				Requests:         1,
				PromptTokens:     uint64(ev.Response.Usage.InputTokens),
				CompletionTokens: uint64(ev.Response.Usage.OutputTokens),
				TotalTokens:      uint64(ev.Response.Usage.TotalTokens),
			}
		}
		return true, nil

	case "response.failed", "response.incomplete":
		msg := "upstream reported a failed response"
		if ev.Response != nil && ev.Response.Error != nil && ev.Response.Error.Message != "" {
			msg = ev.Response.Error.Message
		}
		return true, ModelBehaviorErrorf("%s", msg)

	default:
		Logger().Debug("ignoring stream event", "type", ev.Type)
	}
	return false, nil
}

// openOutputItem starts the timeline item announced by an
// output_item.added event.
func (d *Driver) openOutputItem(s *session, ev responseEvent) {
	if ev.Item == nil {
		return
	}
	switch ev.Item.Type {
	case "message":
		if _, ok := s.timeline.Active().(*timeline.Message); !ok {
			s.timeline.Append(timeline.NewAssistantMessage())
		}
	case "reasoning":
		s.timeline.Append(&timeline.Reasoning{
			Attributes: map[string]string{reasoningProvenanceKey: reasoningProvenanceStructured},
			StartedAt:  time.Now(),
			Status:     timeline.StatusInProgress,
		})
	case "function_call":
		s.accumulateToolCall(ev.OutputIndex, ev.Item.CallID, ev.Item.Name, ev.Item.Arguments)
	}
}

// closeOutputItem applies the final snapshot of an output_item.done
// event. The snapshot wins over whatever delta merging accumulated.
func (d *Driver) closeOutputItem(s *session, em *emitter, ev responseEvent) {
	if ev.Item == nil {
		return
	}
	switch ev.Item.Type {
	case "message":
		if msg, ok := s.timeline.Active().(*timeline.Message); ok {
			if text := joinParts(ev.Item.Content); text != "" {
				msg.SetText(text)
			}
			s.timeline.CloseActive()
			em.TextChanged()
		}
	case "reasoning":
		if r, ok := s.timeline.Active().(*timeline.Reasoning); ok {
			if text := joinParts(ev.Item.Content); text != "" {
				r.Text = text
			}
			for _, p := range ev.Item.Summary {
				if p.Text != "" {
					r.Summary = append(r.Summary, p.Text)
				}
			}
			s.timeline.CloseActive()
			em.TextChanged()
		}
	case "function_call":
		call, ok := s.pendingCalls[ev.OutputIndex]
		if !ok {
			s.accumulateToolCall(ev.OutputIndex, ev.Item.CallID, ev.Item.Name, ev.Item.Arguments)
			return
		}
		if ev.Item.CallID != "" {
			call.ID = ev.Item.CallID
		}
		if ev.Item.Name != "" {
			call.Name = ev.Item.Name
		}
		if ev.Item.Arguments != "" {
			call.Arguments = ev.Item.Arguments
			call.argsObject = nil
		}
	}
}

// appendStructuredReasoning routes a reasoning delta to the text or the
// summary of the active structured reasoning item.
func (d *Driver) appendStructuredReasoning(s *session, em *emitter, delta string, summary bool) {
	if delta == "" {
		return
	}
	r, ok := s.timeline.Active().(*timeline.Reasoning)
	if !ok || r.Attributes[reasoningProvenanceKey] != reasoningProvenanceStructured {
		r = &timeline.Reasoning{
			Attributes: map[string]string{reasoningProvenanceKey: reasoningProvenanceStructured},
			StartedAt:  time.Now(),
			Status:     timeline.StatusInProgress,
		}
		s.timeline.Append(r)
	}
	if summary {
		if len(r.Summary) == 0 {
			r.Summary = append(r.Summary, "")
		}
		r.Summary[len(r.Summary)-1] += delta
	} else {
		r.Text += delta
	}
	em.TextChanged()
}

// appendArgumentsDelta merges a function-call arguments delta. String
// deltas concatenate; object deltas deep-merge into a partial object.
func (d *Driver) appendArgumentsDelta(s *session, ev responseEvent) {
	call, ok := s.pendingCalls[ev.OutputIndex]
	if !ok {
		s.accumulateToolCall(ev.OutputIndex, "", "", "")
		call = s.pendingCalls[ev.OutputIndex]
	}

	var fragment string
	if err := json.Unmarshal(ev.Delta, &fragment); err == nil {
		call.Arguments += fragment
		return
	}
	var partial map[string]any
	if err := json.Unmarshal(ev.Delta, &partial); err == nil {
		call.argsObject = deepMerge(call.argsObject, partial)
		return
	}
	Logger().Debug("dropping unmergeable arguments delta", "output_index", ev.OutputIndex)
}

// deltaText decodes a delta payload that is expected to be a JSON string.
// A raw unquoted payload is taken verbatim.
func deltaText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func joinParts(parts []responsePart) string {
	var s string
	for _, p := range parts {
		s += p.Text
	}
	return s
}
