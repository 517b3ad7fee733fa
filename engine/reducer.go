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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/openconvo/convoengine/timeline"
)

// streamTerminator ends the read loop without error.
const streamTerminator = "[DONE]"

// reduceLine folds one raw stream line into the session. Both wire
// conventions converge on the same timeline mutations, so everything
// downstream of the reducer is convention-agnostic. Malformed lines are
// skipped; the returned flag reports that the stream is finished.
func (d *Driver) reduceLine(ctx context.Context, s *session, em *emitter, line []byte) (bool, error) {
	line = bytes.TrimSpace(line)
	line = bytes.TrimPrefix(line, []byte("data:"))
	line = bytes.TrimSpace(line)

	if len(line) == 0 || line[0] == ':' {
		// Blank or heartbeat line.
		return false, nil
	}
	if string(line) == streamTerminator {
		return true, nil
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		Logger().Debug("skipping malformed stream line", "error", err)
		return false, nil
	}

	if strings.HasPrefix(probe.Type, "response.") {
		return d.reduceResponseEvent(ctx, s, em, line)
	}
	return false, d.reduceChatChunk(ctx, s, em, line)
}

// appendContent appends a text delta to the active item, then re-scans
// the accumulated text for inline images and tag conventions. Both
// scans run over the cumulative text so payloads split across chunk
// boundaries are caught.
func (d *Driver) appendContent(ctx context.Context, s *session, em *emitter, delta string) {
	if delta == "" {
		return
	}

	switch active := s.timeline.Active().(type) {
	case *timeline.Message:
		active.AppendText(delta)
	case *timeline.Reasoning:
		if active.StartTag == "" {
			// Delta-based reasoning is over once content starts.
			s.timeline.CloseActive()
			msg := timeline.NewAssistantMessage()
			msg.AppendText(delta)
			s.timeline.Append(msg)
		} else {
			active.Text += delta
		}
	case *timeline.CodeInterpreter:
		active.Code += delta
	default:
		msg := timeline.NewAssistantMessage()
		msg.AppendText(delta)
		s.timeline.Append(msg)
	}

	d.externalizeActive(ctx, s, false)
	d.detector.Process(s.timeline)
	em.TextChanged()
}

// reasoningProvenanceKey marks reasoning items opened by wire deltas, so
// they never merge with tag-delimited reasoning.
const (
	reasoningProvenanceKey   = "provenance"
	reasoningProvenanceDelta = "reasoning_content"
)

// appendReasoningDelta extends the active delta-based reasoning item,
// opening one if needed.
func (d *Driver) appendReasoningDelta(s *session, em *emitter, delta string) {
	if delta == "" {
		return
	}
	if r, ok := s.timeline.Active().(*timeline.Reasoning); ok && r.Attributes[reasoningProvenanceKey] == reasoningProvenanceDelta {
		r.Text += delta
	} else {
		s.timeline.Append(&timeline.Reasoning{
			Text:       delta,
			Attributes: map[string]string{reasoningProvenanceKey: reasoningProvenanceDelta},
			StartedAt:  time.Now(),
			Status:     timeline.StatusInProgress,
		})
	}
	em.TextChanged()
}

// deepMerge merges src into dst recursively. Non-map values in src win.
// Used for the structural merge of non-string delta payloads.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				dst[key] = deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}
