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

package timeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendClosesActiveItem(t *testing.T) {
	tl := New()

	first := NewAssistantMessage()
	first.AppendText("hello")
	tl.Append(first)
	assert.Equal(t, StatusInProgress, first.Status)

	second := &Reasoning{Text: "hm", Status: StatusInProgress}
	tl.Append(second)

	assert.Equal(t, StatusCompleted, first.Status)
	assert.Same(t, second, tl.Active())

	// At most one item may be in progress, whatever was appended.
	inProgress := 0
	for _, item := range tl.Items {
		if item.ItemStatus() == StatusInProgress {
			inProgress++
		}
	}
	assert.Equal(t, 1, inProgress)
}

func TestCloseActiveKeepsTextExact(t *testing.T) {
	tl := New()
	msg := NewAssistantMessage()
	msg.AppendText("done  ")
	tl.Append(msg)

	tl.CloseActive()
	assert.Equal(t, StatusCompleted, msg.Status)
	assert.Equal(t, "done  ", msg.Text())
	assert.Nil(t, tl.Active())

	// Idempotent.
	tl.CloseActive()
	assert.Equal(t, StatusCompleted, msg.Status)
}

func TestForceCloseTrimsTrailingWhitespace(t *testing.T) {
	tl := New()
	msg := NewAssistantMessage()
	msg.AppendText("cut off \n")
	tl.Append(msg)

	tl.ForceClose()
	assert.Equal(t, StatusCompleted, msg.Status)
	assert.Equal(t, "cut off", msg.Text())

	tl.Append(&Reasoning{Text: "half a thought\t", Status: StatusInProgress})
	tl.ForceClose()
	assert.Equal(t, "half a thought", tl.Items[1].(*Reasoning).Text)
}

func TestActiveMessageSkipsTagFlagged(t *testing.T) {
	tl := New()
	flagged := NewAssistantMessage()
	flagged.StartTag = "<solution>"
	tl.Append(flagged)

	assert.Nil(t, tl.ActiveMessage())

	plain := NewAssistantMessage()
	tl.Append(plain)
	assert.Same(t, plain, tl.ActiveMessage())
}

func TestFinalizeDropsEmptyItems(t *testing.T) {
	tl := New()
	tl.Append(NewAssistantMessage())

	msg := NewAssistantMessage()
	msg.AppendText("content")
	tl.Append(msg)

	tl.Append(&Reasoning{Status: StatusInProgress})
	tl.Finalize()

	require.Len(t, tl.Items, 1)
	assert.Same(t, msg, tl.Items[0])
	assert.Equal(t, StatusCompleted, msg.Status)
}

func TestPendingCalls(t *testing.T) {
	tl := New()
	tl.Append(&FunctionCall{CallID: "c1", Name: "get_weather", Status: StatusCompleted})
	tl.Append(&FunctionCall{CallID: "c2", Name: "search", Status: StatusCompleted})
	tl.Append(&FunctionCallOutput{CallID: "c1", Output: []ContentPart{TextPart("sunny")}, Status: StatusCompleted})

	pending := tl.PendingCalls()
	require.Len(t, pending, 1)
	assert.Equal(t, "c2", pending[0].CallID)
}

func TestSnapshotIsDeep(t *testing.T) {
	tl := New()
	msg := NewAssistantMessage()
	msg.AppendText("before")
	tl.Append(msg)

	snap := tl.Snapshot()
	msg.AppendText(" after")

	require.Len(t, snap.Items, 1)
	assert.Equal(t, "before", snap.Items[0].(*Message).Text())
}

func TestReasoningDuration(t *testing.T) {
	start := time.Now()
	r := &Reasoning{Text: "x", StartedAt: start, EndedAt: start.Add(3 * time.Second)}
	assert.Equal(t, 3*time.Second, r.Duration())

	assert.Zero(t, (&Reasoning{Text: "x"}).Duration())
}

func TestSerializeMessageAndReasoning(t *testing.T) {
	tl := New()
	msg := NewAssistantMessage()
	msg.AppendText("Hello ")
	tl.Append(msg)

	start := time.Now()
	tl.Append(&Reasoning{
		Text:      "line one\nline two",
		StartedAt: start,
		EndedAt:   start.Add(2 * time.Second),
		Status:    StatusCompleted,
	})

	out := tl.Serialize()
	assert.Contains(t, out, "Hello ")
	assert.Contains(t, out, `<details type="reasoning" done="true" duration="2">`)
	assert.Contains(t, out, "Thought for 2 seconds")
	assert.Contains(t, out, "> line one\n> line two")
}

func TestSerializeInProgressReasoning(t *testing.T) {
	tl := New()
	tl.Append(&Reasoning{Text: "so far", Status: StatusInProgress})

	out := tl.Serialize()
	assert.Contains(t, out, `done="false"`)
	assert.Contains(t, out, "Thinking…")
	assert.Contains(t, out, "> so far")
}

func TestSerializeToolCallWithOutput(t *testing.T) {
	tl := New()
	tl.Append(&FunctionCall{CallID: "c1", Name: "get_weather", Arguments: `{"city":"Paris"}`, Status: StatusCompleted})
	tl.Append(&FunctionCallOutput{CallID: "c1", Output: []ContentPart{TextPart("18°C")}, Status: StatusCompleted})

	out := tl.Serialize()
	assert.Contains(t, out, `type="tool_calls" done="true"`)
	assert.Contains(t, out, `name="get_weather"`)
	assert.Contains(t, out, `result="18°C"`)
}

func TestSerializeInProgressToolOutput(t *testing.T) {
	tl := New()
	tl.Append(&FunctionCall{CallID: "c1", Name: "search", Arguments: `{"q":"tides"}`, Status: StatusCompleted})
	tl.Append(&FunctionCallOutput{CallID: "c1", Status: StatusInProgress})

	out := tl.Serialize()
	assert.Contains(t, out, `type="tool_calls" done="false"`)
	assert.Contains(t, out, "Executing search…")
}

func TestFinalizeKeepsEmptyToolOutput(t *testing.T) {
	tl := New()
	tl.Append(&FunctionCall{CallID: "c1", Name: "noop", Status: StatusCompleted})
	tl.Append(&FunctionCallOutput{CallID: "c1", Status: StatusCompleted})

	// A resultless output still pairs its call and must survive.
	tl.Finalize()
	require.Len(t, tl.Items, 2)
}

func TestSerializeCodeInterpreter(t *testing.T) {
	tl := New()
	tl.Append(&CodeInterpreter{Code: "print(1)", Output: "1", Status: StatusCompleted})

	out := tl.Serialize()
	assert.Contains(t, out, `type="code_interpreter" done="true"`)
	assert.Contains(t, out, "```python\nprint(1)\n```")
	assert.Contains(t, out, "> 1")
}

func TestSerializeToleratesSparseItems(t *testing.T) {
	tl := New()
	tl.Append(&Message{})
	tl.Append(&Reasoning{})
	tl.Append(&FunctionCall{})
	tl.Append(&FunctionCallOutput{})
	tl.Append(&CodeInterpreter{})

	assert.NotPanics(t, func() { tl.Serialize() })
}

func TestJSONRoundTrip(t *testing.T) {
	tl := New()
	msg := NewAssistantMessage()
	msg.AppendText("hi")
	tl.Append(msg)
	tl.Append(&Reasoning{Text: "why", StartTag: "<think>", EndTag: "</think>", Status: StatusCompleted})
	tl.Append(&FunctionCall{CallID: "c1", Name: "f", Arguments: "{}", Status: StatusCompleted})
	tl.Append(&FunctionCallOutput{CallID: "c1", Output: []ContentPart{TextPart("ok")}, Status: StatusCompleted})
	tl.Append(&CodeInterpreter{Lang: "python", Code: "1+1", Output: "2", Status: StatusCompleted})
	tl.CloseActive()

	data, err := json.Marshal(tl)
	require.NoError(t, err)

	var restored Timeline
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Len(t, restored.Items, 5)

	assert.Equal(t, "hi", restored.Items[0].(*Message).Text())
	assert.Equal(t, "<think>", restored.Items[1].(*Reasoning).StartTag)
	assert.Equal(t, "c1", restored.Items[2].(*FunctionCall).CallID)
	assert.Equal(t, "ok", restored.Items[3].(*FunctionCallOutput).Text())
	assert.Equal(t, "2", restored.Items[4].(*CodeInterpreter).Output)
}
