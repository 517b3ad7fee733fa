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

package tagparse

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openconvo/convoengine/timeline"
)

func feed(t *timeline.Timeline, d *Detector, chunks ...string) {
	for _, chunk := range chunks {
		msg := t.ActiveMessage()
		if msg == nil {
			switch active := t.Active().(type) {
			case *timeline.Reasoning:
				active.Text += chunk
			case *timeline.CodeInterpreter:
				active.Code += chunk
			case *timeline.Message:
				active.AppendText(chunk)
			default:
				msg = timeline.NewAssistantMessage()
				msg.AppendText(chunk)
				t.Append(msg)
			}
		} else {
			msg.AppendText(chunk)
		}
		d.Process(t)
	}
}

func TestReasoningTagSplitsMessage(t *testing.T) {
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(ReasoningConvention())

	feed(tl, d, "Hello <think>because</think> world")

	require.Len(t, tl.Items, 3)
	assert.Equal(t, "Hello ", tl.Items[0].(*timeline.Message).Text())

	r := tl.Items[1].(*timeline.Reasoning)
	assert.Equal(t, "because", r.Text)
	assert.Equal(t, "<think>", r.StartTag)
	assert.Equal(t, "</think>", r.EndTag)
	assert.Equal(t, timeline.StatusCompleted, r.Status)
	assert.False(t, r.StartedAt.IsZero())

	assert.Equal(t, " world", tl.Items[2].(*timeline.Message).Text())
}

func TestChunkingInvariance(t *testing.T) {
	const text = "Hello <think>because</think> world"

	canonical := func() []timeline.Item {
		tl := timeline.New()
		tl.Append(timeline.NewAssistantMessage())
		feed(tl, NewDetector(ReasoningConvention()), text)
		return tl.Items
	}()

	for split := 1; split < len(text); split++ {
		t.Run(fmt.Sprintf("split_at_%d", split), func(t *testing.T) {
			tl := timeline.New()
			tl.Append(timeline.NewAssistantMessage())
			feed(tl, NewDetector(ReasoningConvention()), text[:split], text[split:])

			require.Len(t, tl.Items, len(canonical))
			for i := range canonical {
				assert.Equal(t, canonical[i].ItemType(), tl.Items[i].ItemType())
			}
			assert.Equal(t, "Hello ", tl.Items[0].(*timeline.Message).Text())
			assert.Equal(t, "because", tl.Items[1].(*timeline.Reasoning).Text)
			assert.Equal(t, " world", tl.Items[2].(*timeline.Message).Text())
		})
	}
}

func TestByteByByteFeed(t *testing.T) {
	const text = "a<thinking>b</thinking>c"
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(ReasoningConvention())

	for _, r := range text {
		feed(tl, d, string(r))
	}

	require.Len(t, tl.Items, 3)
	assert.Equal(t, "a", tl.Items[0].(*timeline.Message).Text())
	assert.Equal(t, "b", tl.Items[1].(*timeline.Reasoning).Text)
	assert.Equal(t, "c", tl.Items[2].(*timeline.Message).Text())
}

func TestCodeInterpreterAttributes(t *testing.T) {
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(CodeInterpreterConvention())

	feed(tl, d, `run this <code_interpreter type="code" lang="python">print(1)</code_interpreter> done`)

	require.Len(t, tl.Items, 3)
	ci := tl.Items[1].(*timeline.CodeInterpreter)
	assert.Equal(t, "python", ci.Lang)
	assert.Equal(t, "print(1)", ci.Code)
	assert.Equal(t, "code", ci.Attributes["type"])
	assert.Equal(t, timeline.StatusCompleted, ci.Status)
}

func TestBackToBackTags(t *testing.T) {
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(ReasoningConvention(), SolutionConvention())

	feed(tl, d, "<think>a</think><solution>b</solution>")

	var kinds []string
	for _, item := range tl.Items {
		if item.Empty() {
			continue
		}
		kinds = append(kinds, item.ItemType())
	}
	require.Equal(t, []string{"reasoning", "message"}, kinds)

	sol := tl.Items[len(tl.Items)-2].(*timeline.Message)
	assert.Equal(t, "<solution>", sol.StartTag)
	assert.Equal(t, "b", sol.Text())
}

func TestUnterminatedTagWaitsForMoreText(t *testing.T) {
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(ReasoningConvention())

	feed(tl, d, "before <thi")
	require.Len(t, tl.Items, 1)
	assert.Equal(t, "before <thi", tl.Items[0].(*timeline.Message).Text())

	feed(tl, d, "nk>hidden")
	require.Len(t, tl.Items, 2)
	assert.Equal(t, "before ", tl.Items[0].(*timeline.Message).Text())
	assert.Equal(t, "hidden", tl.Items[1].(*timeline.Reasoning).Text)
}

func TestEndTagNeverArrives(t *testing.T) {
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(ReasoningConvention())

	feed(tl, d, "<think>still going")

	r := tl.Items[len(tl.Items)-1].(*timeline.Reasoning)
	assert.Equal(t, timeline.StatusInProgress, r.Status)
	assert.Empty(t, r.EndTag)

	// The stream-end path completes it without a closing tag.
	tl.ForceClose()
	assert.Equal(t, timeline.StatusCompleted, r.Status)
}

func TestShorterNameIsNotFooledByLongerTag(t *testing.T) {
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(ReasoningConvention())

	feed(tl, d, "<thinking>deep</thinking>after")

	require.GreaterOrEqual(t, len(tl.Items), 2)
	r := tl.Items[1].(*timeline.Reasoning)
	assert.Equal(t, "<thinking>", r.StartTag)
	assert.Equal(t, "deep", r.Text)
}

func TestEarliestTagWins(t *testing.T) {
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(ReasoningConvention(), SolutionConvention())

	feed(tl, d, "<solution>x</solution> then <think>y</think>")

	assert.Equal(t, "message", tl.Items[1].ItemType())
	assert.Equal(t, "<solution>", tl.Items[1].(*timeline.Message).StartTag)
}

func TestProcessIdempotentWithoutNewText(t *testing.T) {
	tl := timeline.New()
	tl.Append(timeline.NewAssistantMessage())
	d := NewDetector(ReasoningConvention())

	feed(tl, d, "plain text, no tags")
	n := len(tl.Items)

	assert.False(t, d.Process(tl))
	assert.Len(t, tl.Items, n)
}

func TestDeltaReasoningIsLeftAlone(t *testing.T) {
	tl := timeline.New()
	tl.Append(&timeline.Reasoning{Text: "<think>not a tag here", Status: timeline.StatusInProgress})
	d := NewDetector(ReasoningConvention())

	assert.False(t, d.Process(tl))
	assert.Len(t, tl.Items, 1)
}

func TestParseAttributes(t *testing.T) {
	attrs := parseAttributes(` type="code" lang="python" empty=""`)
	assert.Equal(t, map[string]string{"type": "code", "lang": "python", "empty": ""}, attrs)

	assert.Nil(t, parseAttributes("no attributes"))
}
