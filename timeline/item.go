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
	"time"
)

// Status reports whether an item is still receiving stream content.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Item is one entry of the output timeline of an assistant turn.
// The concrete types are Message, Reasoning, FunctionCall,
// FunctionCallOutput and CodeInterpreter.
type Item interface {
	isItem()

	// ItemType returns the wire discriminator, e.g. "message".
	ItemType() string

	// ItemStatus returns the current status.
	ItemStatus() Status

	// Complete marks the item completed. The accumulated text is kept
	// exactly as received; forced closure at stream end trims trailing
	// whitespace via Timeline.ForceClose.
	Complete()

	// Empty reports whether the item carries no content worth keeping.
	// Empty items are dropped at finalization instead of being persisted
	// as dangling bubbles.
	Empty() bool
}

// ContentPart is a single part of a message or tool output.
// Only text parts exist today.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextPart returns an output_text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "output_text", Text: text}
}

// FileRef points at an externalized binary payload, such as an uploaded
// image. The timeline never stores binary data inline.
type FileRef struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}

// Embed is an out-of-band UI fragment attached to a tool output. Embeds
// are shown to the user but are not part of the text fed back to the model.
type Embed struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Message is a plain assistant message. A message opened by a tag
// convention records the literal tags it was bracketed with.
type Message struct {
	Role       string            `json:"role"`
	Parts      []ContentPart     `json:"parts"`
	StartTag   string            `json:"start_tag,omitempty"`
	EndTag     string            `json:"end_tag,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Status     Status            `json:"status"`
}

// NewAssistantMessage returns an empty in-progress assistant message.
func NewAssistantMessage() *Message {
	return &Message{Role: "assistant", Status: StatusInProgress}
}

func (m *Message) isItem()            {}
func (m *Message) ItemType() string   { return "message" }
func (m *Message) ItemStatus() Status { return m.Status }

// Text returns the concatenation of all text parts.
func (m *Message) Text() string {
	var s string
	for _, p := range m.Parts {
		s += p.Text
	}
	return s
}

// AppendText appends a text delta to the last text part, creating one
// if the message has no parts yet.
func (m *Message) AppendText(delta string) {
	if n := len(m.Parts); n > 0 && m.Parts[n-1].Type == "output_text" {
		m.Parts[n-1].Text += delta
		return
	}
	m.Parts = append(m.Parts, TextPart(delta))
}

// SetText replaces the message content with a single text part.
func (m *Message) SetText(text string) {
	m.Parts = []ContentPart{TextPart(text)}
}

func (m *Message) Complete() { m.Status = StatusCompleted }

func (m *Message) Empty() bool { return m.Text() == "" }

// Reasoning is a hidden chain-of-thought block. It is opened either by a
// tag convention (StartTag/EndTag recorded) or by reasoning deltas from
// the wire, in which case Attributes marks the provenance so the two
// mechanisms never merge into one item.
type Reasoning struct {
	Text       string            `json:"text"`
	Summary    []string          `json:"summary,omitempty"`
	StartTag   string            `json:"start_tag,omitempty"`
	EndTag     string            `json:"end_tag,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	StartedAt  time.Time         `json:"started_at,omitzero"`
	EndedAt    time.Time         `json:"ended_at,omitzero"`
	Status     Status            `json:"status"`
}

func (r *Reasoning) isItem()            {}
func (r *Reasoning) ItemType() string   { return "reasoning" }
func (r *Reasoning) ItemStatus() Status { return r.Status }

func (r *Reasoning) Complete() {
	r.Status = StatusCompleted
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now()
	}
}

func (r *Reasoning) Empty() bool { return r.Text == "" && len(r.Summary) == 0 }

// Duration returns how long the reasoning block stayed open, or zero if
// the timestamps were never recorded.
func (r *Reasoning) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// FunctionCall is a model request to invoke a named tool. Arguments hold
// the serialized parameter object; by the time the call is executed they
// are guaranteed to be canonical JSON.
type FunctionCall struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Status    Status `json:"status"`
}

func (c *FunctionCall) isItem()            {}
func (c *FunctionCall) ItemType() string   { return "function_call" }
func (c *FunctionCall) ItemStatus() Status { return c.Status }
func (c *FunctionCall) Complete()          { c.Status = StatusCompleted }
func (c *FunctionCall) Empty() bool        { return c.Name == "" }

// FunctionCallOutput is the result of exactly one FunctionCall, matched
// by CallID.
type FunctionCallOutput struct {
	CallID string        `json:"call_id"`
	Output []ContentPart `json:"output"`
	Files  []FileRef     `json:"files,omitempty"`
	Embeds []Embed       `json:"embeds,omitempty"`
	Status Status        `json:"status"`
}

func (o *FunctionCallOutput) isItem()            {}
func (o *FunctionCallOutput) ItemType() string   { return "function_call_output" }
func (o *FunctionCallOutput) ItemStatus() Status { return o.Status }
func (o *FunctionCallOutput) Complete()          { o.Status = StatusCompleted }

func (o *FunctionCallOutput) Empty() bool {
	// An output that answers a call is content even with no text: it is
	// what pairs the call.
	return o.CallID == "" && o.Text() == "" && len(o.Files) == 0 && len(o.Embeds) == 0
}

// Text returns the concatenation of the output text parts.
func (o *FunctionCallOutput) Text() string {
	var s string
	for _, p := range o.Output {
		s += p.Text
	}
	return s
}

// CodeInterpreter is an implicit "run code" block. Code accumulates while
// the tag is open; Output is filled in once the code has been executed.
type CodeInterpreter struct {
	Lang       string            `json:"lang,omitempty"`
	Code       string            `json:"code"`
	Output     string            `json:"output,omitempty"`
	StartTag   string            `json:"start_tag,omitempty"`
	EndTag     string            `json:"end_tag,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Status     Status            `json:"status"`
}

func (c *CodeInterpreter) isItem()            {}
func (c *CodeInterpreter) ItemType() string   { return "code_interpreter" }
func (c *CodeInterpreter) ItemStatus() Status { return c.Status }

func (c *CodeInterpreter) Complete() { c.Status = StatusCompleted }

func (c *CodeInterpreter) Empty() bool { return c.Code == "" && c.Output == "" }

func trimTrailingSpace(s string) string {
	i := len(s)
	for i > 0 {
		switch s[i-1] {
		case ' ', '\t', '\n', '\r':
			i--
		default:
			return s[:i]
		}
	}
	return s[:i]
}
