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

// Package enginetesting provides fakes for testing code built on the
// engine: a scripted model, an in-memory store, a scripted code backend
// and an event collector.
package enginetesting

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"github.com/openconvo/convoengine/codeexec"
	"github.com/openconvo/convoengine/engine"
	"github.com/openconvo/convoengine/store"
)

// FakeModel is a ModelClient that replays scripted stream lines, one
// batch per model invocation. It records every request it receives.
type FakeModel struct {
	mu       sync.Mutex
	streams  [][]string
	requests []engine.Request

	// StreamError, when set, is yielded after the lines of the next
	// stream instead of a clean end.
	StreamError error
}

func NewFakeModel() *FakeModel { return &FakeModel{} }

// AddStream scripts the lines of one model invocation. Invocations are
// consumed in the order they were added.
func (m *FakeModel) AddStream(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, lines)
}

// AddChatDeltas scripts one invocation out of plain chat content deltas,
// terminated by the stream terminator.
func (m *FakeModel) AddChatDeltas(deltas ...string) {
	lines := make([]string, 0, len(deltas)+1)
	for _, d := range deltas {
		lines = append(lines, ChatContentLine(d))
	}
	lines = append(lines, "[DONE]")
	m.AddStream(lines...)
}

// Requests returns the requests received so far.
func (m *FakeModel) Requests() []engine.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.Request(nil), m.requests...)
}

func (m *FakeModel) StreamCompletion(ctx context.Context, req engine.Request) (iter.Seq2[[]byte, error], error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	if len(m.streams) == 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("fake model has no scripted stream left")
	}
	lines := m.streams[0]
	m.streams = m.streams[1:]
	streamErr := m.StreamError
	m.StreamError = nil
	m.mu.Unlock()

	return func(yield func([]byte, error) bool) {
		for _, line := range lines {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			if !yield([]byte(line), nil) {
				return
			}
		}
		if streamErr != nil {
			yield(nil, streamErr)
		}
	}, nil
}

// ChatContentLine builds a chat-delta line carrying a content fragment.
func ChatContentLine(delta string) string {
	return chatLine(map[string]any{"content": delta})
}

// ChatReasoningLine builds a chat-delta line carrying a
// reasoning_content fragment.
func ChatReasoningLine(delta string) string {
	return chatLine(map[string]any{"reasoning_content": delta})
}

// ChatToolCallLine builds a chat-delta line carrying one tool-call
// fragment at the given index.
func ChatToolCallLine(index int64, id, name, arguments string) string {
	return chatLine(map[string]any{
		"tool_calls": []map[string]any{{
			"index": index,
			"id":    id,
			"type":  "function",
			"function": map[string]any{
				"name":      name,
				"arguments": arguments,
			},
		}},
	})
}

// ChatUsageLine builds a chat-delta line carrying only usage counters.
func ChatUsageLine(prompt, completion int64) string {
	b, _ := json.Marshal(map[string]any{
		"object":  "chat.completion.chunk",
		"choices": []any{},
		"usage": map[string]any{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
			"total_tokens":      prompt + completion,
		},
	})
	return string(b)
}

func chatLine(delta map[string]any) string {
	b, _ := json.Marshal(map[string]any{
		"object": "chat.completion.chunk",
		"choices": []map[string]any{{
			"index": 0,
			"delta": delta,
		}},
	})
	return string(b)
}

// ResponseLine builds a structured event line from its fields.
func ResponseLine(fields map[string]any) string {
	b, _ := json.Marshal(fields)
	return string(b)
}

// MemoryStore is an in-memory Store recording every write.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*store.MessageState
	writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*store.MessageState)}
}

func (s *MemoryStore) Upsert(ctx context.Context, chatID, messageID string, state *store.MessageState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID+"/"+messageID] = state
	s.writes++
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, chatID, messageID string) (*store.MessageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[chatID+"/"+messageID], nil
}

// Writes returns how many upserts were performed.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// FakeBackend is a code-execution backend replaying scripted results.
type FakeBackend struct {
	mu sync.Mutex

	// Executed records every (lang, code) pair in order.
	Executed []string

	// Results are consumed one per execution; when exhausted the
	// backend returns empty output.
	Results []FakeExecution
}

type FakeExecution struct {
	Stdout string
	Result string
	Err    error
}

func (b *FakeBackend) Execute(ctx context.Context, lang, code string) (*codeexec.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Executed = append(b.Executed, lang+"\n"+code)
	if len(b.Results) == 0 {
		return &codeexec.Result{}, nil
	}
	r := b.Results[0]
	b.Results = b.Results[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return &codeexec.Result{Stdout: r.Stdout, Result: r.Result}, nil
}

// EventCollector is an EmitFunc recording every event in order.
type EventCollector struct {
	mu     sync.Mutex
	events []engine.Event
}

func (c *EventCollector) Emit(ev engine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns the events collected so far.
func (c *EventCollector) Events() []engine.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]engine.Event(nil), c.events...)
}

// ContentEvents returns only the coalesced content updates, in order.
func (c *EventCollector) ContentEvents() []string {
	var out []string
	for _, ev := range c.Events() {
		if ce, ok := ev.(engine.ContentEvent); ok {
			out = append(out, ce.Content)
		}
	}
	return out
}
