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

	"github.com/openconvo/convoengine/timeline"
	"github.com/openconvo/convoengine/usage"
)

// Event is one update delivered to the live client. Delivery order
// matches processing order; text updates may be coalesced but never
// reordered or dropped.
type Event interface {
	isEvent()
}

// ContentEvent carries the full serialized display text after a change.
// Consecutive small text deltas coalesce into one ContentEvent.
type ContentEvent struct {
	Content string
}

func (ContentEvent) isEvent() {}

// ToolCallEvent reports a tool-call status change. Never coalesced.
type ToolCallEvent struct {
	CallID string
	Name   string
	Status timeline.Status
}

func (ToolCallEvent) isEvent() {}

// FilesEvent reports files attached to the turn so far. Never coalesced.
type FilesEvent struct {
	Files []timeline.FileRef
}

func (FilesEvent) isEvent() {}

// EmbedsEvent delivers out-of-band UI fragments from tool results.
type EmbedsEvent struct {
	Embeds []timeline.Embed
}

func (EmbedsEvent) isEvent() {}

// SourcesEvent reports the citation sources collected so far.
type SourcesEvent struct {
	Sources []Source
}

func (SourcesEvent) isEvent() {}

// ErrorEvent surfaces an upstream model failure. The partial content
// already delivered remains valid.
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) isEvent() {}

// CompletedEvent is the terminal event of a successful turn.
type CompletedEvent struct {
	Content string
	Usage   *usage.Usage
}

func (CompletedEvent) isEvent() {}

// CancelledEvent is the terminal event of a cancelled turn. It is always
// the last event emitted, after the buffered state has been flushed.
type CancelledEvent struct {
	Content string
}

func (CancelledEvent) isEvent() {}

// Source is a citation record derived from annotation deltas or from
// citable tool results. Sources are injected as additional context ahead
// of the next model call.
type Source struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// EmitFunc delivers one event to the live client. Fire and forget; the
// transport must preserve call order.
type EmitFunc func(event Event)

// RemoteCallFunc issues a request to the live client session and awaits
// its reply, keyed by a request ID the transport manages. It is used for
// remote tool execution and for client-hosted code execution.
type RemoteCallFunc func(ctx context.Context, request map[string]any) (map[string]any, error)

// Uploader externalizes a binary payload and returns a reference to it.
// The timeline never stores binaries inline.
type Uploader func(ctx context.Context, name, mimeType string, data []byte) (timeline.FileRef, error)
