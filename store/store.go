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

// Package store persists the partial state of in-flight assistant
// messages. Writes are keyed by (chat ID, message ID) and idempotent:
// repeating an identical write leaves the stored state unchanged.
package store

import (
	"context"

	"github.com/openconvo/convoengine/timeline"
	"github.com/openconvo/convoengine/usage"
)

// MessageState is the durable snapshot of one assistant message. It is
// written on every flush in realtime mode, so it must always reflect a
// displayable intermediate state.
type MessageState struct {
	Timeline *timeline.Timeline `json:"timeline"`
	Content  string             `json:"content"`
	Usage    *usage.Usage       `json:"usage,omitempty"`
	Status   string             `json:"status"`
	Error    string             `json:"error,omitempty"`
}

// Store is the durable message store the session driver writes through.
type Store interface {
	// Upsert writes the state for the given message, replacing any
	// previous state.
	Upsert(ctx context.Context, chatID, messageID string, state *MessageState) error

	// Read returns the stored state, or nil if the message is unknown.
	Read(ctx context.Context, chatID, messageID string) (*MessageState, error)
}
