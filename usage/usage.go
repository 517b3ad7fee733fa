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

package usage

import (
	"context"

	"github.com/openai/openai-go/v2"
)

// Usage accumulates token counters across every model call of an
// assistant turn, including re-invocations made by the tool and code
// interpreter loops.
type Usage struct {
	// Total requests made to the model backend.
	Requests uint64 `json:"requests"`

	// Total prompt tokens sent, across all requests.
	PromptTokens uint64 `json:"prompt_tokens"`

	// Total completion tokens received, across all requests.
	CompletionTokens uint64 `json:"completion_tokens"`

	// Completion tokens spent on hidden reasoning, when reported.
	ReasoningTokens uint64 `json:"reasoning_tokens,omitempty"`

	// Total tokens sent and received, across all requests.
	TotalTokens uint64 `json:"total_tokens"`
}

func NewUsage() *Usage {
	return new(Usage)
}

func (u *Usage) Add(other *Usage) {
	u.Requests += other.Requests
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.TotalTokens += other.TotalTokens
}

// FromCompletionUsage converts the wire usage payload of one model
// request, counting it as a single request.
func FromCompletionUsage(cu openai.CompletionUsage) *Usage {
	return &Usage{
		Requests:         1,
		PromptTokens:     uint64(cu.PromptTokens),
		CompletionTokens: uint64(cu.CompletionTokens),
		ReasoningTokens:  uint64(cu.CompletionTokensDetails.ReasoningTokens),
		TotalTokens:      uint64(cu.TotalTokens),
	}
}

// usageContextKey is the key type for Usage values in Contexts.
type usageContextKey struct{}

// NewContext returns a new Context that carries the given Usage.
func NewContext(ctx context.Context, u *Usage) context.Context {
	return context.WithValue(ctx, usageContextKey{}, u)
}

// FromContext returns the Usage value stored in ctx, if any.
func FromContext(ctx context.Context) (*Usage, bool) {
	u, ok := ctx.Value(usageContextKey{}).(*Usage)
	return u, ok
}
