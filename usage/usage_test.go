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
	"testing"

	"github.com/openai/openai-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestAdd(t *testing.T) {
	u := NewUsage()
	u.Add(&Usage{Requests: 1, PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	u.Add(&Usage{Requests: 1, PromptTokens: 20, CompletionTokens: 7, ReasoningTokens: 3, TotalTokens: 27})

	assert.Equal(t, uint64(2), u.Requests)
	assert.Equal(t, uint64(30), u.PromptTokens)
	assert.Equal(t, uint64(12), u.CompletionTokens)
	assert.Equal(t, uint64(3), u.ReasoningTokens)
	assert.Equal(t, uint64(42), u.TotalTokens)
}

func TestFromCompletionUsage(t *testing.T) {
	u := FromCompletionUsage(openai.CompletionUsage{
		PromptTokens:     100,
		CompletionTokens: 40,
		TotalTokens:      140,
		CompletionTokensDetails: openai.CompletionUsageCompletionTokensDetails{
			ReasoningTokens: 12,
		},
	})

	assert.Equal(t, uint64(1), u.Requests)
	assert.Equal(t, uint64(100), u.PromptTokens)
	assert.Equal(t, uint64(40), u.CompletionTokens)
	assert.Equal(t, uint64(12), u.ReasoningTokens)
	assert.Equal(t, uint64(140), u.TotalTokens)
}

func TestContextRoundTrip(t *testing.T) {
	u := NewUsage()
	ctx := NewContext(context.Background(), u)

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, u, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
