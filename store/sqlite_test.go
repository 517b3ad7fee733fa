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

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openconvo/convoengine/timeline"
	"github.com/openconvo/convoengine/usage"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), SQLiteStoreParams{
		DBDataSourceName: filepath.Join(t.TempDir(), "state.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func sampleState() *MessageState {
	tl := timeline.New()
	msg := timeline.NewAssistantMessage()
	msg.AppendText("partial answer")
	tl.Append(msg)
	tl.CloseActive()

	return &MessageState{
		Timeline: tl,
		Content:  tl.Serialize(),
		Usage:    &usage.Usage{Requests: 1, PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14},
		Status:   "in_progress",
	}
}

func TestSQLiteUpsertAndRead(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "chat1", "msg1", sampleState()))

	got, err := s.Read(ctx, "chat1", "msg1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "in_progress", got.Status)
	assert.Equal(t, "partial answer", got.Content)
	require.Len(t, got.Timeline.Items, 1)
	assert.Equal(t, "partial answer", got.Timeline.Items[0].(*timeline.Message).Text())
	assert.Equal(t, uint64(14), got.Usage.TotalTokens)
}

func TestSQLiteUpsertReplaces(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first := sampleState()
	require.NoError(t, s.Upsert(ctx, "chat1", "msg1", first))

	second := sampleState()
	second.Status = "completed"
	require.NoError(t, s.Upsert(ctx, "chat1", "msg1", second))

	got, err := s.Read(ctx, "chat1", "msg1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
}

func TestSQLiteReadUnknownIsNil(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.Read(context.Background(), "chat1", "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteKeysAreIndependent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleState()
	a.Status = "completed"
	require.NoError(t, s.Upsert(ctx, "chat1", "msg1", a))

	b := sampleState()
	b.Status = "error"
	b.Error = "boom"
	require.NoError(t, s.Upsert(ctx, "chat2", "msg1", b))

	got1, err := s.Read(ctx, "chat1", "msg1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got1.Status)

	got2, err := s.Read(ctx, "chat2", "msg1")
	require.NoError(t, err)
	assert.Equal(t, "error", got2.Status)
	assert.Equal(t, "boom", got2.Error)
}
