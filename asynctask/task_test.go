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

package asynctask

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitReturnsTaskError(t *testing.T) {
	wantErr := errors.New("boom")
	task := Start(context.Background(), func(ctx context.Context) error {
		return wantErr
	})

	assert.ErrorIs(t, task.Await(), wantErr)
	assert.True(t, task.IsDone())
	assert.False(t, task.IsCanceled())
}

func TestAwaitNilError(t *testing.T) {
	task := Start(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, task.Await())
}

func TestCancelPropagatesThroughContext(t *testing.T) {
	started := make(chan struct{})
	task := Start(context.Background(), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	task.Cancel()

	err := task.Await()
	assert.ErrorIs(t, err, Canceled())
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, task.IsCanceled())
}

func TestPanicBecomesError(t *testing.T) {
	task := Start(context.Background(), func(ctx context.Context) error {
		panic("oh no")
	})

	err := task.Await()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oh no")
}

func TestCancelAfterDoneIsNoop(t *testing.T) {
	task := Start(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, task.Await())

	task.Cancel()
	assert.False(t, task.IsCanceled())
	assert.NoError(t, task.Await())
}
