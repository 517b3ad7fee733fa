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

// Package asynctask wraps the single cooperative task that drives one
// in-flight assistant turn. The task can be cancelled externally at any
// suspension point; cancellation is reported alongside the task error.
package asynctask

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errCanceled = errors.New("task has been canceled")

// Canceled is the error joined into a task result when the task was
// cancelled before completing.
func Canceled() error { return errCanceled }

// Task is a cancellable background computation with a single awaited
// error result.
type Task struct {
	mu       sync.Mutex
	cond     *sync.Cond
	cancel   context.CancelFunc
	canceled bool
	done     bool
	err      error
}

// Start runs fn on its own goroutine. A panic inside fn is recovered and
// surfaced as the task error so an awaiting consumer is never left
// blocked.
func Start(ctx context.Context, fn func(context.Context) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel}
	t.cond = sync.NewCond(&t.mu)

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = errors.Join(err, fmt.Errorf("task panicked: %v", r))
			}
			t.mu.Lock()
			if t.canceled {
				err = errors.Join(err, errCanceled)
			}
			t.err = err
			t.done = true
			t.mu.Unlock()
			t.cond.Broadcast()
			cancel()
		}()
		err = fn(ctx)
	}()

	return t
}

// Await blocks until the task finishes and returns its error.
func (t *Task) Await() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !t.done {
		t.cond.Wait()
	}
	return t.err
}

// Cancel requests cancellation. It is safe to call more than once and
// after completion.
func (t *Task) Cancel() {
	t.mu.Lock()
	if !t.done && !t.canceled {
		t.cancel()
		t.canceled = true
	}
	t.mu.Unlock()
}

func (t *Task) IsDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *Task) IsCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}
