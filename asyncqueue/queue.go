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

// Package asyncqueue provides the unbounded queue that carries client
// events from the session driver task to the stream consumer. Producers
// never block; consumers block until an event arrives.
package asyncqueue

import "sync"

type Queue[T any] struct {
	cond   *sync.Cond
	buf    []T
	head   int
	closed bool
}

func New[T any]() *Queue[T] {
	return &Queue[T]{cond: sync.NewCond(&sync.Mutex{})}
}

// Put appends v to the queue. Put on a closed queue is a no-op.
func (q *Queue[T]) Put(v T) {
	q.cond.L.Lock()
	if !q.closed {
		q.buf = append(q.buf, v)
	}
	q.cond.L.Unlock()
	q.cond.Broadcast()
}

// Get blocks until a value is available or the queue is closed. The
// second result is false once the queue is closed and drained.
func (q *Queue[T]) Get() (T, bool) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	for q.head == len(q.buf) && !q.closed {
		q.cond.Wait()
	}
	return q.pop()
}

// TryGet returns the next value without blocking.
func (q *Queue[T]) TryGet() (T, bool) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	if q.head == len(q.buf) {
		var zero T
		return zero, false
	}
	return q.pop()
}

// Close wakes all blocked consumers. Values already queued remain
// readable; further Puts are dropped.
func (q *Queue[T]) Close() {
	q.cond.L.Lock()
	q.closed = true
	q.cond.L.Unlock()
	q.cond.Broadcast()
}

func (q *Queue[T]) Empty() bool {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	return q.head == len(q.buf)
}

func (q *Queue[T]) pop() (T, bool) {
	var zero T
	if q.head == len(q.buf) {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero // helps GC
	q.head++
	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
	}
	return v, true
}
