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

// emitter throttles text updates without losing or reordering anything.
// Up to chunkSize consecutive text deltas are buffered and only the
// latest merged state is flushed; non-text events flush the buffer first
// and are themselves never coalesced.
type emitter struct {
	emit      EmitFunc
	serialize func() string
	chunkSize int
	buffered  int
	dirty     bool

	// onFlush runs after each flushed update. Used for realtime
	// persistence, so the store is written at display cadence rather
	// than per raw line.
	onFlush func()
}

func newEmitter(emit EmitFunc, serialize func() string, chunkSize int) *emitter {
	return &emitter{emit: emit, serialize: serialize, chunkSize: chunkSize}
}

// TextChanged records that displayable content changed. The serialized
// state is emitted once enough deltas have accumulated.
func (e *emitter) TextChanged() {
	e.dirty = true
	e.buffered++
	if e.buffered >= e.chunkSize {
		e.Flush()
	}
}

// Flush emits the current serialized state if there is anything pending.
func (e *emitter) Flush() {
	if !e.dirty {
		return
	}
	e.dirty = false
	e.buffered = 0
	if e.emit != nil {
		e.emit(ContentEvent{Content: e.serialize()})
	}
	if e.onFlush != nil {
		e.onFlush()
	}
}

// Event flushes any buffered text and then emits ev immediately, so the
// client never sees an out-of-order view.
func (e *emitter) Event(ev Event) {
	e.Flush()
	if e.emit != nil {
		e.emit(ev)
	}
}
