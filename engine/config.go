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

import "github.com/openconvo/convoengine/tagparse"

const (
	// DefaultMaxToolTurns bounds the tool-call loop. A turn is one model
	// invocation plus the tool executions it requested.
	DefaultMaxToolTurns = 5

	// DefaultMaxCodeTurns bounds the code-interpreter loop,
	// independently of the tool-call bound.
	DefaultMaxCodeTurns = 5

	// DefaultDeltaChunkSize is the number of consecutive text deltas
	// buffered before a flush. 1 disables coalescing.
	DefaultDeltaChunkSize = 1
)

// PersistMode selects when the timeline is written to the store.
type PersistMode string

const (
	// PersistRealtime writes after every processed stream unit.
	PersistRealtime PersistMode = "realtime"

	// PersistEndOfTurn writes only when the turn terminates.
	PersistEndOfTurn PersistMode = "end_of_turn"
)

// Config carries all the per-session policy knobs. It is passed to the
// driver at construction, so concurrent sessions can run with different
// policies; the engine keeps no ambient configuration.
type Config struct {
	// MaxToolTurns caps tool-call loop iterations. The cap is soft: when
	// it is hit, the timeline built so far is returned as the final
	// answer. Zero means DefaultMaxToolTurns.
	MaxToolTurns int

	// MaxCodeTurns caps code-interpreter loop iterations.
	// Zero means DefaultMaxCodeTurns.
	MaxCodeTurns int

	// DeltaChunkSize is how many consecutive text deltas are coalesced
	// into one flush. Non-text events always flush immediately, and any
	// buffered delta is flushed before them. Zero means
	// DefaultDeltaChunkSize.
	DeltaChunkSize int

	// PersistMode selects the persistence policy. Both modes persist
	// unconditionally at loop termination.
	// Empty means PersistEndOfTurn.
	PersistMode PersistMode

	// Conventions are the free-text tag conventions to detect, in
	// precedence order. Nil means reasoning + solution, plus the code
	// interpreter convention when a code backend is configured.
	Conventions []tagparse.Convention
}

func (c Config) maxToolTurns() int {
	if c.MaxToolTurns == 0 {
		return DefaultMaxToolTurns
	}
	return c.MaxToolTurns
}

func (c Config) maxCodeTurns() int {
	if c.MaxCodeTurns == 0 {
		return DefaultMaxCodeTurns
	}
	return c.MaxCodeTurns
}

func (c Config) deltaChunkSize() int {
	if c.DeltaChunkSize <= 0 {
		return DefaultDeltaChunkSize
	}
	return c.DeltaChunkSize
}

func (c Config) persistMode() PersistMode {
	if c.PersistMode == "" {
		return PersistEndOfTurn
	}
	return c.PersistMode
}

func (c Config) conventions(codeEnabled bool) []tagparse.Convention {
	if c.Conventions != nil {
		return c.Conventions
	}
	conventions := []tagparse.Convention{
		tagparse.ReasoningConvention(),
		tagparse.SolutionConvention(),
	}
	if codeEnabled {
		conventions = append(conventions, tagparse.CodeInterpreterConvention())
	}
	return conventions
}
