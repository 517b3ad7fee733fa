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

// Package codeexec runs code blocks produced by the code-interpreter
// loop. Backends are interchangeable; which one a session uses is
// decided by the caller, not by this package.
package codeexec

import "context"

// Result is the outcome of one code execution.
type Result struct {
	// Stdout is everything the code printed.
	Stdout string `json:"stdout"`

	// Result is the final expression value, if the backend reports one.
	Result string `json:"result"`
}

// Backend executes a block of code and captures its output. A failing
// execution returns an error; the caller records it as the interpreter
// item's textual output rather than aborting the turn.
type Backend interface {
	Execute(ctx context.Context, lang, code string) (*Result, error)
}
