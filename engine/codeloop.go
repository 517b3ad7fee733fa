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

import (
	"context"
	"strings"

	"github.com/openconvo/convoengine/timeline"
)

const executedAttr = "executed"

// nextCodeBlock returns the most recent code block that was closed by an
// explicit end tag and has not been executed yet. Blocks force-closed at
// stream end never ran through the tag detector's closing path and are
// kept as plain output instead of being executed.
func nextCodeBlock(s *session) *timeline.CodeInterpreter {
	ci := s.timeline.LastCodeInterpreter()
	if ci == nil || ci.Status != timeline.StatusCompleted {
		return nil
	}
	if ci.EndTag == "" || ci.Attributes[executedAttr] == "true" {
		return nil
	}
	if strings.TrimSpace(ci.Code) == "" {
		return nil
	}
	return ci
}

// executeCodeBlock runs one tag-closed code block through the configured
// backend and records its output on the item. Execution failures become
// the block's output text; the next model stream sees them and may emit
// a corrected block.
func (d *Driver) executeCodeBlock(ctx context.Context, s *session, em *emitter, ci *timeline.CodeInterpreter) error {
	if err := ctx.Err(); err != nil {
		return CanceledErrorf("turn cancelled before code execution: %w", context.Canceled)
	}

	lang := ci.Lang
	if lang == "" {
		lang = "python"
	}
	Logger().Debug("executing code block", "lang", lang, "bytes", len(ci.Code))

	var output string
	res, err := d.codeBackend.Execute(ctx, lang, ci.Code)
	switch {
	case err != nil && ctx.Err() != nil:
		return CanceledErrorf("turn cancelled during code execution: %w", context.Canceled)
	case err != nil:
		output = err.Error()
	default:
		output = res.Stdout
		if res.Result != "" {
			if output != "" {
				output += "\n"
			}
			output += res.Result
		}
	}

	ci.Output = d.externalizeImages(ctx, s, output, true)
	if ci.Attributes == nil {
		ci.Attributes = make(map[string]string)
	}
	ci.Attributes[executedAttr] = "true"

	// The follow-up model stream continues in a fresh message bubble.
	s.timeline.Append(timeline.NewAssistantMessage())
	s.codeTurns++
	em.TextChanged()
	em.Flush()
	return nil
}
