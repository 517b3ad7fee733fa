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

package timeline

import (
	"fmt"
	"strings"
)

// Serialize renders the timeline as a single displayable string. Tool
// calls, reasoning and code blocks render as collapsible regions keyed
// by status: completed regions show their duration or result, in-progress
// ones a provisional label.
//
// Serialize is invoked on every flush, so it is total: an item with
// malformed or missing fields renders as empty rather than failing.
func (t *Timeline) Serialize() string {
	var sb strings.Builder
	calls := make(map[string]*FunctionCall)
	for _, item := range t.Items {
		if call, ok := item.(*FunctionCall); ok {
			calls[call.CallID] = call
		}
	}
	for _, item := range t.Items {
		switch v := item.(type) {
		case *Message:
			sb.WriteString(v.Text())
		case *Reasoning:
			renderReasoning(&sb, v)
		case *FunctionCall:
			// Calls render together with their output.
		case *FunctionCallOutput:
			renderCallOutput(&sb, v, calls[v.CallID])
		case *CodeInterpreter:
			renderCodeInterpreter(&sb, v)
		}
	}
	return sb.String()
}

func renderReasoning(sb *strings.Builder, r *Reasoning) {
	if r.Status == StatusCompleted {
		label := "Thought for a moment"
		if d := r.Duration(); d > 0 {
			label = fmt.Sprintf("Thought for %d seconds", int(d.Seconds()))
		}
		fmt.Fprintf(sb, "\n<details type=\"reasoning\" done=\"true\" duration=\"%d\">\n<summary>%s</summary>\n%s\n</details>\n",
			int(r.Duration().Seconds()), label, quoteLines(r.Text))
		return
	}
	fmt.Fprintf(sb, "\n<details type=\"reasoning\" done=\"false\">\n<summary>Thinking…</summary>\n%s\n</details>\n", quoteLines(r.Text))
}

func renderCallOutput(sb *strings.Builder, out *FunctionCallOutput, call *FunctionCall) {
	name, args := "", ""
	if call != nil {
		name, args = call.Name, call.Arguments
	}
	done := "true"
	summary := fmt.Sprintf("Tool executed: %s", name)
	if out.Status == StatusInProgress {
		done = "false"
		summary = fmt.Sprintf("Executing %s…", name)
	}
	fmt.Fprintf(sb, "\n<details type=\"tool_calls\" done=%q id=%q name=%q arguments=%q result=%q>\n<summary>%s</summary>\n</details>\n",
		done, out.CallID, name, args, out.Text(), summary)
}

func renderCodeInterpreter(sb *strings.Builder, ci *CodeInterpreter) {
	lang := ci.Lang
	if lang == "" {
		lang = "python"
	}
	if ci.Status == StatusCompleted {
		fmt.Fprintf(sb, "\n<details type=\"code_interpreter\" done=\"true\">\n<summary>Analyzed</summary>\n```%s\n%s\n```\n", lang, ci.Code)
		if ci.Output != "" {
			fmt.Fprintf(sb, "> %s\n", strings.TrimRight(ci.Output, "\n"))
		}
		sb.WriteString("</details>\n")
		return
	}
	fmt.Fprintf(sb, "\n<details type=\"code_interpreter\" done=\"false\">\n<summary>Analyzing…</summary>\n```%s\n%s\n```\n</details>\n", lang, ci.Code)
}

// quoteLines prefixes every line with "> " so hidden reasoning renders
// as a blockquote inside its collapsible region.
func quoteLines(s string) string {
	if s == "" {
		return ">"
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}
