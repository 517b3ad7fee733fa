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

import "slices"

// Timeline is the append-only, chronologically ordered sequence of items
// produced by one assistant turn. At most one item is in progress at any
// instant: the active item that raw stream content is folded into.
//
// All mutations of a turn's timeline go through this API so the ordering
// and single-active invariants are enforced in one place.
type Timeline struct {
	Items []Item `json:"items"`
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// Append adds an item at the end of the timeline. Any item still in
// progress is completed first, so the single-active invariant holds.
func (t *Timeline) Append(item Item) {
	t.CloseActive()
	t.Items = append(t.Items, item)
}

// Active returns the item currently receiving stream content, or nil.
// Only the final item can be active.
func (t *Timeline) Active() Item {
	if n := len(t.Items); n > 0 && t.Items[n-1].ItemStatus() == StatusInProgress {
		return t.Items[n-1]
	}
	return nil
}

// ActiveMessage returns the active item if it is a plain (non tag-flagged)
// message, or nil.
func (t *Timeline) ActiveMessage() *Message {
	if m, ok := t.Active().(*Message); ok && m.StartTag == "" {
		return m
	}
	return nil
}

// CloseActive completes the active item, if any. The item's text is
// left exactly as accumulated: an item closed because another one opens
// keeps its trailing whitespace.
func (t *Timeline) CloseActive() {
	if item := t.Active(); item != nil {
		item.Complete()
	}
}

// ForceClose completes the active item cut off by the end of the
// stream, trimming the trailing whitespace the truncation left behind.
func (t *Timeline) ForceClose() {
	if item := t.Active(); item != nil {
		trimItem(item)
		item.Complete()
	}
}

// Finalize force-closes any item left in progress and drops items with
// no content, so a truncated stream never persists a dangling empty
// bubble.
func (t *Timeline) Finalize() {
	t.ForceClose()
	t.Items = slices.DeleteFunc(t.Items, func(item Item) bool {
		return item.Empty()
	})
}

func trimItem(item Item) {
	switch v := item.(type) {
	case *Message:
		if n := len(v.Parts); n > 0 {
			v.Parts[n-1].Text = trimTrailingSpace(v.Parts[n-1].Text)
		}
	case *Reasoning:
		v.Text = trimTrailingSpace(v.Text)
	case *CodeInterpreter:
		v.Code = trimTrailingSpace(v.Code)
	}
}

// PendingCalls returns the function calls that have no matching output
// yet. A call without an output means the turn is still in flight.
func (t *Timeline) PendingCalls() []*FunctionCall {
	answered := make(map[string]bool)
	for _, item := range t.Items {
		if out, ok := item.(*FunctionCallOutput); ok {
			answered[out.CallID] = true
		}
	}
	var pending []*FunctionCall
	for _, item := range t.Items {
		if call, ok := item.(*FunctionCall); ok && !answered[call.CallID] {
			pending = append(pending, call)
		}
	}
	return pending
}

// LastCodeInterpreter returns the most recent code interpreter block, or
// nil. The block is usually not the final item: closing its end tag
// reopens a plain message for the text that follows.
func (t *Timeline) LastCodeInterpreter() *CodeInterpreter {
	for i := len(t.Items) - 1; i >= 0; i-- {
		if ci, ok := t.Items[i].(*CodeInterpreter); ok {
			return ci
		}
	}
	return nil
}

// Snapshot returns a deep copy safe to persist or emit while the original
// keeps mutating.
func (t *Timeline) Snapshot() *Timeline {
	out := &Timeline{Items: make([]Item, len(t.Items))}
	for i, item := range t.Items {
		out.Items[i] = cloneItem(item)
	}
	return out
}

func cloneItem(item Item) Item {
	switch v := item.(type) {
	case *Message:
		c := *v
		c.Parts = slices.Clone(v.Parts)
		c.Attributes = cloneMap(v.Attributes)
		return &c
	case *Reasoning:
		c := *v
		c.Summary = slices.Clone(v.Summary)
		c.Attributes = cloneMap(v.Attributes)
		return &c
	case *FunctionCall:
		c := *v
		return &c
	case *FunctionCallOutput:
		c := *v
		c.Output = slices.Clone(v.Output)
		c.Files = slices.Clone(v.Files)
		c.Embeds = slices.Clone(v.Embeds)
		return &c
	case *CodeInterpreter:
		c := *v
		c.Attributes = cloneMap(v.Attributes)
		return &c
	default:
		return item
	}
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
