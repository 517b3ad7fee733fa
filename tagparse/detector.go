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

// Package tagparse detects free-text tag conventions inside the active
// item of an output timeline. Detection always runs against the item's
// cumulative text, so a tag split across arbitrary chunk boundaries is
// still found once the missing characters arrive.
package tagparse

import (
	"regexp"
	"strings"
	"time"

	"github.com/openconvo/convoengine/timeline"
)

// TagPair is one start/end delimiter pair of a convention.
type TagPair struct {
	Start string
	End   string
}

// Convention is a named set of tag pairs that open one kind of timeline
// item. The name selects the item type: "reasoning" opens a Reasoning
// item, "code_interpreter" a CodeInterpreter item, anything else a
// tag-flagged Message.
type Convention struct {
	Name  string
	Pairs []TagPair
}

// ReasoningConvention covers the tag vocabularies emitted by common
// reasoning-capable models.
func ReasoningConvention() Convention {
	return Convention{
		Name: "reasoning",
		Pairs: []TagPair{
			{Start: "<think>", End: "</think>"},
			{Start: "<thinking>", End: "</thinking>"},
			{Start: "<reason>", End: "</reason>"},
			{Start: "<reasoning>", End: "</reasoning>"},
		},
	}
}

// CodeInterpreterConvention brackets code the model wants executed.
func CodeInterpreterConvention() Convention {
	return Convention{
		Name: "code_interpreter",
		Pairs: []TagPair{
			{Start: "<code_interpreter>", End: "</code_interpreter>"},
		},
	}
}

// SolutionConvention flags a message region as the final solution.
func SolutionConvention() Convention {
	return Convention{
		Name: "solution",
		Pairs: []TagPair{
			{Start: "<solution>", End: "</solution>"},
		},
	}
}

// Detector splits the active timeline item at tag boundaries. Conventions
// are tried in slice order; when two could open at the same position the
// earlier one wins. Overlapping conventions on the same vocabulary are
// not a supported combination.
type Detector struct {
	Conventions []Convention
}

func NewDetector(conventions ...Convention) *Detector {
	return &Detector{Conventions: conventions}
}

// Process runs detection on the active item of t until no further tag is
// found in the current text. It returns true if the timeline changed.
// Calling Process again with no new characters is a no-op.
func (d *Detector) Process(t *timeline.Timeline) bool {
	changed := false
	for d.processOnce(t) {
		changed = true
	}
	return changed
}

func (d *Detector) processOnce(t *timeline.Timeline) bool {
	active := t.Active()
	if active == nil {
		return false
	}
	switch v := active.(type) {
	case *timeline.Message:
		if v.StartTag == "" {
			return d.openFromMessage(t, v)
		}
		return d.closeTagged(t, active, v.StartTag)
	case *timeline.Reasoning:
		if v.StartTag == "" {
			// Delta-based reasoning has no tags to close.
			return false
		}
		return d.closeTagged(t, active, v.StartTag)
	case *timeline.CodeInterpreter:
		if v.StartTag == "" {
			return false
		}
		return d.closeTagged(t, active, v.StartTag)
	default:
		return false
	}
}

// openFromMessage looks for the earliest start tag in the plain message
// text and, if found, splits the message there and opens the typed item.
func (d *Detector) openFromMessage(t *timeline.Timeline, msg *timeline.Message) bool {
	text := msg.Text()
	best := startMatch{index: -1}
	for _, conv := range d.Conventions {
		for _, pair := range conv.Pairs {
			if m, ok := findStartTag(text, pair); ok && (best.index < 0 || m.index < best.index) {
				m.convention = conv.Name
				m.pair = pair
				best = m
			}
		}
	}
	if best.index < 0 {
		return false
	}

	before := text[:best.index]
	after := text[best.index+len(best.raw):]

	msg.SetText(before)
	msg.Complete()

	switch best.convention {
	case "reasoning":
		t.Append(&timeline.Reasoning{
			Text:       after,
			StartTag:   best.raw,
			Attributes: best.attrs,
			StartedAt:  time.Now(),
			Status:     timeline.StatusInProgress,
		})
	case "code_interpreter":
		t.Append(&timeline.CodeInterpreter{
			Lang:       best.attrs["lang"],
			Code:       after,
			StartTag:   best.raw,
			Attributes: best.attrs,
			Status:     timeline.StatusInProgress,
		})
	default:
		next := timeline.NewAssistantMessage()
		next.StartTag = best.raw
		next.Attributes = best.attrs
		next.AppendText(after)
		t.Append(next)
	}
	return true
}

// closeTagged looks for the end tag matching the item's recorded start
// tag and, if found, completes the item and reopens a plain message for
// whatever follows. An end tag that never arrives is fine: the session
// finalizes the item when the stream ends.
func (d *Detector) closeTagged(t *timeline.Timeline, item timeline.Item, startTag string) bool {
	end := d.endTagFor(startTag)
	if end == "" {
		return false
	}
	text := itemText(item)
	idx := strings.Index(text, end)
	if idx < 0 {
		return false
	}
	inner := text[:idx]
	after := text[idx+len(end):]

	setItemText(item, inner)
	setEndTag(item, end)
	item.Complete()

	next := timeline.NewAssistantMessage()
	if after != "" {
		next.AppendText(after)
	}
	t.Append(next)
	return true
}

func (d *Detector) endTagFor(startTag string) string {
	name := tagName(startTag)
	for _, conv := range d.Conventions {
		for _, pair := range conv.Pairs {
			if tagName(pair.Start) == name {
				return pair.End
			}
		}
	}
	return ""
}

type startMatch struct {
	index      int
	raw        string
	attrs      map[string]string
	convention string
	pair       TagPair
}

var attrPattern = regexp.MustCompile(`(\w+)\s*=\s*"([^"]*)"`)

// findStartTag locates the configured start tag in text, accepting an
// optional inline attribute list: `<code_interpreter>` also matches
// `<code_interpreter lang="python">`.
func findStartTag(text string, pair TagPair) (startMatch, bool) {
	name := tagName(pair.Start)
	prefix := "<" + name
	from := 0
	for {
		i := strings.Index(text[from:], prefix)
		if i < 0 {
			return startMatch{}, false
		}
		i += from
		rest := text[i+len(prefix):]
		if rest == "" {
			// Tag still truncated at the buffer edge; wait for more text.
			return startMatch{}, false
		}
		switch rest[0] {
		case '>':
			return startMatch{index: i, raw: prefix + ">"}, true
		case ' ', '\t', '\n':
			gt := strings.IndexByte(rest, '>')
			if gt < 0 {
				return startMatch{}, false
			}
			raw := text[i : i+len(prefix)+gt+1]
			return startMatch{index: i, raw: raw, attrs: parseAttributes(rest[:gt])}, true
		}
		// Prefix of a longer tag name, e.g. "<thinking" while looking
		// for "<think". Keep scanning.
		from = i + len(prefix)
	}
}

func parseAttributes(s string) map[string]string {
	matches := attrPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(matches))
	for _, m := range matches {
		attrs[m[1]] = m[2]
	}
	return attrs
}

func tagName(tag string) string {
	tag = strings.TrimPrefix(tag, "<")
	tag = strings.TrimSuffix(tag, ">")
	if i := strings.IndexAny(tag, " \t"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

func itemText(item timeline.Item) string {
	switch v := item.(type) {
	case *timeline.Message:
		return v.Text()
	case *timeline.Reasoning:
		return v.Text
	case *timeline.CodeInterpreter:
		return v.Code
	default:
		return ""
	}
}

func setItemText(item timeline.Item, text string) {
	switch v := item.(type) {
	case *timeline.Message:
		v.SetText(text)
	case *timeline.Reasoning:
		v.Text = text
	case *timeline.CodeInterpreter:
		v.Code = text
	}
}

func setEndTag(item timeline.Item, end string) {
	switch v := item.(type) {
	case *timeline.Message:
		v.EndTag = end
	case *timeline.Reasoning:
		v.EndTag = end
	case *timeline.CodeInterpreter:
		v.EndTag = end
	}
}
