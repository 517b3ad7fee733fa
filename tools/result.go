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

package tools

import (
	"encoding/json"
	"fmt"

	"github.com/openconvo/convoengine/timeline"
)

// The closed set of shapes a tool may return. Anything outside the set
// falls back to its JSON or string representation.

// PlainText is a simple textual result.
type PlainText struct {
	Text string
}

// StructuredList is an ordered list of result entries; entries may be
// text or binary attachments.
type StructuredList struct {
	Entries []any
}

// EmbeddableSurface is an inline UI fragment meant for the user, not the
// model. It is delivered over the embed side channel; the model only sees
// a synthetic status message.
type EmbeddableSurface struct {
	Kind    string
	Content string
	Err     error
}

// BinaryAttachment is an inline binary payload. It is externalized by the
// engine before the timeline is persisted and replaced by a file
// reference.
type BinaryAttachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// Normalized is the convention-agnostic form of any tool result: a text
// payload for the model, binary payloads still awaiting externalization,
// and embeds for the client.
type Normalized struct {
	Text        string
	Attachments []BinaryAttachment
	Embeds      []timeline.Embed
}

// Normalize maps a raw tool return value onto Normalized. Each variant
// has exactly one normalization path; runtime type probing is limited to
// the fallback branch.
func Normalize(result any) Normalized {
	switch v := result.(type) {
	case PlainText:
		return Normalized{Text: v.Text}
	case StructuredList:
		return normalizeList(v)
	case EmbeddableSurface:
		return normalizeSurface(v)
	case BinaryAttachment:
		return Normalized{Attachments: []BinaryAttachment{v}}
	case string:
		return Normalized{Text: v}
	case nil:
		return Normalized{}
	case error:
		return Normalized{Text: v.Error()}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Normalized{Text: fmt.Sprintf("%v", v)}
		}
		return Normalized{Text: string(b)}
	}
}

func normalizeList(list StructuredList) Normalized {
	var out Normalized
	for _, entry := range list.Entries {
		n := Normalize(entry)
		if n.Text != "" {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += n.Text
		}
		out.Attachments = append(out.Attachments, n.Attachments...)
		out.Embeds = append(out.Embeds, n.Embeds...)
	}
	return out
}

func normalizeSurface(surface EmbeddableSurface) Normalized {
	if surface.Err != nil {
		return Normalized{
			Text: fmt.Sprintf("Error: the tool's interface failed to render: %s", surface.Err),
		}
	}
	return Normalized{
		Text: "The tool rendered an interactive interface for the user.",
		Embeds: []timeline.Embed{{
			Kind:    surface.Kind,
			Content: surface.Content,
		}},
	}
}
