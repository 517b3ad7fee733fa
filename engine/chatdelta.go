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
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2"

	"github.com/openconvo/convoengine/usage"
)

// chatExtras carries the delta fields some providers attach to chat
// chunks beyond what the OpenAI types declare.
type chatExtras struct {
	Choices []struct {
		Delta struct {
			ReasoningContent string `json:"reasoning_content"`
			Images           []struct {
				Type     string `json:"type"`
				URL      string `json:"url"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
			Annotations []struct {
				Type        string `json:"type"`
				URLCitation struct {
					Title   string `json:"title"`
					URL     string `json:"url"`
					Content string `json:"content"`
				} `json:"url_citation"`
			} `json:"annotations"`
		} `json:"delta"`
	} `json:"choices"`
}

// reduceChatChunk folds one chat-completion chunk into the session.
func (d *Driver) reduceChatChunk(ctx context.Context, s *session, em *emitter, line []byte) error {
	var chunk openai.ChatCompletionChunk
	if err := json.Unmarshal(line, &chunk); err != nil {
		Logger().Debug("skipping undecodable chat chunk", "error", err)
		return nil
	}
	var extras chatExtras
	_ = json.Unmarshal(line, &extras)

	if chunk.Usage.TotalTokens > 0 || chunk.Usage.CompletionTokens > 0 {
		// Cumulative per request: the last value observed wins.
		s.streamUsage = usage.FromCompletionUsage(chunk.Usage)
	}

	if len(chunk.Choices) == 0 {
		return nil
	}
	delta := chunk.Choices[0].Delta

	if len(extras.Choices) > 0 {
		x := extras.Choices[0].Delta
		d.appendReasoningDelta(s, em, x.ReasoningContent)
		for _, img := range x.Images {
			d.appendImage(ctx, s, em, firstNonEmpty(img.ImageURL.URL, img.URL))
		}
		for _, ann := range x.Annotations {
			if ann.Type != "" && ann.Type != "url_citation" {
				continue
			}
			src := Source{
				Name:    ann.URLCitation.Title,
				URL:     ann.URLCitation.URL,
				Snippet: ann.URLCitation.Content,
			}
			if src.URL == "" && src.Name == "" {
				continue
			}
			s.sources = append(s.sources, src)
			em.Event(SourcesEvent{Sources: []Source{src}})
		}
	}

	for _, tc := range delta.ToolCalls {
		s.accumulateToolCall(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
	}

	d.appendContent(ctx, s, em, delta.Content)
	return nil
}

// appendImage inlines an image URL into the active message as markdown.
// Data URLs are uploaded first so the persisted text stays bounded.
func (d *Driver) appendImage(ctx context.Context, s *session, em *emitter, url string) {
	if url == "" {
		return
	}
	before := len(s.files)
	d.appendContent(ctx, s, em, fmt.Sprintf("\n![image](%s)\n", url))
	if added := s.files[before:]; len(added) > 0 {
		em.Event(FilesEvent{Files: added})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
