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
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/openconvo/convoengine/timeline"
)

var dataURLPattern = regexp.MustCompile(`data:(image/(?:png|jpeg|gif|webp));base64,([A-Za-z0-9+/=]+)`)

// externalizeActive re-scans the active item's cumulative text for
// inline base64 images. Scanning per-delta would miss a data URL split
// across chunk boundaries; scanning the accumulated text catches it
// once the chunk completing it arrives, the same way tag detection
// works.
func (d *Driver) externalizeActive(ctx context.Context, s *session, complete bool) {
	if d.uploader == nil {
		return
	}
	switch active := s.timeline.Active().(type) {
	case *timeline.Message:
		if n := len(active.Parts); n > 0 {
			active.Parts[n-1].Text = d.externalizeImages(ctx, s, active.Parts[n-1].Text, complete)
		}
	case *timeline.Reasoning:
		active.Text = d.externalizeImages(ctx, s, active.Text, complete)
	}
}

// externalizeImages uploads every inline base64 image found in text and
// replaces it with the uploaded file's URL, so the timeline never keeps
// binary payloads once they are fully received. A match running to the
// end of the text may still be streaming and is left in place until
// complete says no more text is coming. Without an uploader the text is
// returned unchanged.
func (d *Driver) externalizeImages(ctx context.Context, s *session, text string, complete bool) string {
	if d.uploader == nil {
		return text
	}
	matches := dataURLPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		if m[1] == len(text) && !complete {
			break
		}
		replacement := text[m[0]:m[1]]
		mimeType := text[m[2]:m[3]]
		data, err := base64.StdEncoding.DecodeString(text[m[4]:m[5]])
		if err != nil {
			Logger().Debug("skipping malformed inline image", "error", err)
		} else if ref, uploadErr := d.uploader(ctx, uuid.NewString(), mimeType, data); uploadErr != nil {
			Logger().Warn("failed to externalize inline image", "error", uploadErr)
		} else {
			s.files = append(s.files, ref)
			replacement = ref.URL
		}
		sb.WriteString(text[last:m[0]])
		sb.WriteString(replacement)
		last = m[1]
	}
	if last == 0 {
		return text
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// externalizeAttachment uploads one binary tool-result payload.
func (d *Driver) externalizeAttachment(ctx context.Context, s *session, name, mimeType string, data []byte) (timeline.FileRef, error) {
	if d.uploader == nil {
		return timeline.FileRef{}, fmt.Errorf("no uploader configured")
	}
	if name == "" {
		name = uuid.NewString()
	}
	ref, err := d.uploader(ctx, name, mimeType, data)
	if err != nil {
		return timeline.FileRef{}, err
	}
	s.files = append(s.files, ref)
	return ref, nil
}
