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
	"encoding/json"
	"fmt"
)

// The persisted form wraps each item with its type discriminator so the
// union survives a round trip through the durable store.

func (t *Timeline) MarshalJSON() ([]byte, error) {
	type envelope struct {
		Type string `json:"type"`
		Item Item   `json:"item"`
	}
	envelopes := make([]envelope, len(t.Items))
	for i, item := range t.Items {
		envelopes[i] = envelope{Type: item.ItemType(), Item: item}
	}
	return json.Marshal(map[string]any{"items": envelopes})
}

func (t *Timeline) UnmarshalJSON(data []byte) error {
	var raw struct {
		Items []struct {
			Type string          `json:"type"`
			Item json.RawMessage `json:"item"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Items = t.Items[:0]
	for _, env := range raw.Items {
		var item Item
		switch env.Type {
		case "message":
			item = new(Message)
		case "reasoning":
			item = new(Reasoning)
		case "function_call":
			item = new(FunctionCall)
		case "function_call_output":
			item = new(FunctionCallOutput)
		case "code_interpreter":
			item = new(CodeInterpreter)
		default:
			return fmt.Errorf("unknown timeline item type %q", env.Type)
		}
		if err := json.Unmarshal(env.Item, item); err != nil {
			return err
		}
		t.Items = append(t.Items, item)
	}
	return nil
}
