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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArguments(t *testing.T) {
	t.Run("empty string is an empty object", func(t *testing.T) {
		params, err := ParseArguments("")
		require.NoError(t, err)
		assert.Empty(t, params)
	})

	t.Run("valid JSON passes through", func(t *testing.T) {
		params, err := ParseArguments(`{"city":"Paris","days":3}`)
		require.NoError(t, err)
		assert.Equal(t, "Paris", params["city"])
		assert.EqualValues(t, 3, params["days"])
	})

	t.Run("code fences are stripped", func(t *testing.T) {
		params, err := ParseArguments("```json\n{\"city\":\"Paris\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "Paris", params["city"])
	})

	t.Run("prose around the object is dropped", func(t *testing.T) {
		params, err := ParseArguments(`Sure, here you go: {"city":"Paris"} hope that helps`)
		require.NoError(t, err)
		assert.Equal(t, "Paris", params["city"])
	})

	t.Run("truncated object is closed", func(t *testing.T) {
		params, err := ParseArguments(`{"city":"Par`)
		require.NoError(t, err)
		assert.Equal(t, "Par", params["city"])
	})

	t.Run("trailing comma is dropped", func(t *testing.T) {
		params, err := ParseArguments(`{"city":"Paris",`)
		require.NoError(t, err)
		assert.Equal(t, "Paris", params["city"])
	})

	t.Run("hopeless input errors", func(t *testing.T) {
		_, err := ParseArguments(`[1,2,3`)
		assert.Error(t, err)
	})
}

func TestFilterArguments(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string"},
		},
	}

	filtered := FilterArguments(schema, map[string]any{"city": "Paris", "mood": "sunny"})
	assert.Equal(t, map[string]any{"city": "Paris"}, filtered)

	assert.Empty(t, FilterArguments(map[string]any{}, map[string]any{"city": "Paris"}))
}

func TestValidateArguments(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string"},
		},
		"required": []any{"city"},
	}

	assert.NoError(t, ValidateArguments(schema, `{"city":"Paris"}`))
	assert.Error(t, ValidateArguments(schema, `{}`))
	assert.Error(t, ValidateArguments(schema, `{"city":42}`))
}

func TestWireName(t *testing.T) {
	assert.Equal(t, "get_weather", WireName("get_weather"))
	assert.Equal(t, "foo_bar_123_baz_quux_", WireName("Foo Bar 123?Baz Quux!"))
	assert.Equal(t, "look-up", WireName("Look-Up"))
}

func TestNewFunctionTool(t *testing.T) {
	type args struct {
		City string `json:"city"`
	}
	tool := NewFunctionTool("get_weather", "Reports the weather.", func(ctx context.Context, a args) (any, error) {
		return "weather in " + a.City, nil
	})

	assert.Equal(t, "get_weather", tool.ToolName())

	schema := tool.ParamsSchema()
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
	assert.NotContains(t, schema, "$schema")

	result, err := tool.OnInvoke(context.Background(), `{"city":"Paris"}`)
	require.NoError(t, err)
	assert.Equal(t, "weather in Paris", result)
}

func TestNewFunctionToolInlineArgs(t *testing.T) {
	// Handlers declared with an inline argument struct reflect a type
	// with no name; schema generation must still produce a usable object
	// schema instead of failing.
	tool := NewFunctionTool("lookup", "Looks things up.",
		func(ctx context.Context, args struct {
			Query string `json:"query"`
		}) (any, error) {
			return "found " + args.Query, nil
		})

	schema := tool.ParamsSchema()
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")

	result, err := tool.OnInvoke(context.Background(), `{"query":"tides"}`)
	require.NoError(t, err)
	assert.Equal(t, "found tides", result)

	noArgs := NewFunctionTool("noop", "Takes nothing.",
		func(ctx context.Context, args struct{}) (any, error) {
			return "ok", nil
		})
	schema = noArgs.ParamsSchema()
	assert.Equal(t, "object", schema["type"])
	assert.NotNil(t, schema["properties"])
}

func TestCatalog(t *testing.T) {
	c := Catalog{}
	c.Add(FunctionTool{Name: "beta"})
	c.Add(FunctionTool{Name: "alpha"})

	_, ok := c.ResolveTool("alpha")
	assert.True(t, ok)
	_, ok = c.ResolveTool("missing")
	assert.False(t, ok)

	list := c.ListTools()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ToolName())
	assert.Equal(t, "beta", list[1].ToolName())
}

func TestNormalize(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "hi", Normalize("hi").Text)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, Normalize(nil).Text)
	})

	t.Run("error becomes text", func(t *testing.T) {
		assert.Equal(t, "boom", Normalize(errors.New("boom")).Text)
	})

	t.Run("plain text", func(t *testing.T) {
		assert.Equal(t, "hello", Normalize(PlainText{Text: "hello"}).Text)
	})

	t.Run("structured value marshals to JSON", func(t *testing.T) {
		n := Normalize(map[string]any{"temp": 18})
		assert.JSONEq(t, `{"temp":18}`, n.Text)
	})

	t.Run("list joins entries and keeps attachments", func(t *testing.T) {
		n := Normalize(StructuredList{Entries: []any{
			"first",
			BinaryAttachment{Name: "img.png", MimeType: "image/png", Data: []byte{1}},
			"second",
		}})
		assert.Equal(t, "first\nsecond", n.Text)
		require.Len(t, n.Attachments, 1)
		assert.Equal(t, "img.png", n.Attachments[0].Name)
	})

	t.Run("embeddable surface hides content from the model", func(t *testing.T) {
		n := Normalize(EmbeddableSurface{Kind: "html", Content: "<b>hi</b>"})
		assert.NotContains(t, n.Text, "<b>hi</b>")
		require.Len(t, n.Embeds, 1)
		assert.Equal(t, "html", n.Embeds[0].Kind)
		assert.Equal(t, "<b>hi</b>", n.Embeds[0].Content)
	})

	t.Run("failed surface reports the error", func(t *testing.T) {
		n := Normalize(EmbeddableSurface{Kind: "html", Err: errors.New("render failed")})
		assert.Contains(t, n.Text, "render failed")
		assert.Empty(t, n.Embeds)
	})
}
