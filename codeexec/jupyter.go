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

package codeexec

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// JupyterBackend executes code against a running Jupyter kernel over its
// websocket channel. Stream output, the final expression value and
// rendered images are folded into one Result; kernel errors come back as
// a plain error carrying the traceback.
type JupyterBackend struct {
	baseURL string
	token   string
	timeout time.Duration
	dialer  *websocket.Dialer
}

type JupyterBackendParams struct {
	// BaseURL of the Jupyter server, e.g. "http://localhost:8888".
	BaseURL string

	// KernelID of the kernel to execute against.
	KernelID string

	// Optional API token.
	Token string

	// Optional per-execution deadline. Defaults to 60 seconds.
	Timeout time.Duration
}

func NewJupyterBackend(params JupyterBackendParams) *JupyterBackend {
	return &JupyterBackend{
		baseURL: strings.TrimSuffix(params.BaseURL, "/") + "/api/kernels/" + params.KernelID + "/channels",
		token:   params.Token,
		timeout: cmp.Or(params.Timeout, 60*time.Second),
		dialer:  websocket.DefaultDialer,
	}
}

// kernelMessage is the subset of the Jupyter wire protocol the backend
// reads and writes.
type kernelMessage struct {
	Header       kernelHeader   `json:"header"`
	ParentHeader kernelHeader   `json:"parent_header"`
	Metadata     map[string]any `json:"metadata"`
	Content      map[string]any `json:"content"`
	Channel      string         `json:"channel"`
}

type kernelHeader struct {
	MsgID    string `json:"msg_id"`
	MsgType  string `json:"msg_type"`
	Session  string `json:"session"`
	Username string `json:"username"`
	Version  string `json:"version"`
	Date     string `json:"date"`
}

func (b *JupyterBackend) Execute(ctx context.Context, lang, code string) (_ *Result, err error) {
	wsURL, err := b.websocketURL()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	conn, _, err := b.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to kernel: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// The context deadline also bounds every websocket read.
	deadline, _ := ctx.Deadline()
	if err = conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	msgID := uuid.NewString()
	request := kernelMessage{
		Header: kernelHeader{
			MsgID:    msgID,
			MsgType:  "execute_request",
			Session:  uuid.NewString(),
			Username: "convoengine",
			Version:  "5.3",
			Date:     time.Now().UTC().Format(time.RFC3339),
		},
		Metadata: map[string]any{},
		Content: map[string]any{
			"code":             code,
			"silent":           false,
			"store_history":    true,
			"user_expressions": map[string]any{},
			"allow_stdin":      false,
			"stop_on_error":    true,
		},
		Channel: "shell",
	}
	if err = conn.WriteJSON(request); err != nil {
		return nil, fmt.Errorf("failed to send execute_request: %w", err)
	}

	result := new(Result)
	var execErr error
	for {
		var msg kernelMessage
		if err = conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("kernel channel read failed: %w", err)
		}
		if msg.ParentHeader.MsgID != msgID {
			continue
		}

		switch msg.Header.MsgType {
		case "stream":
			if text, ok := msg.Content["text"].(string); ok {
				result.Stdout += text
			}
		case "execute_result":
			result.Result += plainText(msg.Content)
		case "display_data":
			// Images arrive inline as base64. Keep them as data URLs in
			// the output text; the engine externalizes them before the
			// timeline is persisted.
			if png := dataField(msg.Content, "image/png"); png != "" {
				result.Stdout += fmt.Sprintf("![output](data:image/png;base64,%s)\n", png)
			} else {
				result.Stdout += plainText(msg.Content)
			}
		case "error":
			execErr = kernelError(msg.Content)
		case "status":
			if state, ok := msg.Content["execution_state"].(string); ok && state == "idle" {
				if execErr != nil {
					return nil, execErr
				}
				return result, nil
			}
		}
	}
}

func (b *JupyterBackend) websocketURL() (string, error) {
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Jupyter URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if b.token != "" {
		q := u.Query()
		q.Set("token", b.token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func plainText(content map[string]any) string {
	return dataField(content, "text/plain")
}

func dataField(content map[string]any, mime string) string {
	data, ok := content["data"].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := data[mime].(string)
	return s
}

func kernelError(content map[string]any) error {
	name, _ := content["ename"].(string)
	value, _ := content["evalue"].(string)
	if traceback, ok := content["traceback"].([]any); ok && len(traceback) > 0 {
		lines := make([]string, 0, len(traceback))
		for _, line := range traceback {
			if s, ok := line.(string); ok {
				lines = append(lines, s)
			}
		}
		return fmt.Errorf("%s: %s\n%s", name, value, strings.Join(lines, "\n"))
	}
	return fmt.Errorf("%s: %s", name, value)
}
