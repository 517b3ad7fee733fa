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
	"context"
	"fmt"
)

// CallFunc issues an RPC request to the live client session and awaits
// its reply. It is the same transport the engine uses for remote tools.
type CallFunc func(ctx context.Context, request map[string]any) (map[string]any, error)

// ClientBackend delegates execution to the client session, for
// deployments where code runs in the user's browser sandbox.
type ClientBackend struct {
	Call CallFunc
}

func NewClientBackend(call CallFunc) *ClientBackend {
	return &ClientBackend{Call: call}
}

func (b *ClientBackend) Execute(ctx context.Context, lang, code string) (*Result, error) {
	if b.Call == nil {
		return nil, fmt.Errorf("client backend has no transport")
	}
	reply, err := b.Call(ctx, map[string]any{
		"type": "execute:code",
		"lang": lang,
		"code": code,
	})
	if err != nil {
		return nil, err
	}
	if errText, ok := reply["error"].(string); ok && errText != "" {
		return nil, fmt.Errorf("%s", errText)
	}
	result := new(Result)
	result.Stdout, _ = reply["stdout"].(string)
	result.Result, _ = reply["result"].(string)
	return result, nil
}
