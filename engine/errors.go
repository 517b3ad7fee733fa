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
	"errors"
	"fmt"
)

// ModelBehaviorError is returned when the upstream model does something
// unexpected, e.g. reports an explicit failure event mid-stream.
type ModelBehaviorError error

func NewModelBehaviorError(message string) ModelBehaviorError {
	return ModelBehaviorError(errors.New(message))
}

func ModelBehaviorErrorf(format string, a ...any) ModelBehaviorError {
	return ModelBehaviorError(fmt.Errorf(format, a...))
}

// UserError is returned when the engine is misused, e.g. constructed
// without a model client.
type UserError error

func NewUserError(message string) UserError {
	return UserError(errors.New(message))
}

func UserErrorf(format string, a ...any) UserError {
	return UserError(fmt.Errorf(format, a...))
}

// CanceledError reports that the turn was cancelled externally. The
// partial timeline has still been persisted by the time this surfaces.
type CanceledError error

func NewCanceledError(message string) CanceledError {
	return CanceledError(errors.New(message))
}

func CanceledErrorf(format string, a ...any) CanceledError {
	return CanceledError(fmt.Errorf(format, a...))
}
