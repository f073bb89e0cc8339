/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pipe

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrWouldBlock means a non-blocking operation could not proceed: the pipe
	// was empty on read or full on write. Retry later or switch to blocking mode.
	ErrWouldBlock = errors.New("pipe: operation would block")

	// ErrInterrupted means a blocked operation was cancelled before it could
	// transfer anything. The whole operation may be retried.
	ErrInterrupted = errors.New("pipe: interrupted")

	// ErrResourceExhausted means the buffer could not be allocated on first open.
	ErrResourceExhausted = errors.New("pipe: buffer allocation failed")

	// ErrInvalidState indicates a caller bug, such as closing an opener twice
	// or changing the capacity while the pipe is open.
	ErrInvalidState = errors.New("pipe: invalid state")
)

// interrupted wraps the context's cause so both errors.Is(err, ErrInterrupted)
// and errors.Is(err, context.Canceled) hold.
func interrupted(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = ctx.Err()
	}
	return fmt.Errorf("%w: %w", ErrInterrupted, cause)
}

func invalidState(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, a...))
}
