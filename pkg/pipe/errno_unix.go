//go:build unix

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
	"errors"

	"golang.org/x/sys/unix"
)

// Errno maps a pipe error onto the errno a character device would report,
// for embedders that expose a Pipe through a file-like endpoint. A nil error
// maps to 0 and unknown errors to EIO.
func Errno(err error) unix.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrWouldBlock):
		return unix.EAGAIN
	case errors.Is(err, ErrInterrupted):
		return unix.EINTR
	case errors.Is(err, ErrResourceExhausted):
		return unix.ENOMEM
	case errors.Is(err, ErrInvalidState):
		return unix.EBADF
	}
	return unix.EIO
}
