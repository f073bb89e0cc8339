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
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryInitialInterval = time.Millisecond
	retryMaxInterval     = 20 * time.Millisecond
)

// ReadFull reads exactly len(b) bytes from o. On a non-blocking opener each
// ErrWouldBlock is retried after an exponential backoff. It returns the number
// of bytes read; n < len(b) only together with an error.
func ReadFull(ctx context.Context, o *Opener, b []byte) (int, error) {
	return transferFull(ctx, b, o.Read)
}

// WriteFull writes all of b to o, looping over short writes. On a
// non-blocking opener each ErrWouldBlock is retried after an exponential
// backoff. It returns the number of bytes written; n < len(b) only together
// with an error.
func WriteFull(ctx context.Context, o *Opener, b []byte) (int, error) {
	return transferFull(ctx, b, o.Write)
}

func newRetryBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	bo.MaxElapsedTime = 0
	return backoff.WithContext(bo, ctx)
}

func transferFull(ctx context.Context, b []byte, op func(context.Context, []byte) (int, error)) (int, error) {
	done := 0
	err := backoff.Retry(func() error {
		for done < len(b) {
			n, err := op(ctx, b[done:])
			done += n
			if errors.Is(err, ErrWouldBlock) {
				return err
			}
			if err != nil {
				return backoff.Permanent(err)
			}
		}
		return nil
	}, newRetryBackOff(ctx))
	if err != nil && !errors.Is(err, ErrInterrupted) && ctx.Err() != nil {
		err = interrupted(ctx)
	}
	return done, err
}
