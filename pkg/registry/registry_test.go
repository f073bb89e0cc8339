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

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/plugin-pipe/pkg/pipe"
)

func newTestRegistry(t *testing.T, count, capacity int) *Registry {
	t.Helper()
	conf := DefaultConfig()
	conf.Count = count
	conf.NotifyWorkers = 2
	conf.Pipe.Capacity = capacity
	r, err := New(conf)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestNewDefault(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, DefaultCount, r.Len())
	assert.Equal(t, []string{"pipe0", "pipe1", "pipe2", "pipe3"}, r.Names())
	for _, st := range r.Stats() {
		assert.Equal(t, pipe.DefaultCapacity, st.Capacity)
		assert.False(t, st.Allocated)
	}
}

func TestVerifyConfig(t *testing.T) {
	require.NoError(t, VerifyConfig(DefaultConfig()))
	require.ErrorIs(t, VerifyConfig(nil), pipe.ErrInvalidState)

	conf := DefaultConfig()
	conf.Count = -1
	require.ErrorIs(t, VerifyConfig(conf), pipe.ErrInvalidState)

	conf = DefaultConfig()
	conf.NamePrefix = ""
	require.ErrorIs(t, VerifyConfig(conf), pipe.ErrInvalidState)

	conf = DefaultConfig()
	conf.NotifyWorkers = 0
	require.ErrorIs(t, VerifyConfig(conf), pipe.ErrInvalidState)

	conf = DefaultConfig()
	conf.Pipe.Capacity = 1
	require.ErrorIs(t, VerifyConfig(conf), pipe.ErrInvalidState)

	conf = DefaultConfig()
	conf.Pipe = nil
	require.NoError(t, VerifyConfig(conf))
}

func TestLookupAndGet(t *testing.T) {
	r := newTestRegistry(t, 3, 16)

	p, err := r.Lookup(2)
	require.NoError(t, err)
	assert.Equal(t, "pipe2", p.Name())

	same, err := r.Get("pipe2")
	require.NoError(t, err)
	assert.Same(t, p, same)

	_, err = r.Lookup(3)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdd(t *testing.T) {
	r := newTestRegistry(t, 1, 16)

	p, err := r.Add("extra")
	require.NoError(t, err)
	assert.Equal(t, 16, p.Capacity())
	assert.Equal(t, 2, r.Len())

	again, err := r.Add("extra")
	require.ErrorIs(t, err, pipe.ErrInvalidState)
	assert.Same(t, p, again)
}

func TestPipesAreIndependent(t *testing.T) {
	r := newTestRegistry(t, 2, 16)
	ctx := context.Background()
	p0, _ := r.Lookup(0)
	p1, _ := r.Lookup(1)

	w, err := p0.Open(ctx, pipe.ModeWrite)
	require.NoError(t, err)
	defer w.Close()
	_, err = w.Write(ctx, []byte("data"))
	require.NoError(t, err)

	assert.Equal(t, 4, p0.Stats().Held)
	assert.False(t, p1.Stats().Allocated)
}

func TestSharedNotificationPool(t *testing.T) {
	r := newTestRegistry(t, 2, 16)
	ctx := context.Background()

	got := make(chan pipe.Notification, 4)
	for i := 0; i < 2; i++ {
		p, err := r.Lookup(i)
		require.NoError(t, err)
		rd, err := p.Open(ctx, pipe.ModeRead)
		require.NoError(t, err)
		defer rd.Close()
		require.NoError(t, rd.Subscribe(func(n pipe.Notification) { got <- n }))

		w, err := p.Open(ctx, pipe.ModeWrite)
		require.NoError(t, err)
		defer w.Close()
		_, err = w.Write(ctx, []byte("x"))
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case n := <-got:
			seen[n.Pipe] = true
		case <-time.After(5 * time.Second):
			t.Fatal("notification not delivered")
		}
	}
	assert.True(t, seen["pipe0"] && seen["pipe1"])
}
