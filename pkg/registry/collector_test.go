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

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/plugin-pipe/pkg/pipe"
)

// gatherValue returns the value of the sample of family name whose labels
// match want.
func gatherValue(t *testing.T, families []*dto.MetricFamily, name string, want map[string]string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue next
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s %v not gathered", name, want)
	return 0
}

func TestCollector(t *testing.T) {
	r := newTestRegistry(t, 2, 8)
	ctx := context.Background()
	p0, _ := r.Lookup(0)

	rw, err := p0.Open(ctx, pipe.ModeReadWrite)
	require.NoError(t, err)
	defer rw.Close()
	_, err = rw.Write(ctx, []byte("hello"))
	require.NoError(t, err)
	_, err = rw.Read(ctx, make([]byte, 2))
	require.NoError(t, err)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(r)))
	families, err := reg.Gather()
	require.NoError(t, err)

	pipe0 := map[string]string{"pipe": "pipe0"}
	assert.Equal(t, 8.0, gatherValue(t, families, "pipe_capacity_bytes", pipe0))
	assert.Equal(t, 3.0, gatherValue(t, families, "pipe_held_bytes", pipe0))
	assert.Equal(t, 4.0, gatherValue(t, families, "pipe_free_bytes", pipe0))
	assert.Equal(t, 1.0, gatherValue(t, families, "pipe_allocated", pipe0))
	assert.Equal(t, 5.0, gatherValue(t, families, "pipe_written_bytes_total", pipe0))
	assert.Equal(t, 2.0, gatherValue(t, families, "pipe_read_bytes_total", pipe0))
	assert.Equal(t, 1.0, gatherValue(t, families, "pipe_openers",
		map[string]string{"pipe": "pipe0", "direction": "read"}))

	assert.Equal(t, 0.0, gatherValue(t, families, "pipe_allocated", map[string]string{"pipe": "pipe1"}))
	assert.Equal(t, 0.0, gatherValue(t, families, "pipe_notify_running", nil))
}
