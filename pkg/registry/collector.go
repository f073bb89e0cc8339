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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/plugin-pipe/pkg/pipe"
)

const namespace = "pipe"

var (
	capacityDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "capacity_bytes"),
		"Configured ring size in bytes.", []string{"pipe"}, nil)
	heldDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "held_bytes"),
		"Bytes waiting to be read.", []string{"pipe"}, nil)
	freeDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "free_bytes"),
		"Bytes a write could accept.", []string{"pipe"}, nil)
	allocatedDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "allocated"),
		"1 while the ring buffer is allocated.", []string{"pipe"}, nil)
	openersDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "openers"),
		"Open readers and writers.", []string{"pipe", "direction"}, nil)
	subscribersDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "subscribers"),
		"Openers subscribed to data-ready notifications.", []string{"pipe"}, nil)
	readDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "read_bytes_total"),
		"Bytes copied out of the pipe.", []string{"pipe"}, nil)
	writtenDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "written_bytes_total"),
		"Bytes accepted into the pipe.", []string{"pipe"}, nil)
	notifyRunningDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "notify", "running"),
		"Notification callbacks executing on the shared pool.", nil, nil)
)

// Collector exports the Stats of every pipe in a Registry.
type Collector struct {
	reg *Registry
}

// NewCollector returns a prometheus.Collector over reg.
func NewCollector(reg *Registry) *Collector {
	return &Collector{reg: reg}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		capacityDesc, heldDesc, freeDesc, allocatedDesc, openersDesc,
		subscribersDesc, readDesc, writtenDesc, notifyRunningDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.reg.Stats() {
		collectStats(ch, st)
	}
	ch <- prometheus.MustNewConstMetric(notifyRunningDesc, prometheus.GaugeValue,
		float64(c.reg.Dispatcher().Running()))
}

func collectStats(ch chan<- prometheus.Metric, st pipe.Stats) {
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, append([]string{st.Name}, labels...)...)
	}
	allocated := 0.0
	if st.Allocated {
		allocated = 1
	}
	gauge(capacityDesc, float64(st.Capacity))
	gauge(heldDesc, float64(st.Held))
	gauge(freeDesc, float64(st.Free))
	gauge(allocatedDesc, allocated)
	gauge(openersDesc, float64(st.Readers), "read")
	gauge(openersDesc, float64(st.Writers), "write")
	gauge(subscribersDesc, float64(st.Subscribers))
	ch <- prometheus.MustNewConstMetric(readDesc, prometheus.CounterValue, float64(st.BytesRead), st.Name)
	ch <- prometheus.MustNewConstMetric(writtenDesc, prometheus.CounterValue, float64(st.BytesWritten), st.Name)
}
