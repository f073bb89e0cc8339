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

// Package registry owns a set of named pipes that share one notification
// worker pool.
package registry

import (
	"errors"
	"fmt"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/srediag/plugin-pipe/pkg/pipe"
)

const (
	// DefaultCount is the number of pipes created when none is configured.
	DefaultCount = 4
	// DefaultNamePrefix names pipes pipe0, pipe1, ...
	DefaultNamePrefix = "pipe"
	// DefaultNotifyWorkers bounds the shared notification pool.
	DefaultNotifyWorkers = 16
)

// ErrNotFound is returned when no pipe has the requested name or index.
var ErrNotFound = errors.New("registry: pipe not found")

// Config describes the pipes a Registry creates.
type Config struct {
	// Count is how many pipes to create up front.
	Count int
	// NamePrefix is followed by the pipe index to form each name.
	NamePrefix string
	// NotifyWorkers sizes the pool shared by every pipe's subscribers.
	NotifyWorkers int
	// Pipe is the template for every pipe. Its Name and Dispatcher are
	// overwritten per pipe.
	Pipe *pipe.Config
}

// DefaultConfig is used to create a default config.
func DefaultConfig() *Config {
	return &Config{
		Count:         DefaultCount,
		NamePrefix:    DefaultNamePrefix,
		NotifyWorkers: DefaultNotifyWorkers,
		Pipe:          pipe.DefaultConfig(),
	}
}

// VerifyConfig is used to verify the sanity of configuration
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("registry: %w: nil config", pipe.ErrInvalidState)
	}
	if config.Count < 0 {
		return fmt.Errorf("registry: %w: negative count %d", pipe.ErrInvalidState, config.Count)
	}
	if config.NamePrefix == "" {
		return fmt.Errorf("registry: %w: empty name prefix", pipe.ErrInvalidState)
	}
	if config.NotifyWorkers <= 0 {
		return fmt.Errorf("registry: %w: NotifyWorkers must be positive, got %d",
			pipe.ErrInvalidState, config.NotifyWorkers)
	}
	tmpl := *pipeTemplate(config)
	tmpl.Name = config.NamePrefix
	return pipe.VerifyConfig(&tmpl)
}

func pipeTemplate(config *Config) *pipe.Config {
	if config.Pipe == nil {
		return pipe.DefaultConfig()
	}
	return config.Pipe
}

// Registry is a concurrent-safe set of pipes keyed by name.
type Registry struct {
	pipes      cmap.ConcurrentMap[string, *pipe.Pipe]
	template   pipe.Config
	prefix     string
	dispatcher *pipe.PoolDispatcher
}

// New creates config.Count pipes named NamePrefix0..NamePrefixN-1.
func New(config *Config) (*Registry, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	d, err := pipe.NewPoolDispatcher(config.NotifyWorkers)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		pipes:      cmap.New[*pipe.Pipe](),
		template:   *pipeTemplate(config),
		prefix:     config.NamePrefix,
		dispatcher: d,
	}
	for i := 0; i < config.Count; i++ {
		if _, err := r.Add(r.indexName(i)); err != nil {
			d.Release()
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) indexName(i int) string {
	return fmt.Sprintf("%s%d", r.prefix, i)
}

// Add creates a pipe from the template under name. Adding a name that
// already exists returns the existing pipe and ErrInvalidState.
func (r *Registry) Add(name string) (*pipe.Pipe, error) {
	conf := r.template
	conf.Name = name
	conf.Dispatcher = r.dispatcher
	p, err := pipe.New(&conf)
	if err != nil {
		return nil, err
	}
	if !r.pipes.SetIfAbsent(name, p) {
		existing, _ := r.pipes.Get(name)
		return existing, fmt.Errorf("registry: %w: pipe %s already exists", pipe.ErrInvalidState, name)
	}
	return p, nil
}

// Get returns the pipe called name.
func (r *Registry) Get(name string) (*pipe.Pipe, error) {
	p, ok := r.pipes.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Lookup returns the pipe created at index i.
func (r *Registry) Lookup(i int) (*pipe.Pipe, error) {
	return r.Get(r.indexName(i))
}

// Names returns every pipe name in sorted order.
func (r *Registry) Names() []string {
	names := r.pipes.Keys()
	sort.Strings(names)
	return names
}

// Len returns the number of pipes.
func (r *Registry) Len() int {
	return r.pipes.Count()
}

// Stats returns a snapshot of every pipe, ordered by name.
func (r *Registry) Stats() []pipe.Stats {
	names := r.Names()
	out := make([]pipe.Stats, 0, len(names))
	for _, name := range names {
		if p, ok := r.pipes.Get(name); ok {
			out = append(out, p.Stats())
		}
	}
	return out
}

// Dispatcher returns the pool shared by all pipes.
func (r *Registry) Dispatcher() *pipe.PoolDispatcher {
	return r.dispatcher
}

// Close releases the notification pool. Pipes stay usable; their
// notifications are delivered inline from then on.
func (r *Registry) Close() {
	r.dispatcher.Release()
}
