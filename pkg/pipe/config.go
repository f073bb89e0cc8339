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
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultCapacity is the ring size used when none is configured.
	DefaultCapacity = 4000
	// DefaultMaxCapacity bounds SetCapacity and the default allocator.
	DefaultMaxCapacity = 64 << 20
	// MinCapacity leaves exactly one usable byte.
	MinCapacity = 2
)

// Config is used to tune a Pipe.
type Config struct {
	// Name identifies the pipe in logs, metrics and notifications.
	Name string

	// Capacity is the ring size in bytes. One byte is reserved, so at most
	// Capacity-1 bytes are held at any time.
	Capacity int

	// MaxCapacity caps Capacity and any later SetCapacity. Zero disables the cap.
	MaxCapacity int

	// Allocator provides the ring buffer on first open. Defaults to a heap
	// allocator bounded by MaxCapacity.
	Allocator Allocator

	// Dispatcher delivers data-ready notifications. Defaults to calling
	// subscribers inline on the writer's goroutine, after the lock is released.
	Dispatcher Dispatcher

	// Meter and Tracer receive pipe instrumentation; both default to no-ops.
	Meter  metric.Meter
	Tracer trace.Tracer
}

// DefaultConfig is used to create a default config.
func DefaultConfig() *Config {
	return &Config{
		Name:        "pipe",
		Capacity:    DefaultCapacity,
		MaxCapacity: DefaultMaxCapacity,
	}
}

// VerifyConfig is used to verify the sanity of configuration
func VerifyConfig(config *Config) error {
	if config == nil {
		return invalidState("nil config")
	}
	if config.Name == "" {
		return invalidState("pipe name must not be empty")
	}
	if config.MaxCapacity < 0 {
		return invalidState("MaxCapacity must not be negative, got %d", config.MaxCapacity)
	}
	return verifyCapacity(config.Capacity, config.MaxCapacity)
}

func verifyCapacity(capacity, max int) error {
	if capacity < MinCapacity {
		return invalidState("capacity must be at least %d, got %d", MinCapacity, capacity)
	}
	if max > 0 && capacity > max {
		return invalidState("capacity %d exceeds MaxCapacity %d", capacity, max)
	}
	return nil
}
