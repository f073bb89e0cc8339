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
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/srediag/plugin-pipe/pkg/pipe"

const (
	opRead  = "read"
	opWrite = "write"
	opPoll  = "poll"
)

type instruments struct {
	tracer trace.Tracer
	attrs  attribute.Set

	bytesRead     metric.Int64Counter
	bytesWritten  metric.Int64Counter
	sleeps        metric.Int64Counter
	wouldBlock    metric.Int64Counter
	interrupts    metric.Int64Counter
	notifications metric.Int64Counter
}

func newInstruments(name string, meter metric.Meter, tracer trace.Tracer) (*instruments, error) {
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}
	in := &instruments{
		tracer: tracer,
		attrs:  attribute.NewSet(attribute.String("pipe", name)),
	}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&in.bytesRead, "pipe.bytes.read", "Bytes copied out of the pipe.", "By"},
		{&in.bytesWritten, "pipe.bytes.written", "Bytes accepted into the pipe.", "By"},
		{&in.sleeps, "pipe.waits", "Times an operation suspended waiting for data or space.", "{wait}"},
		{&in.wouldBlock, "pipe.would_block", "Non-blocking operations that could not proceed.", "{operation}"},
		{&in.interrupts, "pipe.interrupted", "Blocked operations cancelled before completion.", "{operation}"},
		{&in.notifications, "pipe.notifications", "Data-ready notifications handed to subscribers.", "{notification}"},
	}
	for _, c := range counters {
		ctr, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.dst = ctr
	}
	return in, nil
}

func (in *instruments) opAttrs(op string) metric.AddOption {
	return metric.WithAttributes(append(in.attrs.ToSlice(), attribute.String("op", op))...)
}

func (in *instruments) read(ctx context.Context, n int) {
	in.bytesRead.Add(ctx, int64(n), metric.WithAttributeSet(in.attrs))
}

func (in *instruments) wrote(ctx context.Context, n int) {
	in.bytesWritten.Add(ctx, int64(n), metric.WithAttributeSet(in.attrs))
}

func (in *instruments) wouldBlocked(ctx context.Context, op string) {
	in.wouldBlock.Add(ctx, 1, in.opAttrs(op))
}

func (in *instruments) notified(ctx context.Context, n int) {
	in.notifications.Add(ctx, int64(n), metric.WithAttributeSet(in.attrs))
}

// startWait opens a span around one suspension. The returned func ends it,
// recording err when the wait was cancelled.
func (in *instruments) startWait(ctx context.Context, op string) (context.Context, func(err error)) {
	in.sleeps.Add(ctx, 1, in.opAttrs(op))
	ctx, span := in.tracer.Start(ctx, "pipe.wait",
		trace.WithAttributes(append(in.attrs.ToSlice(), attribute.String("op", op))...))
	return ctx, func(err error) {
		if err != nil {
			in.interrupts.Add(ctx, 1, in.opAttrs(op))
			span.RecordError(err)
			span.SetStatus(codes.Error, "interrupted")
		}
		span.End()
	}
}
