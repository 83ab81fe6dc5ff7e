// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package command

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status values recorded on the command executions counter.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Instrument names.
const (
	MetricExecutions = "rush.command.executions"
	MetricDuration   = "rush.command.duration"
)

// metrics holds the dispatcher's instruments.
type metrics struct {
	executions metric.Int64Counter
	duration   metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter("rush/command")
	executions, err := meter.Int64Counter(MetricExecutions,
		metric.WithDescription("Total number of command executions"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Command execution duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &metrics{executions: executions, duration: duration}, nil
}

func (m *metrics) recordExecution(ctx context.Context, name, kind, status string) {
	m.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

func (m *metrics) recordDuration(ctx context.Context, name, kind string, d time.Duration) {
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("kind", kind),
	))
}
