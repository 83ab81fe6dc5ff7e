// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package command

import (
	"context"
	"time"

	"github.com/rushsh/rush/pkg/abi"
)

// MetricsRecorder tracks command execution metrics for a single dispatch.
type MetricsRecorder struct {
	metrics   *metrics
	startTime time.Time
	name      string
	kind      string
	status    string
}

func (m *metrics) start(name string) *MetricsRecorder {
	return &MetricsRecorder{metrics: m, startTime: time.Now(), name: name}
}

// SetKind sets whether a builtin or a plugin ran.
func (r *MetricsRecorder) SetKind(kind string) {
	r.kind = kind
}

// SetResult derives the status from a dispatch outcome.
func (r *MetricsRecorder) SetResult(res abi.ExecResult, err error) {
	switch {
	case err != nil:
		r.status = StatusError
	case res.Success():
		r.status = StatusSuccess
	case r.kind == KindPlugin && res.Code == abi.CodeNotFound:
		r.status = StatusNotFound
	default:
		r.status = StatusFailure
	}
}

// Record writes the collected metrics.
func (r *MetricsRecorder) Record(ctx context.Context) {
	r.metrics.recordExecution(ctx, r.name, r.kind, r.status)
	r.metrics.recordDuration(ctx, r.name, r.kind, time.Since(r.startTime))
}
