// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package command turns input lines into builtin or plugin invocations.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rushsh/rush/internal/builtin"
	"github.com/rushsh/rush/internal/plugin"
	"github.com/rushsh/rush/pkg/abi"
)

// Command kinds recorded on dispatch spans.
const (
	KindBuiltin = "builtin"
	KindPlugin  = "plugin"
)

// Dispatcher runs one command line at a time against the builtin and plugin
// registries.
type Dispatcher struct {
	builtins *builtin.Registry
	plugins  *plugin.Registry
	stderr   io.Writer
	tracer   trace.Tracer
	meter    metric.MeterProvider
	metrics  *metrics
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithStderr sets where failure messages are written.
func WithStderr(w io.Writer) DispatcherOption {
	return func(d *Dispatcher) {
		d.stderr = w
	}
}

// WithTracerProvider sets the provider dispatch spans are created from.
func WithTracerProvider(tp trace.TracerProvider) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = tp.Tracer("rush/command")
	}
}

// WithMeterProvider sets the provider dispatch metrics are recorded with.
func WithMeterProvider(mp metric.MeterProvider) DispatcherOption {
	return func(d *Dispatcher) {
		d.meter = mp
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a dispatcher. Returns an error if either registry is
// nil.
func NewDispatcher(builtins *builtin.Registry, plugins *plugin.Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if builtins == nil {
		return nil, ErrNilBuiltins
	}
	if plugins == nil {
		return nil, ErrNilPlugins
	}
	d := &Dispatcher{
		builtins: builtins,
		plugins:  plugins,
		stderr:   os.Stderr,
		tracer:   otel.Tracer("rush/command"),
		meter:    otel.GetMeterProvider(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	m, err := newMetrics(d.meter)
	if err != nil {
		return nil, oops.In("command").Wrapf(err, "create metrics")
	}
	d.metrics = m
	return d, nil
}

// Dispatch tokenizes and runs line. A blank line does nothing. Builtins
// shadow plugins of the same name. A non-zero result with a message is
// reported on stderr.
//
// The returned error is non-nil only when the plugin registry is poisoned;
// every other failure is carried in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (res abi.ExecResult, err error) {
	name, args, ok := Tokenize(line)
	if !ok {
		return abi.OK(), nil
	}

	ctx, span := d.tracer.Start(ctx, "command.dispatch",
		trace.WithAttributes(attribute.String("command.name", name)),
	)
	rec := d.metrics.start(name)
	kind := KindPlugin
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		rec.SetKind(kind)
		rec.SetResult(res, err)
		rec.Record(ctx)
	}()

	if d.builtins.Contains(name) {
		kind = KindBuiltin
		res = d.builtins.Execute(ctx, name, args)
		// A builtin may reach into the plugin registry.
		err = d.plugins.Err()
	} else {
		res, err = d.runPlugin(ctx, name, args)
	}
	if err != nil {
		return abi.ExecResult{}, err
	}

	span.SetAttributes(
		attribute.String("command.kind", kind),
		attribute.Int("command.code", int(res.Code)),
	)
	if !res.Success() {
		span.SetStatus(codes.Error, res.Message)
		if res.Message != "" {
			_, _ = fmt.Fprintln(d.stderr, res.Message)
		}
	}

	d.logger.DebugContext(ctx, "command dispatched",
		"command", name,
		"kind", kind,
		"args", len(args),
		"code", res.Code,
	)
	return res, nil
}

func (d *Dispatcher) runPlugin(ctx context.Context, name string, args []string) (abi.ExecResult, error) {
	h, err := d.plugins.Get(ctx, name)
	if err != nil {
		switch {
		case errors.Is(err, plugin.ErrPoisoned):
			return abi.ExecResult{}, err
		case errors.Is(err, plugin.ErrNotFound):
			return abi.Fail(abi.CodeNotFound, "%s: command not found", name), nil
		}
		d.logger.DebugContext(ctx, "plugin load failed", "command", name, "error", err)
		return abi.Fail(abi.CodePluginFailure, "%s: %v", name, err), nil
	}
	defer h.Release()

	res, err := h.Exec(ctx, args)
	if err != nil {
		d.logger.DebugContext(ctx, "plugin exec failed", "command", name, "error", err)
		return abi.Fail(abi.CodePluginFailure, "%s: %v", name, err), nil
	}
	return res, nil
}
