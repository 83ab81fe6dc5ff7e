// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"

	"github.com/rushsh/rush/internal/sidecar"
	"github.com/rushsh/rush/pkg/abi"
)

// Loader opens the plugin file at path. The returned command has not had
// Load called yet.
type Loader interface {
	Open(ctx context.Context, name, path string) (abi.Command, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, name, path string) (abi.Command, error)

// Open calls f.
func (f LoaderFunc) Open(ctx context.Context, name, path string) (abi.Command, error) {
	return f(ctx, name, path)
}

// Entry is a read-only view of a registered plugin.
type Entry struct {
	Name       string
	Path       string
	Loaded     bool
	Generation uint64
}

type record struct {
	meta   sidecar.Metadata
	gen    uint64
	loaded *Handle
}

// Registry maps plugin names to their metadata and, once loaded, their
// handle. Plugins load lazily on first Get and exactly once per generation;
// concurrent callers share a single in-flight load.
//
// No registry lock is held while a plugin loads or runs. A panic raised
// while a lock is held poisons the registry: every later call fails with
// ErrPoisoned.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*record
	loader   Loader
	flight   singleflight.Group
	poisoned atomic.Bool
	cause    atomic.Value
}

// NewRegistry returns an empty registry that opens plugins with loader.
func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader}
}

// Add registers or replaces a plugin. Replacing a loaded plugin starts a new
// generation; the old handle is retired.
func (r *Registry) Add(name string, meta sidecar.Metadata) error {
	var old *Handle
	err := r.write(func() error {
		if r.records == nil {
			r.records = make(map[string]*record)
		}
		var gen uint64
		if prev, ok := r.records[name]; ok {
			gen = prev.gen + 1
			old = prev.loaded
		}
		r.records[name] = &record{meta: meta, gen: gen}
		return nil
	})
	r.retire(old)
	return err
}

// Contains reports whether name is registered, loaded or not.
func (r *Registry) Contains(name string) bool {
	var ok bool
	_ = r.read(func() error {
		_, ok = r.records[name]
		return nil
	})
	return ok
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	var n int
	_ = r.read(func() error {
		n = len(r.records)
		return nil
	})
	return n
}

// Entries returns every registered plugin sorted by name.
func (r *Registry) Entries() ([]Entry, error) {
	var out []Entry
	err := r.read(func() error {
		out = make([]Entry, 0, len(r.records))
		for name, rec := range r.records {
			out = append(out, Entry{
				Name:       name,
				Path:       rec.meta.Path,
				Loaded:     rec.loaded != nil,
				Generation: rec.gen,
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// Get returns the loaded plugin, loading it first if needed. The caller must
// Release the handle when done with it.
func (r *Registry) Get(ctx context.Context, name string) (*Handle, error) {
	for {
		h, known, err := r.lookup(name)
		if err != nil || h != nil {
			return h, err
		}
		if !known {
			return nil, notFound(name)
		}
		if err := ctx.Err(); err != nil {
			return nil, oops.In("plugin").With("plugin", name).Wrap(err)
		}

		// The load is shared with every waiter, so it must not inherit this
		// caller's cancellation.
		ch := r.flight.DoChan(name, func() (any, error) {
			return nil, r.load(context.WithoutCancel(ctx), name)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
		case <-ctx.Done():
			return nil, oops.In("plugin").With("plugin", name).Wrap(ctx.Err())
		}
		// Loaded, or superseded by a concurrent reload; look again.
	}
}

// Reload retires the current handle of name, if any, and loads the plugin
// anew. Callers still holding the old handle may finish using it.
func (r *Registry) Reload(ctx context.Context, name string) (*Handle, error) {
	var old *Handle
	err := r.write(func() error {
		rec, ok := r.records[name]
		if !ok {
			return notFound(name)
		}
		rec.gen++
		old, rec.loaded = rec.loaded, nil
		return nil
	})
	r.retire(old)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "plugin reload requested", "plugin", name)
	return r.Get(ctx, name)
}

// Close retires every loaded handle. The registry stays usable; later Gets
// load plugins again.
func (r *Registry) Close() error {
	var olds []*Handle
	err := r.write(func() error {
		for _, rec := range r.records {
			if rec.loaded != nil {
				olds = append(olds, rec.loaded)
				rec.loaded = nil
				rec.gen++
			}
		}
		return nil
	})
	for _, h := range olds {
		r.retire(h)
	}
	return err
}

// lookup is the reader fast path. It returns a referenced handle when the
// plugin is loaded and reports whether the name is registered at all.
func (r *Registry) lookup(name string) (h *Handle, known bool, err error) {
	err = r.read(func() error {
		rec, ok := r.records[name]
		if !ok {
			return nil
		}
		known = true
		if rec.loaded != nil {
			h = rec.loaded
			h.acquire()
		}
		return nil
	})
	return h, known, err
}

// load opens and initializes one generation of a plugin. It runs inside the
// single-flight group, so at most one load per name is in progress.
func (r *Registry) load(ctx context.Context, name string) error {
	var (
		meta sidecar.Metadata
		gen  uint64
		done bool
	)
	err := r.write(func() error {
		rec, ok := r.records[name]
		if !ok {
			return notFound(name)
		}
		if rec.loaded != nil {
			done = true
			return nil
		}
		meta, gen = rec.meta, rec.gen
		return nil
	})
	if err != nil || done {
		return err
	}

	cmd, err := r.open(ctx, name, meta.Path)
	if err != nil {
		return loadFailed(name, meta.Path, err)
	}
	h := newHandle(name, meta.Path, gen, cmd)

	var stale bool
	err = r.write(func() error {
		rec, ok := r.records[name]
		if !ok || rec.gen != gen || rec.loaded != nil {
			stale = true
			return nil
		}
		rec.loaded = h
		return nil
	})
	if err != nil || stale {
		r.retire(h)
		return err
	}
	slog.DebugContext(ctx, "plugin loaded", "plugin", name, "path", meta.Path, "generation", gen)
	return nil
}

// open runs the loader and the plugin's Load, converting panics into errors.
func (r *Registry) open(ctx context.Context, name, path string) (cmd abi.Command, err error) {
	if r.loader == nil {
		return nil, oops.In("plugin").Errorf("no plugin loader configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = oops.In("plugin").With("panic", fmt.Sprint(p)).Errorf("plugin panicked while loading: %v", p)
			if cmd != nil {
				_ = cmd.Close()
				cmd = nil
			}
		}
	}()

	cmd, err = r.loader.Open(ctx, name, path)
	if err != nil {
		return nil, err
	}
	if err := cmd.Load(ctx); err != nil {
		_ = cmd.Close()
		return nil, err
	}
	return cmd, nil
}

// Err reports whether the registry has been poisoned.
func (r *Registry) Err() error {
	return r.check()
}

func (r *Registry) retire(h *Handle) {
	if h != nil && h.retire() {
		h.shutdown()
	}
}

func (r *Registry) check() error {
	if r.poisoned.Load() {
		return poisoned(r.cause.Load())
	}
	return nil
}

// read runs fn under the reader lock.
func (r *Registry) read(fn func() error) (err error) {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	defer r.recoverPoison(&err)
	return fn()
}

// write runs fn under the writer lock.
func (r *Registry) write(fn func() error) (err error) {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverPoison(&err)
	return fn()
}

func (r *Registry) recoverPoison(err *error) {
	if p := recover(); p != nil {
		r.cause.Store(fmt.Sprint(p))
		r.poisoned.Store(true)
		*err = poisoned(p)
		slog.Error("plugin registry poisoned", "panic", p)
	}
}
