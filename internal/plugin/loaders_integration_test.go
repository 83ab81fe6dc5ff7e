// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

//go:build integration

package plugin_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/onsi/gomega/gbytes"

	"github.com/rushsh/rush/internal/plugin"
	pluginlua "github.com/rushsh/rush/internal/plugin/lua"
	"github.com/rushsh/rush/internal/sidecar"
	"github.com/rushsh/rush/pkg/abi"
)

// counterScript prints "loaded" from load so tests can count loads, and
// prints its tag from exec.
const counterScript = `
RUSH_ABI_VERSION = "1.0.0"
function load() rush.print("loaded") end
function info() return { name = "tag", description = "print a tag", version = "1.0.0", help = "Usage: tag" } end
function version() return "1.0.0" end
function help() return "Usage: tag" end
function desc() return "print a tag" end
function exec(args) rush.print("TAG") return 0 end
`

var _ = Describe("Registry with real loaders", func() {
	var (
		ctx      context.Context
		dir      string
		out      *gbytes.Buffer
		reg      *plugin.Registry
		fallback []string
	)

	write := func(name, file, content string) {
		Expect(os.WriteFile(filepath.Join(dir, file), []byte(content), 0o600)).To(Succeed())
		_, err := sidecar.WriteFile(dir, name, file)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		root := GinkgoT().TempDir()
		dir = filepath.Join(root, plugin.Dir)
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		out = gbytes.NewBuffer()
		fallback = nil

		set := plugin.NewLoaderSet(plugin.LoaderFunc(func(_ context.Context, name, path string) (abi.Command, error) {
			fallback = append(fallback, name)
			return nil, os.ErrNotExist
		}))
		Expect(set.Route("*.lua", pluginlua.NewLoader(&pluginlua.HostFunctions{Stdout: out, Stderr: out}))).To(Succeed())

		reg = plugin.NewRegistry(set)
		DeferCleanup(func() { Expect(reg.Close()).To(Succeed()) })

		write("tag", "tag.lua", counterScript)
		write("other", "other.bin", "")

		n, err := plugin.Discover(ctx, reg, []string{root})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})

	It("routes each plugin file to its loader", func() {
		h, err := reg.Get(ctx, "tag")
		Expect(err).NotTo(HaveOccurred())
		defer h.Release()

		res, err := h.Exec(ctx, []string{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success()).To(BeTrue())
		Expect(out).To(gbytes.Say("loaded\nTAG\n"))

		_, err = reg.Get(ctx, "other")
		Expect(err).To(MatchError(plugin.ErrLoadFailed))
		Expect(fallback).To(Equal([]string{"other"}))
	})

	It("loads a plugin once for concurrent first use", func() {
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				h, err := reg.Get(ctx, "tag")
				Expect(err).NotTo(HaveOccurred())
				h.Release()
			}()
		}
		wg.Wait()

		Expect(strings.Count(string(out.Contents()), "loaded")).To(Equal(1))
	})

	It("swaps in a fresh state on reload", func() {
		h, err := reg.Get(ctx, "tag")
		Expect(err).NotTo(HaveOccurred())
		h.Release()

		Expect(os.WriteFile(filepath.Join(dir, "tag.lua"),
			[]byte(strings.Replace(counterScript, `"TAG"`, `"NEW"`, 1)), 0o600)).To(Succeed())

		h, err = reg.Reload(ctx, "tag")
		Expect(err).NotTo(HaveOccurred())
		defer h.Release()
		_, err = h.Exec(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(strings.Count(string(out.Contents()), "loaded")).To(Equal(2))
		Expect(out).To(gbytes.Say("NEW\n"))
	})

	It("reports every discovered plugin before any is loaded", func() {
		entries, err := reg.Entries()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		for _, e := range entries {
			Expect(e.Loaded).To(BeFalse(), e.Name)
		}
	})
})
