// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

//go:build integration

package integration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/onsi/gomega/gbytes"

	"github.com/rushsh/rush/internal/env"
	"github.com/rushsh/rush/internal/history"
	"github.com/rushsh/rush/internal/lineedit"
	"github.com/rushsh/rush/internal/shell"
)

var _ = Describe("Shell session", func() {
	var (
		h              *home
		stdout, stderr *gbytes.Buffer
		prompts        *gbytes.Buffer
	)

	BeforeEach(func() {
		h = newHome()
		stdout = gbytes.NewBuffer()
		stderr = gbytes.NewBuffer()
		prompts = gbytes.NewBuffer()
		GinkgoT().Setenv("RUSH_LOG", "error")
		GinkgoT().Setenv("RUSH_LOG_FORMAT", "")
		GinkgoT().Setenv("USER", "ada")
	})

	runFrom := func(input io.Reader) (*shell.Shell, uint8) {
		ctx := context.Background()
		sh, err := shell.New(ctx, "integration", shell.Deps{
			ResolvePaths: func() (*env.SearchPaths, error) {
				return &env.SearchPaths{
					Data:   env.NewDirList(h.data),
					Config: env.NewDirList(h.config),
				}, nil
			},
			CacheDir: func() (string, error) { return h.cache, nil },
			Stdout:   stdout,
			Stderr:   stderr,
			Reader:   lineedit.NewPlain(input, prompts),
		})
		Expect(err).NotTo(HaveOccurred())
		code, err := sh.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		return sh, code
	}

	run := func(input string) (*shell.Shell, uint8) {
		return runFrom(strings.NewReader(input))
	}

	Describe("Lua plugins", func() {
		BeforeEach(func() {
			h.installLua("upper")
			h.installLua("whoami")
		})

		It("runs plugins and reports their status", func() {
			_, code := run("upper hello world\nwhoami\nwhoami extra\n")

			Expect(code).To(BeZero())
			Expect(stdout).To(gbytes.Say("HELLO WORLD\n"))
			Expect(stdout).To(gbytes.Say("ada\n"))
			Expect(stderr).To(gbytes.Say("whoami: expected 0 arguments, found 1\n"))
		})

		It("loads plugins only when they are first used", func() {
			sh, _ := run("upper x\nplugin list\n")

			entries, err := sh.Plugins.Entries()
			Expect(err).NotTo(HaveOccurred())
			loaded := map[string]bool{}
			for _, e := range entries {
				loaded[e.Name] = e.Loaded
			}
			Expect(loaded).To(Equal(map[string]bool{"upper": true, "whoami": false}))
			Expect(stderr).To(gbytes.Say(`upper\tloaded\t`))
		})

		It("answers introspection queries", func() {
			run("plugin desc upper\nplugin version whoami\nplugin help upper\nplugin desc nosuch\nplugin help exit\n")

			Expect(stderr).To(gbytes.Say("Print arguments in upper case\n"))
			Expect(stderr).To(gbytes.Say("1.0.0\n"))
			Expect(stderr).To(gbytes.Say(`Usage: upper \[ARG\.\.\.\]`))
			Expect(stderr).To(gbytes.Say("plugin-desc: nosuch plugin not found\n"))
			Expect(stderr).To(gbytes.Say("plugin-help: exit is a shell builtin\n"))
		})

		It("picks up a changed script on reload", func() {
			script := filepath.Join(h.plugins, "upper.lua")
			src, err := os.ReadFile(script) //nolint:gosec // test fixture
			Expect(err).NotTo(HaveOccurred())

			input, typing := io.Pipe()
			done := make(chan uint8)
			go func() {
				defer GinkgoRecover()
				_, code := runFrom(input)
				done <- code
			}()

			_, err = io.WriteString(typing, "upper b\n")
			Expect(err).NotTo(HaveOccurred())
			Eventually(stdout).Should(gbytes.Say("B\n"))

			changed := strings.Replace(string(src), "string.upper", "string.lower", 1)
			Expect(os.WriteFile(script, []byte(changed), 0o600)).To(Succeed())

			_, err = io.WriteString(typing, "upper C\nplugin reload upper\nupper C\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(typing.Close()).To(Succeed())
			Eventually(done).Should(Receive(BeZero()))

			Expect(stdout).To(gbytes.Say("C\n"))
			Expect(stderr).To(gbytes.Say("upper: plugin reloaded\n"))
			Expect(stdout).To(gbytes.Say("c\n"))
		})
	})

	Describe("executable plugins", func() {
		BeforeEach(func() {
			h.install("echo", builds.echo, "echo")
			h.install("pwd", builds.pwd, "pwd")
		})

		It("prints plugin output in command order", func() {
			wd, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())

			_, code := run("echo one two\npwd\necho -n three\n")

			Expect(code).To(BeZero())
			Expect(stdout).To(gbytes.Say("one two\n"))
			Expect(stdout).To(gbytes.Say(regexp.QuoteMeta(wd) + "\n"))
			Expect(stdout).To(gbytes.Say("three$"))
		})

		It("maps plugin argument errors to the plugin's status", func() {
			run("echo --bogus\n")
			Expect(stderr).To(gbytes.Say("echo: unknown flag: --bogus\n"))
		})
	})

	Describe("prompt plugin", func() {
		It("renders the prompt through rush-prompt", func() {
			h.install("rush-prompt", builds.prompt, "rush-prompt")
			h.writeConfig("prompt:\n  fallback: \"fallback> \"\n")
			GinkgoT().Setenv("NO_COLOR", "1")

			run("plugin list\n")

			Expect(string(prompts.Contents())).NotTo(ContainSubstring("fallback>"))
			Expect(string(prompts.Contents())).To(MatchRegexp(`^ada@[^:]+:[^$#]+\$ `))
		})

		It("falls back when no prompt plugin is installed", func() {
			h.writeConfig("prompt:\n  fallback: \"fallback> \"\n")
			run("\n")
			Expect(string(prompts.Contents())).To(Equal("fallback> fallback> "))
		})
	})

	Describe("exit and history", func() {
		It("stops at exit and saves what was typed", func() {
			h.installLua("upper")

			_, code := run("upper a\n\nexit 7\nupper never\n")

			Expect(code).To(Equal(uint8(7)))
			Expect(stdout).NotTo(gbytes.Say("NEVER"))
			data, err := os.ReadFile(filepath.Join(h.cache, history.FileName))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("upper a\nexit 7\n"))
		})

		It("reports unknown commands and keeps going", func() {
			_, code := run("nosuch arg\nexit nope\n")
			Expect(code).To(BeZero())
			Expect(stderr).To(gbytes.Say("nosuch: command not found\n"))
			Expect(stderr).To(gbytes.Say("exit: expected u8, found nope\n"))
		})
	})
})
