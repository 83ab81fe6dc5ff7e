// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

//go:build integration

package integration

import (
	"os/exec"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
)

var _ = Describe("rush binary", func() {
	var h *home

	BeforeEach(func() {
		h = newHome()
		h.installLua("upper")
		h.install("echo", builds.echo, "echo")
	})

	start := func(input string, env ...string) *gexec.Session {
		cmd := exec.Command(builds.rush) //nolint:gosec // built by the suite
		cmd.Env = h.environ(env...)
		cmd.Dir = h.root
		cmd.Stdin = strings.NewReader(input)
		session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		return session
	}

	It("exits with the status given to exit", func() {
		session := start("upper piped\necho done\nexit 3\n")
		Eventually(session, 30*time.Second).Should(gexec.Exit(3))
		Expect(session.Out).To(gbytes.Say("PIPED\n"))
		Expect(session.Out).To(gbytes.Say("done\n"))
	})

	It("exits 0 at end of input", func() {
		session := start("upper x\n")
		Eventually(session, 30*time.Second).Should(gexec.Exit(0))
	})

	It("fails to start without HOME", func() {
		cmd := exec.Command(builds.rush) //nolint:gosec // built by the suite
		cmd.Env = []string{"PATH=/usr/bin:/bin"}
		cmd.Stdin = strings.NewReader("")
		session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		Eventually(session, 30*time.Second).Should(gexec.Exit(1))
		Expect(session.Err).To(gbytes.Say("rush: "))
	})

	It("rejects an invalid configuration", func() {
		h.writeConfig("log:\n  level: loud\n")
		session := start("")
		Eventually(session, 30*time.Second).Should(gexec.Exit(1))
	})

	It("accepts the log level from the environment", func() {
		session := start("exit\n", "RUSH_LOG=debug", "RUSH_LOG_FORMAT=json")
		Eventually(session, 30*time.Second).Should(gexec.Exit(0))
		Expect(session.Err).To(gbytes.Say(`"msg":"shell initialized"`))
	})
})
