// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package main implements rush-prompt, the plugin rush runs to render its
// prompt. The prompt is returned in the result message rather than
// printed.
//
// The rendered form is "user@host:dir$ " with the home directory shown as
// "~" and "#" in place of "$" for root. Colour follows fatih/color, which
// honours NO_COLOR.
package main

import (
	"context"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/pluginsdk"
)

type prompt struct {
	getwd    func() (string, error)
	identity func() (username, hostname, home string)

	once     sync.Once
	username string
	hostname string
	home     string
}

func newPrompt() *prompt {
	return &prompt{getwd: os.Getwd, identity: systemIdentity}
}

// systemIdentity reads USER first and falls back to the passwd entry.
func systemIdentity() (string, string, string) {
	name := os.Getenv("USER")
	home, _ := os.UserHomeDir()
	if u, err := user.Current(); err == nil {
		if name == "" {
			name = u.Username
		}
		if home == "" {
			home = u.HomeDir
		}
	}
	host, _ := os.Hostname()
	return name, host, home
}

func (p *prompt) Load(context.Context) error {
	p.once.Do(func() {
		p.username, p.hostname, p.home = p.identity()
	})
	return nil
}

func (*prompt) Info() abi.CommandInfo {
	return abi.CommandInfo{
		Name:        "rush-prompt",
		Description: "Render the rush prompt",
		Version:     "1.0.0",
		Help:        "This plugin is run by rush to draw the prompt and is not meant to be called directly",
	}
}

func (p *prompt) Exec(ctx context.Context, _ []string, _, _ io.Writer) abi.ExecResult {
	_ = p.Load(ctx)
	return abi.ExecResult{Code: abi.CodeSuccess, Message: p.render()}
}

func (p *prompt) render() string {
	root := p.username == "root"

	var b strings.Builder
	if p.username != "" {
		c := color.New(color.FgCyan, color.Bold)
		if root {
			c = color.New(color.FgRed, color.Bold)
		}
		b.WriteString(c.Sprint(p.username))
	}
	if p.hostname != "" {
		if b.Len() > 0 {
			b.WriteString("@")
		}
		b.WriteString(color.YellowString(p.hostname))
	}
	if dir := p.dir(); dir != "" {
		if b.Len() > 0 {
			b.WriteString(":")
		}
		b.WriteString(color.BlueString(dir))
	}
	if root {
		b.WriteString("# ")
	} else {
		b.WriteString("$ ")
	}
	return b.String()
}

// dir returns the working directory with the home prefix replaced by "~".
func (p *prompt) dir() string {
	wd, err := p.getwd()
	if err != nil {
		return ""
	}
	if p.home == "" {
		return wd
	}
	rel, err := filepath.Rel(p.home, wd)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return wd
	}
	if rel == "." {
		return "~"
	}
	return "~" + string(filepath.Separator) + rel
}

func main() {
	pluginsdk.Serve(&pluginsdk.ServeConfig{Handler: newPrompt()})
}
