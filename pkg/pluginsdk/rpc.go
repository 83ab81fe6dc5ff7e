// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package pluginsdk

import (
	"bytes"
	"context"
	"errors"
	"net/rpc"
	"os"
	"sync"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/samber/oops"

	"github.com/rushsh/rush/pkg/abi"
)

// ExecArgs is the request of Plugin.Exec.
type ExecArgs struct {
	Argv []string
	// Dir is the host's working directory; the plugin changes into it first.
	Dir string
}

// ExecReply is the response of Plugin.Exec.
type ExecReply struct {
	Code    uint8
	Message string
	Stdout  []byte
	Stderr  []byte
}

// CommandPlugin implements go-plugin's Plugin interface over net/rpc.
type CommandPlugin struct {
	// Impl is used by the plugin side (not used by host).
	Impl Handler
}

// Server returns the RPC server (called by plugin process).
func (p *CommandPlugin) Server(*hashiplug.MuxBroker) (interface{}, error) {
	if p.Impl == nil {
		return nil, errors.New("pluginsdk: handler is nil")
	}
	return &RPCServer{Impl: p.Impl}, nil
}

// Client returns the RPC client (called by host process).
func (p *CommandPlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// RPCServer adapts a Handler to net/rpc. Exported methods are the wire API.
type RPCServer struct {
	Impl Handler

	loadOnce sync.Once
	loadErr  error
	mu       sync.Mutex
}

// ABIVersion reports the ABI version the plugin was built against.
func (s *RPCServer) ABIVersion(_ interface{}, reply *string) error {
	*reply = abi.Version
	return nil
}

// Load runs the handler's one-time initialization.
func (s *RPCServer) Load(_ interface{}, reply *bool) error {
	s.loadOnce.Do(func() {
		if l, ok := s.Impl.(Loader); ok {
			s.loadErr = l.Load(context.Background())
		}
	})
	*reply = s.loadErr == nil
	return s.loadErr
}

// Info returns the handler's descriptive record.
func (s *RPCServer) Info(_ interface{}, reply *abi.CommandInfo) error {
	*reply = s.Impl.Info()
	return nil
}

// Exec runs the handler with captured output.
func (s *RPCServer) Exec(args ExecArgs, reply *ExecReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if args.Dir != "" {
		if err := os.Chdir(args.Dir); err != nil {
			*reply = ExecReply{Code: abi.CodeFailure, Message: err.Error()}
			return nil
		}
	}
	var stdout, stderr bytes.Buffer
	res := s.Impl.Exec(context.Background(), args.Argv, &stdout, &stderr)
	*reply = ExecReply{
		Code:    res.Code,
		Message: res.Message,
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
	}
	return nil
}

// RPCClient is the host side of the wire API.
type RPCClient struct {
	client *rpc.Client
}

// NewRPCClient wraps an established RPC connection.
func NewRPCClient(c *rpc.Client) *RPCClient {
	return &RPCClient{client: c}
}

func (c *RPCClient) call(ctx context.Context, method string, args, reply any) error {
	call := c.client.Go("Plugin."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		if call.Error != nil {
			return oops.In("pluginsdk").With("method", method).Wrap(call.Error)
		}
		return nil
	case <-ctx.Done():
		return oops.In("pluginsdk").With("method", method).Wrap(ctx.Err())
	}
}

// ABIVersion asks the plugin for its ABI version tag.
func (c *RPCClient) ABIVersion(ctx context.Context) (string, error) {
	var v string
	err := c.call(ctx, "ABIVersion", new(interface{}), &v)
	return v, err
}

// Load asks the plugin to initialize.
func (c *RPCClient) Load(ctx context.Context) error {
	var ok bool
	return c.call(ctx, "Load", new(interface{}), &ok)
}

// Info fetches the plugin's descriptive record.
func (c *RPCClient) Info(ctx context.Context) (abi.CommandInfo, error) {
	var info abi.CommandInfo
	err := c.call(ctx, "Info", new(interface{}), &info)
	return info, err
}

// Exec runs the plugin.
func (c *RPCClient) Exec(ctx context.Context, args ExecArgs) (ExecReply, error) {
	var reply ExecReply
	err := c.call(ctx, "Exec", args, &reply)
	return reply, err
}
