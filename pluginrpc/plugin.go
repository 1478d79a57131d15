// Package pluginrpc implements the host-daemon side of spec.md §6's "Host
// plugin protocol": a line-delimited JSON-RPC stream over stdio, the
// getmanifest/init handshake, and dispatch tables for hooks, notifications
// and RPC methods. Per spec.md §1's scope note, this package is
// deliberately thin - it only frames and dispatches onto handler/settler/
// store; none of the business logic lives here.
package pluginrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// HookHandler handles one "htlc_accepted"/"onion_message_recv"-style hook
// call and returns the JSON value to reply with.
type HookHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// MethodHandler handles one RPC method call.
type MethodHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler handles one subscribed notification; it has no
// reply.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// InitFunc is invoked once, on the host daemon's "init" call, with the
// parsed option values and daemon configuration.
type InitFunc func(ctx context.Context, options map[string]interface{}, rpcFile, network, lightningDir string) error

// method bundles a handler with the getmanifest metadata the host daemon
// needs to register it.
type method struct {
	handler     MethodHandler
	usage       string
	description string
}

// Plugin is the line-delimited JSON-RPC-over-stdio endpoint of spec.md §6.
type Plugin struct {
	name string

	options       []OptionSpec
	hooks         map[string]HookHandler
	methods       map[string]*method
	notifications map[string]NotificationHandler
	onInit        InitFunc

	out   io.Writer
	outMu sync.Mutex
}

// New constructs an empty Plugin; call Option/Hook/Method/Notification to
// register the handshake surface before Run.
func New(name string) *Plugin {
	return &Plugin{
		name:          name,
		hooks:         make(map[string]HookHandler),
		methods:       make(map[string]*method),
		notifications: make(map[string]NotificationHandler),
	}
}

// Option advertises one getmanifest option.
func (p *Plugin) Option(opt OptionSpec) {
	p.options = append(p.options, opt)
}

// Hook registers a hook handler, advertised in getmanifest's "hooks" list.
func (p *Plugin) Hook(name string, h HookHandler) {
	p.hooks[name] = h
}

// Notification subscribes to a host-daemon notification, advertised in
// getmanifest's "subscriptions" list.
func (p *Plugin) Notification(name string, h NotificationHandler) {
	p.notifications[name] = h
}

// Method registers an RPC method exposed back to the host, advertised in
// getmanifest's "rpcmethods" list.
func (p *Plugin) Method(name, usage, description string, h MethodHandler) {
	p.methods[name] = &method{handler: h, usage: usage, description: description}
}

// OnInit registers the callback invoked once the host daemon's "init" call
// arrives with parsed option values.
func (p *Plugin) OnInit(f InitFunc) {
	p.onInit = f
}

// Run drives the read/dispatch loop until in is exhausted or ctx is
// cancelled. Each line is one JSON-RPC request; requests carrying a
// non-empty "id" get a matching line-delimited reply on out.
func (p *Plugin) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	p.out = out

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		p.dispatch(ctx, req)
	}

	return scanner.Err()
}

func (p *Plugin) dispatch(ctx context.Context, req request) {
	switch req.Method {
	case "getmanifest":
		p.reply(req.ID, p.manifest(), nil)

	case "init":
		p.handleInit(ctx, req)

	default:
		if hook, ok := p.hooks[req.Method]; ok {
			result, err := hook(ctx, req.Params)
			p.reply(req.ID, result, err)
			return
		}
		if m, ok := p.methods[req.Method]; ok {
			result, err := m.handler(ctx, req.Params)
			p.reply(req.ID, result, err)
			return
		}
		if nh, ok := p.notifications[req.Method]; ok {
			nh(ctx, req.Params)
			return
		}

		if len(req.ID) > 0 {
			p.reply(req.ID, nil, fmt.Errorf("unknown method %q", req.Method))
		}
	}
}

func (p *Plugin) handleInit(ctx context.Context, req request) {
	var params initParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		p.reply(req.ID, nil, fmt.Errorf("parse init params: %w", err))
		return
	}

	if p.onInit != nil {
		err := p.onInit(
			ctx, params.Options, params.Configuration.RPCFile,
			params.Configuration.Network, params.Configuration.LightningDir,
		)
		if err != nil {
			p.reply(req.ID, nil, err)
			return
		}
	}

	p.reply(req.ID, map[string]interface{}{}, nil)
}

func (p *Plugin) manifest() manifestResult {
	hooks := make([]HookSpec, 0, len(p.hooks))
	for name := range p.hooks {
		hooks = append(hooks, HookSpec{Name: name})
	}

	subs := make([]string, 0, len(p.notifications))
	for name := range p.notifications {
		subs = append(subs, name)
	}

	methods := make([]rpcMethodSpec, 0, len(p.methods))
	for name, m := range p.methods {
		methods = append(methods, rpcMethodSpec{
			Name: name, Usage: m.usage, Description: m.description,
		})
	}

	return manifestResult{
		Options:       p.options,
		RPCMethods:    methods,
		Subscriptions: subs,
		Hooks:         hooks,
		Dynamic:       true,
	}
}

// reply writes a line-delimited JSON-RPC response for requests carrying a
// non-empty id; notifications (empty id) are silently dropped per the
// protocol.
func (p *Plugin) reply(id json.RawMessage, result interface{}, err error) {
	if len(id) == 0 {
		return
	}

	resp := response{JSONRPC: "2.0", ID: id}
	if err != nil {
		resp.Error = &rpcError{Code: -32000, Message: err.Error()}
	} else {
		resp.Result = result
	}

	line, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		return
	}

	p.outMu.Lock()
	defer p.outMu.Unlock()

	p.out.Write(line)
	p.out.Write([]byte("\n"))
}
