// Command hold is the plugin binary: it wires InvoiceStore, Handler,
// Settler, ExpiryGuard and Messenger together behind the host-daemon
// plugin protocol (pluginrpc) and the gRPC endpoint (rpcserver), per
// spec.md §§1-2.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/btcsuite/btclog/v2"
	"github.com/lightninglabs/hold/certsetup"
	"github.com/lightninglabs/hold/codec"
	"github.com/lightninglabs/hold/config"
	"github.com/lightninglabs/hold/encoder"
	"github.com/lightninglabs/hold/expiryguard"
	"github.com/lightninglabs/hold/handler"
	"github.com/lightninglabs/hold/healthmon"
	"github.com/lightninglabs/hold/messenger"
	"github.com/lightninglabs/hold/metrics"
	"github.com/lightninglabs/hold/pluginrpc"
	"github.com/lightninglabs/hold/rpcserver"
	"github.com/lightninglabs/hold/rpcserver/holdrpc"
	"github.com/lightninglabs/hold/settler"
	"github.com/lightninglabs/hold/store"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

var log = btclog.NewSLogger(btclog.NewDefaultHandler(os.Stderr)).SubSystem("HOLD")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hold: "+err.Error())
		os.Exit(1)
	}
}

// app bundles every long-lived component this binary owns, so the
// pluginrpc "init" callback can construct them and main can tear them down
// on shutdown.
type app struct {
	store      *store.SQLStore
	settlerSvc *settler.Settler
	handlerSvc *handler.Handler
	guard      *expiryguard.Guard
	msgr       *messenger.Messenger
	health     *healthmon.Monitor
	codec      codec.Codec
	encoder    *encoder.Encoder
	metrics    *metrics.Metrics
	grpcServer *grpc.Server
	grpcLis    net.Listener
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Default()
	plugin := pluginrpc.New("hold")

	registerOptions(plugin, cfg)

	var a *app

	plugin.OnInit(func(ctx context.Context, options map[string]interface{},
		rpcFile, network, lightningDir string) error {

		applyOptions(cfg, options)
		cfg.Network = network

		var err error
		a, err = buildApp(ctx, cfg, rpcFile, lightningDir)

		return err
	})

	registerHooks(plugin, &a)
	registerMethods(plugin, &a)

	err := plugin.Run(ctx, os.Stdin, os.Stdout)

	if a != nil {
		a.shutdown()
	}

	return err
}

func registerOptions(plugin *pluginrpc.Plugin, cfg *config.Config) {
	plugin.Option(pluginrpc.OptionSpec{
		Name: "hold-database", Type: "string",
		Default: cfg.Database, Description: "hold database URL",
	})
	plugin.Option(pluginrpc.OptionSpec{
		Name: "hold-mpp-timeout", Type: "int",
		Default: cfg.MPPTimeout, Description: "hold MPP timeout in seconds",
	})
	plugin.Option(pluginrpc.OptionSpec{
		Name: "hold-expiry-deadline", Type: "int",
		Default: cfg.ExpiryDeadline,
		Description: "hold expiry deadline in blocks (0 to disable)",
	})
	plugin.Option(pluginrpc.OptionSpec{
		Name: "hold-grpc-host", Type: "string",
		Default: cfg.GRPCHost, Description: "hold gRPC host",
	})
	plugin.Option(pluginrpc.OptionSpec{
		Name: "hold-grpc-port", Type: "int",
		Default: cfg.GRPCPort,
		Description: "hold gRPC port; set to -1 to disable",
	})
}

func applyOptions(cfg *config.Config, options map[string]interface{}) {
	if v, ok := options["hold-database"].(string); ok && v != "" {
		cfg.Database = v
	}
	if v, ok := asInt64(options["hold-mpp-timeout"]); ok {
		cfg.MPPTimeout = v
	}
	if v, ok := asInt64(options["hold-expiry-deadline"]); ok {
		cfg.ExpiryDeadline = v
	}
	if v, ok := options["hold-grpc-host"].(string); ok && v != "" {
		cfg.GRPCHost = v
	}
	if v, ok := asInt64(options["hold-grpc-port"]); ok {
		cfg.GRPCPort = v
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func buildApp(ctx context.Context, cfg *config.Config, rpcFile, lightningDir string) (*app, error) {
	cfg.DataDir = filepath.Join(lightningDir, "hold")

	storeCfg, err := cfg.StoreConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clk := clock.NewDefaultClock()
	dec := codec.Bolt11Codec{}

	enc, err := encoder.New(cfg.Network, &hostSigner{rpcFile: rpcFile})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("construct encoder: %w", err)
	}

	settlerSvc := settler.New(st, clk, cfg.EffectiveMPPTimeout(), config.SweepInterval)
	settlerSvc.Start()

	handlerSvc := handler.New(st, dec, settlerSvc)
	guard := expiryguard.New(settlerSvc, uint32(cfg.ExpiryDeadline))
	msgr := messenger.New(clk)
	msgr.Start()

	health := healthmon.New(st)
	if err := health.Start(); err != nil {
		log.Warnf("starting health monitor: %v", err)
	}

	met, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	a := &app{
		store:      st,
		settlerSvc: settlerSvc,
		handlerSvc: handlerSvc,
		guard:      guard,
		msgr:       msgr,
		health:     health,
		codec:      dec,
		encoder:    enc,
		metrics:    met,
	}

	if !cfg.GRPCDisabled() {
		if err := a.startGRPC(cfg, dec, enc); err != nil {
			log.Errorf("gRPC endpoint not started: %v", err)
		}
	}

	return a, nil
}

func (a *app) startGRPC(cfg *config.Config, dec codec.Codec, enc *encoder.Encoder) error {
	bundle, err := certsetup.Bootstrap(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("bootstrap TLS: %w", err)
	}

	lis, err := net.Listen("tcp", cfg.GRPCListenAddr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	creds := credentials.NewTLS(bundle.ServerTLSConfig())
	grpcServer := grpc.NewServer(grpc.Creds(creds))

	srv := rpcserver.New(a.store, a.settlerSvc, enc, dec, a.msgr, a.health, cfg.Network)
	holdrpc.RegisterHoldServer(grpcServer, srv)

	a.grpcServer = grpcServer
	a.grpcLis = lis

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Errorf("gRPC server stopped: %v", err)
		}
	}()

	return nil
}

func registerHooks(plugin *pluginrpc.Plugin, aRef **app) {
	plugin.Hook("htlc_accepted", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		a := *aRef
		if a == nil {
			return pluginrpc.ContinueResult(), nil
		}

		onion, htlc, err := pluginrpc.DecodeHtlcAccepted(params)
		if err != nil {
			log.Errorf("decode htlc_accepted: %v", err)
			return pluginrpc.ContinueResult(), nil
		}

		outcome := a.handlerSvc.HandleHTLC(ctx, onion, htlc)

		switch outcome.Kind {
		case handler.Fail:
			a.metrics.HTLCFailed(outcome.Code)
			return pluginrpc.HookResultFor(outcome), nil
		case handler.Continue:
			return pluginrpc.HookResultFor(outcome), nil
		}

		a.metrics.HTLCAccepted()

		select {
		case res := <-outcome.Resolver:
			if !res.Settled {
				a.metrics.HTLCFailed(res.Code)
			}
			return pluginrpc.ResolutionResult(res), nil
		case <-ctx.Done():
			return pluginrpc.ContinueResult(), nil
		}
	})

	onionHandler := func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		a := *aRef
		if a == nil {
			return map[string]string{"result": "continue"}, nil
		}

		payload, err := pluginrpc.DecodeOnionMessage(params)
		if err != nil {
			return map[string]string{"result": "continue"}, nil
		}

		id := messenger.ID(payload)
		reply := a.msgr.Received(id)
		a.msgr.Publish(messenger.Message{ID: id, Payload: payload})

		select {
		case d := <-reply:
			return pluginrpc.OnionMessageResult(d), nil
		case <-ctx.Done():
			return map[string]string{"result": "continue"}, nil
		}
	}
	plugin.Hook("onion_message_recv", onionHandler)
	plugin.Hook("onion_message_recv_secret", onionHandler)

	plugin.Notification("block_added", func(ctx context.Context, params json.RawMessage) {
		a := *aRef
		if a == nil {
			return
		}

		height, err := pluginrpc.DecodeBlockAdded(params)
		if err != nil {
			log.Errorf("decode block_added: %v", err)
			return
		}

		a.guard.NotifyBlock(ctx, height)
	})
}

func (a *app) shutdown() {
	if a.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			a.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			a.grpcServer.Stop()
		}
	}
	if a.msgr != nil {
		a.msgr.Stop()
	}
	if a.settlerSvc != nil {
		a.settlerSvc.Stop()
	}
	if a.health != nil {
		a.health.Stop()
	}
	if a.store != nil {
		a.store.Close()
	}
}
