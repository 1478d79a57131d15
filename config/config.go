// Package config parses the plugin's command-line/option surface. Fields
// and defaults mirror the hold-* options of spec.md §6 exactly; struct tags
// follow github.com/jessevdk/go-flags, the flag library the teacher's own
// daemon/lncli binaries use for their option structs.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lightninglabs/hold/store"
)

// defaultMPPTimeout is the default hold-mpp-timeout, in seconds.
const defaultMPPTimeout = 60

// regtestMPPTimeout is the mpp-timeout forced on regtest, where the short
// timer makes test suites run quickly (spec.md §6).
const regtestMPPTimeout = 10

// defaultExpiryDeadline is the default hold-expiry-deadline, in blocks.
const defaultExpiryDeadline = 3

// defaultGRPCHost is the default hold-grpc-host.
const defaultGRPCHost = "127.0.0.1"

// defaultGRPCPort is the default hold-grpc-port.
const defaultGRPCPort = 9292

// defaultDatabaseURL is the default hold-database option.
const defaultDatabaseURL = "sqlite://hold.sqlite3"

// SweepInterval is the MPP-timeout sweep period of spec.md §4.3; it isn't a
// plugin option, but lives here alongside the other tunables the Settler is
// constructed from.
const SweepInterval = 15 * time.Second

// Config is the plugin's full option set, parsed either from the host
// daemon's getmanifest/init handshake (pluginrpc) or, for standalone
// development runs, from the command line via go-flags directly.
type Config struct {
	// DataDir is the plugin's private data directory, used for the TLS
	// material certsetup bootstraps. StoreConfig does not use it: a
	// relative sqlite path is passed through unchanged.
	DataDir string `long:"datadir" description:"plugin data directory"`

	// Network is the Bitcoin network the host node runs on; it gates the
	// encoder's BOLT11 HRP prefix and the regtest mpp-timeout override.
	Network string `long:"network" description:"bitcoin network (bitcoin, testnet, regtest, signet)" default:"bitcoin"`

	Database       string `long:"hold-database" description:"hold database URL" default:"sqlite://hold.sqlite3"`
	MPPTimeout     int64  `long:"hold-mpp-timeout" description:"hold MPP timeout in seconds" default:"60"`
	ExpiryDeadline int64  `long:"hold-expiry-deadline" description:"hold expiry deadline in blocks (0 to disable)" default:"3"`
	GRPCHost       string `long:"hold-grpc-host" description:"hold gRPC host" default:"127.0.0.1"`
	GRPCPort       int64  `long:"hold-grpc-port" description:"hold gRPC port; set to -1 to disable" default:"9292"`
}

// Default returns the option set with spec.md §6's documented defaults,
// used both as the getmanifest advertisement and as the starting point for
// standalone parsing.
func Default() *Config {
	return &Config{
		Network:        "bitcoin",
		Database:       defaultDatabaseURL,
		MPPTimeout:     defaultMPPTimeout,
		ExpiryDeadline: defaultExpiryDeadline,
		GRPCHost:       defaultGRPCHost,
		GRPCPort:       defaultGRPCPort,
	}
}

// Parse parses os.Args (minus argv[0]) into a fresh Config for standalone
// runs outside a host daemon, per SPEC_FULL.md §4.8's local --config flag
// set.
func Parse(args []string) (*Config, error) {
	cfg := Default()

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EffectiveMPPTimeout applies the regtest override of spec.md §6: the
// MPP-part abandonment window is forced to 10s on regtest regardless of the
// configured hold-mpp-timeout, so integration tests don't wait a full
// minute for MPP parts to time out.
func (c *Config) EffectiveMPPTimeout() time.Duration {
	if c.Network == "regtest" {
		return regtestMPPTimeout * time.Second
	}

	return time.Duration(c.MPPTimeout) * time.Second
}

// GRPCDisabled reports whether hold-grpc-port disables the RPC endpoint.
func (c *Config) GRPCDisabled() bool {
	return c.GRPCPort < 0
}

// GRPCListenAddr returns the listen address for the gRPC endpoint, binding
// 0.0.0.0 on regtest per spec.md §6 regardless of the configured host so
// itests running against a containerized node can reach it.
func (c *Config) GRPCListenAddr() string {
	host := c.GRPCHost
	if c.Network == "regtest" {
		host = "0.0.0.0"
	}

	return fmt.Sprintf("%s:%d", host, c.GRPCPort)
}

// StoreConfig translates the hold-database URL into a store.Config,
// choosing the backend by URL scheme (spec.md §4.1/§6).
func (c *Config) StoreConfig() (store.Config, error) {
	u, err := url.Parse(c.Database)
	if err != nil {
		return store.Config{}, fmt.Errorf("parse hold-database: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "sqlite", "":
		dsn := u.Opaque
		if dsn == "" {
			dsn = strings.TrimPrefix(c.Database, u.Scheme+"://")
		}

		return store.Config{Backend: store.BackendSQLite, DSN: dsn}, nil

	case "postgres", "postgresql":
		return store.Config{
			Backend: store.BackendPostgres,
			DSN:     c.Database,
		}, nil

	default:
		return store.Config{}, fmt.Errorf("unrecognized hold-database scheme %q", u.Scheme)
	}
}
