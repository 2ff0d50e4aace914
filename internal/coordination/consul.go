// Package coordination provides a read-only accessor for the key/value
// coordination store used to distribute tokens between processes.
package coordination

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"unicode"

	consulapi "github.com/hashicorp/consul/api"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=consul.go Client,ClientFactory

// Client reads single values from the coordination store.
type Client interface {
	// ReadKey performs one blocking read of key. The boolean is false when the
	// value is absent for any reason (missing key, transport error, timeout,
	// undecodable value); callers are expected to retry.
	ReadKey(ctx context.Context, key string) (string, bool)
}

// ClientFactory builds a Client from connection options.
type ClientFactory interface {
	NewClient(opts Options) (Client, error)
}

// ClientFactoryFunc adapts a function to ClientFactory.
type ClientFactoryFunc func(opts Options) (Client, error)

// NewClient calls f(opts).
func (f ClientFactoryFunc) NewClient(opts Options) (Client, error) {
	return f(opts)
}

// DefaultClientFactory builds Consul-backed clients.
var DefaultClientFactory ClientFactory = ClientFactoryFunc(func(opts Options) (Client, error) {
	return NewConsulClient(opts)
})

// ConsulClient reads keys from the Consul KV store.
type ConsulClient struct {
	kv          *consulapi.KV
	consistency string
}

// NewConsulClient creates a Consul KV client. Only non-empty options are
// applied on top of the Consul client defaults.
func NewConsulClient(opts Options) (*ConsulClient, error) {
	cfg, err := opts.consulConfig()
	if err != nil {
		return nil, err
	}

	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulClient{
		kv:          client.KV(),
		consistency: opts.Consistency,
	}, nil
}

// ReadKey reads key from the KV store. Errors never escape: every failure
// collapses into an absent result.
func (c *ConsulClient) ReadKey(ctx context.Context, key string) (string, bool) {
	q := &consulapi.QueryOptions{}
	switch c.consistency {
	case ConsistencyConsistent:
		q.RequireConsistent = true
	case ConsistencyStale:
		q.AllowStale = true
	}

	pair, _, err := c.kv.Get(strings.TrimPrefix(key, "/"), q.WithContext(ctx))
	if err != nil {
		slog.Debug("Coordination store read failed", "key", key, "error", err)
		return "", false
	}
	if pair == nil || len(pair.Value) == 0 {
		return "", false
	}

	value, ok := decodeASCII(pair.Value)
	if !ok {
		slog.Debug("Coordination store value is not ASCII", "key", key)
		return "", false
	}
	return value, true
}

func decodeASCII(b []byte) (string, bool) {
	for _, c := range b {
		if c > unicode.MaxASCII {
			return "", false
		}
	}
	return string(b), true
}

// consulConfig converts the options into a Consul client configuration.
func (o Options) consulConfig() (*consulapi.Config, error) {
	cfg := consulapi.DefaultConfig()

	if o.Host != "" {
		port := DefaultPort
		if o.Port != 0 {
			port = o.Port
		}
		cfg.Address = net.JoinHostPort(o.Host, strconv.Itoa(port))
	} else if o.Port != 0 {
		host, _, err := net.SplitHostPort(cfg.Address)
		if err != nil {
			host = "127.0.0.1"
		}
		cfg.Address = net.JoinHostPort(host, strconv.Itoa(o.Port))
	}
	if o.Scheme != "" {
		cfg.Scheme = o.Scheme
	}
	if o.Token != "" {
		cfg.Token = o.Token
	}
	if o.Datacenter != "" {
		cfg.Datacenter = o.Datacenter
	}
	if o.Verify != nil {
		cfg.TLSConfig.InsecureSkipVerify = !*o.Verify
	}
	if o.Cert != "" {
		cfg.TLSConfig.CertFile = o.Cert
	}

	switch o.Consistency {
	case "", ConsistencyDefault, ConsistencyConsistent, ConsistencyStale:
	default:
		return nil, fmt.Errorf("unsupported consistency mode: %s", o.Consistency)
	}

	return cfg, nil
}
