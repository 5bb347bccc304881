package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for the connect
	// handshake when the configuration does not set one.
	defaultConnectTimeout = 10 * time.Second

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// defaultTimeToWait bounds subscribe/unsubscribe acknowledgement waits
	// until the adapter installs its completion timeout.
	defaultTimeToWait = 30 * time.Second

	// MaxQoS is the maximum QoS level supported.
	MaxQoS = 2

	// GrantedFailure is the granted-QoS value a broker returns for a
	// rejected subscription filter.
	GrantedFailure = 0x80

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// PahoFactory builds paho-backed client handles from broker configuration.
//
// It implements ClientFactory. Options are computed once at construction;
// every NewClient call returns a fresh, unconnected handle so the adapter
// can discard a broken handle and start over cleanly.
type PahoFactory struct {
	opts       ConnectionOptions
	stopAction StopAction
}

// NewPahoFactory creates a factory from the mqtt section of config.yaml.
//
// This translates:
//   - Broker host/port and TLS flag into a tcp:// or ssl:// server URL
//   - Authentication credentials (if provided)
//   - Clean session mode and the consumer stop action
//   - Keepalive and connect timeout, with defaults where unset
//
// Returns:
//   - *PahoFactory: Factory ready for use by the inbound adapter
//   - error: If the configured stop action is not recognised
func NewPahoFactory(cfg config.MQTTConfig) (*PahoFactory, error) {
	stopAction, err := ParseStopAction(cfg.StopAction)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStopAction, cfg.StopAction)
	}

	opts := ConnectionOptions{
		CleanSession:   cfg.CleanSession,
		Username:       cfg.Auth.Username,
		Password:       cfg.Auth.Password,
		KeepAlive:      defaultKeepAlive,
		ConnectTimeout: defaultConnectTimeout,
	}

	if cfg.KeepAlive > 0 {
		opts.KeepAlive = time.Duration(cfg.KeepAlive) * time.Second
	}
	if cfg.ConnectTimeout > 0 {
		opts.ConnectTimeout = time.Duration(cfg.ConnectTimeout) * time.Second
	}

	if cfg.Broker.Host != "" {
		scheme := "tcp"
		if cfg.Broker.TLS {
			scheme = "ssl"
			opts.TLS = &tls.Config{MinVersion: tlsMinVersion}
		}
		opts.ServerURLs = []string{
			fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port),
		}
	}

	return &PahoFactory{opts: opts, stopAction: stopAction}, nil
}

// ConnectionOptions returns the options for the next connect attempt.
func (f *PahoFactory) ConnectionOptions() ConnectionOptions {
	return f.opts
}

// StopAction returns the configured consumer stop action.
func (f *PahoFactory) StopAction() StopAction {
	return f.stopAction
}

// NewClient returns a fresh, unconnected paho-backed handle.
func (f *PahoFactory) NewClient(url, clientID string) (Client, error) {
	return newPahoClient(url, clientID), nil
}
