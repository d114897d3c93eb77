package ssh

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Client dials SSH connections to a single remote host.
type Client struct {
	config *Config
	logger zerolog.Logger
}

// NewClient creates a client for the host described by config.
func NewClient(config *Config, logger zerolog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config: config,
		logger: logger.With().Str("component", "ssh").Str("address", config.Address()).Logger(),
	}, nil
}

// Config returns the connection settings.
func (c *Client) Config() *Config {
	return c.config
}

// Dial establishes a new SSH connection. The caller owns the returned client.
func (c *Client) Dial(ctx context.Context) (*ssh.Client, error) {
	clientConfig, err := c.config.BuildSSHClientConfig()
	if err != nil {
		return nil, &TransportError{
			Op:          "connect",
			Err:         err,
			IsTemporary: false,
			IsAuthError: true,
		}
	}

	address := c.config.Address()
	c.logger.Debug().Msg("establishing SSH connection")
	started := time.Now()

	connChan := make(chan *ssh.Client, 1)
	errChan := make(chan error, 1)

	go func() {
		client, err := ssh.Dial("tcp", address, clientConfig)
		if err != nil {
			errChan <- err
			return
		}
		connChan <- client
	}()

	select {
	case <-ctx.Done():
		// A connection finishing after cancellation must not leak.
		go func() {
			select {
			case client := <-connChan:
				_ = client.Close()
			case <-errChan:
			}
		}()
		return nil, &TransportError{
			Op:          "connect",
			Err:         ctx.Err(),
			IsTemporary: true,
			IsAuthError: false,
		}
	case err := <-errChan:
		return nil, classify("connect", err)
	case client := <-connChan:
		c.logger.Debug().Dur("duration", time.Since(started)).Msg("SSH connection established")
		return client, nil
	}
}
