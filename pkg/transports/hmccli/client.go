// Package hmccli provides the line-oriented command transport to the
// management console and the high-level command surface built on top of it.
package hmccli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

// Client is an SSH session to the console's command interface. One client is
// opened per invocation and must be released with Close on every exit path.
type Client struct {
	config *Config

	// CommandTracer, when set, starts a span around each command execution;
	// the returned finish function receives the command's error.
	CommandTracer func(ctx context.Context, command string) (context.Context, func(err error))

	// CommandCounter, when set, counts each command execution by outcome
	// ("success" or "error").
	CommandCounter func(command, status string)

	mu        sync.Mutex
	sshClient *ssh.Client
	connected bool
}

// NewClient creates a console command client from config without connecting.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Client{config: config}, nil
}

// Connect establishes the SSH connection to the console.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected && c.sshClient != nil {
		return nil
	}

	clientConfig, err := c.config.BuildSSHClientConfig()
	if err != nil {
		return &hmc.ConsoleError{Op: "connect", Err: err}
	}

	address := c.config.Address()
	log.Debug().Str("address", address).Msg("establishing console session")

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
		return &hmc.ConsoleError{Op: "connect", Err: ctx.Err()}
	case err := <-errChan:
		return &hmc.ConsoleError{Op: "connect", Err: err}
	case client := <-connChan:
		c.sshClient = client
		c.connected = true
		log.Info().Str("address", address).Msg("console session established")
		return nil
	}
}

// Close releases the SSH connection. Safe to call on every exit path; a
// close failure must never mask a prior operation error, so callers log it
// instead of returning it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.sshClient == nil {
		return nil
	}
	err := c.sshClient.Close()
	c.sshClient = nil
	c.connected = false
	if err != nil {
		return &hmc.ConsoleError{Op: "disconnect", Err: err}
	}
	return nil
}

// Execute runs one console command and returns its stdout. A non-zero exit
// or transport failure is returned as a ConsoleError whose Code carries the
// console's stable error code when one was printed.
func (c *Client) Execute(ctx context.Context, cmd string) (string, error) {
	var finish func(error)
	if c.CommandTracer != nil {
		ctx, finish = c.CommandTracer(ctx, commandName(cmd))
	}
	out, err := c.execute(ctx, cmd)
	if finish != nil {
		finish(err)
	}
	if c.CommandCounter != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.CommandCounter(commandName(cmd), status)
	}
	return out, err
}

func (c *Client) execute(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	sshClient := c.sshClient
	connected := c.connected
	c.mu.Unlock()

	if !connected || sshClient == nil {
		return "", &hmc.ConsoleError{Op: commandName(cmd), Err: fmt.Errorf("not connected")}
	}

	session, err := sshClient.NewSession()
	if err != nil {
		return "", &hmc.ConsoleError{Op: commandName(cmd), Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	log.Debug().Str("command", commandName(cmd)).Msg("executing console command")

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	var timeout <-chan time.Time
	if c.config.CommandTimeout > 0 {
		timer := time.NewTimer(c.config.CommandTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", &hmc.ConsoleError{Op: commandName(cmd), Err: ctx.Err()}
	case <-timeout:
		_ = session.Signal(ssh.SIGKILL)
		return "", &hmc.ConsoleError{
			Op:  commandName(cmd),
			Err: fmt.Errorf("command timed out after %s", c.config.CommandTimeout),
		}
	case err := <-done:
		log.Debug().
			Str("command", commandName(cmd)).
			Dur("duration", time.Since(start)).
			Msg("console command finished")
		if err != nil {
			output := strings.TrimSpace(stderr.String())
			if output == "" {
				output = strings.TrimSpace(stdout.String())
			}
			return "", &hmc.ConsoleError{
				Op:     commandName(cmd),
				Code:   hmc.ExtractCode(output),
				Output: output,
				Err:    err,
			}
		}
		return stdout.String(), nil
	}
}

// commandName returns the leading word of a command line for logs and error
// context, keeping arguments (which may carry credentials) out of messages.
func commandName(cmd string) string {
	if i := strings.IndexByte(cmd, ' '); i > 0 {
		return cmd[:i]
	}
	return cmd
}
