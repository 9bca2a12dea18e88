// Package remote talks to a running Minecraft server over its remote console.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gorcon/rcon"

	"mcreport/pkg/logging"
)

const (
	// DefaultPort is the standard RCON port.
	DefaultPort = 25575
	// DefaultTimeout bounds dialing and every single command.
	DefaultTimeout = 10 * time.Second
)

// ErrConnection wraps every transport failure of a session.
var ErrConnection = errors.New("rcon connection error")

// Session is an authenticated command channel to one server.
type Session interface {
	// Command sends text and returns the server's reply.
	Command(ctx context.Context, text string) (string, error)
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Config holds the connection parameters of an RCON server.
type Config struct {
	Host     string        `yaml:"host" env:"RCON_HOST"`
	Port     int           `yaml:"port" env:"RCON_PORT"`
	Password string        `yaml:"-" env:"RCON_PWD"`
	Timeout  time.Duration `yaml:"timeout" env:"RCON_TIMEOUT"`
}

// Address returns host:port.
func (c Config) Address() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// executor is the part of *rcon.Conn a session uses.
type executor interface {
	Execute(command string) (string, error)
	Close() error
}

var dialRCON = func(address, password string, timeout time.Duration) (executor, error) {
	return rcon.Dial(address, password, rcon.SetDialTimeout(timeout), rcon.SetDeadline(timeout))
}

// RCONDialer dials RCON sessions for one server.
type RCONDialer struct {
	cfg Config
}

// NewRCONDialer returns a Dialer for cfg. A zero timeout means DefaultTimeout.
func NewRCONDialer(cfg Config) *RCONDialer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &RCONDialer{cfg: cfg}
}

// Dial implements Dialer.
func (d *RCONDialer) Dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := d.cfg.Address()
	logging.Debug("Remote", "Connecting to %s", addr)

	conn, err := dialRCON(addr, d.cfg.Password, d.cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, addr, err)
	}
	return &rconSession{addr: addr, conn: conn}, nil
}

type rconSession struct {
	addr string

	mu     sync.Mutex
	conn   executor
	closed bool
}

type reply struct {
	out string
	err error
}

// Command runs text on the server. The underlying connection is not
// interruptible, so cancellation closes it and the session becomes unusable.
func (s *rconSession) Command(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("%w: session to %s is closed", ErrConnection, s.addr)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	logging.Debug("Remote", "> %s", text)
	done := make(chan reply, 1)
	go func() {
		out, err := s.conn.Execute(text)
		done <- reply{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrConnection, text, r.err)
		}
		logging.Debug("Remote", "< %s", r.out)
		return r.out, nil
	case <-ctx.Done():
		s.closeLocked()
		<-done
		return "", ctx.Err()
	}
}

func (s *rconSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *rconSession) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	logging.Debug("Remote", "Closing session to %s", s.addr)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrConnection, s.addr, err)
	}
	return nil
}
