package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"minimart/internal/protocol"
	"minimart/pkg/uid"
)

const (
	// DefaultDialTimeout bounds connection establishment to a peer.
	DefaultDialTimeout = 5 * time.Second

	// DefaultCallTimeout bounds a single request/response exchange.
	DefaultCallTimeout = 5 * time.Second
)

// Client issues requests to peer services over pooled TCP connections.
//
// A Client keeps at most one connection per peer address and is NOT safe
// for concurrent use: the protocol allows only one in-flight request per
// connection, so each worker goroutine must own its own Client.
type Client struct {
	dialTimeout time.Duration
	callTimeout time.Duration

	conns map[string]net.Conn
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialTimeout sets the connect timeout.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// WithCallTimeout sets the per-call read/write deadline.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.callTimeout = d }
}

// NewClient creates a client with an empty connection pool.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		dialTimeout: DefaultDialTimeout,
		callTimeout: DefaultCallTimeout,
		conns:       make(map[string]net.Conn),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends one request to addr and waits for the matching response,
// reusing the pooled connection for that peer. On a transport failure the
// pooled connection is discarded and exactly one reconnect-and-retry is
// attempted before the failure is surfaced. Application-level errors
// (ok:false responses) are returned as-is and never retried.
//
// An empty requestID is replaced with a generated correlation id.
func (c *Client) Call(ctx context.Context, addr, api string, data any, requestID string) (*protocol.Response, error) {
	if requestID == "" {
		requestID = uid.New()
	}
	req, err := protocol.NewRequest(requestID, api, data)
	if err != nil {
		return nil, err
	}

	resp, err := c.exchange(ctx, addr, req, true)
	if err == nil {
		return resp, nil
	}

	// The link was severed mid-call; reconnect and retry once. The retry
	// always runs on a fresh connection since exchange dropped the broken
	// one from the pool.
	resp, retryErr := c.exchange(ctx, addr, req, false)
	if retryErr != nil {
		return nil, fmt.Errorf("call %s on %s failed after retry: %w", api, addr, retryErr)
	}
	return resp, nil
}

// CallOnce sends one request on a dedicated connection that is closed
// after the response arrives. No pooling, no retry.
func (c *Client) CallOnce(ctx context.Context, addr, api string, data any, requestID string) (*protocol.Response, error) {
	if requestID == "" {
		requestID = uid.New()
	}
	req, err := protocol.NewRequest(requestID, api, data)
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return roundTrip(conn, req, c.callTimeout)
}

// exchange performs one request/response on the pooled connection for
// addr, dialing if none exists. On any transport error the connection is
// closed and removed from the pool.
func (c *Client) exchange(ctx context.Context, addr string, req *protocol.Request, reusePooled bool) (*protocol.Response, error) {
	conn, ok := c.conns[addr]
	if !ok || !reusePooled {
		if conn != nil {
			conn.Close()
			delete(c.conns, addr)
		}
		fresh, err := c.dial(ctx, addr)
		if err != nil {
			return nil, err
		}
		conn = fresh
		c.conns[addr] = conn
	}

	resp, err := roundTrip(conn, req, c.callTimeout)
	if err != nil {
		conn.Close()
		delete(c.conns, addr)
		return nil, err
	}
	return resp, nil
}

func (c *Client) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn, nil
}

// roundTrip writes one request and reads one response under a deadline.
// Deadline expiry surfaces as a transport error like any broken link.
func roundTrip(conn net.Conn, req *protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("failed to set deadline: %w", err)
		}
	}
	if err := protocol.WriteFrame(conn, req); err != nil {
		return nil, err
	}
	return protocol.ReadResponse(conn)
}

// Close releases every pooled connection.
func (c *Client) Close() error {
	for addr, conn := range c.conns {
		conn.Close()
		delete(c.conns, addr)
	}
	return nil
}
