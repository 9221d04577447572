package delivery

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxResponseBodyRead limits how much of a collector response is read.
const maxResponseBodyRead = 1 << 20

var (
	// ErrInvalidEndpoint is returned by the TLS factory for an unusable
	// host/port/timeout combination.
	ErrInvalidEndpoint = errors.New("delivery: invalid collector endpoint")

	// ErrNotConnected is returned when Request or Response is called on a
	// Conn that has no established session.
	ErrNotConnected = errors.New("delivery: connection not established")
)

// TLSConn is the production Conn: a TCP connection upgraded to TLS, carrying
// a single HTTP/1.1 exchange. Every network step is bounded by the timeout.
type TLSConn struct {
	host    string
	port    int
	timeout time.Duration
	config  *tls.Config

	conn   net.Conn
	reader *bufio.Reader
	req    *http.Request
}

// NewTLSConnFactory returns a ConnFactory producing TLSConns. The supplied
// config is cloned per connection; ServerName defaults to the collector host.
func NewTLSConnFactory(config *tls.Config) ConnFactory {
	return func(host string, port int, timeout time.Duration) (Conn, error) {
		if host == "" {
			return nil, fmt.Errorf("%w: empty host", ErrInvalidEndpoint)
		}
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: port %d out of range", ErrInvalidEndpoint, port)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidEndpoint, timeout)
		}

		cfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if config != nil {
			cfg = config.Clone()
		}
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}

		return &TLSConn{
			host:    host,
			port:    port,
			timeout: timeout,
			config:  cfg,
		}, nil
	}
}

func (c *TLSConn) addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// hostHeader omits the default HTTPS port.
func (c *TLSConn) hostHeader() string {
	if c.port == 443 {
		return c.host
	}
	return c.addr()
}

// Connect dials the collector and completes the TLS handshake.
func (c *TLSConn) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.timeout},
		Config:    c.config,
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", c.addr())
	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Request writes one HTTP request on the established session.
func (c *TLSConn) Request(ctx context.Context, method, path string, body []byte, header http.Header) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	u := &url.URL{Scheme: "https", Host: c.hostHeader(), Path: path}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header = header.Clone()
	req.ContentLength = int64(len(body))
	req.Close = true

	if err := c.conn.SetWriteDeadline(c.deadline(ctx)); err != nil {
		return err
	}
	if err := req.Write(c.conn); err != nil {
		return err
	}

	c.req = req
	return nil
}

// Response reads the collector's reply to the last request.
func (c *TLSConn) Response(ctx context.Context) (*Response, error) {
	if c.conn == nil || c.req == nil {
		return nil, ErrNotConnected
	}

	if err := c.conn.SetReadDeadline(c.deadline(ctx)); err != nil {
		return nil, err
	}
	resp, err := http.ReadResponse(c.reader, c.req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Close closes the socket if one was opened.
func (c *TLSConn) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// deadline is now+timeout, or the context deadline if that comes first.
func (c *TLSConn) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
