package delivery

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"
)

// Response is a collector response read off a Conn.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Conn is a single connection to the collector. A Conn is used for exactly one
// request: Connect, then Request, then Response. Close must be safe to call at
// any point, including before Connect and more than once.
type Conn interface {
	// Connect establishes the transport session within the connection timeout.
	Connect(ctx context.Context) error

	// Request sends one HTTP request over the established session.
	Request(ctx context.Context, method, path string, body []byte, header http.Header) error

	// Response reads the response to the request previously sent.
	Response(ctx context.Context) (*Response, error)

	// Close releases the underlying socket.
	Close() error
}

// ConnFactory creates a fresh, unconnected Conn. An error returned here means
// the connection object itself could not be built and is never retried.
type ConnFactory func(host string, port int, timeout time.Duration) (Conn, error)

// IsTimeout reports whether err is a timeout: a context deadline, a socket
// deadline, or any net.Error reporting Timeout().
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
