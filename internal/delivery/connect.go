package delivery

import (
	"context"
	"fmt"

	"zbxrelay/internal/types"
)

// connState tracks the connection-retry state machine.
type connState int

const (
	stateConnecting connState = iota
	stateConnected
	stateExhausted
	stateFailed
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateExhausted:
		return "exhausted"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("connState(%d)", int(s))
	}
}

// connect runs the retry loop. Only a timed-out connect is retried; a factory
// error or any other connect error ends the loop immediately. Abandoned
// connections are closed before the next attempt.
func (c *Client) connect(
	ctx context.Context,
	logger types.Logger,
	result *types.DeliveryResult,
	meta map[string]any,
) (Conn, error) {
	state := stateConnecting
	var (
		conn    Conn
		lastErr error
	)

	for state == stateConnecting {
		if result.Attempts >= c.opts.MaxAttempts {
			state = stateExhausted
			break
		}
		meta["retries"] = result.Attempts
		result.Attempts++

		created, err := c.factory(c.opts.Host, c.opts.Port, c.opts.Timeout)
		if err != nil {
			logger.Error("couldn't create connection object", "error", err.Error())
			lastErr = fmt.Errorf("creating connection: %w", err)
			state = stateFailed
			break
		}

		err = created.Connect(ctx)
		switch {
		case err == nil:
			conn = created
			state = stateConnected
		case IsTimeout(err):
			logger.Info("connection timed out",
				"attempt", result.Attempts,
				"max_attempts", c.opts.MaxAttempts,
			)
			created.Close()
			lastErr = fmt.Errorf("%w: %w", ErrConnectTimeout, err)
		default:
			created.Close()
			lastErr = fmt.Errorf("connecting: %w", err)
			state = stateFailed
		}
	}

	switch state {
	case stateConnected:
		return conn, nil
	case stateExhausted:
		logger.Error("could not connect successfully", "attempts", result.Attempts)
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, result.Attempts, lastErr)
	default:
		return nil, lastErr
	}
}
