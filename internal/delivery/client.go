// Package delivery posts normalized events to the incident collector.
//
// Only connection establishment is retried: a connect that times out is
// abandoned and a fresh connection is tried, up to MaxAttempts. Once a session
// is up, any failure is returned as is, since it is either a problem with the
// data or with the collector and an immediate retry would not fix it.
//
// Every Deliver call ends in one of three outcomes:
//   - success: 2xx, valid JSON, success=true and no failed events
//   - partial failure: the collector answered but rejected some or all events
//   - hard failure: anything else
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"zbxrelay/internal/types"
)

// DefaultPath is the collector endpoint for incident events.
const DefaultPath = "/v1/incidents"

var (
	// ErrConnectTimeout wraps a connect attempt that hit the timeout.
	ErrConnectTimeout = errors.New("delivery: connect timed out")

	// ErrAttemptsExhausted is returned when every connection attempt timed out.
	ErrAttemptsExhausted = errors.New("delivery: connection attempts exhausted")

	// ErrPartialFailure is reported when the collector rejected events.
	ErrPartialFailure = errors.New("delivery: collector rejected events")
)

// Options configures where and how events are delivered.
type Options struct {
	Host        string
	Port        int
	Path        string
	Timeout     time.Duration
	MaxAttempts int
	UserAgent   string
}

// DefaultOptions returns the production collector settings.
func DefaultOptions() Options {
	return Options{
		Host:        "collectors.signifai.io",
		Port:        443,
		Path:        DefaultPath,
		Timeout:     5 * time.Second,
		MaxAttempts: 5,
	}
}

// Client delivers event batches to the collector.
type Client struct {
	opts     Options
	factory  ConnFactory
	reporter types.Reporter
	logger   types.Logger
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithConnFactory overrides how connections are created. Tests use it to
// script connection behaviour.
func WithConnFactory(f ConnFactory) ClientOption {
	return func(c *Client) {
		c.factory = f
	}
}

// WithReporter sets the sink fatal conditions are forwarded to.
func WithReporter(r types.Reporter) ClientOption {
	return func(c *Client) {
		c.reporter = r
	}
}

// NewClient creates a Client. Without options it dials TLS directly and
// reports nowhere.
func NewClient(opts Options, logger types.Logger, clientOpts ...ClientOption) *Client {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	c := &Client{
		opts:     opts,
		factory:  NewTLSConnFactory(nil),
		reporter: nopReporter{},
		logger:   logger,
	}
	for _, opt := range clientOpts {
		opt(c)
	}
	return c
}

// Deliver POSTs the batch to the collector and classifies the result. The
// returned DeliveryResult is never nil; its Err is nil only on success.
func (c *Client) Deliver(ctx context.Context, authKey types.SecretString, batch *types.EventBatch) *types.DeliveryResult {
	logger := c.logger.With(
		"collector_host", c.opts.Host,
		"collector_port", c.opts.Port,
		"collector_path", c.opts.Path,
	)
	if id := types.GetInvocationID(ctx); id != "" {
		logger = logger.With("invocation_id", id)
	}

	result := &types.DeliveryResult{}
	meta := map[string]any{
		"data":           batch,
		"collector_host": c.opts.Host,
		"collector_port": c.opts.Port,
		"collector_path": c.opts.Path,
		"timeout":        c.opts.Timeout.String(),
		"retries":        0,
		"attempts":       c.opts.MaxAttempts,
	}

	if err := batch.Validate(); err != nil {
		return c.fail(ctx, logger, result, meta, "refusing to send invalid events", err)
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return c.fail(ctx, logger, result, meta, "could not encode events", err)
	}

	conn, err := c.connect(ctx, logger, result, meta)
	if err != nil {
		return c.fail(ctx, logger, result, meta, "could not connect to collector", err)
	}
	defer conn.Close()

	header := c.headers(ctx, authKey)
	meta["headers"] = redactHeaders(header)

	if err := conn.Request(ctx, http.MethodPost, c.opts.Path, body, header); err != nil {
		if IsTimeout(err) {
			return c.fail(ctx, logger, result, meta, "POST to collector timed out", err)
		}
		return c.fail(ctx, logger, result, meta, "could not POST to collector", err)
	}

	resp, err := conn.Response(ctx)
	if err != nil {
		if IsTimeout(err) {
			return c.fail(ctx, logger, result, meta, "collector response timed out", err)
		}
		return c.fail(ctx, logger, result, meta, "could not read collector response", err)
	}

	result.StatusCode = resp.StatusCode
	result.ResponseBody = string(resp.Body)
	meta["collector_response"] = result.ResponseBody
	meta["status_code"] = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("collector returned an error, body follows", "status", resp.StatusCode, "body", result.ResponseBody)
		return c.fail(ctx, logger, result, meta,
			fmt.Sprintf("collector returned status %d", resp.StatusCode), nil)
	}

	var cr types.CollectorResponse
	if err := json.Unmarshal(resp.Body, &cr); err != nil {
		return c.fail(ctx, logger, result, meta, "collector response is not valid JSON", err)
	}

	if !cr.Success || len(cr.FailedEvents) > 0 {
		result.FailedEvents = cr.FailedEvents
		meta["failed_events"] = cr.FailedEvents
		return c.partial(ctx, logger, result, meta, cr)
	}

	logger.Info("events delivered", "events", len(batch.Events), "attempts", result.Attempts)
	result.Outcome = types.OutcomeSuccess
	return result
}

// headers builds the fixed request headers.
func (c *Client) headers(ctx context.Context, authKey types.SecretString) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+authKey.Unmask())
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	if c.opts.UserAgent != "" {
		h.Set("User-Agent", c.opts.UserAgent)
	}
	if id := types.GetInvocationID(ctx); id != "" {
		h.Set("X-B3-TraceId", id)
	}
	return h
}

func (c *Client) fail(
	ctx context.Context,
	logger types.Logger,
	result *types.DeliveryResult,
	meta map[string]any,
	reason string,
	cause error,
) *types.DeliveryResult {
	appErr := types.NewAppErrorWithDetails(types.ErrCodeDeliveryHardFailure, reason, cause, copyMeta(meta))

	args := []any{"attempts", result.Attempts}
	if cause != nil {
		args = append(args, "error", cause.Error())
	}
	logger.Error(reason, args...)

	c.reporter.Report(ctx, appErr, copyMeta(meta))

	result.Outcome = types.OutcomeHardFailure
	result.FailureReason = reason
	result.Err = appErr
	return result
}

func (c *Client) partial(
	ctx context.Context,
	logger types.Logger,
	result *types.DeliveryResult,
	meta map[string]any,
	cr types.CollectorResponse,
) *types.DeliveryResult {
	reason := fmt.Sprintf("errors submitting events: %d rejected", len(cr.FailedEvents))
	appErr := types.NewAppErrorWithDetails(types.ErrCodeDeliveryPartialFailure, reason, ErrPartialFailure, copyMeta(meta))

	logger.Error("errors submitting events",
		"success", cr.Success,
		"failed_events", len(cr.FailedEvents),
		"body", result.ResponseBody,
	)
	c.reporter.Report(ctx, appErr, copyMeta(meta))

	result.Outcome = types.OutcomePartialFailure
	result.FailureReason = reason
	result.Err = appErr
	return result
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		if k == "Authorization" {
			out[k] = "Bearer " + types.SecretString("").String()
			continue
		}
		out[k] = h.Get(k)
	}
	return out
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, error, map[string]any) {}
