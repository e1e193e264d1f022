package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ineyio/inferguard"
)

// Client is a mock model collaborator for testing.
type Client struct {
	latency      time.Duration
	failAfter    int
	callCount    atomic.Int64
	staticErr    error
	failModels   map[string]error
	usage        inferguard.Usage
	servedModel  string
	responseFunc func(inferguard.CompletionRequest) (inferguard.CompletionResponse, error)
}

var _ inferguard.ModelClient = (*Client)(nil)

// Option configures a mock Client.
type Option func(*Client)

// New creates a mock client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		failModels: make(map[string]error),
		usage: inferguard.Usage{
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLatency adds simulated latency to each call.
func WithLatency(d time.Duration) Option {
	return func(c *Client) { c.latency = d }
}

// WithFailAfter makes the client fail after N successful calls.
func WithFailAfter(n int) Option {
	return func(c *Client) { c.failAfter = n }
}

// WithError makes the client always return this error.
func WithError(err error) Option {
	return func(c *Client) { c.staticErr = err }
}

// WithModelError makes calls for one specific model fail.
func WithModelError(model string, err error) Option {
	return func(c *Client) { c.failModels[model] = err }
}

// WithUsage sets the usage returned by the mock.
func WithUsage(u inferguard.Usage) Option {
	return func(c *Client) { c.usage = u }
}

// WithServedModel overrides the model id reported in responses,
// simulating an upstream downgrade.
func WithServedModel(model string) Option {
	return func(c *Client) { c.servedModel = model }
}

// WithResponseFunc sets a custom response function.
func WithResponseFunc(fn func(inferguard.CompletionRequest) (inferguard.CompletionResponse, error)) Option {
	return func(c *Client) { c.responseFunc = fn }
}

func (c *Client) Complete(ctx context.Context, req inferguard.CompletionRequest) (inferguard.CompletionResponse, error) {
	if c.latency > 0 {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return inferguard.CompletionResponse{}, ctx.Err()
		}
	}

	count := c.callCount.Add(1)

	if c.staticErr != nil {
		return inferguard.CompletionResponse{}, c.staticErr
	}

	if err, ok := c.failModels[req.Model]; ok {
		return inferguard.CompletionResponse{}, err
	}

	if c.failAfter > 0 && int(count) > c.failAfter {
		return inferguard.CompletionResponse{}, inferguard.ErrProviderUnavailable
	}

	if c.responseFunc != nil {
		return c.responseFunc(req)
	}

	served := req.Model
	if c.servedModel != "" {
		served = c.servedModel
	}

	return inferguard.CompletionResponse{
		Text:       "Hello from mock client",
		Model:      served,
		Usage:      c.usage,
		ResponseID: "mock-response-id",
		CreatedAt:  time.Now(),
	}, nil
}

// CallCount returns the number of calls made to the client.
func (c *Client) CallCount() int64 { return c.callCount.Load() }
