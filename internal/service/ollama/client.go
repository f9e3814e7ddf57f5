package ollama

import (
	"context"
	"time"

	"FinScout/internal/domain/repository"
	"FinScout/internal/domain/service"
	"FinScout/internal/service/provider"
	"FinScout/pkg/clock"
	"FinScout/pkg/config"
	xhttp "FinScout/pkg/http"
	"FinScout/pkg/logger"
	"FinScout/pkg/resilience"
)

const providerName = "ollama"

// Generation options tuned for a small local model on modest hardware.
const (
	numCtx      = 2048
	numThread   = 4
	temperature = 0.1
	topP        = 0.9
)

// Generation is slow, so the retry budget is smaller and the first pause
// longer than on the market-data clients.
const (
	maxRetries   = 2
	initialDelay = 3 * time.Second
)

// Client talks to a local Ollama server behind service.LLM. There is no
// circuit breaker: the availability probe is the guard, and the classifier
// chain degrades to keywords when the server is down.
type Client struct {
	cfg   config.LLMConfig
	gen   *xhttp.Client
	probe *xhttp.Client
	retry *resilience.Retry
	met   repository.Metrics
	clk   clock.Clock
	log   *logger.Logger
}

var _ service.LLM = (*Client)(nil)

// Option configures optional client collaborators.
type Option func(*Client)

// WithMetrics records request telemetry on m.
func WithMetrics(m repository.Metrics) Option {
	return func(c *Client) {
		c.met = m
	}
}

// WithClock substitutes the clock used for backoff and latency.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clk = clk
	}
}

// New builds a Client from config.
func New(cfg config.LLMConfig, lgr *logger.Logger, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		met: repository.NopMetrics{},
		clk: clock.NewSystem(),
		log: lgr,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.gen = xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout))
	c.probe = xhttp.NewClient(xhttp.WithTimeout(cfg.ProbeTimeout))
	c.retry = resilience.NewRetry(resilience.RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  initialDelay,
		BackoffFactor: 2,
	}, provider.Retryable, c.clk)
	return c
}

// Available reports whether the server answers its tags endpoint within the
// probe timeout.
func (c *Client) Available(ctx context.Context) bool {
	var body []byte
	err := c.probe.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.BaseURL + "/api/tags",
	}, &body)
	return err == nil
}

type generateOptions struct {
	NumCtx      int     `json:"num_ctx"`
	NumThread   int     `json:"num_thread"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate runs one non-streaming completion and returns the raw reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.cfg.BaseURL + "/api/generate",
		Body: generateRequest{
			Model:  c.cfg.Model,
			Prompt: prompt,
			Stream: false,
			Options: generateOptions{
				NumCtx:      numCtx,
				NumThread:   numThread,
				Temperature: temperature,
				TopP:        topP,
			},
		},
	}

	var out generateResponse
	err := c.retry.Do(ctx, func() error {
		start := c.clk.Now()
		out = generateResponse{}
		err := c.gen.SendAndParse(ctx, req, &out)
		c.met.RecordProviderLatency(providerName, c.clk.Now().Sub(start).Seconds())
		if err != nil {
			c.met.RecordProviderRequest(providerName, "error")
			return provider.FromTransport(providerName, err)
		}
		c.met.RecordProviderRequest(providerName, "success")
		return nil
	})
	if err != nil {
		return "", err
	}
	return out.Response, nil
}
