package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"treepilot/family"
	"treepilot/metrics"
)

// ClientOptions configures the HTTP provider and its circuit breaker.
type ClientOptions struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout" validate:"gte=0"`

	// Circuit breaker
	MaxRequests      uint32        `json:"maxRequests" yaml:"max_requests" toml:"max_requests"`
	Interval         time.Duration `json:"interval" yaml:"interval" toml:"interval"`
	OpenTimeout      time.Duration `json:"openTimeout" yaml:"open_timeout" toml:"open_timeout"`
	FailureThreshold float64       `json:"failureThreshold" yaml:"failure_threshold" toml:"failure_threshold" validate:"gte=0,lte=1"`
	MinRequests      uint32        `json:"minRequests" yaml:"min_requests" toml:"min_requests"`
}

// DefaultClientOptions returns a 10s request timeout and a breaker that opens
// at 80% failures once five requests have been seen.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:          10 * time.Second,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		OpenTimeout:      30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Client is a Provider backed by a remote treepilot server.
type Client struct {
	base    *url.URL
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *metrics.Collector
}

// statusError is a non-2xx response.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("server returned %d", e.code)
	}
	return fmt.Sprintf("server returned %d: %s", e.code, e.message)
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ClientOptions, logger *zap.Logger, m *metrics.Collector) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: opts.Timeout},
		logger:  logger,
		metrics: m,
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "treepilot-" + u.Host,
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Client errors mean the server is healthy.
		IsSuccessful: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.code < 500
			}
			return err == nil
		},
	})
	return c, nil
}

// Tree implements TreeProvider.
func (c *Client) Tree(ctx context.Context, id string, q TreeQuery) (*family.Record, error) {
	var body struct {
		Tree *family.Record `json:"tree"`
	}
	err := c.getJSON(ctx, "tree", "/tree/"+url.PathEscape(family.NormalizeID(id)), q.Normalize().Values(), &body)
	if err != nil {
		return nil, err
	}
	if body.Tree == nil {
		return nil, fmt.Errorf("%w: %s", family.ErrPersonNotFound, id)
	}
	return body.Tree, nil
}

// PersonDetail implements DetailProvider.
func (c *Client) PersonDetail(ctx context.Context, id string) (*family.Detail, error) {
	var d family.Detail
	if err := c.getJSON(ctx, "detail", "/person/"+url.PathEscape(family.NormalizeID(id)), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Individuals implements Directory.
func (c *Client) Individuals(ctx context.Context) ([]*family.Record, error) {
	return c.list(ctx, "/individuals")
}

// Youngest implements Directory.
func (c *Client) Youngest(ctx context.Context) ([]*family.Record, error) {
	return c.list(ctx, "/youngest")
}

func (c *Client) list(ctx context.Context, path string) ([]*family.Record, error) {
	var body struct {
		Individuals []*family.Record `json:"individuals"`
	}
	if err := c.getJSON(ctx, "list", path, nil, &body); err != nil {
		return nil, err
	}
	return body.Individuals, nil
}

// State reports the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawPath = ""
	if query != nil {
		u.RawQuery = query.Encode()
	}

	_, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			var e struct {
				Error string `json:"error"`
			}
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
			_ = json.Unmarshal(data, &e)
			return nil, &statusError{code: resp.StatusCode, message: e.Error}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", op, err)
		}
		return nil, nil
	})
	c.metrics.ProviderRequest(op, err)
	if err == nil {
		return nil
	}

	var se *statusError
	switch {
	case errors.As(err, &se) && se.code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", family.ErrPersonNotFound, path)
	case errors.As(err, &se) && se.code >= 500:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.As(err, &se):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.logger.Warn("request rejected by circuit breaker", zap.String("path", path))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		c.logger.Warn("provider request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
