package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	logrus "github.com/sirupsen/logrus"

	"langlang/lang"
)

var (
	// ErrBackendUnavailable is returned when the eval backend cannot be reached
	// or answers with a non-success HTTP status.
	ErrBackendUnavailable = errors.New("eval backend unavailable")

	// ErrMalformedResponse is returned when the backend payload does not have
	// the expected shape.
	ErrMalformedResponse = errors.New("malformed eval response")
)

// HTTPError reports a non-2xx answer from the backend.
type HTTPError struct {
	Code   int
	Status string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %s", ErrBackendUnavailable, e.Status)
}

// Is lets errors.Is(err, ErrBackendUnavailable) match an HTTPError.
func (e *HTTPError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

// Client talks to the eval backend over one reusable HTTP session.
type Client struct {
	cfg    Config
	logger *logrus.Logger

	once    sync.Once
	session *http.Client
}

// NewClient creates a client. The HTTP session is opened on first use.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{cfg: cfg, logger: cfg.Logger}
}

// Endpoint returns the configured eval URL.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

func (c *Client) httpClient() *http.Client {
	c.once.Do(func() {
		if c.cfg.HTTPClient != nil {
			c.session = c.cfg.HTTPClient
			return
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConnsPerHost = 16
		c.session = &http.Client{Transport: transport, Timeout: c.cfg.Timeout}
	})
	return c.session
}

// Evaluate runs code once per input on the backend and returns one outcome per run.
func (c *Client) Evaluate(ctx context.Context, language lang.ID, code string, inputs ...string) ([]Outcome, error) {
	if inputs == nil {
		inputs = []string{}
	}

	body, err := json.Marshal(Request{Language: language, Code: code, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("encode eval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"language": language,
			"endpoint": c.cfg.Endpoint,
			"error":    err,
		}).Error("Eval request failed")
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(logrus.Fields{
			"language": language,
			"status":   resp.Status,
		}).Error("Eval backend rejected request")
		return nil, &HTTPError{Code: resp.StatusCode, Status: resp.Status}
	}

	outcomes, err := decodeOutcomes(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"language": language,
			"error":    err,
		}).Error("Eval response rejected")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"language": language,
		"runs":     len(outcomes),
		"duration": time.Since(start),
	}).Debug("Eval completed")
	return outcomes, nil
}

func decodeOutcomes(r io.Reader) ([]Outcome, error) {
	var payload response
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Results == nil {
		return nil, fmt.Errorf("%w: missing results", ErrMalformedResponse)
	}

	outcomes := make([]Outcome, 0, len(payload.Results))
	for i, r := range payload.Results {
		if r.Status == nil || r.Result == nil {
			return nil, fmt.Errorf("%w: result %d lacks status or result", ErrMalformedResponse, i)
		}
		status, err := ParseStatus(*r.Status)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		outcomes = append(outcomes, Outcome{Status: status, Result: *r.Result})
	}
	return outcomes, nil
}
