package executor

import (
	"net/http"
	"time"

	logrus "github.com/sirupsen/logrus"
)

const (
	// DefaultEndpoint is where the langlang eval service listens by default.
	DefaultEndpoint = "http://localhost:5000/langlang/eval"
	// DefaultTimeout bounds a single round trip to the backend.
	DefaultTimeout = 60 * time.Second

	maxResponseBytes = 8 << 20
)

// Config defines how the client reaches the eval backend.
type Config struct {
	// Endpoint is the full URL of the eval route.
	Endpoint string

	// Timeout bounds one request including reading the body. Default: 60s.
	Timeout time.Duration

	// HTTPClient overrides the lazily created session. Optional.
	HTTPClient *http.Client

	// Logger receives debug and error records. Optional.
	Logger *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}
