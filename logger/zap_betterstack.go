package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"langlang/lang"
)

// New builds the process logger for environment.
func New(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// auditEntry is one finished evaluation as shipped to Better Stack.
type auditEntry struct {
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	TraceID    string         `json:"traceID"`
	Layer      string         `json:"layer"`
	Attributes map[string]any `json:"attributes"`
}

// AuditStreamer records every evaluation to a file (development) or to
// Better Stack (production), and mirrors it to zap.
type AuditStreamer struct {
	sourceToken string
	environment string
	uploadURL   string
	logger      *zap.Logger
	client      *http.Client
	fileWriter  io.Writer
	fileMu      sync.Mutex
	inflight    sync.WaitGroup
}

// NewAuditStreamer creates a streamer. In development entries are appended
// to logPath; in production they are POSTed to uploadURL when it is set.
func NewAuditStreamer(sourceToken, environment, uploadURL, logPath string, logger *zap.Logger) *AuditStreamer {
	streamer := &AuditStreamer{
		sourceToken: sourceToken,
		environment: environment,
		uploadURL:   uploadURL,
		logger:      logger,
	}

	if environment == "development" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logger.Error("Failed to open audit log file", zap.String("path", logPath), zap.Error(err))
			streamer.fileWriter = os.Stderr
		} else {
			streamer.fileWriter = f
		}
	}

	if environment == "production" && uploadURL != "" {
		streamer.client = &http.Client{Timeout: 10 * time.Second}
	}

	return streamer
}

// Audit implements service.Auditor.
func (s *AuditStreamer) Audit(identity string, language lang.ID, status string, duration time.Duration, err error) {
	level := zapcore.InfoLevel
	attributes := map[string]any{
		"identity":    identity,
		"language":    string(language),
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		level = zapcore.ErrorLevel
		attributes["error"] = err.Error()
	}

	entry := auditEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      levelName(level),
		Message:    "evaluation finished",
		TraceID:    uuid.NewString(),
		Layer:      "service",
		Attributes: attributes,
	}

	body, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		s.logger.Error("Failed to marshal audit entry", zap.Error(marshalErr))
		return
	}

	switch {
	case s.fileWriter != nil:
		s.fileMu.Lock()
		_, writeErr := s.fileWriter.Write(append(body, '\n'))
		s.fileMu.Unlock()
		if writeErr != nil {
			s.logger.Error("Failed to write audit entry", zap.Error(writeErr))
		}
	case s.client != nil:
		s.ship(body)
	}

	s.logger.Log(level, entry.Message, zap.String("traceID", entry.TraceID), zap.Any("attributes", attributes))
}

func (s *AuditStreamer) ship(body []byte) {
	req, err := http.NewRequest(http.MethodPost, s.uploadURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("Failed to create audit request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.sourceToken)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.Error("Failed to send audit entry to Better Stack", zap.Error(err))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			s.logger.Error("Unexpected response from Better Stack", zap.String("status", resp.Status))
		}
	}()
}

// Flush waits for entries that are still being shipped.
func (s *AuditStreamer) Flush() {
	s.inflight.Wait()
}

// Close flushes pending entries and closes the audit file.
func (s *AuditStreamer) Close() error {
	s.Flush()
	if f, ok := s.fileWriter.(*os.File); ok && f != os.Stderr {
		return f.Close()
	}
	return nil
}

func levelName(level zapcore.Level) string {
	switch level {
	case zapcore.ErrorLevel:
		return "ERROR"
	case zapcore.WarnLevel:
		return "WARN"
	case zapcore.InfoLevel:
		return "INFO"
	case zapcore.DebugLevel:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}
