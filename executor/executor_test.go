package executor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	logrus "github.com/sirupsen/logrus"

	"langlang/lang"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(url string) *Client {
	return NewClient(Config{Endpoint: url, Logger: quietLogger()})
}

func TestEvaluateSendsRequestAndParsesResults(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"results":[{"status":"ok","result":"1\n"},{"status":"compile_error","result":"boom"}]}`))
	}))
	defer srv.Close()

	outcomes, err := newTestClient(srv.URL).Evaluate(context.Background(), lang.Python, "print(1)", "a", "b")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if got.Language != lang.Python || got.Code != "print(1)" || len(got.Inputs) != 2 || got.Inputs[1] != "b" {
		t.Errorf("request = %+v", got)
	}
	want := []Outcome{{StatusOK, "1\n"}, {StatusCompileError, "boom"}}
	if len(outcomes) != len(want) {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), len(want))
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("outcomes[%d] = %+v, want %+v", i, outcomes[i], want[i])
		}
	}
}

func TestEvaluateEncodesEmptyInputsAsArray(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	outcomes, err := newTestClient(srv.URL).Evaluate(context.Background(), lang.Go, "package main")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("outcomes = %v, want empty", outcomes)
	}
	if string(raw["inputs"]) != "[]" {
		t.Errorf("inputs = %s, want []", raw["inputs"])
	}
}

func TestEvaluateMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing results", `{"output":"1"}`},
		{"null results", `{"results":null}`},
		{"unknown status", `{"results":[{"status":"segfault","result":""}]}`},
		{"missing status", `{"results":[{"result":"1"}]}`},
		{"missing result", `{"results":[{"status":"ok"}]}`},
		{"wrong type", `{"results":"ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Evaluate(context.Background(), lang.Python, "x")
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("Evaluate() error = %v, want %v", err, ErrMalformedResponse)
			}
		})
	}
}

func TestEvaluateBackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Evaluate(context.Background(), lang.Python, "x")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Evaluate() error = %v, want %v", err, ErrBackendUnavailable)
	}
}

func TestEvaluateHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Evaluate(context.Background(), lang.Python, "x")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("Evaluate() error = %v, want %v", err, ErrBackendUnavailable)
	}
	var he *HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadGateway {
		t.Errorf("Evaluate() error = %#v, want HTTPError 502", err)
	}
}

func TestEvaluateReusesSession(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"status":"ok","result":""}]}`))
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	c := newTestClient(srv.URL)
	first := c.httpClient()
	for i := 0; i < 3; i++ {
		if _, err := c.Evaluate(context.Background(), lang.Text, "hi"); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
	}
	if c.httpClient() != first {
		t.Error("session was replaced between calls")
	}
	if n := conns.Load(); n != 1 {
		t.Errorf("connections opened = %d, want 1", n)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"ok", "error", "timeout", "memory_overflow", "compile_error"} {
		if got, err := ParseStatus(s); err != nil || string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseStatus("OK"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("ParseStatus(OK) error = %v, want %v", err, ErrMalformedResponse)
	}
}
