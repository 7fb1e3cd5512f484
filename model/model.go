package model

import (
	"errors"

	"langlang/executor"
	"langlang/result"
	"langlang/service"
)

// Event kinds published while an eval command runs.
const (
	EventReply = "reply"
	EventEdit  = "edit"
)

// Error codes carried by EvalResponse.
const (
	CodeUnknownLanguage    = "unknown_language"
	CodeMalformedInput     = "malformed_input"
	CodeAlreadyRunning     = "already_running"
	CodeBackendUnavailable = "backend_unavailable"
	CodeMalformedResponse  = "malformed_response"
	CodeInternal           = "internal"
)

// EvalRequest is a chat command forwarded by the presentation layer.
type EvalRequest struct {
	Identity      string `json:"identity"`
	Text          string `json:"text"`
	EventsSubject string `json:"events_subject,omitempty"`
}

// Event is one message the presentation layer must post or update.
type Event struct {
	Kind        string        `json:"kind"`
	MessageID   string        `json:"message_id"`
	Text        string        `json:"text,omitempty"`
	Embed       *result.Embed `json:"embed,omitempty"`
	ExpiresInMs int64         `json:"expires_in_ms,omitempty"`
}

// EvalResponse is the final answer to an eval command.
type EvalResponse struct {
	OK     bool          `json:"ok"`
	Code   string        `json:"code,omitempty"`
	Error  string        `json:"error,omitempty"`
	Embed  *result.Embed `json:"embed,omitempty"`
	Events []Event       `json:"events,omitempty"`
}

// LanguagesResponse answers the languages command.
type LanguagesResponse struct {
	Languages string `json:"languages"`
}

// NewEvent converts an outgoing service message to its wire form.
func NewEvent(kind, messageID string, msg service.Message) Event {
	return Event{
		Kind:        kind,
		MessageID:   messageID,
		Text:        msg.Text,
		Embed:       msg.Embed,
		ExpiresInMs: msg.ExpiresIn.Milliseconds(),
	}
}

// ErrorCode names err for clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, service.ErrUnknownLanguage):
		return CodeUnknownLanguage
	case errors.Is(err, service.ErrMalformedInput):
		return CodeMalformedInput
	case errors.Is(err, service.ErrAlreadyRunning):
		return CodeAlreadyRunning
	case errors.Is(err, executor.ErrBackendUnavailable):
		return CodeBackendUnavailable
	case errors.Is(err, executor.ErrMalformedResponse):
		return CodeMalformedResponse
	default:
		return CodeInternal
	}
}
