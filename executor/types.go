package executor

import (
	"fmt"

	"langlang/lang"
)

// Status is the verdict the eval backend reports for one run.
type Status string

const (
	StatusOK             Status = "ok"
	StatusError          Status = "error"
	StatusTimeout        Status = "timeout"
	StatusMemoryOverflow Status = "memory_overflow"
	StatusCompileError   Status = "compile_error"
)

// ParseStatus maps a wire status string to a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusOK, StatusError, StatusTimeout, StatusMemoryOverflow, StatusCompileError:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrMalformedResponse, s)
	}
}

// Request is the body POSTed to the eval backend.
type Request struct {
	Language lang.ID  `json:"language"`
	Code     string   `json:"code"`
	Inputs   []string `json:"inputs"`
}

// Outcome is the result of a single input run.
type Outcome struct {
	Status Status
	Result string
}

type response struct {
	Results []wireResult `json:"results"`
}

type wireResult struct {
	Status *string `json:"status"`
	Result *string `json:"result"`
}
