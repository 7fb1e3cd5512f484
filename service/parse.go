package service

import (
	"fmt"
	"strings"

	"langlang/lang"
)

// ParseBlock splits a fenced block into its language and code body. The
// first line names the language, everything after the first newline is code.
func ParseBlock(text string) (lang.ID, string, error) {
	body := strings.Trim(strings.TrimSpace(text), "`")

	token, code, found := strings.Cut(body, "\n")
	if !found {
		return "", "", ErrMalformedInput
	}

	token = strings.TrimRight(token, " \t\r")
	language, ok := lang.Resolve(token)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownLanguage, token)
	}
	return language, code, nil
}
