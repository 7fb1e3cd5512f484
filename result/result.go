// Package result turns backend outcomes into render-ready embeds.
package result

import (
	"strings"
	"unicode/utf8"

	"langlang/executor"
	"langlang/lang"
)

// Color is the presentation class of an embed.
type Color string

const (
	ColorSuccess Color = "success"
	ColorFailure Color = "failure"
	ColorWarning Color = "warning"
	ColorPending Color = "pending"
)

// DefaultMaxLength is the longest body, in characters, shown to a user.
const DefaultMaxLength = 2000

const ellipsis = "..."

// Embed is what the presentation layer draws.
type Embed struct {
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
	Color  Color  `json:"color"`
	Footer string `json:"footer,omitempty"`
}

// Messages holds the user facing fixed texts.
type Messages struct {
	Title       string
	TimeLimit   string
	MemoryLimit string
}

// DefaultMessages are the Korean texts the bot has always shown.
var DefaultMessages = Messages{
	Title:       "결과",
	TimeLimit:   "시간 초과",
	MemoryLimit: "메모리 초과",
}

// Options tune classification.
type Options struct {
	Messages  Messages
	MaxLength int
}

func (o Options) withDefaults() Options {
	if o.Messages.Title == "" {
		o.Messages.Title = DefaultMessages.Title
	}
	if o.Messages.TimeLimit == "" {
		o.Messages.TimeLimit = DefaultMessages.TimeLimit
	}
	if o.Messages.MemoryLimit == "" {
		o.Messages.MemoryLimit = DefaultMessages.MemoryLimit
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxLength
	}
	return o
}

// Classify maps one outcome to an embed whose footer names the language.
func Classify(language lang.ID, outcome executor.Outcome, opts Options) Embed {
	opts = opts.withDefaults()
	embed := Embed{Title: opts.Messages.Title, Footer: string(language)}

	switch outcome.Status {
	case executor.StatusOK:
		embed.Color = ColorSuccess
		embed.Body = outcome.Result
	case executor.StatusCompileError:
		embed.Color = ColorWarning
		embed.Body = outcome.Result
	case executor.StatusTimeout:
		embed.Color = ColorFailure
		embed.Body = opts.Messages.TimeLimit
	case executor.StatusMemoryOverflow:
		embed.Color = ColorFailure
		embed.Body = opts.Messages.MemoryLimit
	default: // StatusError
		embed.Color = ColorFailure
		embed.Body = outcome.Result
	}

	if embed.Body != "" {
		embed.Body = Truncate(EscapeMarkdown(embed.Body), opts.MaxLength)
	}
	return embed
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
)

// EscapeMarkdown prefixes every markup significant character with a backslash.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Truncate cuts s to max characters and marks the cut with an ellipsis.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + ellipsis
		}
		n++
	}
	return s
}
