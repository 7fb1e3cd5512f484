package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"langlang/admission"
	"langlang/executor"
	"langlang/lang"
	"langlang/result"
)

var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrMalformedInput  = errors.New("expected a code block with the language on its first line")
	ErrAlreadyRunning  = errors.New("another execution is already running")
)

// IsUserError reports whether err is the requester's mistake rather than a
// system fault.
func IsUserError(err error) bool {
	return errors.Is(err, ErrUnknownLanguage) ||
		errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrAlreadyRunning)
}

// Message is one outgoing chat message. Exactly one of Text or Embed is set.
type Message struct {
	Text      string
	Embed     *result.Embed
	ExpiresIn time.Duration
}

// Messenger delivers messages to the requester. Implementations are
// provided by the presentation layer.
type Messenger interface {
	// Reply posts a new message and returns its id.
	Reply(ctx context.Context, msg Message) (string, error)
	// Edit replaces a previously posted message.
	Edit(ctx context.Context, messageID string, msg Message) error
}

// Evaluator runs code on the eval backend.
type Evaluator interface {
	Evaluate(ctx context.Context, language lang.ID, code string, inputs ...string) ([]executor.Outcome, error)
}

// Gate admits or rejects an execution.
type Gate interface {
	Run(ctx context.Context, identity string, onWait admission.WaitFunc, fn func(context.Context) error) error
}

// Auditor records finished evaluations.
type Auditor interface {
	Audit(identity string, language lang.ID, status string, duration time.Duration, err error)
}

// EvalService implements the languages and eval commands.
type EvalService struct {
	evaluator Evaluator
	gate      Gate
	auditor   Auditor
	logger    *zap.Logger
	opts      Options
}

// NewEvalService wires the command handler. auditor and logger may be nil.
func NewEvalService(evaluator Evaluator, gate Gate, auditor Auditor, logger *zap.Logger, opts Options) *EvalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvalService{
		evaluator: evaluator,
		gate:      gate,
		auditor:   auditor,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// Languages returns the canonical language ids joined by ", ".
func (s *EvalService) Languages() string {
	return strings.Join(lang.Names(), ", ")
}

// Eval runs a fenced code block for identity and reports progress through m.
// User errors are replied to and also returned so callers can tell them apart.
func (s *EvalService) Eval(ctx context.Context, identity, text string, m Messenger) error {
	language, code, err := ParseBlock(text)
	if err != nil {
		reply := s.opts.Messages.MalformedInput
		if errors.Is(err, ErrUnknownLanguage) {
			reply = s.opts.Messages.UnknownLanguage
		}
		if _, sendErr := m.Reply(ctx, Message{Text: reply}); sendErr != nil {
			return errors.Join(err, fmt.Errorf("reply: %w", sendErr))
		}
		return err
	}

	onWait := func(ahead int) {
		notice := Message{Text: s.opts.Messages.waitNotice(ahead), ExpiresIn: s.opts.NoticeTTL}
		if _, err := m.Reply(ctx, notice); err != nil {
			s.logger.Warn("Failed to send wait notice", zap.String("identity", identity), zap.Error(err))
		}
	}

	err = s.gate.Run(ctx, identity, onWait, func(ctx context.Context) error {
		return s.execute(ctx, identity, language, code, m)
	})
	if errors.Is(err, admission.ErrBusy) {
		if _, sendErr := m.Reply(ctx, Message{Text: s.opts.Messages.AlreadyRunning}); sendErr != nil {
			return errors.Join(ErrAlreadyRunning, fmt.Errorf("reply: %w", sendErr))
		}
		return ErrAlreadyRunning
	}
	return err
}

func (s *EvalService) execute(ctx context.Context, identity string, language lang.ID, code string, m Messenger) error {
	placeholder := &result.Embed{Title: s.opts.Messages.Placeholder, Color: result.ColorPending}
	messageID, err := m.Reply(ctx, Message{Embed: placeholder})
	if err != nil {
		return fmt.Errorf("send placeholder: %w", err)
	}

	start := time.Now()
	outcomes, err := s.evaluator.Evaluate(ctx, language, code)
	if err == nil && len(outcomes) == 0 {
		err = fmt.Errorf("%w: no results", executor.ErrMalformedResponse)
	}
	if err != nil {
		s.logger.Error("Evaluation failed",
			zap.String("identity", identity),
			zap.String("language", string(language)),
			zap.Error(err))
		s.audit(identity, language, "failed", time.Since(start), err)

		failure := &result.Embed{
			Title:  s.opts.Messages.FailureTitle,
			Body:   s.opts.Messages.FailureBody,
			Color:  result.ColorFailure,
			Footer: string(language),
		}
		if editErr := m.Edit(ctx, messageID, Message{Embed: failure}); editErr != nil {
			return errors.Join(err, fmt.Errorf("edit placeholder: %w", editErr))
		}
		return err
	}

	embed := result.Classify(language, outcomes[0], s.opts.Classify)
	s.audit(identity, language, string(outcomes[0].Status), time.Since(start), nil)

	if err := m.Edit(ctx, messageID, Message{Embed: &embed}); err != nil {
		return fmt.Errorf("edit placeholder: %w", err)
	}
	return nil
}

func (s *EvalService) audit(identity string, language lang.ID, status string, d time.Duration, err error) {
	if s.auditor != nil {
		s.auditor.Audit(identity, language, status, d, err)
	}
}
