package natshandler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"langlang/model"
	"langlang/result"
	"langlang/service"
)

const (
	SubjectLanguages = "langlang.languages.request"
	SubjectEval      = "langlang.eval.request"
)

// Publisher is the part of *nats.Conn the handlers need.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Subscriptions holds the command subscriptions and the eval requests they
// are still serving.
type Subscriptions struct {
	subs []*nats.Subscription

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Subscribe registers the command subjects on nc. Eval requests are served
// on their own goroutine so slow executions do not hold up the subscription.
func Subscribe(ctx context.Context, nc *nats.Conn, svc *service.EvalService, logger *zap.Logger) (*Subscriptions, error) {
	s := &Subscriptions{}

	langSub, err := nc.Subscribe(SubjectLanguages, func(msg *nats.Msg) {
		HandleLanguagesRequest(msg, nc, svc, logger)
	})
	if err != nil {
		return nil, err
	}

	evalSub, err := nc.Subscribe(SubjectEval, func(msg *nats.Msg) {
		if !s.track(func() { HandleEvalRequest(ctx, msg, nc, svc, logger) }) {
			logger.Warn("Dropping eval request during shutdown", zap.String("subject", msg.Subject))
		}
	})
	if err != nil {
		langSub.Unsubscribe()
		return nil, err
	}
	s.subs = []*nats.Subscription{langSub, evalSub}
	return s, nil
}

// track runs fn on a new goroutine unless Close has been called.
func (s *Subscriptions) track(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		fn()
	}()
	return true
}

// Close unsubscribes and waits for in-flight eval requests to reply.
func (s *Subscriptions) Close() error {
	var errs []error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()
	return errors.Join(errs...)
}

func HandleLanguagesRequest(msg *nats.Msg, nc Publisher, svc *service.EvalService, logger *zap.Logger) {
	if msg.Reply == "" {
		return
	}
	resData, _ := json.Marshal(model.LanguagesResponse{Languages: svc.Languages()})
	if err := nc.Publish(msg.Reply, resData); err != nil {
		logger.Error("Failed to reply to languages request", zap.Error(err))
	}
}

func HandleEvalRequest(ctx context.Context, msg *nats.Msg, nc Publisher, svc *service.EvalService, logger *zap.Logger) {
	var req model.EvalRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		logger.Warn("Failed to parse eval request", zap.Error(err))
		reply(msg, nc, model.EvalResponse{Code: model.CodeMalformedInput, Error: err.Error()}, logger)
		return
	}
	if req.Identity == "" {
		reply(msg, nc, model.EvalResponse{Code: model.CodeMalformedInput, Error: "identity is required"}, logger)
		return
	}

	m := &eventMessenger{nc: nc, subject: req.EventsSubject}
	err := svc.Eval(ctx, req.Identity, req.Text, m)

	res := model.EvalResponse{OK: err == nil, Embed: m.lastEmbed()}
	if err != nil {
		res.Code = model.ErrorCode(err)
		res.Error = err.Error()
		if !service.IsUserError(err) {
			logger.Error("Eval command failed", zap.String("identity", req.Identity), zap.Error(err))
		}
	}
	reply(msg, nc, res, logger)
}

func reply(msg *nats.Msg, nc Publisher, res model.EvalResponse, logger *zap.Logger) {
	if msg.Reply == "" {
		return
	}
	resData, _ := json.Marshal(res)
	if err := nc.Publish(msg.Reply, resData); err != nil {
		logger.Error("Failed to reply to eval request", zap.Error(err))
	}
}

// eventMessenger publishes each outgoing message as an Event frame.
type eventMessenger struct {
	nc      Publisher
	subject string

	mu    sync.Mutex
	embed *result.Embed
}

func (m *eventMessenger) Reply(_ context.Context, msg service.Message) (string, error) {
	id := uuid.NewString()
	return id, m.publish(model.NewEvent(model.EventReply, id, msg))
}

func (m *eventMessenger) Edit(_ context.Context, messageID string, msg service.Message) error {
	return m.publish(model.NewEvent(model.EventEdit, messageID, msg))
}

func (m *eventMessenger) publish(ev model.Event) error {
	if ev.Embed != nil {
		m.mu.Lock()
		m.embed = ev.Embed
		m.mu.Unlock()
	}
	if m.subject == "" {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return m.nc.Publish(m.subject, data)
}

func (m *eventMessenger) lastEmbed() *result.Embed {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embed
}
