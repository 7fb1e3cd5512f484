package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"langlang/model"
	"langlang/service"
)

const maxRequestBytes = 1 << 20

// ExecutionService serves the command surface over HTTP.
type ExecutionService struct {
	svc    *service.EvalService
	logger *zap.Logger
}

func NewExecutionService(svc *service.EvalService, logger *zap.Logger) *ExecutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutionService{svc: svc, logger: logger}
}

// Routes returns the router with GET /languages and POST /eval.
func (s *ExecutionService) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/languages", s.HandleLanguages)
	r.Post("/eval", s.HandleExecute)
	return r
}

func (s *ExecutionService) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s.svc.Languages()))
}

func (s *ExecutionService) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req model.EvalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.EvalResponse{
			Code:  model.CodeMalformedInput,
			Error: err.Error(),
		})
		return
	}
	if req.Identity == "" {
		writeJSON(w, http.StatusBadRequest, model.EvalResponse{
			Code:  model.CodeMalformedInput,
			Error: "identity is required",
		})
		return
	}

	rec := &recorder{}
	err := s.svc.Eval(r.Context(), req.Identity, req.Text, rec)
	events := rec.list()

	res := model.EvalResponse{OK: err == nil, Events: events}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Embed != nil {
			res.Embed = events[i].Embed
			break
		}
	}
	if err != nil {
		res.Code = model.ErrorCode(err)
		res.Error = err.Error()
		if !service.IsUserError(err) {
			s.logger.Error("Eval request failed", zap.String("identity", req.Identity), zap.Error(err))
		}
	}
	writeJSON(w, statusFor(err), res)
}

func statusFor(err error) int {
	switch model.ErrorCode(err) {
	case "":
		return http.StatusOK
	case model.CodeUnknownLanguage, model.CodeMalformedInput:
		return http.StatusBadRequest
	case model.CodeAlreadyRunning:
		return http.StatusConflict
	case model.CodeBackendUnavailable, model.CodeMalformedResponse:
		return http.StatusBadGateway
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// recorder collects the messages of one request for the response body.
type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Reply(_ context.Context, msg service.Message) (string, error) {
	id := uuid.NewString()
	r.add(model.NewEvent(model.EventReply, id, msg))
	return id, nil
}

func (r *recorder) Edit(_ context.Context, messageID string, msg service.Message) error {
	r.add(model.NewEvent(model.EventEdit, messageID, msg))
	return nil
}

func (r *recorder) add(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) list() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}
