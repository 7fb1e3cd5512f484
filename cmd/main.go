package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	logrus "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"langlang/admission"
	"langlang/config"
	"langlang/executor"
	"langlang/lang"
	"langlang/logger"
	"langlang/natshandler"
	"langlang/result"
	"langlang/routes"
	"langlang/service"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	coreLogger := logrus.New()
	if cfg.Environment == "development" {
		coreLogger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := executor.NewClient(executor.Config{
		Endpoint: cfg.LangLangURL,
		Timeout:  cfg.BackendTimeout,
		Logger:   coreLogger,
	})

	if cfg.Warmup {
		warmupBackend(ctx, client, log)
	}

	gate := admission.New(admission.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		StaleAfter:     cfg.StaleAfter,
		Logger:         coreLogger,
	})

	audit := logger.NewAuditStreamer(cfg.BetterStackSourceToken, cfg.Environment, cfg.BetterStackUploadURL, cfg.AuditLog, log)
	defer audit.Close()

	svc := service.NewEvalService(client, gate, audit, log, service.Options{
		Classify:  result.Options{MaxLength: cfg.MaxResultLength},
		NoticeTTL: cfg.WaitNoticeTTL,
	})

	// Connect to NATS
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatal("Failed to connect to NATS",
			zap.String("url", cfg.NatsURL),
			zap.Error(err))
	}
	defer nc.Drain()

	// Subscribe to command requests
	subs, err := natshandler.Subscribe(ctx, nc, svc, log)
	if err != nil {
		log.Fatal("Failed to subscribe", zap.Error(err))
	}
	log.Info("Listening for commands",
		zap.String("nats", cfg.NatsURL),
		zap.String("backend", client.Endpoint()),
		zap.Int("max_concurrency", cfg.MaxConcurrency))

	if cfg.HTTPAddr != "" {
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: routes.NewExecutionService(svc, log).Routes()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server stopped", zap.Error(err))
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info("Serving HTTP", zap.String("addr", cfg.HTTPAddr))
	}

	// Keep the service running
	<-ctx.Done()
	log.Info("Shutting down")
	if err := subs.Close(); err != nil {
		log.Warn("Failed to unsubscribe", zap.Error(err))
	}
}

// warmupBackend sends one trivial evaluation so a misconfigured backend
// shows up in the logs at startup instead of on the first user command.
func warmupBackend(ctx context.Context, client *executor.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	outcomes, err := client.Evaluate(ctx, lang.Text, "warmup")
	if err != nil {
		log.Warn("Eval backend warmup failed", zap.String("url", client.Endpoint()), zap.Error(err))
		return
	}
	status := "none"
	if len(outcomes) > 0 {
		status = string(outcomes[0].Status)
	}
	log.Info("Eval backend ready", zap.String("status", status), zap.Duration("took", time.Since(start)))
}
