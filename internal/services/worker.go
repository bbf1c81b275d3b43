package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/Lllllllleong/formsummary/internal/models"
	"github.com/Lllllllleong/formsummary/internal/observability"
	"github.com/Lllllllleong/formsummary/internal/store"
)

// Failure messages stored on FAILED records. They are shown to the reader,
// so they never carry provider payloads or credentials.
const (
	MsgEmptyResponse = "empty or unexpected response"
	MsgTimeout       = "generation timed out"
	MsgInternal      = "internal error during generation"
	msgFailedPrefix  = "generation failed: "
)

const (
	DefaultGenerationTimeout = 120 * time.Second

	finalizeAttempts = 3
	finalizeTimeout  = 30 * time.Second
	hookTimeout      = 30 * time.Second
)

var errGeneratorPanic = errors.New("generator panicked")

// CompletionHook runs after a submission reached DONE. Hook errors are
// logged and never change the record.
type CompletionHook interface {
	Name() string
	AfterComplete(ctx context.Context, sub models.Submission) error
}

// WorkerConfig holds the tunables of the generation worker.
type WorkerConfig struct {
	Timeout      time.Duration
	RetryBackoff time.Duration
}

// Worker performs one generation call per submission and records its outcome
// exactly once, whatever happens during the call.
type Worker struct {
	store     store.Store
	generator Generator
	hooks     []CompletionHook
	config    WorkerConfig
}

// NewWorker creates a worker. Zero config values fall back to defaults.
func NewWorker(st store.Store, gen Generator, config WorkerConfig, hooks ...CompletionHook) *Worker {
	if config.Timeout <= 0 {
		config.Timeout = DefaultGenerationTimeout
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 200 * time.Millisecond
	}
	return &Worker{
		store:     st,
		generator: gen,
		hooks:     hooks,
		config:    config,
	}
}

type outcome struct {
	status  string // metrics label: success, empty, error, timeout, panic
	result  string
	message string
}

func (o outcome) succeeded() bool { return o.status == "success" }

func failure(status, message string) outcome {
	return outcome{status: status, message: message}
}

// Run calls the generator and finalizes the record. It never panics and
// never returns an error: every failure becomes a FAILED record.
func (w *Worker) Run(ctx context.Context, id, prompt string) {
	runID := uuid.NewString()
	logCtx := slog.With("submissionId", id, "runId", runID)
	ctx, span := observability.Tracer().Start(ctx, "formsummary.generate",
		trace.WithAttributes(attribute.String("formsummary.run_id", runID)))
	defer span.End()

	logCtx.Info("Generating summary.")
	start := time.Now()
	result := failure("panic", MsgInternal)

	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("Generation worker panicked.", "panic", r)
			result = failure("panic", MsgInternal)
		}
		observability.RecordGeneration(result.status, time.Since(start))
		if !result.succeeded() {
			span.SetStatus(codes.Error, result.message)
		}
		w.finalize(ctx, logCtx, id, result)
	}()

	result = w.generate(ctx, logCtx, prompt)
}

type generation struct {
	text string
	err  error
}

func (w *Worker) generate(ctx context.Context, logCtx *slog.Logger, prompt string) outcome {
	callCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	// The call runs on its own goroutine so that a generator ignoring its
	// context still cannot hold the record IN_PROGRESS past the timeout.
	done := make(chan generation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generation{err: fmt.Errorf("%w: %v", errGeneratorPanic, r)}
			}
		}()
		text, err := w.generator.Generate(callCtx, prompt)
		done <- generation{text: text, err: err}
	}()

	var g generation
	select {
	case g = <-done:
	case <-callCtx.Done():
		g = generation{err: callCtx.Err()}
	}

	switch {
	case g.err == nil && strings.TrimSpace(g.text) != "":
		logCtx.Info("Gemini response received.")
		return outcome{status: "success", result: g.text}
	case g.err == nil || errors.Is(g.err, ErrEmptyResponse):
		logCtx.Warn("Gemini returned an empty or unexpected response.")
		return failure("empty", MsgEmptyResponse)
	case errors.Is(g.err, context.DeadlineExceeded):
		logCtx.Error("Gemini call timed out.", "timeout", w.config.Timeout.String())
		return failure("timeout", MsgTimeout)
	case errors.Is(g.err, errGeneratorPanic):
		logCtx.Error("Generator panicked.", "error", g.err)
		return failure("panic", MsgInternal)
	default:
		logCtx.Error("Error calling the Gemini API.", "error", g.err)
		return failure("error", failureSummary(g.err))
	}
}

// finalize writes the outcome, retrying transient store failures. The
// generation call itself is never retried.
func (w *Worker) finalize(ctx context.Context, logCtx *slog.Logger, id string, result outcome) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	backoff := w.config.RetryBackoff
	var err error
retry:
	for attempt := 1; attempt <= finalizeAttempts; attempt++ {
		if result.succeeded() {
			err = w.store.Complete(fctx, id, result.result)
		} else {
			err = w.store.Fail(fctx, id, result.message)
		}
		if err == nil || errors.Is(err, store.ErrInvalidTransition) || errors.Is(err, store.ErrNotFound) {
			break retry
		}
		if attempt == finalizeAttempts {
			break retry
		}

		observability.RecordFinalizeRetry()
		logCtx.Warn("Finalize failed, will retry.", "attempt", attempt, "backoff", backoff.String(), "error", err)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-fctx.Done():
			err = fctx.Err()
			break retry
		}
	}

	switch {
	case errors.Is(err, store.ErrInvalidTransition):
		// A retried write whose first attempt landed, or a second finalizer.
		logCtx.Warn("Submission was already finalized.", "error", err)
		return
	case err != nil:
		logCtx.Error("CRITICAL: Failed to finalize submission.", "error", err)
		return
	}

	logCtx.Info("Submission finalized.", "status", result.status)
	if result.succeeded() {
		w.runHooks(fctx, logCtx, models.Submission{ID: id, Status: models.StatusDone, Result: result.result})
	}
}

func (w *Worker) runHooks(ctx context.Context, logCtx *slog.Logger, sub models.Submission) {
	for _, hook := range w.hooks {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
		if err := hook.AfterComplete(hctx, sub); err != nil {
			observability.RecordHookFailure(hook.Name())
			logCtx.Error("Post-completion hook failed.", "hook", hook.Name(), "error", err)
		}
		cancel()
	}
}

// failureSummary names the class of a provider error. The error text itself
// stays in the logs since it may echo request details.
func failureSummary(err error) string {
	if st, ok := grpcstatus.FromError(err); ok {
		return msgFailedPrefix + st.Code().String()
	}
	return msgFailedPrefix + "provider error"
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
