package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/phrazzld/worksheetgen/internal/cache"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/fingerprint"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultGenerationTimeout bounds a single shared Client call.
const DefaultGenerationTimeout = 2 * time.Minute

// TaskCache is the part of the generation cache the Orchestrator uses.
type TaskCache interface {
	Lookup(ctx context.Context, fp fingerprint.Fingerprint) (*cache.Entry, bool, error)
	Store(ctx context.Context, entry cache.Entry) error
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithGenerationTimeout sets the deadline applied to each Client call.
func WithGenerationTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithValidator replaces the default Validator.
func WithValidator(v *Validator) OrchestratorOption {
	return func(o *Orchestrator) {
		if v != nil {
			o.validator = v
		}
	}
}

// Orchestrator produces validated tasks for a piece of text, serving
// repeated requests from the cache and coalescing concurrent ones.
type Orchestrator struct {
	client    Client
	cache     TaskCache
	validator *Validator
	flights   singleflight.Group
	timeout   time.Duration
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(client Client, taskCache TaskCache, l *slog.Logger, opts ...OrchestratorOption) (*Orchestrator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: generation client cannot be nil", ErrInvalidConfig)
	}
	if taskCache == nil {
		return nil, fmt.Errorf("%w: task cache cannot be nil", ErrInvalidConfig)
	}
	if l == nil {
		l = slog.Default()
	}
	o := &Orchestrator{
		client:    client,
		cache:     taskCache,
		validator: NewValidator(l),
		timeout:   DefaultGenerationTimeout,
		logger:    l.With(slog.String("component", "generation_orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// EnsureTasks returns validated tasks for text at the requested count.
//
// A valid cache entry is returned without calling the Client. On a miss, a
// single Client call per fingerprint is made; concurrent callers with the
// same text and count wait for it and receive the same tasks. The call runs
// detached from any one caller's context and is bounded by the generation
// timeout, while each caller stops waiting when its own ctx is done.
//
// Cache failures are logged and never returned. Other failures are *Error
// values matching ErrGenerationClient, ErrMalformedResponse or ErrEmptyResult.
// The returned slice is owned by the caller.
func (o *Orchestrator) EnsureTasks(ctx context.Context, text string, count int) ([]domain.TaskRecord, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrInvalidRequest)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: task count must be positive, got %d", ErrInvalidRequest, count)
	}

	fp := fingerprint.Of(text, count)
	log := logger.FromContextOrDefault(ctx, o.logger).With(slog.String("fingerprint", fp.String()))

	if tasks, ok := o.lookup(ctx, log, fp); ok {
		return tasks, nil
	}

	ch := o.flights.DoChan(fp.String(), func() (any, error) {
		return o.generate(context.WithoutCancel(ctx), log, fp, text, count)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.DebugContext(ctx, "shared in-flight generation result")
		}
		return domain.CloneTasks(res.Val.([]domain.TaskRecord)), nil
	case <-ctx.Done():
		log.WarnContext(ctx, "stopped waiting for task generation", slog.String("error", ctx.Err().Error()))
		return nil, fmt.Errorf("waiting for task generation: %w", ctx.Err())
	}
}

// lookup returns cached tasks for fp. Cache errors count as a miss.
func (o *Orchestrator) lookup(ctx context.Context, log *slog.Logger, fp fingerprint.Fingerprint) ([]domain.TaskRecord, bool) {
	entry, ok, err := o.cache.Lookup(ctx, fp)
	if err != nil {
		log.WarnContext(ctx, "cache lookup failed, generating instead", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok || len(entry.Tasks) == 0 {
		return nil, false
	}
	return entry.Tasks, true
}

// generate runs inside the single flight for fp.
func (o *Orchestrator) generate(
	ctx context.Context,
	log *slog.Logger,
	fp fingerprint.Fingerprint,
	text string,
	count int,
) ([]domain.TaskRecord, error) {
	// A flight that finished just before this one started has filled the cache.
	if tasks, ok := o.lookup(ctx, log, fp); ok {
		return tasks, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	log.InfoContext(ctx, "generating tasks", slog.Int("requested", count), slog.Int("text_length", len(text)))

	raw, err := o.callClient(genCtx, log, text, count)
	if err != nil {
		err = classifyClientError(genCtx, err)
		log.ErrorContext(ctx, "task generation failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &Error{Op: "generate", Fingerprint: fp, Err: err}
	}

	tasks, err := o.validator.Validate(ctx, raw)
	if err != nil {
		log.ErrorContext(ctx, "generation response rejected", slog.String("error", err.Error()))
		return nil, &Error{Op: "validate", Fingerprint: fp, Err: err}
	}
	if len(tasks) == 0 {
		log.ErrorContext(ctx, "no valid tasks produced")
		return nil, &Error{Op: "validate", Fingerprint: fp, Err: ErrEmptyResult}
	}

	if err := o.cache.Store(ctx, cache.NewEntry(text, count, tasks)); err != nil {
		log.WarnContext(ctx, "failed to cache generated tasks", slog.String("error", err.Error()))
	}

	log.InfoContext(ctx, "generated tasks",
		slog.Int("requested", count),
		slog.Int("produced", len(tasks)),
		slog.Duration("elapsed", time.Since(start)))
	return tasks, nil
}

// callClient invokes the Client, converting a panic into ErrGenerationClient.
// singleflight would otherwise re-raise it on a goroutine nobody recovers.
func (o *Orchestrator) callClient(ctx context.Context, log *slog.Logger, text string, count int) (raw RawResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "task generation panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			raw, err = nil, fmt.Errorf("%w: client panicked: %v", ErrGenerationClient, r)
		}
	}()
	return o.client.Generate(ctx, text, count)
}

// classifyClientError makes sure err matches ErrGenerationClient, treating
// an expired generation deadline as transient.
func classifyClientError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrGenerationClient), errors.Is(err, ErrMalformedResponse):
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	default:
		return fmt.Errorf("%w: %w", ErrGenerationClient, err)
	}
}
