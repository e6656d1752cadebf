package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/worksheetgen/internal/api"
	"github.com/phrazzld/worksheetgen/internal/cache"
	"github.com/phrazzld/worksheetgen/internal/config"
	"github.com/phrazzld/worksheetgen/internal/events"
	"github.com/phrazzld/worksheetgen/internal/extract"
	"github.com/phrazzld/worksheetgen/internal/generation"
	"github.com/phrazzld/worksheetgen/internal/platform/gemini"
	"github.com/phrazzld/worksheetgen/internal/platform/openai"
	"github.com/phrazzld/worksheetgen/internal/service"
	"github.com/phrazzld/worksheetgen/internal/task"
	"github.com/spf13/afero"
)

// redisKeyPrefix namespaces every key this server writes to a shared Redis.
const redisKeyPrefix = "worksheetgen:"

// worksheetRepository is everything the service and the generation task
// need from persistence. store.WorksheetStore satisfies it.
type worksheetRepository interface {
	service.WorksheetRepository
	task.WorksheetRepository
}

type application struct {
	config *config.Config
	logger *slog.Logger

	// db is pinged by the health endpoint; nil skips the ping.
	db api.Pinger

	cache        *cache.GenerationCache
	worksheets   api.WorksheetService
	taskRunner   *task.TaskRunner
	eventEmitter *events.InMemoryEventEmitter

	// closers are released in reverse order on cleanup.
	closers []io.Closer
}

func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	repo worksheetRepository,
	fs afero.Fs,
) (*application, error) {
	if repo == nil {
		return nil, fmt.Errorf("worksheet repository cannot be nil")
	}
	app := &application{
		config: cfg,
		logger: logger,
	}

	backend, closer, err := buildCacheBackend(ctx, cfg.Cache, fs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache backend: %w", err)
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	app.cache, err = cache.New(backend, cfg.Cache.TTL, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize generation cache: %w", err)
	}
	logger.Info("generation cache initialized",
		slog.String("backend", backend.Name()),
		slog.Duration("ttl", app.cache.TTL()))

	client, err := buildGenerator(ctx, logger, cfg.LLM)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}

	orchestrator, err := generation.NewOrchestrator(client, app.cache, logger,
		generation.WithGenerationTimeout(cfg.LLM.RequestTimeout))
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize generation orchestrator: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: cfg.Tasks.WorkerCount,
		QueueSize:   cfg.Tasks.QueueSize,
	}, logger)

	factory := task.NewWorksheetGenerationTaskFactory(repo, orchestrator, task.RetryPolicy{
		MaxRetries: cfg.LLM.MaxRetries,
		BaseDelay:  cfg.LLM.RetryBaseDelay,
	}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(factory, app.taskRunner, logger))

	uploads, err := service.NewUploadStore(fs, cfg.Uploads.Dir)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize upload store: %w", err)
	}

	app.worksheets, err = service.NewWorksheetService(
		repo,
		extract.NewExtractor(logger),
		uploads,
		app.eventEmitter,
		service.WorksheetServiceConfig{
			MaxUploadBytes:  cfg.Server.MaxUploadBytes,
			DefaultNumTasks: cfg.LLM.DefaultTaskCount,
		},
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create worksheet service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the task runner and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	app.taskRunner.Start()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and releases resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error("failed to release resource", slog.String("error", err.Error()))
		}
	}
	app.closers = nil
}

// buildCacheBackend selects the backend named in cfg. The returned closer is
// non-nil when the backend holds a connection.
func buildCacheBackend(ctx context.Context, cfg config.CacheConfig, fs afero.Fs) (cache.Backend, io.Closer, error) {
	switch cfg.Backend {
	case "memory":
		b, err := cache.NewMemoryBackend(cfg.MemorySize)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	case "file":
		b, err := cache.NewFileBackend(fs, cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisBackend(client, redisKeyPrefix), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// buildGenerator selects the task generation client named in cfg.
func buildGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (generation.Client, error) {
	switch cfg.Provider {
	case "gemini":
		g, err := gemini.NewGenerator(ctx, logger, cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		g, err := openai.NewGenerator(logger, cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}
