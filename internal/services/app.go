package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/formsummary/internal/config"
	"github.com/Lllllllleong/formsummary/internal/gcp"
	"github.com/Lllllllleong/formsummary/internal/store"
)

// App bundles the components shared by the HTTP server and the Cloud
// Functions entry points.
type App struct {
	Store      store.Store
	Memory     *store.MemoryStore // nil unless the memory backend is used
	Worker     *Worker
	Dispatcher *AsyncDispatcher
	Intake     *Intake
	Lookup     *Lookup

	closers []func() error
}

// Assemble wires the core components around an existing store and generator.
func Assemble(st store.Store, gen Generator, cfg *config.Config, hooks ...CompletionHook) *App {
	worker := NewWorker(st, gen, WorkerConfig{Timeout: cfg.GenerationTimeout}, hooks...)
	dispatcher := NewAsyncDispatcher(worker)
	header := cfg.PromptHeader
	if header == "" {
		header = DefaultPromptHeader
	}
	app := &App{
		Store:      st,
		Worker:     worker,
		Dispatcher: dispatcher,
		Intake:     NewIntake(st, dispatcher, header),
		Lookup:     NewLookup(st),
	}
	if mem, ok := st.(*store.MemoryStore); ok {
		app.Memory = mem
	}
	return app
}

// NewApp creates every client the configuration asks for and assembles the app.
func NewApp(ctx context.Context, cfg *config.Config) (app *App, err error) {
	var closers []func() error
	defer func() {
		if err != nil {
			for _, closeFn := range closers {
				_ = closeFn()
			}
		}
	}()

	st, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeStore)

	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.GeminiModel, cfg.PromptProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	closers = append(closers, vertexClient.Close)

	var hooks []CompletionHook
	if cfg.ResultsBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		closers = append(closers, storageClient.Close)
		hooks = append(hooks, NewGCSArchive(storageClient, cfg.ResultsBucket))
	}
	if cfg.FollowUpWorkflowID != "" {
		executionsClient, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return nil, err
		}
		closers = append(closers, executionsClient.Close)
		parent := gcp.WorkflowParent(cfg.ProjectID, cfg.WorkflowLocation, cfg.FollowUpWorkflowID)
		hooks = append(hooks, NewWorkflowFollowUp(executionsClient, parent))
	}

	app = Assemble(st, NewVertexGenerator(vertexClient.SummaryModel), cfg, hooks...)
	app.closers = closers
	slog.Info("Form summary logic initialized.",
		"storeBackend", cfg.StoreBackend,
		"model", vertexClient.ModelName,
		"promptProfile", cfg.PromptProfile,
		"hooks", len(hooks))
	return app, nil
}

// OpenStore creates the store the configuration selects. The returned close
// function is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, func() error, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendFirestore:
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.FirestoreDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		return store.NewFirestoreStore(client, cfg.FirestoreCollection, cfg.RetentionTTL), client.Close, nil
	default:
		st := store.NewMemoryStore(store.WithRetentionTTL(cfg.RetentionTTL))
		return st, func() error { return nil }, nil
	}
}

// Close releases the clients created by NewApp.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
