package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/formsummary/internal/config"
	"github.com/Lllllllleong/formsummary/internal/handlers"
	"github.com/Lllllllleong/formsummary/internal/services"
)

var (
	resultsHandler http.Handler
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleResult", handleResult)
}

// main is required by the Go Functions Framework.
func main() {}

// handleResult only reads records, so it needs the store and nothing else.
func handleResult(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: result lookup initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	resultsHandler.ServeHTTP(w, r)
}

func setup(ctx context.Context) error {
	cfg, err := config.LoadShared()
	if err != nil {
		return err
	}
	// The store lives as long as the function instance.
	st, _, err := services.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	resultsHandler = handlers.ResultsHandler(services.NewLookup(st), cfg.PollInterval)
	return nil
}
