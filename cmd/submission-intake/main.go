package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/formsummary/internal/config"
	"github.com/Lllllllleong/formsummary/internal/handlers"
	"github.com/Lllllllleong/formsummary/internal/services"
)

var (
	app     *services.App
	once    sync.Once
	initErr error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleSubmission" receives the form webhook directly; the CloudEvent
	// variant serves deployments that relay submissions through Pub/Sub.
	functions.HTTP("HandleSubmission", handleSubmission)
	functions.CloudEvent("HandleSubmissionEvent", handleSubmissionEvent)
}

// main is required by the Go Functions Framework.
func main() {}

func initApp() error {
	once.Do(func() {
		cfg, err := config.LoadShared()
		if err != nil {
			initErr = err
			return
		}
		app, initErr = services.NewApp(context.Background(), cfg)
	})
	return initErr
}

func handleSubmission(w http.ResponseWriter, r *http.Request) {
	if err := initApp(); err != nil {
		slog.Error("Critical: form summary initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handlers.WebhookHandler(app.Intake).ServeHTTP(w, r)
}

func handleSubmissionEvent(ctx context.Context, e cloudevents.Event) error {
	if err := initApp(); err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}
	return handlers.SubmissionEventHandler(app.Intake)(ctx, e)
}
