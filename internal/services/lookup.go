package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Lllllllleong/formsummary/internal/models"
	"github.com/Lllllllleong/formsummary/internal/observability"
	"github.com/Lllllllleong/formsummary/internal/store"
)

// MsgStoreUnavailable is shown when the result cannot be read at all.
const MsgStoreUnavailable = "the result store is temporarily unavailable, please retry later"

const lookupTimeout = 10 * time.Second

// Lookup answers result-page queries. It only reads.
type Lookup struct {
	store store.Store
}

func NewLookup(st store.Store) *Lookup {
	return &Lookup{store: st}
}

// Resolve maps the current record of id to one of the five presentational
// states. It never waits for an in-flight worker. Every call does its own
// store read, so a lookup that starts after a finalization sees it.
func (l *Lookup) Resolve(ctx context.Context, id string) models.ResultView {
	view := l.resolve(ctx, id)
	observability.RecordLookup(string(view.State))
	return view
}

func (l *Lookup) resolve(ctx context.Context, id string) models.ResultView {
	view := models.ResultView{SubmissionID: id}
	if id == "" {
		view.State = models.ResultNotFound
		return view
	}

	rctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	rec, exists, err := l.store.Get(rctx, id)
	if err != nil {
		slog.Error("Failed to read submission.", "submissionId", id, "error", err)
		view.State = models.ResultCriticalError
		view.ErrorMessage = MsgStoreUnavailable
		return view
	}

	switch {
	case !exists:
		view.State = models.ResultNotFound
	case rec.Status == models.StatusDone:
		view.State = models.ResultSuccess
		view.Result = rec.Result
	case rec.Status == models.StatusFailed:
		view.State = models.ResultError
		view.ErrorMessage = rec.Error
	case rec.Status == models.StatusInProgress:
		view.State = models.ResultProcessing
	default:
		slog.Error("Submission has an unknown status.", "submissionId", id, "status", rec.Status)
		view.State = models.ResultCriticalError
		view.ErrorMessage = MsgStoreUnavailable
	}
	return view
}
