package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/Lllllllleong/formsummary/internal/models"
	"github.com/Lllllllleong/formsummary/internal/store"
)

func begin(t *testing.T, st store.Store, id string) {
	t.Helper()
	ok, err := st.TryBeginProcessing(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWorker_FinalizesExactlyOnce(t *testing.T) {
	tests := []struct {
		name       string
		generator  *fakeGenerator
		wantStatus models.Status
		wantResult string
		wantError  string
	}{
		{
			name:       "success",
			generator:  returning("Summary", nil),
			wantStatus: models.StatusDone,
			wantResult: "Summary",
		},
		{
			name:       "empty text",
			generator:  returning("   ", nil),
			wantStatus: models.StatusFailed,
			wantError:  MsgEmptyResponse,
		},
		{
			name:       "empty response error",
			generator:  returning("", ErrEmptyResponse),
			wantStatus: models.StatusFailed,
			wantError:  MsgEmptyResponse,
		},
		{
			name:       "provider error",
			generator:  returning("", grpcstatus.Error(grpccodes.ResourceExhausted, "quota exceeded for project acme-prod")),
			wantStatus: models.StatusFailed,
			wantError:  "generation failed: ResourceExhausted",
		},
		{
			name: "wrapped provider error",
			generator: returning("", fmt.Errorf("failed to generate content from gemini: %w",
				grpcstatus.Error(grpccodes.PermissionDenied, "caller key AIza-secret lacks access"))),
			wantStatus: models.StatusFailed,
			wantError:  "generation failed: PermissionDenied",
		},
		{
			name:       "non-grpc error",
			generator:  returning("", errors.New("dial tcp 10.0.0.7:443: connection refused")),
			wantStatus: models.StatusFailed,
			wantError:  "generation failed: provider error",
		},
		{
			name: "panic",
			generator: &fakeGenerator{fn: func(context.Context, string) (string, error) {
				panic("unexpected nil candidate")
			}},
			wantStatus: models.StatusFailed,
			wantError:  MsgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore()
			begin(t, st, "abc")

			w := NewWorker(st, tt.generator, WorkerConfig{Timeout: time.Second})
			require.NotPanics(t, func() { w.Run(ctx, "abc", "prompt") })

			rec, ok, err := st.Get(ctx, "abc")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantResult, rec.Result)
			assert.Equal(t, tt.wantError, rec.Error)
			assert.Equal(t, 1, tt.generator.Calls(), "the generation call is never retried")
		})
	}
}

func TestWorker_TimeoutWithGeneratorIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	hanging := &fakeGenerator{fn: func(context.Context, string) (string, error) {
		<-release
		return "too late", nil
	}}

	ctx := context.Background()
	st := store.NewMemoryStore()
	begin(t, st, "slow")

	w := NewWorker(st, hanging, WorkerConfig{Timeout: 20 * time.Millisecond})
	w.Run(ctx, "slow", "prompt")

	rec, _, err := st.Get(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Equal(t, MsgTimeout, rec.Error)
}

func TestWorker_TimeoutWithContextAwareGenerator(t *testing.T) {
	waiting := &fakeGenerator{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	ctx := context.Background()
	st := store.NewMemoryStore()
	begin(t, st, "slow")

	NewWorker(st, waiting, WorkerConfig{Timeout: 10 * time.Millisecond}).Run(ctx, "slow", "prompt")

	rec, _, err := st.Get(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, MsgTimeout, rec.Error)
}

func TestWorker_RetriesTransientStoreFailures(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{MemoryStore: store.NewMemoryStore(), failures: 2}
	begin(t, st, "abc")

	w := NewWorker(st, returning("Summary", nil), WorkerConfig{Timeout: time.Second, RetryBackoff: time.Millisecond})
	w.Run(ctx, "abc", "prompt")

	rec, _, err := st.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, rec.Status)
	assert.Equal(t, 3, st.attempts)
}

func TestWorker_GivesUpAfterRepeatedStoreFailures(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{MemoryStore: store.NewMemoryStore(), failures: 10}
	begin(t, st, "abc")
	hook := &recordingHook{name: "archive"}

	w := NewWorker(st, returning("Summary", nil), WorkerConfig{Timeout: time.Second, RetryBackoff: time.Millisecond}, hook)
	require.NotPanics(t, func() { w.Run(ctx, "abc", "prompt") })

	assert.Equal(t, finalizeAttempts, st.attempts)
	assert.Empty(t, hook.Seen(), "hooks only run after a recorded completion")
}

func TestWorker_SecondFinalizerIsRejected(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	begin(t, st, "abc")

	NewWorker(st, returning("first", nil), WorkerConfig{}).Run(ctx, "abc", "p")
	NewWorker(st, returning("second", nil), WorkerConfig{}).Run(ctx, "abc", "p")

	rec, _, err := st.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "first", rec.Result)
}

func TestWorker_RunsHooksAfterCompletion(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	begin(t, st, "abc")

	failing := &recordingHook{name: "followup", err: errors.New("workflow unavailable")}
	archive := &recordingHook{name: "archive"}
	w := NewWorker(st, returning("Summary", nil), WorkerConfig{}, failing, archive)
	w.Run(ctx, "abc", "prompt")

	require.Len(t, archive.Seen(), 1, "a failing hook does not stop the others")
	assert.Equal(t, models.Submission{ID: "abc", Status: models.StatusDone, Result: "Summary"}, archive.Seen()[0])

	rec, _, err := st.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, rec.Status, "hook errors never change the record")
}

func TestWorker_NoHooksOnFailure(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	begin(t, st, "abc")
	hook := &recordingHook{name: "archive"}

	NewWorker(st, returning("", errors.New("boom")), WorkerConfig{}, hook).Run(ctx, "abc", "prompt")

	assert.Empty(t, hook.Seen())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "a...", truncate("añb", 2), "never splits a multi-byte rune")
}
