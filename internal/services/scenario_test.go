package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/formsummary/internal/config"
	"github.com/Lllllllleong/formsummary/internal/models"
	"github.com/Lllllllleong/formsummary/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		ProjectID:         "test",
		StoreBackend:      config.StoreBackendMemory,
		GenerationTimeout: 5 * time.Second,
		ShutdownTimeout:   time.Second,
	}
}

func waitForState(t *testing.T, lookup *Lookup, id string, want models.ResultState) models.ResultView {
	t.Helper()
	var view models.ResultView
	require.Eventually(t, func() bool {
		view = lookup.Resolve(context.Background(), id)
		return view.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return view
}

func TestScenario_SubmitPollComplete(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{fn: func(ctx context.Context, _ string) (string, error) {
		select {
		case <-release:
			return "Summary", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	app := Assemble(store.NewMemoryStore(), gen, testConfig())
	ctx := context.Background()

	ack, err := app.Intake.Accept(ctx, payload("abc", models.TallyField{Label: "Q1", Value: json.RawMessage(`"A1"`)}))
	require.NoError(t, err)
	assert.Equal(t, models.AckStatusOK, ack.Status)

	assert.Equal(t, models.ResultProcessing, app.Lookup.Resolve(ctx, "abc").State)
	assert.Equal(t, models.ResultNotFound, app.Lookup.Resolve(ctx, "xyz").State)

	close(release)
	view := waitForState(t, app.Lookup, "abc", models.ResultSuccess)
	assert.Equal(t, "Summary", view.Result)
	assert.Equal(t, "abc", view.SubmissionID)
	assert.Equal(t, models.ResultNotFound, app.Lookup.Resolve(ctx, "xyz").State)

	// Read consistency: the answer never changes afterwards.
	for i := 0; i < 5; i++ {
		assert.Equal(t, view, app.Lookup.Resolve(ctx, "abc"))
	}
}

func TestScenario_DuplicateDeliveryCallsGeneratorOnce(t *testing.T) {
	gen := returning("Summary", nil)
	app := Assemble(store.NewMemoryStore(), gen, testConfig())
	ctx := context.Background()
	event := payload("abc", models.TallyField{Label: "Q1", Value: json.RawMessage(`"A1"`)})

	first, err := app.Intake.Accept(ctx, event)
	require.NoError(t, err)
	second, err := app.Intake.Accept(ctx, event)
	require.NoError(t, err)

	require.NoError(t, app.Dispatcher.Wait(ctx))
	assert.Equal(t, 1, gen.Calls())
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, models.ResultSuccess, app.Lookup.Resolve(ctx, "abc").State)
}

func TestScenario_IntakeDoesNotWaitForHangingGenerator(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	hanging := &fakeGenerator{fn: func(context.Context, string) (string, error) {
		<-release
		return "", nil
	}}
	app := Assemble(store.NewMemoryStore(), hanging, testConfig())

	start := time.Now()
	ack, err := app.Intake.Accept(context.Background(), payload("abc"))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, models.AckMessageStarted, ack.Message)
	assert.Less(t, elapsed, 200*time.Millisecond)
	assert.Equal(t, models.ResultProcessing, app.Lookup.Resolve(context.Background(), "abc").State)
}

func TestScenario_FailureSurfacesAsError(t *testing.T) {
	app := Assemble(store.NewMemoryStore(), returning("", ErrEmptyResponse), testConfig())

	_, err := app.Intake.Accept(context.Background(), payload("abc"))
	require.NoError(t, err)

	view := waitForState(t, app.Lookup, "abc", models.ResultError)
	assert.Equal(t, MsgEmptyResponse, view.ErrorMessage)
}
