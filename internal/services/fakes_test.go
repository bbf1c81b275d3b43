package services

import (
	"context"
	"errors"
	"sync"

	"github.com/Lllllllleong/formsummary/internal/models"
	"github.com/Lllllllleong/formsummary/internal/store"
)

// fakeGenerator records prompts and delegates to fn.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	fn      func(ctx context.Context, prompt string) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.fn(ctx, prompt)
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func returning(text string, err error) *fakeGenerator {
	return &fakeGenerator{fn: func(context.Context, string) (string, error) { return text, err }}
}

// flakyStore fails the first failures finalize calls.
type flakyStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	failures int
	attempts int
}

var errUnavailable = errors.New("store unavailable")

func (s *flakyStore) flake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errUnavailable
	}
	return nil
}

func (s *flakyStore) Complete(ctx context.Context, id, result string) error {
	if err := s.flake(); err != nil {
		return err
	}
	return s.MemoryStore.Complete(ctx, id, result)
}

func (s *flakyStore) Fail(ctx context.Context, id, message string) error {
	if err := s.flake(); err != nil {
		return err
	}
	return s.MemoryStore.Fail(ctx, id, message)
}

// brokenStore fails every operation, like an unreachable external store.
type brokenStore struct{}

func (brokenStore) TryBeginProcessing(context.Context, string) (bool, error) {
	return false, errUnavailable
}
func (brokenStore) Complete(context.Context, string, string) error { return errUnavailable }
func (brokenStore) Fail(context.Context, string, string) error     { return errUnavailable }
func (brokenStore) Get(context.Context, string) (models.Submission, bool, error) {
	return models.Submission{}, false, errUnavailable
}

// recordingHook remembers every completed submission it saw.
type recordingHook struct {
	name string
	err  error
	mu   sync.Mutex
	seen []models.Submission
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) AfterComplete(_ context.Context, sub models.Submission) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, sub)
	return h.err
}

func (h *recordingHook) Seen() []models.Submission {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Submission(nil), h.seen...)
}

// recordingDispatcher captures dispatches without running anything.
type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, id, _ string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, id)
}
