package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"voice-player/internal/application"
	"voice-player/internal/domain"
	"voice-player/internal/ingest"
)

type mockSource struct {
	clips [][]byte
	index int
}

func (m *mockSource) Start(_ context.Context) error { return nil }
func (m *mockSource) Stop() error                   { return nil }
func (m *mockSource) Name() string                  { return "mock" }

func (m *mockSource) NextClip(_ context.Context) ([]byte, error) {
	if m.index >= len(m.clips) {
		return nil, context.Canceled
	}
	clip := m.clips[m.index]
	m.index++
	return clip, nil
}

type mockDispatcher struct {
	mu       sync.Mutex
	results  []*domain.Result
	doneChan chan struct{}
	expected int
}

func (m *mockDispatcher) Dispatch(_ context.Context, result *domain.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	if m.doneChan != nil && len(m.results) >= m.expected {
		close(m.doneChan)
		m.doneChan = nil
	}
	return nil
}

func (m *mockDispatcher) snapshot() []*domain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Result, len(m.results))
	copy(out, m.results)
	return out
}

func TestPlayer_DispatchesEveryClip(t *testing.T) {
	raw := rawPCM(t)
	source := &mockSource{clips: [][]byte{raw, {}, raw}}
	transcriber := &mockTranscriber{texts: []string{"Yes!", "nonsense words"}}
	pipeline := application.NewPipeline(ingest.NewDecoder(16000), transcriber, testRegistry(t), testLogger())

	doneChan := make(chan struct{})
	dispatcher := &mockDispatcher{doneChan: doneChan, expected: 2}

	player := application.NewPlayer(source, pipeline, dispatcher, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = player.Run(ctx)
	}()

	select {
	case <-doneChan:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for clips to be dispatched")
	}

	cancel()

	results := dispatcher.snapshot()
	if len(results) != 2 {
		t.Fatalf("dispatched %d results, want 2 (the empty clip is skipped)", len(results))
	}
	if results[0].Status != domain.StatusMatched || results[0].Token != "yes" {
		t.Errorf("first result = %q/%q, want matched/yes", results[0].Status, results[0].Token)
	}
	if results[1].Status != domain.StatusUnmatched || results[1].Token != "nonsense" {
		t.Errorf("second result = %q/%q, want unmatched/nonsense", results[1].Status, results[1].Token)
	}
}

func TestPlayer_StopsOnCancel(t *testing.T) {
	source := &mockSource{}
	pipeline := application.NewPipeline(ingest.NewDecoder(16000), &mockTranscriber{}, testRegistry(t), testLogger())
	player := application.NewPlayer(source, pipeline, &application.NoopDispatcher{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- player.Run(ctx)
	}()

	select {
	case err := <-errChan:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
