package studio

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// fakeService records calls and answers from the configured funcs. A nil
// func answers with zero values.
type fakeService struct {
	mu    sync.Mutex
	calls []Operation

	suggest   func(SuggestTextRequest) (TextSuggestion, error)
	poster    func(PosterBatchRequest) ([]Artifact, error)
	reference func(ReferenceBatchRequest) ([]Artifact, error)
	creative  func(CreativeBatchRequest) ([]Artifact, error)
	analyze   func(AnalysisRequest) (MagazineAnalysis, error)
	composite func(CompositeRequest) ([]Artifact, error)
}

func (f *fakeService) record(op Operation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeService) Calls() []Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Operation(nil), f.calls...)
}

func (f *fakeService) SuggestText(_ context.Context, req SuggestTextRequest) (TextSuggestion, error) {
	f.record(OpSuggestText)
	if f.suggest == nil {
		return TextSuggestion{}, nil
	}
	return f.suggest(req)
}

func (f *fakeService) PosterBatch(_ context.Context, req PosterBatchRequest) ([]Artifact, error) {
	f.record(OpPosterBatch)
	if f.poster == nil {
		return nil, nil
	}
	return f.poster(req)
}

func (f *fakeService) ReferenceBatch(_ context.Context, req ReferenceBatchRequest) ([]Artifact, error) {
	f.record(OpReferenceBatch)
	if f.reference == nil {
		return nil, nil
	}
	return f.reference(req)
}

func (f *fakeService) CreativeBatch(_ context.Context, req CreativeBatchRequest) ([]Artifact, error) {
	f.record(OpCreativeBatch)
	if f.creative == nil {
		return nil, nil
	}
	return f.creative(req)
}

func (f *fakeService) AnalyzeLayout(_ context.Context, req AnalysisRequest) (MagazineAnalysis, error) {
	f.record(OpAnalysis)
	if f.analyze == nil {
		return MagazineAnalysis{}, nil
	}
	return f.analyze(req)
}

func (f *fakeService) Composite(_ context.Context, req CompositeRequest) ([]Artifact, error) {
	f.record(OpComposite)
	if f.composite == nil {
		return nil, nil
	}
	return f.composite(req)
}

// manualClock captures scheduled hints so tests decide when they fire.
type manualClock struct {
	mu      sync.Mutex
	pending []func()
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, f)
	return func() bool { return true }
}

func (c *manualClock) FireAll() {
	c.mu.Lock()
	fns := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "req-" + strconv.Itoa(n)
	}
}

func strPtr(s string) *string { return &s }
