package aggregator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/scanlate/pkg/engine"
)

type fakeTranslator struct {
	mu          sync.Mutex
	batchCalls  [][]engine.TranslateRequest
	failBatch   bool
	directCalls int
}

func (f *fakeTranslator) TranslateBatch(ctx context.Context, reqs []engine.TranslateRequest) ([]engine.TranslateResult, error) {
	f.mu.Lock()
	f.batchCalls = append(f.batchCalls, reqs)
	fail := f.failBatch
	f.mu.Unlock()
	if fail {
		return nil, engine.NewError(engine.KindInferenceFailed, "simulated batch failure")
	}
	results := make([]engine.TranslateResult, len(reqs))
	for i, r := range reqs {
		results[i] = engine.TranslateResult{RequestID: r.RequestID, TranslatedText: "out:" + r.SourceText, Success: true}
	}
	return results, nil
}

func (f *fakeTranslator) Translate(ctx context.Context, req engine.TranslateRequest) (engine.TranslateResult, error) {
	f.mu.Lock()
	f.directCalls++
	f.mu.Unlock()
	return engine.TranslateResult{RequestID: req.RequestID, TranslatedText: "direct:" + req.SourceText, Success: true}, nil
}

func TestSubmitFlushesOnMaxWait(t *testing.T) {
	tr := &fakeTranslator{}
	a := New(tr, 32, nil)
	defer a.Close()

	res, err := a.Submit(context.Background(), engine.TranslateRequest{RequestID: "a", SourceText: "hi", SourceLang: "en", TargetLang: "ja"})
	require.NoError(t, err)
	assert.Equal(t, "out:hi", res.TranslatedText)
}

func TestSubmitGroupsByLanguagePair(t *testing.T) {
	tr := &fakeTranslator{}
	a := New(tr, 32, nil)
	defer a.Close()

	var wg sync.WaitGroup
	pairs := []struct{ src, tgt string }{
		{"en", "ja"}, {"en", "ja"}, {"en", "zh-cn"},
	}
	for i, p := range pairs {
		wg.Add(1)
		go func(i int, src, tgt string) {
			defer wg.Done()
			_, err := a.Submit(context.Background(), engine.TranslateRequest{RequestID: "r", SourceText: "x", SourceLang: src, TargetLang: tgt})
			assert.NoError(t, err)
		}(i, p.src, p.tgt)
	}
	wg.Wait()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	total := 0
	for _, call := range tr.batchCalls {
		total += len(call)
	}
	assert.Equal(t, 3, total)
}

func TestSubmitFallsBackToDirectTranslateOnBatchFailure(t *testing.T) {
	tr := &fakeTranslator{failBatch: true}
	a := New(tr, 32, nil)
	defer a.Close()

	res, err := a.Submit(context.Background(), engine.TranslateRequest{RequestID: "a", SourceText: "hi", SourceLang: "en", TargetLang: "ja"})
	require.NoError(t, err)
	assert.Equal(t, "direct:hi", res.TranslatedText)
}

func TestSubmitRespectsCallerCancellation(t *testing.T) {
	tr := &fakeTranslator{}
	a := New(tr, 32, nil)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Submit(ctx, engine.TranslateRequest{RequestID: "a", SourceText: "hi", SourceLang: "en", TargetLang: "ja"})
	require.Error(t, err)
}

func TestLoadTierBoundedByStaticMax(t *testing.T) {
	assert.Equal(t, 8, LoadHigh.maxBatch(32))
	assert.Equal(t, 4, LoadLow.maxBatch(4))
}

func TestCloseStopsFlushWorker(t *testing.T) {
	tr := &fakeTranslator{}
	a := New(tr, 32, nil)
	a.Close()

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("flush worker did not stop")
	}
}
