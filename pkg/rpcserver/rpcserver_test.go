package rpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/scanlate/pkg/engine"
	"github.com/orneryd/scanlate/pkg/rpcserver/pb"
)

type fakeTranslationEngine struct {
	ready bool
	langs []string
}

func (f *fakeTranslationEngine) Name() string              { return "fake-mt" }
func (f *fakeTranslationEngine) Version() string           { return "0.0.0-test" }
func (f *fakeTranslationEngine) Load(ctx context.Context) error  { f.ready = true; return nil }
func (f *fakeTranslationEngine) Warmup(ctx context.Context) error { return nil }
func (f *fakeTranslationEngine) IsReady() bool              { return f.ready }
func (f *fakeTranslationEngine) HealthCheck(ctx context.Context) bool { return f.ready }
func (f *fakeTranslationEngine) SupportedLanguages() []string { return f.langs }

func (f *fakeTranslationEngine) Translate(ctx context.Context, req engine.TranslateRequest) (engine.TranslateResult, error) {
	return engine.TranslateResult{RequestID: req.RequestID, TranslatedText: "out:" + req.SourceText, Success: true}, nil
}

func (f *fakeTranslationEngine) TranslateBatch(ctx context.Context, reqs []engine.TranslateRequest) ([]engine.TranslateResult, error) {
	out := make([]engine.TranslateResult, len(reqs))
	for i, r := range reqs {
		out[i] = engine.TranslateResult{RequestID: r.RequestID, TranslatedText: "out:" + r.SourceText, Success: true}
	}
	return out, nil
}

func TestHandleTranslateReturnsSuccessResponse(t *testing.T) {
	h := newTranslationHandler(&fakeTranslationEngine{ready: true, langs: []string{"en", "ja"}}, nil, nil)
	resp, err := h.handleTranslate(context.Background(), &pb.TranslateRequest{RequestID: "r1", SourceText: "hi", SourceLang: "en", TargetLang: "ja"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "out:hi", resp.TranslatedText)
	assert.Nil(t, resp.Error)
}

func TestHandleTranslateBatchPreservesOrder(t *testing.T) {
	h := newTranslationHandler(&fakeTranslationEngine{ready: true}, nil, nil)
	resp, err := h.handleTranslateBatch(context.Background(), &pb.TranslateBatchRequest{
		Requests: []*pb.TranslateRequest{
			{RequestID: "a", SourceText: "1", SourceLang: "en", TargetLang: "ja"},
			{RequestID: "b", SourceText: "2", SourceLang: "en", TargetLang: "ja"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Responses, 2)
	assert.Equal(t, "a", resp.Responses[0].RequestID)
	assert.Equal(t, "b", resp.Responses[1].RequestID)
}

func TestJSONCodecRoundTrips(t *testing.T) {
	var c jsonCodec
	in := &pb.TranslateRequest{RequestID: "r1", SourceText: "hi", SourceLang: "en", TargetLang: "ja"}
	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(pb.TranslateRequest)
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, in, out)
}

func TestGracefulShutdownStopsWithinGraceOnIdleServer(t *testing.T) {
	eng := &fakeTranslationEngine{ready: true}
	srv := NewMTServer(eng, nil, nil, nil, zerolog.Nop())

	lis, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	go srv.Serve(lis)

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace+time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		srv.Shutdown(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ShutdownGrace + 2*time.Second):
		t.Fatal("shutdown did not complete within grace window")
	}
}

func TestErrorCarrierExposesPopulatedError(t *testing.T) {
	resp := &pb.TranslateResponse{Error: &pb.Error{Kind: "MODEL_NOT_LOADED"}}
	assert.Equal(t, "MODEL_NOT_LOADED", wireErrorKind(resp))
	assert.Empty(t, wireErrorKind(&pb.TranslateResponse{}))
}
