package mt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/scanlate/pkg/engine"
)

func testConfig() Config {
	return Config{
		Name:        "nllb-200-distilled-600M",
		Version:     "test",
		ModelPath:   "/nonexistent",
		ComputeType: "int8",
		Languages: []LanguagePair{
			{Client: "en", Model: "eng_Latn"},
			{Client: "ja", Model: "jpn_Jpan"},
			{Client: "zh-cn", Model: "zho_Hans"},
		},
	}
}

func TestSupportedLanguagesBeforeLoad(t *testing.T) {
	e := New(testConfig())
	assert.ElementsMatch(t, []string{"en", "ja", "zh-cn"}, e.SupportedLanguages())
	assert.False(t, e.IsReady())
}

func TestTranslateBeforeLoadFailsModelNotLoaded(t *testing.T) {
	e := New(testConfig())
	_, err := e.Translate(context.Background(), engine.TranslateRequest{
		RequestID: "rq-1", SourceText: "Hello", SourceLang: "en", TargetLang: "ja",
	})
	require.Error(t, err)
	var ee *engine.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, engine.KindModelNotLoaded, ee.Kind)
}

func TestUnsupportedLanguageNeverLoadsModel(t *testing.T) {
	e := New(testConfig())
	// Force readiness without a real translator to isolate the language
	// validation path from the (unavailable in this test build) CGO call.
	e.ready.Store(true)

	_, err := e.Translate(context.Background(), engine.TranslateRequest{
		RequestID: "rq-2", SourceText: "Hello", SourceLang: "xx", TargetLang: "ja",
	})
	require.Error(t, err)
	var ee *engine.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, engine.KindUnsupportedLanguage, ee.Kind)
}

func TestTranslateBatchRejectsOversizedBatch(t *testing.T) {
	e := New(testConfig())
	e.ready.Store(true)
	reqs := make([]engine.TranslateRequest, maxBatchSize+1)
	for i := range reqs {
		reqs[i] = engine.TranslateRequest{SourceText: "x", SourceLang: "en", TargetLang: "ja"}
	}
	_, err := e.TranslateBatch(context.Background(), reqs)
	require.Error(t, err)
	var ee *engine.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, engine.KindBatchSizeExceeded, ee.Kind)
}

func TestTranslateBatchEmptyEntryYieldsEmptyResultAtSamePosition(t *testing.T) {
	e := New(testConfig())
	e.ready.Store(true)
	reqs := []engine.TranslateRequest{
		{RequestID: "a", SourceText: "", SourceLang: "en", TargetLang: "ja"},
	}
	results, err := e.TranslateBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "a", results[0].RequestID)
	assert.Empty(t, results[0].TranslatedText)
}

func TestStripTokensRemovesLanguageTagsAndSpecials(t *testing.T) {
	e := New(testConfig())
	got := e.stripTokens("__jpn_Jpan__ <s> hello </s>")
	assert.Equal(t, "hello", got)
}

func TestLoadWithoutRealModelFailsModelNotLoaded(t *testing.T) {
	e := New(testConfig())
	err1 := e.Load(context.Background())
	require.Error(t, err1) // no real model at /nonexistent
	var ee *engine.Error
	require.ErrorAs(t, err1, &ee)
	assert.Equal(t, engine.KindModelNotLoaded, ee.Kind)
}
