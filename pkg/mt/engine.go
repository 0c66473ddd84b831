package mt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/orneryd/scanlate/pkg/bufpool"
	"github.com/orneryd/scanlate/pkg/engine"
)

// Generator parameters for single-request mode.
var singleParams = generateParams{
	BeamSize:          4,
	MaxDecodingLength: 256,
	RepetitionPenalty: 1.2,
	NoRepeatNgramSize: 3,
	LengthPenalty:     1.0,
}

// Generator parameters for batch mode: identical except a smaller max
// length to keep the padding rectangle manageable.
var batchParams = generateParams{
	BeamSize:          4,
	MaxDecodingLength: 128,
	RepetitionPenalty: 1.2,
	NoRepeatNgramSize: 3,
	LengthPenalty:     1.0,
}

// reclaimEvery is the completion-count cadence for explicit memory
// reclamation (default 1000).
const reclaimEvery = 1000

// MaxBatchSize is the engine-declared static maximum batch size; the
// aggregator's dynamic VRAM-derived maximum is bounded above by this
// value.
const MaxBatchSize = 32

// maxBatchSize is kept as an unexported alias so in-package references
// read naturally alongside the other lower-case generator constants.
const maxBatchSize = MaxBatchSize

// Config configures Engine construction.
type Config struct {
	Name        string
	Version     string
	ModelPath   string
	ComputeType string
	GPULayers   int
	// Languages maps client-facing codes to model-internal tag codes, in
	// declaration order.
	Languages []LanguagePair
	// Workers bounds the generator worker pool (default 4).
	Workers int
}

type LanguagePair struct {
	Client string
	Model  string
}

// Engine implements engine.TranslationEngine.
type Engine struct {
	cfg  Config
	langs *engine.LanguageEnum

	mu    sync.Mutex // guards the shared translator handle (tokenizer state)
	tr    *translator
	ready atomic.Bool

	sem        *semaphore.Weighted // bounds concurrent generate calls
	completed  atomic.Int64
}

var _ engine.TranslationEngine = (*Engine)(nil)

// New constructs an unloaded translation engine.
func New(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	pairs := make(map[string]string, len(cfg.Languages))
	order := make([]string, 0, len(cfg.Languages))
	for _, p := range cfg.Languages {
		pairs[p.Client] = p.Model
		order = append(order, p.Client)
	}
	return &Engine{
		cfg:   cfg,
		langs: engine.NewLanguageEnum(pairs, order),
		sem:   semaphore.NewWeighted(int64(cfg.Workers)),
	}
}

func (e *Engine) Name() string    { return e.cfg.Name }
func (e *Engine) Version() string { return e.cfg.Version }

// Load is one-shot and idempotent: calling it again after success is a
// no-op that returns nil without touching the accelerator again.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready.Load() {
		return nil
	}
	tr, err := loadTranslator(e.cfg.ModelPath, e.cfg.GPULayers, e.cfg.ComputeType)
	if err != nil {
		return engine.NewError(engine.KindModelNotLoaded, err.Error())
	}
	e.tr = tr
	e.ready.Store(true)
	return nil
}

// Warmup runs one minimal request per supported direction. Failures are
// the caller's to log; startup must not abort on them.
func (e *Engine) Warmup(ctx context.Context) error {
	if !e.ready.Load() {
		return engine.NewError(engine.KindModelNotLoaded, "warmup requires a loaded engine")
	}
	codes := e.langs.ClientCodes()
	var firstErr error
	for i := range codes {
		for j := range codes {
			if i == j {
				continue
			}
			_, err := e.Translate(ctx, engine.TranslateRequest{
				RequestID:  "warmup",
				SourceText: "ok",
				SourceLang: codes[i],
				TargetLang: codes[j],
			})
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *Engine) IsReady() bool { return e.ready.Load() }

func (e *Engine) HealthCheck(ctx context.Context) bool { return e.IsReady() }

func (e *Engine) SupportedLanguages() []string { return e.langs.ClientCodes() }

// Translate runs the single-request tokenize/generate/detokenize pipeline.
func (e *Engine) Translate(ctx context.Context, req engine.TranslateRequest) (engine.TranslateResult, error) {
	return e.translateOne(ctx, req, singleParams)
}

// TranslateBatch runs each request through the same pipeline with the
// batch-mode parameters. Per-pair grouping into one model call is the
// aggregator's job; this method is what the aggregator calls once per
// language-pair group, and what the RPC layer's TranslateBatch handler
// calls directly for every batched RPC.
func (e *Engine) TranslateBatch(ctx context.Context, reqs []engine.TranslateRequest) ([]engine.TranslateResult, error) {
	if len(reqs) > maxBatchSize {
		return nil, engine.NewError(engine.KindBatchSizeExceeded,
			fmt.Sprintf("batch of %d exceeds max %d", len(reqs), maxBatchSize))
	}
	results := make([]engine.TranslateResult, len(reqs))
	for i, r := range reqs {
		if r.SourceText == "" {
			// Empty inputs in a batch yield empty outputs in the same
			// position without being sent to the model.
			results[i] = engine.TranslateResult{RequestID: r.RequestID, Success: true}
			continue
		}
		res, err := e.translateOne(ctx, r, batchParams)
		if err != nil {
			res = failureResult(r, err)
		}
		results[i] = res
	}
	return results, nil
}

func (e *Engine) translateOne(ctx context.Context, req engine.TranslateRequest, params generateParams) (engine.TranslateResult, error) {
	if !e.ready.Load() {
		return engine.TranslateResult{}, engine.NewError(engine.KindModelNotLoaded, "engine not loaded")
	}
	text := strings.TrimSpace(req.SourceText)
	if text == "" {
		return engine.TranslateResult{}, engine.NewError(engine.KindInvalidArgument, "source text is empty")
	}
	srcModel, ok := e.langs.ModelCode(req.SourceLang)
	if !ok {
		return engine.TranslateResult{}, engine.NewError(engine.KindUnsupportedLanguage, "unsupported source language "+req.SourceLang)
	}
	tgtModel, ok := e.langs.ModelCode(req.TargetLang)
	if !ok {
		return engine.TranslateResult{}, engine.NewError(engine.KindUnsupportedLanguage, "unsupported target language "+req.TargetLang)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return engine.TranslateResult{}, engine.NewError(engine.KindCancelled, "cancelled waiting for a worker")
	}
	defer e.sem.Release(1)

	// The tokenizer's source-language field is shared mutable state; the
	// read-modify-encode sequence below is the only critical section. The
	// generator itself may be called from multiple cooperative tasks at
	// once — the semaphore above is what bounds its concurrency, not this
	// mutex — so it runs unlocked.
	e.mu.Lock()
	tokens, err := e.tr.tokenize(fmt.Sprintf("__%s__ %s", srcModel, text), 512)
	e.mu.Unlock()
	if err != nil {
		e.onFailure()
		return engine.TranslateResult{}, engine.Wrap(err)
	}
	if len(tokens) > params.MaxDecodingLength*2 {
		return engine.TranslateResult{}, engine.NewError(engine.KindTextTooLong,
			fmt.Sprintf("tokenized length %d exceeds decoder limit", len(tokens)))
	}

	// Copy into a pooled slice so the CGO call takes ownership of a reused
	// backing array rather than one freshly allocated per request.
	pooled := bufpool.GetTokenSlice()
	if cap(pooled) >= len(tokens) {
		pooled = pooled[:len(tokens)]
	} else {
		pooled = make([]int32, len(tokens))
	}
	copy(pooled, tokens)
	defer bufpool.PutTokenSlice(pooled)

	outTokens, score, err := e.tr.generate(pooled, fmt.Sprintf("__%s__", tgtModel), params)
	if err != nil {
		e.onFailure()
		return engine.TranslateResult{}, engine.NewError(engine.KindInferenceFailed, err.Error())
	}

	out, err := e.tr.detokenize(outTokens)
	if err != nil {
		e.onFailure()
		return engine.TranslateResult{}, engine.Wrap(err)
	}

	e.onSuccess()

	return engine.TranslateResult{
		RequestID:      req.RequestID,
		SourceText:     req.SourceText,
		TranslatedText: e.stripTokens(out),
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		EngineName:     e.cfg.Name,
		EngineVersion:  e.cfg.Version,
		Confidence:     score,
		Success:        true,
		Metadata:       req.Options,
	}, nil
}

// stripTokens filters out the engine's language-tag tokens — generated
// dynamically from the same enumeration used for validation, never
// hard-coded — plus the fixed special tokens {BOS, EOS, PAD, UNK}.
// Detokenization happens at the CGO boundary as text, not token ids, so
// filtering is expressed as literal substring removal here rather than on
// the int32 token slice.
func (e *Engine) stripTokens(text string) string {
	for _, tag := range e.langs.TagTokens() {
		text = strings.ReplaceAll(text, tag, "")
	}
	for _, tok := range engine.SpecialTokens {
		text = strings.ReplaceAll(text, tok, "")
	}
	return strings.TrimSpace(text)
}

// onSuccess feeds the completion counter that drives periodic
// reclamation every reclaimEvery completions; onFailure requests an
// explicit reclamation of freeable memory on every caught error path
// without touching the counter.
func (e *Engine) onSuccess() {
	n := e.completed.Add(1)
	if n%reclaimEvery == 0 {
		e.reclaim()
	}
}

func (e *Engine) onFailure() {
	e.reclaim()
}

func (e *Engine) reclaim() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tr != nil {
		e.tr.reclaim()
	}
}

func failureResult(req engine.TranslateRequest, err error) engine.TranslateResult {
	we := engine.ToWireError(err)
	return engine.TranslateResult{
		RequestID:  req.RequestID,
		SourceText: req.SourceText,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Success:    false,
		Err:        we,
	}
}

// Close releases the translator and accelerator resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tr != nil {
		e.tr.close()
		e.tr = nil
	}
	e.ready.Store(false)
	return nil
}
