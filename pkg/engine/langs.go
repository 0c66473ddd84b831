package engine

import "fmt"

// LanguageEnum is the closed, engine-owned mapping from a short
// client-facing code (e.g. "en") to a model-internal code (e.g.
// "eng_Latn"). Any code outside the enumeration is a validation error,
// never silently accepted.
type LanguageEnum struct {
	clientToModel map[string]string
	order         []string
}

// NewLanguageEnum builds an enumeration from an ordered list of
// {client, model} pairs. Order is preserved for deterministic tag-token
// generation (see TagTokens).
func NewLanguageEnum(pairs map[string]string, order []string) *LanguageEnum {
	le := &LanguageEnum{clientToModel: make(map[string]string, len(pairs)), order: order}
	for _, code := range order {
		le.clientToModel[code] = pairs[code]
	}
	return le
}

// ModelCode resolves a client-facing code to its model-internal code. The
// second return is false when the code is outside the enumeration.
func (le *LanguageEnum) ModelCode(clientCode string) (string, bool) {
	m, ok := le.clientToModel[clientCode]
	return m, ok
}

// Supports reports enumeration membership.
func (le *LanguageEnum) Supports(clientCode string) bool {
	_, ok := le.clientToModel[clientCode]
	return ok
}

// ClientCodes returns the declared client-facing enumeration in order.
func (le *LanguageEnum) ClientCodes() []string {
	out := make([]string, len(le.order))
	copy(out, le.order)
	return out
}

// TagTokens derives the full set of language-tag tokens dynamically from
// the enumeration rather than a hard-coded list, so adding a language
// never requires touching the detokenizer's filter separately.
func (le *LanguageEnum) TagTokens() []string {
	tokens := make([]string, 0, len(le.order))
	for _, code := range le.order {
		tokens = append(tokens, fmt.Sprintf("__%s__", le.clientToModel[code]))
	}
	return tokens
}

// SpecialTokens are the additional non-language tokens stripped during
// detokenization.
var SpecialTokens = []string{"<s>", "</s>", "<pad>", "<unk>"}
