package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testEnum() *LanguageEnum {
	return NewLanguageEnum(
		map[string]string{"en": "eng_Latn", "ja": "jpn_Jpan", "zh-cn": "zho_Hans"},
		[]string{"en", "ja", "zh-cn"},
	)
}

func TestModelCodeResolvesKnownCode(t *testing.T) {
	le := testEnum()
	model, ok := le.ModelCode("ja")
	assert.True(t, ok)
	assert.Equal(t, "jpn_Jpan", model)
}

func TestModelCodeRejectsUnknownCode(t *testing.T) {
	le := testEnum()
	_, ok := le.ModelCode("fr")
	assert.False(t, ok)
}

func TestSupportsMatchesEnumeration(t *testing.T) {
	le := testEnum()
	assert.True(t, le.Supports("en"))
	assert.False(t, le.Supports("fr"))
}

func TestClientCodesPreservesDeclarationOrder(t *testing.T) {
	le := testEnum()
	assert.Equal(t, []string{"en", "ja", "zh-cn"}, le.ClientCodes())
}

func TestClientCodesReturnsACopy(t *testing.T) {
	le := testEnum()
	codes := le.ClientCodes()
	codes[0] = "mutated"
	assert.Equal(t, "en", le.ClientCodes()[0])
}

func TestTagTokensAreDerivedFromEnumerationNotHardCoded(t *testing.T) {
	le := testEnum()
	assert.Equal(t, []string{"__eng_Latn__", "__jpn_Jpan__", "__zho_Hans__"}, le.TagTokens())
}

func TestTagTokensReflectsCustomEnumeration(t *testing.T) {
	le := NewLanguageEnum(map[string]string{"xx": "xyz_Zzzz"}, []string{"xx"})
	assert.Equal(t, []string{"__xyz_Zzzz__"}, le.TagTokens())
}
