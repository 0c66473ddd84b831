package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesTypedEngineError(t *testing.T) {
	original := NewError(KindTextTooLong, "too long")
	wrapped := Wrap(original)
	assert.Same(t, original, wrapped)
}

func TestWrapCollapsesOtherErrorsToInferenceFailed(t *testing.T) {
	wrapped := Wrap(errors.New("boom"))
	assert.Equal(t, KindInferenceFailed, wrapped.Kind)
	assert.Equal(t, "boom", wrapped.Message)
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil))
}

func TestToWireErrorCollapsesUnsupportedLanguageToInvalidArgument(t *testing.T) {
	we := ToWireError(NewError(KindUnsupportedLanguage, "unsupported language xx"))
	require.NotNil(t, we)
	assert.Equal(t, string(KindInvalidArgument), we.Kind)
	assert.False(t, we.Retryable)
}

func TestToWireErrorCollapsesInvalidInputToInvalidArgument(t *testing.T) {
	we := ToWireError(NewError(KindInvalidInput, "malformed image"))
	require.NotNil(t, we)
	assert.Equal(t, string(KindInvalidArgument), we.Kind)
}

func TestToWireErrorPreservesRetryableFlagFromTable(t *testing.T) {
	we := ToWireError(NewError(KindModelNotLoaded, "not loaded"))
	require.NotNil(t, we)
	assert.True(t, we.Retryable)

	we = ToWireError(NewError(KindTextTooLong, "too long"))
	require.NotNil(t, we)
	assert.False(t, we.Retryable)
}

func TestErrorUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("underlying")
	e := &Error{Kind: KindInferenceFailed, Message: "wrapped", Cause: cause}
	assert.Same(t, cause, errors.Unwrap(e))
}
