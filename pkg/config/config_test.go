package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMTConfigHasLoopbackAndSpecPort(t *testing.T) {
	cfg := DefaultMTConfig()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 50051, cfg.Port)
	assert.Equal(t, DeviceAuto, cfg.Device)
	assert.Equal(t, "int8", cfg.ComputeType)
	require.NoError(t, cfg.Validate())
}

func TestDefaultOCRConfigHasLoopbackAndSpecPort(t *testing.T) {
	cfg := DefaultOCRConfig()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 50052, cfg.Port)
	require.NoError(t, cfg.Validate())
}

func TestResolveModelPathPrefersFlagOverEverything(t *testing.T) {
	t.Setenv(ModelPathEnvVar, "/env/path")
	got := ResolveModelPath("/flag/path", "mt")
	assert.Equal(t, "/flag/path", got)
}

func TestResolveModelPathFallsBackToEnvVarWhenNoFlag(t *testing.T) {
	t.Setenv(ModelPathEnvVar, "/env/path")
	got := ResolveModelPath("", "mt")
	assert.Equal(t, "/env/path", got)
}

func TestResolveModelPathFallsBackToPlatformDefault(t *testing.T) {
	os.Unsetenv(ModelPathEnvVar)
	got := ResolveModelPath("", "ocr")
	assert.NotEmpty(t, got)
	assert.Contains(t, got, "ocr")
}

func TestValidateRejectsEmptyHost(t *testing.T) {
	cfg := DefaultMTConfig()
	cfg.Host = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := DefaultMTConfig()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyModelPath(t *testing.T) {
	cfg := DefaultMTConfig()
	cfg.ModelPath = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownDevice(t *testing.T) {
	cfg := DefaultMTConfig()
	cfg.Device = Device("tpu")
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonLoopbackHostWithoutOptIn(t *testing.T) {
	cfg := DefaultMTConfig()
	cfg.Host = "0.0.0.0"
	assert.Error(t, cfg.Validate())
}

func TestValidateAllowsNonLoopbackHostWithExplicitOptIn(t *testing.T) {
	cfg := DefaultMTConfig()
	cfg.Host = "0.0.0.0"
	cfg.AllowAllIfaces = true
	assert.NoError(t, cfg.Validate())
}

func TestValidateAcceptsLocalhostAndIPv6Loopback(t *testing.T) {
	cfg := DefaultMTConfig()
	cfg.Host = "localhost"
	assert.NoError(t, cfg.Validate())

	cfg.Host = "::1"
	assert.NoError(t, cfg.Validate())
}
