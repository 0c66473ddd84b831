// Package config resolves server startup configuration from CLI flags,
// environment variables, and a platform user-data directory, in that
// priority order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Device selects the compute backend for a variant's engine.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// ModelPathEnvVar is the single environment variable allowed to override
// the model directory.
const ModelPathEnvVar = "SCANLATE_MODEL_PATH"

// Config holds the resolved startup options for one server variant.
type Config struct {
	Host         string
	Port         int
	ModelPath    string
	Device       Device
	ComputeType  string
	Debug        bool
	AllowAllIfaces bool
}

// DefaultMTConfig returns defaults for the translation server variant.
func DefaultMTConfig() *Config {
	return &Config{
		Host:        "127.0.0.1",
		Port:        50051,
		ModelPath:   defaultModelPath("mt"),
		Device:      DeviceAuto,
		ComputeType: "int8",
	}
}

// DefaultOCRConfig returns defaults for the OCR server variant.
func DefaultOCRConfig() *Config {
	return &Config{
		Host:        "127.0.0.1",
		Port:        50052,
		ModelPath:   defaultModelPath("ocr"),
		Device:      DeviceAuto,
		ComputeType: "int8",
	}
}

// ResolveModelPath applies the priority order: startup flag > environment
// variable > platform user-data directory. flagValue is empty when the
// flag was not explicitly set.
func ResolveModelPath(flagValue, variant string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(ModelPathEnvVar); v != "" {
		return v
	}
	return defaultModelPath(variant)
}

func defaultModelPath(variant string) string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	if runtime.GOOS == "darwin" {
		if home, herr := os.UserHomeDir(); herr == nil {
			base = filepath.Join(home, "Library", "Application Support")
		}
	}
	return filepath.Join(base, "scanlate", "models", variant)
}

// Validate checks invariants that must hold before bootstrap proceeds.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model-path must not be empty")
	}
	switch c.Device {
	case DeviceAuto, DeviceCPU, DeviceCUDA:
	default:
		return fmt.Errorf("unknown device %q", c.Device)
	}
	if !c.AllowAllIfaces && c.Host != "127.0.0.1" && c.Host != "localhost" && c.Host != "::1" {
		// Binding beyond loopback must be an explicit operator choice.
		return fmt.Errorf("binding to %q requires --allow-all-ifaces", c.Host)
	}
	return nil
}
