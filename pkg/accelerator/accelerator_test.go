package accelerator

import "testing"

func TestProbeCPUForced(t *testing.T) {
	a, err := Probe("cpu")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if a.IsEnabled() {
		t.Fatalf("expected CPU-forced accelerator to report disabled")
	}
	if a.Backend() != BackendCPU {
		t.Fatalf("expected backend cpu, got %s", a.Backend())
	}
}

func TestProbeAutoNeverFails(t *testing.T) {
	a, err := Probe("auto")
	if err != nil {
		t.Fatalf("Probe(auto) must never fail the caller: %v", err)
	}
	if a == nil {
		t.Fatal("expected non-nil accelerator even without a device")
	}
}

func TestStatsReportsCPUBackendWhenForced(t *testing.T) {
	a, _ := Probe("cpu")
	s := a.Stats()
	if s.Backend != BackendCPU {
		t.Fatalf("expected cpu backend in stats, got %s", s.Backend)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	a, _ := Probe("cpu")
	a.Release()
	a.Release()
	if a.IsEnabled() {
		t.Fatal("released accelerator must report disabled")
	}
}
