package rpcserver

import (
	"github.com/orneryd/scanlate/pkg/accelerator"
	"github.com/orneryd/scanlate/pkg/monitor"
	"github.com/orneryd/scanlate/pkg/rpcserver/pb"
)

// statusSource supplies the process/accelerator fields of a Status RPC
// response; the RPC-specific fields (ready, engine name/version,
// supported languages) come from the engine directly at the call site.
type statusSource interface {
	status(ready bool, name, version string, langs []string) *pb.StatusResponse
}

// monitoredStatus reads pkg/monitor's last sample and pkg/accelerator's
// current backend for the diagnostic fields of the Status RPC.
type monitoredStatus struct {
	mon   *monitor.Monitor
	accel *accelerator.Accelerator
}

func newStatusSource(mon *monitor.Monitor, accel *accelerator.Accelerator) *monitoredStatus {
	return &monitoredStatus{mon: mon, accel: accel}
}

func (s *monitoredStatus) status(ready bool, name, version string, langs []string) *pb.StatusResponse {
	resp := &pb.StatusResponse{
		Ready:              ready,
		EngineName:         name,
		EngineVersion:      version,
		SupportedLanguages: langs,
	}
	if s.accel != nil {
		resp.AcceleratorBackend = string(s.accel.Backend())
	}
	if s.mon != nil {
		sample := s.mon.Last()
		resp.RSSBytes = sample.RSSBytes
		resp.Handles = sample.Handles
		resp.VRAMUsedMB = sample.VRAMUsedMB
		resp.VRAMTotalMB = sample.VRAMTotalMB
	}
	return resp
}
