// Package rpcserver implements the RPC service layer: a gRPC endpoint per
// engine family, loopback-bound by default (pkg/config.Config.Validate),
// with a 50MiB message ceiling, a 30s keep-alive, per-call Prometheus
// metrics and OpenTelemetry tracing, and a bounded graceful-shutdown grace
// period.
//
// The service contracts live in /proto as the canonical interface
// description; protoc is not run in this environment, so the
// grpc.ServiceDesc values and message structs here are hand-authored to
// match what protoc-gen-go-grpc would generate, combined with a JSON
// encoding.Codec (pkg/rpcserver/codec.go) forced onto the server so no
// generated proto.Message marshaling is needed.
package rpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/keepalive"

	"github.com/orneryd/scanlate/pkg/accelerator"
	"github.com/orneryd/scanlate/pkg/aggregator"
	"github.com/orneryd/scanlate/pkg/engine"
	"github.com/orneryd/scanlate/pkg/monitor"
)

const (
	// MaxMessageBytes bounds both send and receive message size — large
	// enough for OCR image payloads and batch requests.
	MaxMessageBytes = 50 * 1024 * 1024

	// KeepAlive is the server's ping interval to detect dead connections.
	KeepAlive = 30 * time.Second

	// ShutdownGrace bounds how long graceful shutdown waits for in-flight
	// RPCs before the listener is forced closed.
	ShutdownGrace = 5 * time.Second
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// MTServer hosts the TranslationService.
type MTServer struct {
	grpcServer *grpc.Server
	log        zerolog.Logger
}

// NewMTServer constructs the translation RPC server. agg may be nil to
// bypass the aggregator and call the engine directly per request.
func NewMTServer(eng engine.TranslationEngine, agg *aggregator.Aggregator, mon *monitor.Monitor, accel *accelerator.Accelerator, log zerolog.Logger) *MTServer {
	m := newMetrics()
	gs := grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.MaxRecvMsgSize(MaxMessageBytes),
		grpc.MaxSendMsgSize(MaxMessageBytes),
		grpc.KeepaliveParams(keepalive.ServerParameters{Time: KeepAlive}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{PermitWithoutStream: true}),
		grpc.UnaryInterceptor(m.unaryInterceptor()),
	)
	handler := newTranslationHandler(eng, agg, newStatusSource(mon, accel))
	gs.RegisterService(&translationServiceDesc, handler)
	return &MTServer{grpcServer: gs, log: log.With().Str("component", "mtserver").Logger()}
}

// Serve blocks accepting connections on lis until Shutdown is called.
func (s *MTServer) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("translation rpc listening")
	return s.grpcServer.Serve(lis)
}

// Shutdown attempts a graceful stop bounded by ShutdownGrace, then forces
// the listener closed.
func (s *MTServer) Shutdown(ctx context.Context) {
	gracefulShutdown(s.grpcServer, ctx)
}

// OCRServer hosts the OcrService.
type OCRServer struct {
	grpcServer *grpc.Server
	log        zerolog.Logger
}

func NewOCRServer(eng engine.OCREngine, mon *monitor.Monitor, accel *accelerator.Accelerator, log zerolog.Logger) *OCRServer {
	m := newMetrics()
	gs := grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.MaxRecvMsgSize(MaxMessageBytes),
		grpc.MaxSendMsgSize(MaxMessageBytes),
		grpc.KeepaliveParams(keepalive.ServerParameters{Time: KeepAlive}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{PermitWithoutStream: true}),
		grpc.UnaryInterceptor(m.unaryInterceptor()),
	)
	handler := newOCRHandler(eng, newStatusSource(mon, accel))
	gs.RegisterService(&ocrServiceDesc, handler)
	return &OCRServer{grpcServer: gs, log: log.With().Str("component", "ocrserver").Logger()}
}

func (s *OCRServer) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("ocr rpc listening")
	return s.grpcServer.Serve(lis)
}

func (s *OCRServer) Shutdown(ctx context.Context) {
	gracefulShutdown(s.grpcServer, ctx)
}

func gracefulShutdown(gs *grpc.Server, ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(ShutdownGrace):
		gs.Stop()
	case <-ctx.Done():
		gs.Stop()
	}
}

// Listen is a thin net.Listen wrapper kept here so both server
// constructors and cmd/ entry points share one error-wrapping point.
func Listen(host string, port int) (net.Listener, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return lis, nil
}
