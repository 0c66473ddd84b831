package rpcserver

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/orneryd/scanlate/pkg/rpcserver/pb"
)

// metrics holds per-call counters and a latency histogram in a private
// registry; this module has no public /metrics HTTP endpoint. The Status
// RPC does not read these values and nothing logs them.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanlate_rpc_requests_total",
			Help: "Total RPC calls handled, by method.",
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanlate_rpc_errors_total",
			Help: "Total RPC calls that returned a populated error field, by method and kind.",
		}, []string{"method", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scanlate_rpc_duration_seconds",
			Help:    "RPC handler latency, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.requests, m.errors, m.latency)
	return m
}

var tracer = otel.Tracer("github.com/orneryd/scanlate/pkg/rpcserver")

// unaryInterceptor records a Prometheus sample and an OpenTelemetry span
// per RPC call, two distinct concerns kept as two distinct libraries
// rather than folded into one.
func (m *metrics) unaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, span := tracer.Start(ctx, info.FullMethod, trace.WithAttributes(
			attribute.String("rpc.method", info.FullMethod),
		))
		defer span.End()

		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start).Seconds()

		m.requests.WithLabelValues(info.FullMethod).Inc()
		m.latency.WithLabelValues(info.FullMethod).Observe(elapsed)

		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			m.errors.WithLabelValues(info.FullMethod, "transport").Inc()
			return resp, err
		}
		if kind := wireErrorKind(resp); kind != "" {
			span.SetStatus(codes.Error, kind)
			m.errors.WithLabelValues(info.FullMethod, kind).Inc()
		}
		return resp, nil
	}
}

// wireErrorKind extracts the Error.Kind field from any response message
// that embeds one, without a type switch per message — both response
// types expose it through the errorCarrier interface below.
func wireErrorKind(resp any) string {
	if c, ok := resp.(errorCarrier); ok {
		if e := c.GetError(); e != nil {
			return e.Kind
		}
	}
	return ""
}

type errorCarrier interface {
	GetError() *pb.Error
}
