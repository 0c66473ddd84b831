package rpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/orneryd/scanlate/pkg/aggregator"
	"github.com/orneryd/scanlate/pkg/engine"
	"github.com/orneryd/scanlate/pkg/rpcserver/pb"
)

// translationHandler adapts a engine.TranslationEngine (optionally fronted
// by an Aggregator) to the TranslationService RPCs. Handler functions
// below mirror the shape protoc-gen-go-grpc would emit for a
// grpc.ServiceDesc: (interface{}, context.Context, codec-decode-func,
// interceptor) -> (interface{}, error).
type translationHandler struct {
	eng   engine.TranslationEngine
	agg   *aggregator.Aggregator // nil disables aggregation; calls go direct to eng
	monitor statusSource
}

func newTranslationHandler(eng engine.TranslationEngine, agg *aggregator.Aggregator, mon statusSource) *translationHandler {
	return &translationHandler{eng: eng, agg: agg, monitor: mon}
}

func (h *translationHandler) translate(ctx context.Context, req engine.TranslateRequest) (engine.TranslateResult, error) {
	if h.agg != nil {
		return h.agg.Submit(ctx, req)
	}
	return h.eng.Translate(ctx, req)
}

func translationRequestFromWire(w *pb.TranslateRequest) engine.TranslateRequest {
	return engine.TranslateRequest{
		RequestID:  w.RequestID,
		SourceText: w.SourceText,
		SourceLang: w.SourceLang,
		TargetLang: w.TargetLang,
	}
}

// translationResponseToWire stamps every response with the time it was
// built, in addition to copying the engine result's fields across.
func translationResponseToWire(r engine.TranslateResult) *pb.TranslateResponse {
	resp := &pb.TranslateResponse{
		RequestID:        r.RequestID,
		SourceText:       r.SourceText,
		TranslatedText:   r.TranslatedText,
		SourceLang:       r.SourceLang,
		TargetLang:       r.TargetLang,
		EngineName:       r.EngineName,
		EngineVersion:    r.EngineVersion,
		Confidence:       r.Confidence,
		ProcessingTimeMs: float64(r.ProcessingTime.Microseconds()) / 1000.0,
		Success:          r.Success,
		Metadata:         r.Metadata,
		Timestamp:        time.Now().UTC(),
	}
	if r.Err != nil {
		resp.Error = &pb.Error{Kind: string(r.Err.Kind), Message: r.Err.Message, Retryable: r.Err.Retryable}
	}
	return resp
}

func _Translation_Translate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.TranslateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*translationHandler)
	if interceptor == nil {
		return h.handleTranslate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/scanlate.v1.TranslationService/Translate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return h.handleTranslate(ctx, req.(*pb.TranslateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func (h *translationHandler) handleTranslate(ctx context.Context, in *pb.TranslateRequest) (*pb.TranslateResponse, error) {
	req := translationRequestFromWire(in)
	result, err := h.translate(ctx, req)
	if err != nil {
		return translationResponseToWire(engine.TranslateResult{
			RequestID: req.RequestID, Success: false, Err: engine.ToWireError(err),
		}), nil
	}
	return translationResponseToWire(result), nil
}

func _Translation_TranslateBatch_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.TranslateBatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*translationHandler)
	if interceptor == nil {
		return h.handleTranslateBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/scanlate.v1.TranslationService/TranslateBatch"}
	handler := func(ctx context.Context, req any) (any, error) {
		return h.handleTranslateBatch(ctx, req.(*pb.TranslateBatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func (h *translationHandler) handleTranslateBatch(ctx context.Context, in *pb.TranslateBatchRequest) (*pb.TranslateBatchResponse, error) {
	reqs := make([]engine.TranslateRequest, len(in.Requests))
	for i, r := range in.Requests {
		reqs[i] = translationRequestFromWire(r)
	}
	results, err := h.eng.TranslateBatch(ctx, reqs)
	if err != nil {
		we := engine.ToWireError(err)
		resp := &pb.TranslateBatchResponse{Responses: make([]*pb.TranslateResponse, len(reqs))}
		for i, r := range reqs {
			resp.Responses[i] = translationResponseToWire(engine.TranslateResult{RequestID: r.RequestID, Err: we})
		}
		return resp, nil
	}
	resp := &pb.TranslateBatchResponse{Responses: make([]*pb.TranslateResponse, len(results))}
	for i, r := range results {
		resp.Responses[i] = translationResponseToWire(r)
	}
	return resp, nil
}

func _Translation_HealthCheck_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*translationHandler)
	return &pb.HealthCheckResponse{Healthy: h.eng.HealthCheck(ctx)}, nil
}

func _Translation_IsReady_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.IsReadyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*translationHandler)
	return &pb.IsReadyResponse{Ready: h.eng.IsReady()}, nil
}

func _Translation_Status_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*translationHandler)
	return h.monitor.status(h.eng.IsReady(), h.eng.Name(), h.eng.Version(), h.eng.SupportedLanguages()), nil
}

// translationServiceDesc mirrors the shape protoc-gen-go-grpc generates
// for service TranslationService in translation.proto.
var translationServiceDesc = grpc.ServiceDesc{
	ServiceName: "scanlate.v1.TranslationService",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Translate", Handler: _Translation_Translate_Handler},
		{MethodName: "TranslateBatch", Handler: _Translation_TranslateBatch_Handler},
		{MethodName: "HealthCheck", Handler: _Translation_HealthCheck_Handler},
		{MethodName: "IsReady", Handler: _Translation_IsReady_Handler},
		{MethodName: "Status", Handler: _Translation_Status_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "translation.proto",
}
