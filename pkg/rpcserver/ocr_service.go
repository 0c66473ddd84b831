package rpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/orneryd/scanlate/pkg/engine"
	"github.com/orneryd/scanlate/pkg/rpcserver/pb"
)

type ocrHandler struct {
	eng     engine.OCREngine
	monitor statusSource
}

func newOCRHandler(eng engine.OCREngine, mon statusSource) *ocrHandler {
	return &ocrHandler{eng: eng, monitor: mon}
}

func regionToWire(r engine.Region) *pb.Region {
	poly := make([]*pb.Point, len(r.Polygon))
	for i, p := range r.Polygon {
		poly[i] = &pb.Point{X: p.X, Y: p.Y}
	}
	return &pb.Region{
		Text:       r.Text,
		Confidence: r.Confidence,
		BBox:       &pb.BBox{X: r.BBox.X, Y: r.BBox.Y, Width: r.BBox.Width, Height: r.BBox.Height},
		Polygon:    poly,
		LineIndex:  int32(r.LineIndex),
	}
}

func _Ocr_Recognize_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.RecognizeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*ocrHandler)
	if interceptor == nil {
		return h.handleRecognize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/scanlate.v1.OcrService/Recognize"}
	handler := func(ctx context.Context, req any) (any, error) {
		return h.handleRecognize(ctx, req.(*pb.RecognizeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func (h *ocrHandler) handleRecognize(ctx context.Context, in *pb.RecognizeRequest) (*pb.RecognizeResponse, error) {
	result, err := h.eng.Recognize(ctx, engine.OCRRequest{
		RequestID:          in.RequestID,
		ImageBytes:         in.ImageBytes,
		PreferredLanguages: in.PreferredLanguages,
	})
	if err != nil {
		we := engine.ToWireError(err)
		return &pb.RecognizeResponse{
			RequestID: in.RequestID,
			Success:   false,
			Error:     &pb.Error{Kind: string(we.Kind), Message: we.Message, Retryable: we.Retryable},
		}, nil
	}

	regions := make([]*pb.Region, len(result.Regions))
	for i, r := range result.Regions {
		regions[i] = regionToWire(r)
	}
	return &pb.RecognizeResponse{
		RequestID:         result.RequestID,
		Success:           result.Success,
		Regions:           regions,
		ProcessingTimeMs:  float64(result.ProcessingTime.Microseconds()) / 1000.0,
		DetectionTimeMs:   float64(result.DetectionTime.Microseconds()) / 1000.0,
		RecognitionTimeMs: float64(result.RecognitionTime.Microseconds()) / 1000.0,
		HasSplitTimings:   result.HasSplitTimings,
		EngineName:        result.EngineName,
		EngineVersion:     result.EngineVersion,
	}, nil
}

func _Ocr_HealthCheck_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*ocrHandler)
	return &pb.HealthCheckResponse{Healthy: h.eng.HealthCheck(ctx)}, nil
}

func _Ocr_IsReady_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.IsReadyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*ocrHandler)
	return &pb.IsReadyResponse{Ready: h.eng.IsReady()}, nil
}

func _Ocr_Status_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(pb.StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(*ocrHandler)
	return h.monitor.status(h.eng.IsReady(), h.eng.Name(), h.eng.Version(), h.eng.SupportedLanguages()), nil
}

var ocrServiceDesc = grpc.ServiceDesc{
	ServiceName: "scanlate.v1.OcrService",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Recognize", Handler: _Ocr_Recognize_Handler},
		{MethodName: "HealthCheck", Handler: _Ocr_HealthCheck_Handler},
		{MethodName: "IsReady", Handler: _Ocr_IsReady_Handler},
		{MethodName: "Status", Handler: _Ocr_Status_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ocr.proto",
}
