// Package pb holds the wire message types described by the .proto files
// under /proto. protoc-gen-go is not run in this environment, so these are
// hand-written structs with json tags matching the proto field names
// (snake_case) rather than generated proto.Message implementations — the
// server forces a JSON codec (see pkg/rpcserver/codec.go) instead of
// protobuf binary framing, so no generated marshal/unmarshal code is
// needed for these types to travel over the gRPC transport.
package pb

import "time"

// -- translation.proto --

type TranslateRequest struct {
	RequestID  string `json:"request_id"`
	SourceText string `json:"source_text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type TranslateResponse struct {
	RequestID         string            `json:"request_id"`
	SourceText        string            `json:"source_text"`
	TranslatedText    string            `json:"translated_text"`
	SourceLang        string            `json:"source_lang"`
	TargetLang        string            `json:"target_lang"`
	EngineName        string            `json:"engine_name"`
	EngineVersion     string            `json:"engine_version"`
	Confidence        float32           `json:"confidence"`
	ProcessingTimeMs  float64           `json:"processing_time_ms"`
	Success           bool              `json:"success"`
	Error             *Error            `json:"error,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
}

// GetError satisfies rpcserver's errorCarrier interface, used by the
// metrics interceptor to label RPCs that completed transport-successfully
// but carry a populated application error.
func (r *TranslateResponse) GetError() *Error { return r.Error }

type TranslateBatchRequest struct {
	Requests []*TranslateRequest `json:"requests"`
}

type TranslateBatchResponse struct {
	Responses []*TranslateResponse `json:"responses"`
}

type Error struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Healthy bool `json:"healthy"`
}

type IsReadyRequest struct{}

type IsReadyResponse struct {
	Ready bool `json:"ready"`
}

type StatusRequest struct{}

type StatusResponse struct {
	Ready               bool     `json:"ready"`
	EngineName          string   `json:"engine_name"`
	EngineVersion       string   `json:"engine_version"`
	SupportedLanguages  []string `json:"supported_languages"`
	AcceleratorBackend  string   `json:"accelerator_backend"`
	VRAMUsedMB          int64    `json:"vram_used_mb"`
	VRAMTotalMB         int64    `json:"vram_total_mb"`
	RSSBytes            uint64   `json:"rss_bytes"`
	Handles             int64    `json:"handles"`
	CompletedRequests   int64    `json:"completed_requests"`
}

// -- ocr.proto --

type RecognizeRequest struct {
	RequestID          string   `json:"request_id"`
	ImageBytes         []byte   `json:"image_bytes"`
	PreferredLanguages []string `json:"preferred_languages"`
}

type RecognizeResponse struct {
	RequestID         string    `json:"request_id"`
	Success           bool      `json:"success"`
	Regions           []*Region `json:"regions"`
	ProcessingTimeMs  float64   `json:"processing_time_ms"`
	DetectionTimeMs   float64   `json:"detection_time_ms"`
	RecognitionTimeMs float64   `json:"recognition_time_ms"`
	HasSplitTimings   bool      `json:"has_split_timings"`
	EngineName        string    `json:"engine_name"`
	EngineVersion     string    `json:"engine_version"`
	Error             *Error    `json:"error,omitempty"`
}

// GetError satisfies rpcserver's errorCarrier interface.
func (r *RecognizeResponse) GetError() *Error { return r.Error }

type Region struct {
	Text       string   `json:"text"`
	Confidence float32  `json:"confidence"`
	BBox       *BBox    `json:"bbox"`
	Polygon    []*Point `json:"polygon"`
	LineIndex  int32    `json:"line_index"`
}

type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
