package rpcserver

import "encoding/json"

// jsonCodec is forced onto the grpc.Server via grpc.ForceServerCodec so
// this module's hand-written pb structs (not generated proto.Message
// implementations) can travel over the gRPC transport: the wire framing,
// multiplexing, flow control, and deadline propagation of HTTP/2 remain
// standard gRPC, only the payload encoding is swapped from protobuf binary
// to JSON. The interface description still lives in /proto; this codec is
// the one part of it that protoc would otherwise generate.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
