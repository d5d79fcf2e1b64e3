// Package api is the wire contract between the FieldKeeper client and the
// reference remote store: the fieldkeeper.v1.RecordService gRPC service,
// its message types and the JSON codec that carries them.
//
// The package stands in for protoc output. The service descriptor, server
// interface and Unimplemented base follow the shape protoc-gen-go-grpc
// produces, while the messages are plain structs encoded by the "json"
// codec registered in codec.go instead of protobuf. The client selects the
// codec with grpc.CallContentSubtype(CodecName) and the server picks it up
// from the request content type.
package api
