package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "fieldkeeper.v1.RecordService"

const (
	RecordService_Register_FullMethodName          = "/" + ServiceName + "/Register"
	RecordService_Login_FullMethodName             = "/" + ServiceName + "/Login"
	RecordService_Ping_FullMethodName              = "/" + ServiceName + "/Ping"
	RecordService_ListRecords_FullMethodName       = "/" + ServiceName + "/ListRecords"
	RecordService_CreateRecords_FullMethodName     = "/" + ServiceName + "/CreateRecords"
	RecordService_UpdateRecord_FullMethodName      = "/" + ServiceName + "/UpdateRecord"
	RecordService_DeleteRecord_FullMethodName      = "/" + ServiceName + "/DeleteRecord"
	RecordService_PresignAttachment_FullMethodName = "/" + ServiceName + "/PresignAttachment"
)

// RecordServiceServer is the server API for RecordService.
type RecordServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error)
	CreateRecords(context.Context, *CreateRecordsRequest) (*CreateRecordsResponse, error)
	UpdateRecord(context.Context, *UpdateRecordRequest) (*UpdateRecordResponse, error)
	DeleteRecord(context.Context, *DeleteRecordRequest) (*DeleteRecordResponse, error)
	PresignAttachment(context.Context, *PresignAttachmentRequest) (*PresignAttachmentResponse, error)
}

// UnimplementedRecordServiceServer can be embedded to have forward compatible implementations.
type UnimplementedRecordServiceServer struct{}

func (UnimplementedRecordServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedRecordServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedRecordServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedRecordServiceServer) ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRecords not implemented")
}
func (UnimplementedRecordServiceServer) CreateRecords(context.Context, *CreateRecordsRequest) (*CreateRecordsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateRecords not implemented")
}
func (UnimplementedRecordServiceServer) UpdateRecord(context.Context, *UpdateRecordRequest) (*UpdateRecordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateRecord not implemented")
}
func (UnimplementedRecordServiceServer) DeleteRecord(context.Context, *DeleteRecordRequest) (*DeleteRecordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteRecord not implemented")
}
func (UnimplementedRecordServiceServer) PresignAttachment(context.Context, *PresignAttachmentRequest) (*PresignAttachmentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PresignAttachment not implemented")
}

// RegisterRecordServiceServer attaches srv to s.
func RegisterRecordServiceServer(s grpc.ServiceRegistrar, srv RecordServiceServer) {
	s.RegisterService(&RecordService_ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(RecordServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RecordService_ServiceDesc is the grpc.ServiceDesc for RecordService.
var RecordService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler:    unaryHandler(RecordService_Register_FullMethodName, RecordServiceServer.Register),
		},
		{
			MethodName: "Login",
			Handler:    unaryHandler(RecordService_Login_FullMethodName, RecordServiceServer.Login),
		},
		{
			MethodName: "Ping",
			Handler:    unaryHandler(RecordService_Ping_FullMethodName, RecordServiceServer.Ping),
		},
		{
			MethodName: "ListRecords",
			Handler:    unaryHandler(RecordService_ListRecords_FullMethodName, RecordServiceServer.ListRecords),
		},
		{
			MethodName: "CreateRecords",
			Handler:    unaryHandler(RecordService_CreateRecords_FullMethodName, RecordServiceServer.CreateRecords),
		},
		{
			MethodName: "UpdateRecord",
			Handler:    unaryHandler(RecordService_UpdateRecord_FullMethodName, RecordServiceServer.UpdateRecord),
		},
		{
			MethodName: "DeleteRecord",
			Handler:    unaryHandler(RecordService_DeleteRecord_FullMethodName, RecordServiceServer.DeleteRecord),
		},
		{
			MethodName: "PresignAttachment",
			Handler:    unaryHandler(RecordService_PresignAttachment_FullMethodName, RecordServiceServer.PresignAttachment),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fieldkeeper/v1/records.proto",
}

// RecordServiceClient is the client API for RecordService.
type RecordServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error)
	CreateRecords(ctx context.Context, in *CreateRecordsRequest, opts ...grpc.CallOption) (*CreateRecordsResponse, error)
	UpdateRecord(ctx context.Context, in *UpdateRecordRequest, opts ...grpc.CallOption) (*UpdateRecordResponse, error)
	DeleteRecord(ctx context.Context, in *DeleteRecordRequest, opts ...grpc.CallOption) (*DeleteRecordResponse, error)
	PresignAttachment(ctx context.Context, in *PresignAttachmentRequest, opts ...grpc.CallOption) (*PresignAttachmentResponse, error)
}

type recordServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRecordServiceClient returns a client whose calls are encoded with the JSON codec.
func NewRecordServiceClient(cc grpc.ClientConnInterface) RecordServiceClient {
	return &recordServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *recordServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, RecordService_Register_FullMethodName, in, opts)
}

func (c *recordServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, RecordService_Login_FullMethodName, in, opts)
}

func (c *recordServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, RecordService_Ping_FullMethodName, in, opts)
}

func (c *recordServiceClient) ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error) {
	return invoke[ListRecordsResponse](ctx, c.cc, RecordService_ListRecords_FullMethodName, in, opts)
}

func (c *recordServiceClient) CreateRecords(ctx context.Context, in *CreateRecordsRequest, opts ...grpc.CallOption) (*CreateRecordsResponse, error) {
	return invoke[CreateRecordsResponse](ctx, c.cc, RecordService_CreateRecords_FullMethodName, in, opts)
}

func (c *recordServiceClient) UpdateRecord(ctx context.Context, in *UpdateRecordRequest, opts ...grpc.CallOption) (*UpdateRecordResponse, error) {
	return invoke[UpdateRecordResponse](ctx, c.cc, RecordService_UpdateRecord_FullMethodName, in, opts)
}

func (c *recordServiceClient) DeleteRecord(ctx context.Context, in *DeleteRecordRequest, opts ...grpc.CallOption) (*DeleteRecordResponse, error) {
	return invoke[DeleteRecordResponse](ctx, c.cc, RecordService_DeleteRecord_FullMethodName, in, opts)
}

func (c *recordServiceClient) PresignAttachment(ctx context.Context, in *PresignAttachmentRequest, opts ...grpc.CallOption) (*PresignAttachmentResponse, error) {
	return invoke[PresignAttachmentResponse](ctx, c.cc, RecordService_PresignAttachment_FullMethodName, in, opts)
}
