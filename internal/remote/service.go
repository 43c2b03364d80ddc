package remote

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "cloudkv.v1.Store"

	// Metadata keys attached by Client and logged by Server.
	clientIDMetadataKey  = "x-client-id"
	requestIDMetadataKey = "x-request-id"

	// Field names of the Set request and Get response structs.
	fieldKey   = "key"
	fieldValue = "value"
	fieldFound = "found"
)

// StoreServer is the server API for the Store service. Every message is a
// protobuf well-known type, so calls use the default proto codec.
//
//	Set(Struct{key, value})      -> Empty
//	Get(StringValue key)         -> Struct{found, value}
//	Remove(StringValue key)      -> Empty
//	AllKeys(Empty)               -> ListValue of key strings
//	Synchronize(Empty)           -> Empty
//
// Values travel base64-encoded in Struct string fields.
type StoreServer interface {
	Set(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Get(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Remove(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	AllKeys(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Synchronize(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// RegisterStoreServer registers srv on s.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&storeServiceDesc, srv)
}

var storeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Set", Handler: unaryHandler("Set", StoreServer.Set)},
		{MethodName: "Get", Handler: unaryHandler("Get", StoreServer.Get)},
		{MethodName: "Remove", Handler: unaryHandler("Remove", StoreServer.Remove)},
		{MethodName: "AllKeys", Handler: unaryHandler("AllKeys", StoreServer.AllKeys)},
		{MethodName: "Synchronize", Handler: unaryHandler("Synchronize", StoreServer.Synchronize)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cloudkv/v1/store",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler adapts a typed StoreServer method to a grpc.MethodHandler.
func unaryHandler[Req, Resp any](method string, call func(StoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newSetRequest(key string, value []byte) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldKey:   structpb.NewStringValue(key),
		fieldValue: structpb.NewStringValue(base64.StdEncoding.EncodeToString(value)),
	}}
}

func parseSetRequest(req *structpb.Struct) (string, []byte, error) {
	fields := req.GetFields()
	value, err := base64.StdEncoding.DecodeString(fields[fieldValue].GetStringValue())
	if err != nil {
		return "", nil, fmt.Errorf("malformed value: %w", err)
	}
	return fields[fieldKey].GetStringValue(), value, nil
}

func newGetResponse(value []byte, found bool) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldFound: structpb.NewBoolValue(found),
	}
	if found {
		fields[fieldValue] = structpb.NewStringValue(base64.StdEncoding.EncodeToString(value))
	}
	return &structpb.Struct{Fields: fields}
}

func parseGetResponse(resp *structpb.Struct) ([]byte, bool, error) {
	fields := resp.GetFields()
	if !fields[fieldFound].GetBoolValue() {
		return nil, false, nil
	}
	value, err := base64.StdEncoding.DecodeString(fields[fieldValue].GetStringValue())
	if err != nil {
		return nil, false, fmt.Errorf("malformed value: %w", err)
	}
	return value, true, nil
}

func newKeyList(keys []string) *structpb.ListValue {
	values := make([]*structpb.Value, len(keys))
	for i, k := range keys {
		values[i] = structpb.NewStringValue(k)
	}
	return &structpb.ListValue{Values: values}
}

func parseKeyList(list *structpb.ListValue) []string {
	keys := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		keys = append(keys, v.GetStringValue())
	}
	return keys
}
