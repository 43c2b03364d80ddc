package remote

import (
	"context"
	"errors"
	"log/slog"

	"cloudkv/internal/storage"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server exposes a storage.Store over the Store gRPC service.
type Server struct {
	store    storage.Store
	serverID string
	logger   *slog.Logger
}

// NewServer creates a new Store server instance.
func NewServer(store storage.Store, serverID string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    store,
		serverID: serverID,
		logger:   logger,
	}
}

// Set handles Set requests.
func (s *Server) Set(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	key, value, err := parseSetRequest(req)
	s.logRequest(ctx, "Set", key)

	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, storage.ErrEmptyKey.Error())
	}
	if err := s.store.Set(key, value); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Get handles Get requests.
func (s *Server) Get(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	key := req.GetValue()
	s.logRequest(ctx, "Get", key)

	if key == "" {
		return nil, status.Error(codes.InvalidArgument, storage.ErrEmptyKey.Error())
	}
	value, ok, err := s.store.Get(key)
	if err != nil {
		return nil, toStatus(err)
	}
	return newGetResponse(value, ok), nil
}

// Remove handles Remove requests.
func (s *Server) Remove(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	key := req.GetValue()
	s.logRequest(ctx, "Remove", key)

	if key == "" {
		return nil, status.Error(codes.InvalidArgument, storage.ErrEmptyKey.Error())
	}
	if err := s.store.Remove(key); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// AllKeys handles AllKeys requests.
func (s *Server) AllKeys(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	s.logRequest(ctx, "AllKeys", "")

	keys, err := s.store.AllKeys()
	if err != nil {
		return nil, toStatus(err)
	}
	return newKeyList(keys), nil
}

// Synchronize handles Synchronize requests.
func (s *Server) Synchronize(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.logRequest(ctx, "Synchronize", "")

	if err := s.store.Synchronize(); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) logRequest(ctx context.Context, method, key string) {
	s.logger.LogAttrs(ctx, slog.LevelDebug, method+" request",
		slog.String("server_id", s.serverID),
		slog.String("key", key),
		slog.String("client_id", firstMetadata(ctx, clientIDMetadataKey)),
		slog.String("request_id", firstMetadata(ctx, requestIDMetadataKey)),
	)
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// toStatus maps store errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, storage.ErrEmptyKey), errors.Is(err, storage.ErrKeyTooLong):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrQuotaExceeded):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

var _ StoreServer = (*Server)(nil)
