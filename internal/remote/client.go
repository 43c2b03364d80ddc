package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloudkv/internal/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// DefaultCallTimeout bounds every Store call.
	DefaultCallTimeout = 5 * time.Second
	defaultClientID    = "cloudkv"
)

// ErrUnavailable is returned when the remote store cannot be reached in time.
var ErrUnavailable = errors.New("remote store unavailable")

// ClientOptions configures a Client.
type ClientOptions struct {
	ClientID    string
	CallTimeout time.Duration
}

// Client is a storage.Store backed by a remote Store service.
type Client struct {
	conn        grpc.ClientConnInterface
	closer      func() error
	clientID    string
	callTimeout time.Duration
}

// Dial connects to the Store service at addr. Extra dial options are
// appended after the defaults.
func Dial(addr string, opts ClientOptions, dialOpts ...grpc.DialOption) (*Client, error) {
	all := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, dialOpts...)

	conn, err := grpc.NewClient(addr, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	c := NewClient(conn, opts)
	c.closer = conn.Close
	return c, nil
}

// NewClient wraps an existing connection. The caller keeps ownership of conn.
func NewClient(conn grpc.ClientConnInterface, opts ClientOptions) *Client {
	if opts.ClientID == "" {
		opts.ClientID = defaultClientID
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Client{
		conn:        conn,
		clientID:    opts.ClientID,
		callTimeout: opts.CallTimeout,
	}
}

// Close closes the connection if the client dialed it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// Set implements storage.Store.
func (c *Client) Set(key string, value []byte) error {
	return c.invoke("Set", newSetRequest(key, value), &emptypb.Empty{})
}

// Get implements storage.Store.
func (c *Client) Get(key string) ([]byte, bool, error) {
	resp := &structpb.Struct{}
	if err := c.invoke("Get", wrapperspb.String(key), resp); err != nil {
		return nil, false, err
	}
	value, ok, err := parseGetResponse(resp)
	if err != nil {
		return nil, false, fmt.Errorf("Get: %w", err)
	}
	return value, ok, nil
}

// Remove implements storage.Store.
func (c *Client) Remove(key string) error {
	return c.invoke("Remove", wrapperspb.String(key), &emptypb.Empty{})
}

// AllKeys implements storage.Store.
func (c *Client) AllKeys() ([]string, error) {
	resp := &structpb.ListValue{}
	if err := c.invoke("AllKeys", &emptypb.Empty{}, resp); err != nil {
		return nil, err
	}
	return parseKeyList(resp), nil
}

// Synchronize implements storage.Store.
func (c *Client) Synchronize() error {
	return c.invoke("Synchronize", &emptypb.Empty{}, &emptypb.Empty{})
}

// Check asks the server's health service whether the Store service is
// serving. It returns ErrUnavailable when the server cannot be reached or
// reports any other status.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(c.conn).Check(ctx,
		&grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("health check: %w", fromStatus(err))
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (c *Client) invoke(method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx,
		clientIDMetadataKey, c.clientID,
		requestIDMetadataKey, uuid.Must(uuid.NewV7()).String(),
	)
	if err := c.conn.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		return fmt.Errorf("%s: %w", method, fromStatus(err))
	}
	return nil
}

// fromStatus maps gRPC status codes back to store errors.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	switch st.Code() {
	case codes.InvalidArgument:
		for _, sentinel := range []error{storage.ErrEmptyKey, storage.ErrKeyTooLong} {
			if strings.HasPrefix(msg, sentinel.Error()) {
				return fmt.Errorf("%w: %s", sentinel, msg)
			}
		}
		return fmt.Errorf("invalid argument: %s", msg)
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", storage.ErrQuotaExceeded, msg)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		return fmt.Errorf("remote store %s: %s", st.Code(), msg)
	}
}

var _ storage.Store = (*Client)(nil)
