package assist

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region service
// Full method names of the sidecar inference service. Payloads are
// google.protobuf.Struct in both directions.
const (
	SuggestMethod  = "/cargo.assist.v1.Assist/Suggest"
	ValidateMethod = "/cargo.assist.v1.Assist/Validate"
)

// AssistServiceClient is the RPC surface of the sidecar.
type AssistServiceClient interface {
	Suggest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type assistServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAssistServiceClient binds the service methods to cc.
func NewAssistServiceClient(cc grpc.ClientConnInterface) AssistServiceClient {
	return &assistServiceClient{cc: cc}
}

func (c *assistServiceClient) Suggest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SuggestMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *assistServiceClient) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion service

// #region client-struct
// CodecClient talks to the inference sidecar over gRPC.
type CodecClient struct {
	conn   *grpc.ClientConn
	client AssistServiceClient
	schema *schema.Schema
}

// #endregion client-struct

// #region constructor
// NewCodecClient connects to the sidecar at addr. The connection is lazy; an
// unreachable sidecar surfaces as ErrUnavailable on the first call.
func NewCodecClient(addr string, sc *schema.Schema) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{
		conn:   conn,
		client: NewAssistServiceClient(conn),
		schema: sc,
	}, nil
}

// NewCodecClientWithService creates a CodecClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewCodecClientWithService(svc AssistServiceClient, sc *schema.Schema) *CodecClient {
	return &CodecClient{client: svc, schema: sc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region suggest
// Suggest sends {"record": {...}, "context": [...]} and reads back one
// suggestion object per AI-assisted field.
func (c *CodecClient) Suggest(ctx context.Context, rec record.Record, others []record.Record) (map[string]suggest.Suggestion, error) {
	ctxRows := make([]any, len(others))
	for i, o := range others {
		ctxRows[i] = recordMap(o)
	}
	in, err := structpb.NewStruct(map[string]any{
		"record":  recordMap(rec),
		"context": ctxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("encode suggest request: %w", err)
	}

	resp, err := c.client.Suggest(ctx, in)
	if err != nil {
		return nil, classifyRPC("suggest rpc", err)
	}
	data, err := protojson.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decodeSuggestions(data, c.schema.AIAssisted())
}

// #endregion suggest

// #region validate
// Validate sends {"record": {...}} and reads back {"issues": [...]}.
func (c *CodecClient) Validate(ctx context.Context, rec record.Record) ([]validation.Issue, error) {
	in, err := structpb.NewStruct(map[string]any{"record": recordMap(rec)})
	if err != nil {
		return nil, fmt.Errorf("encode validate request: %w", err)
	}
	resp, err := c.client.Validate(ctx, in)
	if err != nil {
		return nil, classifyRPC("validate rpc", err)
	}
	data, err := protojson.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decodeIssues(data)
}

// #endregion validate

// classifyRPC maps gRPC status codes onto the package sentinels.
func classifyRPC(op string, err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	case codes.Unavailable:
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
