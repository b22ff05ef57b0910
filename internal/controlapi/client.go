package controlapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the Control service over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ForceReconcile(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ForceReconcileMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PlaylistStatus(ctx context.Context, playlistID int64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, PlaylistStatusMethod, wrapperspb.Int64(playlistID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProbeDevice(ctx context.Context, deviceID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ProbeDeviceMethod, wrapperspb.String(deviceID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProbeAll(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ProbeAllMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DesiredContent fetches the desired content of deviceID; "" means broadcast.
func (c *Client) DesiredContent(ctx context.Context, deviceID string, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, DesiredContentMethod, wrapperspb.String(deviceID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
