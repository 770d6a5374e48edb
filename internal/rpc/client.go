package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the Codec service over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Encode(ctx context.Context, text string, opts ...grpc.CallOption) (string, error) {
	return c.invoke(ctx, MethodEncode, text, opts)
}

func (c *Client) Decode(ctx context.Context, encoded string, opts ...grpc.CallOption) (string, error) {
	return c.invoke(ctx, MethodDecode, encoded, opts)
}

func (c *Client) EncodePostParam(ctx context.Context, text string, opts ...grpc.CallOption) (string, error) {
	return c.invoke(ctx, MethodEncodePostParam, text, opts)
}

func (c *Client) DecodePostParam(ctx context.Context, obfuscated string, opts ...grpc.CallOption) (string, error) {
	return c.invoke(ctx, MethodDecodePostParam, obfuscated, opts)
}

func (c *Client) invoke(ctx context.Context, method, value string, opts []grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, method, wrapperspb.String(value), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
