package main

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/postparam"
	"github.com/RowanDark/postparam/internal/cipher"
	"github.com/RowanDark/postparam/internal/config"
	"github.com/RowanDark/postparam/internal/rpc"
)

type codecFunc func(ctx context.Context, value string) (string, error)

func localCodec(command string) codecFunc {
	switch command {
	case "encode":
		return func(_ context.Context, v string) (string, error) { return postparam.Encode(v), nil }
	case "decode":
		return func(_ context.Context, v string) (string, error) { return postparam.Decode(v) }
	case "encode-post":
		return func(_ context.Context, v string) (string, error) { return postparam.EncodePostParam(v), nil }
	default:
		return func(_ context.Context, v string) (string, error) { return postparam.DecodePostParam(v) }
	}
}

func remoteCodec(command string, client *rpc.Client) codecFunc {
	switch command {
	case "encode":
		return func(ctx context.Context, v string) (string, error) { return client.Encode(ctx, v) }
	case "decode":
		return func(ctx context.Context, v string) (string, error) { return client.Decode(ctx, v) }
	case "encode-post":
		return func(ctx context.Context, v string) (string, error) { return client.EncodePostParam(ctx, v) }
	default:
		return func(ctx context.Context, v string) (string, error) { return client.DecodePostParam(ctx, v) }
	}
}

func runCodec(env *cmdEnv, command string, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(env.stderr, "load config: %v\n", err)
		return 1
	}

	fs := newFlagSet(command, env.stderr)
	remote := fs.String("remote", "", "call a postparamd gRPC address instead of encoding locally (bare flag uses grpc_addr from config)")
	timeout := fs.Duration("timeout", 5*time.Second, "deadline for remote calls")
	fs.Lookup("remote").NoOptDefVal = cfg.GRPCAddr
	if code, ok := parseFlags(fs, args, env.stderr); !ok {
		return code
	}

	input, err := readInput(fs.Args(), env.stdin)
	if err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}

	ctx := context.Background()
	call := localCodec(command)
	if *remote != "" {
		conn, err := grpc.NewClient(*remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			fmt.Fprintf(env.stderr, "connect %s: %v\n", *remote, err)
			return 1
		}
		defer conn.Close()

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
		call = remoteCodec(command, rpc.NewClient(conn))
	}

	out, err := call(ctx, input)
	if err != nil {
		if st, ok := status.FromError(err); ok {
			fmt.Fprintf(env.stderr, "%s failed: %s\n", command, st.Message())
		} else {
			fmt.Fprintf(env.stderr, "%s failed: %v\n", command, err)
		}
		return 1
	}
	fmt.Fprintln(env.stdout, out)
	return 0
}

func runDetect(env *cmdEnv, args []string) int {
	fs := newFlagSet("detect", env.stderr)
	if code, ok := parseFlags(fs, args, env.stderr); !ok {
		return code
	}

	input, err := readInput(fs.Args(), env.stdin)
	if err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}

	results, err := cipher.DecodeAll(context.Background(), []byte(input))
	if err != nil {
		fmt.Fprintf(env.stderr, "detect failed: %v\n", err)
		return 1
	}
	if len(results) == 0 {
		fmt.Fprintln(env.stderr, "no known encoding detected")
		return 1
	}

	for _, r := range results {
		if !r.Success {
			fmt.Fprintf(env.stdout, "%-12s %.2f  error: %s\n", r.Detection.Encoding, r.Detection.Confidence, r.Error)
			continue
		}
		fmt.Fprintf(env.stdout, "%-12s %.2f  %s\n", r.Detection.Encoding, r.Detection.Confidence, r.Decoded)
	}
	return 0
}
