package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/RowanDark/postparam"
	"github.com/RowanDark/postparam/internal/logging"
	"github.com/RowanDark/postparam/internal/observability/metrics"
)

// DefaultMaxPayload bounds the size of a single request value.
const DefaultMaxPayload = 1 << 20

// Server implements CodecServer on top of the postparam package.
type Server struct {
	maxPayload int
	audit      *logging.AuditLogger
	metrics    *metrics.Registry
	logger     logrus.FieldLogger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxPayload sets the largest accepted request value in bytes.
func WithMaxPayload(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPayload = n
		}
	}
}

// WithAuditLogger records every call on audit.
func WithAuditLogger(audit *logging.AuditLogger) Option {
	return func(s *Server) {
		if audit != nil {
			s.audit = audit
		}
	}
}

// WithMetrics records call counts and latency on reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.metrics = reg
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer returns a Server with the given options applied.
func NewServer(opts ...Option) *Server {
	s := &Server{
		maxPayload: DefaultMaxPayload,
		audit:      logging.Discard(),
		metrics:    metrics.Default(),
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ CodecServer = (*Server)(nil)

func (s *Server) Encode(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return s.apply(ctx, "encode", in, func(v string) (string, error) {
		return postparam.Encode(v), nil
	})
}

func (s *Server) Decode(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return s.apply(ctx, "decode", in, postparam.Decode)
}

func (s *Server) EncodePostParam(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return s.apply(ctx, "encode_postparam", in, func(v string) (string, error) {
		return postparam.EncodePostParam(v), nil
	})
}

func (s *Server) DecodePostParam(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return s.apply(ctx, "decode_postparam", in, postparam.DecodePostParam)
}

func (s *Server) apply(ctx context.Context, op string, in *wrapperspb.StringValue, fn func(string) (string, error)) (*wrapperspb.StringValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	value := in.GetValue()
	if len(value) > s.maxPayload {
		s.metrics.Reject(logging.TransportGRPC, op, metrics.ReasonTooLarge)
		return nil, status.Errorf(codes.ResourceExhausted, "%s: payload of %d bytes exceeds limit of %d", op, len(value), s.maxPayload)
	}

	start := time.Now()
	out, err := fn(value)
	s.metrics.Observe(logging.TransportGRPC, op, len(value), time.Since(start), err)
	if auditErr := s.audit.Codec(logging.TransportGRPC, op, len(value), err); auditErr != nil {
		s.logger.WithError(auditErr).Warn("failed to write audit event")
	}
	if err != nil {
		return nil, toStatus(op, err)
	}
	return wrapperspb.String(out), nil
}

func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, postparam.ErrInvalidEncoding), errors.Is(err, postparam.ErrMalformedUTF8):
		return status.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

// UnaryLoggingInterceptor logs the method, status code and latency of every
// unary call at debug level, and failures at warn.
func UnaryLoggingInterceptor(logger logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := logger.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start),
		})
		if err != nil {
			entry.WithError(err).Warn("rpc failed")
		} else {
			entry.Debug("rpc completed")
		}
		return resp, err
	}
}
