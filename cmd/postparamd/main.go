// Command postparamd serves the postparam codec over gRPC and an HTTP form
// receiver.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/RowanDark/postparam/internal/config"
	"github.com/RowanDark/postparam/internal/logging"
	"github.com/RowanDark/postparam/internal/receiver"
	"github.com/RowanDark/postparam/internal/rpc"
)

const shutdownGrace = 2 * time.Second

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("postparamd exited")
		os.Exit(1)
	}
}

// loadConfig resolves the file and environment configuration, then applies
// command line flags on top.
func loadConfig(args []string, stderr io.Writer) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	fs := pflag.NewFlagSet("postparamd", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.GRPCAddr, "grpc", cfg.GRPCAddr, "address for the gRPC codec service")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "address for the HTTP form receiver")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.AuditLog, "audit-log", cfg.AuditLog, "append audit events to this file instead of stdout")
	fs.StringVar(&cfg.ParamName, "param", cfg.ParamName, "form field holding the obfuscated value")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	if fs.NArg() > 0 {
		return config.Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if parsed, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}
	return logger
}

func newAuditLogger(path string) (*logging.AuditLogger, error) {
	if path == "" {
		return logging.NewAuditLogger("postparamd")
	}
	return logging.NewAuditLogger("postparamd", logging.WithoutStdout(), logging.WithFile(path))
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}
	defer grpcLis.Close()

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTPAddr, err)
	}
	defer httpLis.Close()

	audit, err := newAuditLogger(cfg.AuditLog)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() {
		if err := audit.Close(); err != nil {
			logger.WithError(err).Warn("failed to close audit log")
		}
	}()

	return serve(ctx, grpcLis, httpLis, cfg, logger, audit)
}

func serve(ctx context.Context, grpcLis, httpLis net.Listener, cfg config.Config, logger *logrus.Logger, audit *logging.AuditLogger) error {
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryLoggingInterceptor(logger.WithField("component", "rpc"))))
	rpc.RegisterCodecServer(grpcSrv, rpc.NewServer(
		rpc.WithMaxPayload(int(cfg.MaxPayloadBytes)),
		rpc.WithAuditLogger(audit.WithComponent("rpc")),
		rpc.WithLogger(logger.WithField("component", "rpc")),
	))

	httpSrv := receiver.NewServer(cfg.HTTPAddr, receiver.NewHandler(
		receiver.WithParamName(cfg.ParamName),
		receiver.WithMaxBody(cfg.MaxPayloadBytes),
		receiver.WithAuditLogger(audit.WithComponent("receiver")),
		receiver.WithLogger(logger.WithField("component", "receiver")),
	))

	emitLifecycle(audit, logger, "started", grpcLis.Addr(), httpLis.Addr())
	logger.WithFields(logrus.Fields{
		"grpc": grpcLis.Addr().String(),
		"http": httpLis.Addr().String(),
	}).Info("postparamd listening")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Stop both servers once the context is cancelled or either one fails.
	g.Go(func() error {
		<-gctx.Done()

		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown incomplete")
			_ = httpSrv.Close()
		}

		select {
		case <-done:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
		return nil
	})

	err := g.Wait()
	emitLifecycle(audit, logger, "stopped", grpcLis.Addr(), httpLis.Addr())
	return err
}

func emitLifecycle(audit *logging.AuditLogger, logger logrus.FieldLogger, reason string, grpcAddr, httpAddr net.Addr) {
	err := audit.Emit(logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Decision:  logging.DecisionInfo,
		Reason:    reason,
		Metadata: map[string]any{
			"grpc_addr": grpcAddr.String(),
			"http_addr": httpAddr.String(),
		},
	})
	if err != nil {
		logger.WithError(err).Warn("failed to write audit event")
	}
}
