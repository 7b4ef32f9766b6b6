// Package grpc serves the companion.gateway.v1.Gateway service declared in
// gatewayrpc on top of the record and blob services.
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"github.com/dmitrijs2005/companion/internal/logging"
	"google.golang.org/grpc"
)

// RecordStore is the record side of the gateway.
type RecordStore interface {
	Fetch(ctx context.Context, userID, entity string, f gatewayrpc.Filter) ([]json.RawMessage, error)
	Upsert(ctx context.Context, userID, entity string, records []json.RawMessage) error
	Delete(ctx context.Context, userID, entity, id string) error
}

// BlobSigner is the blob side of the gateway.
type BlobSigner interface {
	Sign(ctx context.Context, userID string, req gatewayrpc.SignRequest) (string, error)
	Remove(ctx context.Context, userID, path string) error
}

type GRPCServer struct {
	address   string
	records   RecordStore
	blobs     BlobSigner
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, records RecordStore, blobs BlobSigner, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		records:   records,
		blobs:     blobs,
		jwtSecret: []byte(secretKey),
	}
}

// NewServer builds a grpc.Server with the gateway registered behind the
// access-token interceptor.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	gatewayrpc.RegisterGatewayServer(srv, s)
	return srv
}

// Run listens on the configured address until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run over an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.NewServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	<-stopped
	return nil
}
