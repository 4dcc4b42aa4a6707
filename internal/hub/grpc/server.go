// Package grpc serves the note store over gRPC for grpcstore clients.
package grpc

import (
	"context"
	"net"

	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/plugins/grpcstore"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address   string
	store     Store
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, store Store, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		store:     store,
		jwtSecret: []byte(secretKey),
	}
}

// register builds a grpc.Server with the auth interceptor and the note
// store service attached.
func (s *GRPCServer) register() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	grpcstore.RegisterNoteStoreServer(srv, &handler{store: s.store, logger: s.logger})
	return srv
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.register()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}
