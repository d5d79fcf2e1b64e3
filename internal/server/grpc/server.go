// Package grpc exposes the reference server over gRPC using the hand-written
// RecordService descriptor from internal/api.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/fieldkeeper/internal/api"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/services"
	"google.golang.org/grpc"
)

type CuratorService interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (*services.Session, error)
}

type RecordService interface {
	List(ctx context.Context, cursor string, pageSize int) ([]*models.Record, string, error)
	CreateBatch(ctx context.Context, curatorID string, batch []*models.Record) (int, []services.Rejection, error)
	Update(ctx context.Context, curatorID string, r *models.Record) (*models.Record, error)
	Delete(ctx context.Context, curatorID, id string) error
}

type AttachmentService interface {
	Presign(ctx context.Context, curatorID, recordID, fileName, method string) (string, string, error)
}

type GRPCServer struct {
	api.UnimplementedRecordServiceServer
	address     string
	curators    CuratorService
	records     RecordService
	attachments AttachmentService
	logger      logging.Logger
	jwtSecret   []byte
}

func NewGRPCServer(a string, l logging.Logger, cs CuratorService, rs RecordService, as AttachmentService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		curators:    cs,
		records:     rs,
		attachments: as,
		jwtSecret:   []byte(secretKey),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	api.RegisterRecordServiceServer(srv, s)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	err := srv.Serve(lis)
	cancel()
	<-stopped
	return err
}
