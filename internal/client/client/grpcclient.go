package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fieldkeeper/internal/api"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const defaultPageSize = 100

type GRPCClient struct {
	endpointURL string
	pageSize    int
	dialOpts    []grpc.DialOption

	conn   *grpc.ClientConn
	client api.RecordServiceClient

	mu          sync.RWMutex
	accessToken string
}

// Option configures a GRPCClient.
type Option func(*GRPCClient)

// WithPageSize sets the page size used when walking listings.
func WithPageSize(n int) Option {
	return func(c *GRPCClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithDialOptions appends extra dial options, e.g. a bufconn dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) {
		c.dialOpts = append(c.dialOpts, opts...)
	}
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, pageSize: defaultPageSize}
	for _, o := range opts {
		o(c)
	}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewRecordServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) SetAccessToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

func (s *GRPCClient) Register(ctx context.Context, username, password string) (string, error) {
	resp, err := s.client.Register(ctx, &api.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.CuratorID, nil
}

func (s *GRPCClient) Login(ctx context.Context, username, password string) (string, string, error) {
	resp, err := s.client.Login(ctx, &api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return "", "", s.mapError(err)
	}

	s.SetAccessToken(resp.AccessToken)
	return resp.CuratorID, resp.AccessToken, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != api.StatusOK {
		return fmt.Errorf("%w: %w: %q", common.ErrUnavailable, ErrBadPing, resp.Status)
	}
	return nil
}

// List walks every page of the listing.
func (s *GRPCClient) List(ctx context.Context) ([]models.RemoteEntity, error) {
	var (
		result []models.RemoteEntity
		cursor string
	)
	for {
		resp, err := s.client.ListRecords(ctx, &api.ListRecordsRequest{Cursor: cursor, PageSize: int32(s.pageSize)})
		if err != nil {
			return nil, s.mapError(err)
		}
		for _, r := range resp.Records {
			result = append(result, fromRecord(r))
		}
		if resp.NextCursor == "" {
			return result, nil
		}
		if resp.NextCursor == cursor {
			return nil, ErrCursorStalled
		}
		cursor = resp.NextCursor
	}
}

func (s *GRPCClient) Create(ctx context.Context, records []models.RemoteEntity) (*models.BatchAck, error) {
	req := &api.CreateRecordsRequest{Records: make([]api.Record, 0, len(records))}
	for _, r := range records {
		req.Records = append(req.Records, toRecord(r))
	}

	resp, err := s.client.CreateRecords(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	ack := &models.BatchAck{Accepted: int(resp.Accepted)}
	for _, rj := range resp.Rejected {
		ack.Rejected = append(ack.Rejected, models.RejectedItem{Index: int(rj.Index), Reason: rj.Reason})
	}
	return ack, nil
}

func (s *GRPCClient) Update(ctx context.Context, remoteID string, record models.RemoteEntity) (*models.RemoteEntity, error) {
	rec := toRecord(record)
	rec.ID = remoteID

	resp, err := s.client.UpdateRecord(ctx, &api.UpdateRecordRequest{Record: rec})
	if err != nil {
		return nil, s.mapError(err)
	}
	out := fromRecord(resp.Record)
	return &out, nil
}

func (s *GRPCClient) Delete(ctx context.Context, remoteID string) error {
	if _, err := s.client.DeleteRecord(ctx, &api.DeleteRecordRequest{ID: remoteID}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) PresignAttachment(ctx context.Context, recordID, fileName, method string) (string, string, error) {
	resp, err := s.client.PresignAttachment(ctx, &api.PresignAttachmentRequest{RecordID: recordID, FileName: fileName, Method: method})
	if err != nil {
		return "", "", s.mapError(err)
	}
	return resp.Key, resp.URL, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, st.Message())
	case codes.NotFound, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", common.ErrRemoteRejected, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrValidation, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func toRecord(r models.RemoteEntity) api.Record {
	return api.Record{
		ID:              r.ID,
		SharedGroupID:   r.SharedGroupID,
		OwnerID:         r.OwnerID,
		OriginalOwnerID: r.OriginalOwnerID,
		Name:            r.Name,
		Payload:         r.Payload,
	}
}

func fromRecord(r api.Record) models.RemoteEntity {
	p := models.Payload(r.Payload)
	if p == nil {
		p = models.Payload{}
	}
	return models.RemoteEntity{
		ID:              r.ID,
		SharedGroupID:   r.SharedGroupID,
		OwnerID:         r.OwnerID,
		OriginalOwnerID: r.OriginalOwnerID,
		Name:            r.Name,
		Payload:         p,
		UpdatedAt:       r.UpdatedAt,
	}
}
