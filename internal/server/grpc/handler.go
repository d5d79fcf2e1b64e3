package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fieldkeeper/internal/api"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC status codes. Internal details are
// logged, not returned.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, services.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(ctx, "internal error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) requireCurator(ctx context.Context) (string, error) {
	id, ok := curatorIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing curator")
	}
	return id, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {

	id, err := s.curators.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username, "curator", id)
	return &api.RegisterResponse{CuratorID: id}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {

	sess, err := s.curators.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.LoginResponse{CuratorID: sess.CuratorID, AccessToken: sess.AccessToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {

	return &api.PingResponse{Status: api.StatusOK}, nil

}

func (s *GRPCServer) ListRecords(ctx context.Context, req *api.ListRecordsRequest) (*api.ListRecordsResponse, error) {
	if _, err := s.requireCurator(ctx); err != nil {
		return nil, err
	}

	list, next, err := s.records.List(ctx, req.Cursor, int(req.PageSize))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &api.ListRecordsResponse{Records: make([]api.Record, 0, len(list)), NextCursor: next}
	for _, r := range list {
		resp.Records = append(resp.Records, toAPIRecord(r))
	}
	return resp, nil
}

func (s *GRPCServer) CreateRecords(ctx context.Context, req *api.CreateRecordsRequest) (*api.CreateRecordsResponse, error) {
	curatorID, err := s.requireCurator(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]*models.Record, 0, len(req.Records))
	for _, r := range req.Records {
		batch = append(batch, fromAPIRecord(r))
	}

	accepted, rejected, err := s.records.CreateBatch(ctx, curatorID, batch)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &api.CreateRecordsResponse{Accepted: int32(accepted)}
	for _, rj := range rejected {
		resp.Rejected = append(resp.Rejected, api.RejectedRecord{Index: int32(rj.Index), Reason: rj.Reason})
	}
	return resp, nil
}

func (s *GRPCServer) UpdateRecord(ctx context.Context, req *api.UpdateRecordRequest) (*api.UpdateRecordResponse, error) {
	curatorID, err := s.requireCurator(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.records.Update(ctx, curatorID, fromAPIRecord(req.Record))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UpdateRecordResponse{Record: toAPIRecord(out)}, nil
}

func (s *GRPCServer) DeleteRecord(ctx context.Context, req *api.DeleteRecordRequest) (*api.DeleteRecordResponse, error) {
	curatorID, err := s.requireCurator(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.records.Delete(ctx, curatorID, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.DeleteRecordResponse{}, nil
}

func (s *GRPCServer) PresignAttachment(ctx context.Context, req *api.PresignAttachmentRequest) (*api.PresignAttachmentResponse, error) {
	curatorID, err := s.requireCurator(ctx)
	if err != nil {
		return nil, err
	}

	key, url, err := s.attachments.Presign(ctx, curatorID, req.RecordID, req.FileName, req.Method)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.PresignAttachmentResponse{Key: key, URL: url}, nil
}

func toAPIRecord(r *models.Record) api.Record {
	return api.Record{
		ID:              r.ID,
		SharedGroupID:   r.SharedGroupID,
		OwnerID:         r.OwnerID,
		OriginalOwnerID: r.OriginalOwnerID,
		Name:            r.Name,
		Payload:         r.Payload,
		UpdatedAt:       r.UpdatedAt,
	}
}

func fromAPIRecord(r api.Record) *models.Record {
	return &models.Record{
		ID:              r.ID,
		SharedGroupID:   r.SharedGroupID,
		OwnerID:         r.OwnerID,
		OriginalOwnerID: r.OriginalOwnerID,
		Name:            r.Name,
		Payload:         r.Payload,
	}
}
