package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/anemia-history/internal/adapter/handler/pb"
	"github.com/rl1809/anemia-history/internal/core/domain"
)

type GRPCHandler struct {
	intake  Submitter
	history HistoryReader
	logger  *zap.Logger
}

var _ pb.HistoryServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(intake Submitter, history HistoryReader, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{intake: intake, history: history, logger: logger}
}

func (h *GRPCHandler) Submit(ctx context.Context, req *pb.SubmitRequest) (*pb.SubmitResponse, error) {
	sub, err := domain.ParseSubmission(req.Submission)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	record, err := h.intake.Submit(ctx, sub)
	if err != nil {
		h.logger.Error("grpc submit failed", zap.Error(err))

		if errors.Is(err, domain.ErrPredictionUnavailable) {
			return nil, status.Error(codes.Unavailable, "prediction service unavailable")
		}
		if errors.Is(err, domain.ErrPersistence) {
			return nil, status.Error(codes.Internal, "failed to save record")
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &pb.SubmitResponse{Record: record}, nil
}

func (h *GRPCHandler) List(ctx context.Context, req *pb.ListRequest) (*pb.ListResponse, error) {
	return &pb.ListResponse{Records: h.history.List(ctx)}, nil
}

func (h *GRPCHandler) Delete(ctx context.Context, req *pb.DeleteRequest) (*pb.DeleteResponse, error) {
	deleted, err := h.history.Delete(ctx, req.ID)
	if err != nil {
		h.logger.Error("grpc delete failed", zap.String("record_id", req.ID), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to delete record")
	}

	return &pb.DeleteResponse{
		Deleted: deleted,
		Message: "Deleted",
	}, nil
}
