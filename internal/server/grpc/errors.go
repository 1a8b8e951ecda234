package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusFor lists the sentinels a client can recognise. The status message
// is the sentinel's text, which is how the client matches it.
var statusFor = []struct {
	err  error
	code codes.Code
}{
	{common.ErrVersionConflict, codes.Aborted},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrorUnauthorized, codes.Unauthenticated},
	{common.ErrNotMember, codes.PermissionDenied},
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrInvalidArgument, codes.InvalidArgument},
	{common.ErrAlreadyExists, codes.AlreadyExists},
	{common.ErrCodeTaken, codes.AlreadyExists},
	{common.ErrAllocationExhausted, codes.ResourceExhausted},
}

// toStatus maps a service error to a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			return status.Error(m.code, m.err.Error())
		}
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

// fail logs err and converts it. Refusals are expected traffic and logged at
// debug; everything else is a server fault.
func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := toStatus(err)
	switch status.Code(st) {
	case codes.Internal, codes.Unknown:
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
	default:
		s.logger.Debug(ctx, "request refused", "method", method, "error", err)
	}
	return st
}
