package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// knownErrors are recognised by their status message, which the server sets
// to the sentinel's text.
var knownErrors = []error{
	common.ErrVersionConflict,
	common.ErrorNotFound,
	common.ErrorUnauthorized,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
	common.ErrCodeTaken,
	common.ErrAllocationExhausted,
	common.ErrInvalidArgument,
	common.ErrAlreadyExists,
	common.ErrNotMember,
}

func sentinel(msg string) error {
	for _, e := range knownErrors {
		if e.Error() == msg {
			return e
		}
	}
	return nil
}

// mapError classifies a gRPC error. Transient failures wrap
// common.ErrTransientNetwork; everything the server refused wraps
// common.ErrRemoteRejected together with the matching sentinel when there
// is one.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}

	known := sentinel(st.Message())
	switch st.Code() {
	case codes.Aborted:
		if known == common.ErrVersionConflict {
			return fmt.Errorf("%w: %w", common.ErrRemoteRejected, common.ErrVersionConflict)
		}
		return fmt.Errorf("%w: %s", common.ErrTransientNetwork, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", common.ErrTransientNetwork, st.Message())
	case codes.Unauthenticated, codes.PermissionDenied:
		if known == nil {
			known = common.ErrorUnauthorized
		}
		return fmt.Errorf("%w: %w", common.ErrRemoteRejected, known)
	case codes.NotFound:
		return fmt.Errorf("%w: %w", common.ErrRemoteRejected, common.ErrorNotFound)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists:
		if known != nil {
			return fmt.Errorf("%w: %w", common.ErrRemoteRejected, known)
		}
		return fmt.Errorf("%w: %s", common.ErrRemoteRejected, st.Message())
	case codes.Canceled:
		return fmt.Errorf("rpc canceled: %w", context.Canceled)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
