package clusterserver

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// ErrorCodeHeader carries the domain error code of a failed RPC.
const ErrorCodeHeader = "Rm-Error-Code"

// toConnectError converts a handler error into a connect error.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}

	var de *domain.DomainError
	if !errors.As(err, &de) {
		if errors.Is(err, context.DeadlineExceeded) {
			return connect.NewError(connect.CodeDeadlineExceeded, err)
		}
		if errors.Is(err, context.Canceled) {
			return connect.NewError(connect.CodeCanceled, err)
		}
		return connect.NewError(connect.CodeInternal, err)
	}

	msg := de.Message
	if de.Details != "" {
		msg += ": " + de.Details
	}
	out := connect.NewError(codeFor(de.Code), errors.New(msg))
	out.Meta().Set(ErrorCodeHeader, de.Code)
	return out
}

// codeFor maps an RM-AREA-NNNN code to a connect code.
func codeFor(code string) connect.Code {
	suffix := code
	if i := strings.LastIndexByte(code, '-'); i >= 0 {
		suffix = code[i+1:]
	}
	switch {
	case strings.HasPrefix(suffix, "1"), strings.HasPrefix(suffix, "400"):
		return connect.CodeInvalidArgument
	case strings.HasPrefix(suffix, "403"):
		return connect.CodePermissionDenied
	case strings.HasPrefix(suffix, "404"):
		return connect.CodeNotFound
	case strings.HasPrefix(suffix, "409"):
		return connect.CodeAlreadyExists
	case strings.HasPrefix(suffix, "429"):
		return connect.CodeResourceExhausted
	case strings.HasPrefix(suffix, "503"):
		return connect.CodeUnavailable
	case strings.HasPrefix(suffix, "504"):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}

// fromConnectError converts a client-side RPC error into a domain error.
func fromConnectError(member domain.Member, err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if !errors.As(err, &ce) {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ErrPeerTimeout.WithDetails(member.Address).WithCause(err)
		}
		return domain.ErrPeerUnreachable.WithDetails(member.Address).WithCause(err)
	}
	if code := ce.Meta().Get(ErrorCodeHeader); code != "" {
		return &domain.DomainError{
			Code:    code,
			Message: ce.Message(),
			Details: member.Address,
		}
	}
	switch ce.Code() {
	case connect.CodeDeadlineExceeded:
		return domain.ErrPeerTimeout.WithDetails(member.Address).WithCause(err)
	default:
		return domain.ErrPeerUnreachable.WithDetails(member.Address).WithCause(err)
	}
}
