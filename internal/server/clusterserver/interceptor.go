package clusterserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// DefaultIdentityKey is the header carrying the inter-node identity.
const DefaultIdentityKey = "Rm-Server-Identity"

// LoggingInterceptor logs all RPC requests and responses.
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor.
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingInterceptor{logger: logger}
}

// WrapUnary implements connect.Interceptor.
func (i *LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()

		resp, err := next(ctx, req)

		duration := time.Since(start)
		if err != nil {
			i.logger.Warn("cluster rpc error",
				"method", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"duration_ms", duration.Milliseconds(),
				"code", connect.CodeOf(err).String(),
				"error", err)
		} else {
			i.logger.Debug("cluster rpc",
				"method", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"duration_ms", duration.Milliseconds())
		}

		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// AuthInterceptor checks the inter-node identity header.
//
// Every peer is configured with the same identity key and value. A request
// whose header does not match is rejected with CodeUnauthenticated. An empty
// value disables the check.
type AuthInterceptor struct {
	logger *slog.Logger
	key    string
	value  []byte
}

// AuthConfig configures the auth interceptor.
type AuthConfig struct {
	// IdentityKey is the header name. Defaults to DefaultIdentityKey.
	IdentityKey string

	// IdentityValue is the shared secret. Empty disables authentication.
	IdentityValue string

	// Logger for auth events.
	Logger *slog.Logger
}

// NewAuthInterceptor creates a new auth interceptor.
func NewAuthInterceptor(cfg AuthConfig) *AuthInterceptor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdentityKey == "" {
		cfg.IdentityKey = DefaultIdentityKey
	}

	return &AuthInterceptor{
		logger: cfg.Logger,
		key:    cfg.IdentityKey,
		value:  []byte(cfg.IdentityValue),
	}
}

// WrapUnary implements connect.Interceptor.
func (i *AuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			if len(i.value) > 0 {
				req.Header().Set(i.key, string(i.value))
			}
			return next(ctx, req)
		}

		if err := i.authenticate(req.Header().Get(i.key)); err != nil {
			i.logger.Warn("cluster rpc auth failed",
				"method", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"error", err)

			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}

		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *AuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *AuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if err := i.authenticate(conn.RequestHeader().Get(i.key)); err != nil {
			return connect.NewError(connect.CodeUnauthenticated, err)
		}
		return next(ctx, conn)
	}
}

func (i *AuthInterceptor) authenticate(presented string) error {
	if len(i.value) == 0 {
		return nil
	}
	if presented == "" {
		return errors.New("missing server identity")
	}
	if subtle.ConstantTimeCompare([]byte(presented), i.value) != 1 {
		return errors.New("server identity mismatch")
	}
	return nil
}

// RecoveryInterceptor recovers from panics.
type RecoveryInterceptor struct {
	logger *slog.Logger
}

// NewRecoveryInterceptor creates a new recovery interceptor.
func NewRecoveryInterceptor(logger *slog.Logger) *RecoveryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryInterceptor{logger: logger}
}

// WrapUnary implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
		defer func() {
			if r := recover(); r != nil {
				i.logger.Error("cluster rpc panic recovered",
					"method", req.Spec().Procedure,
					"panic", r)

				err = connect.NewError(connect.CodeInternal,
					fmt.Errorf("internal server error: panic recovered"))
			}
		}()

		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// DefaultInterceptors returns the server-side interceptor chain.
func DefaultInterceptors(logger *slog.Logger, auth AuthConfig) []connect.Interceptor {
	if auth.Logger == nil {
		auth.Logger = logger
	}
	return []connect.Interceptor{
		NewRecoveryInterceptor(logger),
		NewLoggingInterceptor(logger),
		NewAuthInterceptor(auth),
	}
}
