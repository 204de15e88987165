package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/ApplyMove"}

func TestChainUnaryInterceptorsOrder(t *testing.T) {
	var calls []string
	tag := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			calls = append(calls, name+" in")
			resp, err := handler(ctx, req)
			calls = append(calls, name+" out")
			return resp, err
		}
	}
	chain := ChainUnaryInterceptors(tag("a"), tag("b"))

	resp, err := chain(context.Background(), "req", testInfo, func(ctx context.Context, req any) (any, error) {
		calls = append(calls, "handler")
		return req, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req", resp)
	assert.Equal(t, []string{"a in", "b in", "handler", "b out", "a out"}, calls)
}

func TestChainUnaryInterceptorsEmpty(t *testing.T) {
	resp, err := ChainUnaryInterceptors()(context.Background(), 1, testInfo, func(ctx context.Context, req any) (any, error) {
		return req.(int) + 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp)
}

func TestRecoveryInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	interceptor := RecoveryInterceptor(zap.New(core))

	_, err := interceptor(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, testInfo.FullMethod, logs.All()[0].ContextMap()["method"])
}

func TestLoggingInterceptorLevels(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level zapcore.Level
	}{
		{"ok", nil, zapcore.DebugLevel},
		{"rejected", status.Error(codes.NotFound, "match not found"), zapcore.InfoLevel},
		{"internal", errors.New("disk on fire"), zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			interceptor := LoggingInterceptor(zap.New(core))

			_, err := interceptor(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
				return nil, tt.err
			})
			assert.Equal(t, tt.err, err)
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "unknown", entry.ContextMap()["peer"])
		})
	}
}
