package interceptors

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"food-delivery-platform/auth/internal/guard"
)

func TestLoggingUnary(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingUnary(zerolog.New(&buf), map[string]bool{"/grpc.health.v1.Health/Check": true})

	ctx := guard.WithIdentity(context.Background(), guard.Identity{UserID: "u1"})
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: protectedMethod}, func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.PermissionDenied, "Access denied")
	})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("err = %v, want handler error passed through", err)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" || line["code"] != "PermissionDenied" || line["method"] != protectedMethod || line["user_id"] != "u1" {
		t.Errorf("log line = %v", line)
	}

	buf.Reset()
	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, func(context.Context, interface{}) (interface{}, error) {
		return nil, nil
	})
	if buf.Len() != 0 {
		t.Errorf("skipped method logged: %s", buf.String())
	}
}

func TestRecoveryUnary(t *testing.T) {
	var buf bytes.Buffer
	interceptor := RecoveryUnary(zerolog.New(&buf))
	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: protectedMethod}, func(context.Context, interface{}) (interface{}, error) {
		panic("boom")
	})
	if resp != nil {
		t.Errorf("resp = %v, want nil", resp)
	}
	if status.Code(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", status.Code(err))
	}
	if !bytes.Contains(buf.Bytes(), []byte("rpc panicked")) {
		t.Errorf("panic not logged: %s", buf.String())
	}
}
