package rpcservice

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"gateserver/rpcservice/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeVerifyService struct {
	calls atomic.Int32
}

func (s *fakeVerifyService) GetVerifyCode(ctx context.Context, req *verify.GetVerifyReq) (*verify.GetVerifyRsp, error) {
	s.calls.Add(1)
	if req.Email == "broken@example.com" {
		return nil, status.Error(codes.Internal, "smtp down")
	}
	return &verify.GetVerifyRsp{Email: req.Email, Code: "4242"}, nil
}

func startVerifyServer(t *testing.T) (host, port string, svc *fakeVerifyService) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := grpc.NewServer(grpc.ForceServerCodec(verify.Codec{}))
	svc = &fakeVerifyService{}
	verify.RegisterVerifyService(s, svc)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	host, port, err = net.SplitHostPort(lis.Addr().String())
	require.NoError(t, err)
	return host, port, svc
}

func newClient(t *testing.T, size int, host, port string) *VerifyGrpcClient {
	t.Helper()
	p, err := NewRPConPool(size, host, port)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return NewVerifyGrpcClient(p, 3*time.Second)
}

func TestGetVerifyCodeSuccess(t *testing.T) {
	host, port, svc := startVerifyServer(t)
	c := newClient(t, 2, host, port)

	rsp := c.GetVerifyCode(context.Background(), "alice@example.com")
	assert.EqualValues(t, 0, rsp.Error)
	assert.Equal(t, "alice@example.com", rsp.Email)
	assert.Equal(t, "4242", rsp.Code)
	assert.EqualValues(t, 1, svc.calls.Load())
	assert.Equal(t, 2, c.Pool().NumIdle())
}

func TestGetVerifyCodeRemoteError(t *testing.T) {
	host, port, _ := startVerifyServer(t)
	c := newClient(t, 1, host, port)

	rsp := c.GetVerifyCode(context.Background(), "broken@example.com")
	assert.EqualValues(t, RPCFailed, rsp.Error)
	assert.Empty(t, rsp.Code)

	// the same stub keeps serving
	assert.Equal(t, 1, c.Pool().NumIdle())
	assert.Equal(t, 1, c.Pool().NumTotal())
	rsp = c.GetVerifyCode(context.Background(), "alice@example.com")
	assert.EqualValues(t, 0, rsp.Error)
}

func TestGetVerifyCodeBackendUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(lis.Addr().String())
	lis.Close()

	c := newClient(t, 3, host, port)
	for i := 0; i < 5; i++ {
		rsp := c.GetVerifyCode(context.Background(), "alice@example.com")
		assert.EqualValues(t, RPCFailed, rsp.Error)
	}
	assert.Equal(t, 3, c.Pool().NumIdle())
	assert.Equal(t, 3, c.Pool().NumTotal())
}

func TestGetVerifyCodeAfterPoolClose(t *testing.T) {
	host, port, svc := startVerifyServer(t)
	c := newClient(t, 1, host, port)
	c.Pool().Close()

	rsp := c.GetVerifyCode(context.Background(), "alice@example.com")
	assert.EqualValues(t, RPCFailed, rsp.Error)
	assert.EqualValues(t, 0, svc.calls.Load())
}
