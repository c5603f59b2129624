package rpcservice

import (
	"context"
	"time"

	"gateserver/rpcservice/verify"
	"gateserver/util/log"
)

// RPCFailed is the in-band code put in a response the gate built itself
// because the verify service could not be reached.
const RPCFailed = 1002

type VerifyGrpcClient struct {
	pool    *RPConPool
	timeout time.Duration
}

// NewVerifyGrpcClient wraps pool. A zero timeout leaves calls bounded only by
// the caller's context.
func NewVerifyGrpcClient(pool *RPConPool, timeout time.Duration) *VerifyGrpcClient {
	return &VerifyGrpcClient{pool: pool, timeout: timeout}
}

func (c *VerifyGrpcClient) Pool() *RPConPool {
	return c.pool
}

// GetVerifyCode asks the verify service to issue a code for email. Transport
// and remote failures come back as a response carrying RPCFailed.
func (c *VerifyGrpcClient) GetVerifyCode(ctx context.Context, email string) *verify.GetVerifyRsp {
	stub, err := c.pool.Acquire()
	if err != nil {
		log.Warnf("verify pool unavailable: %v", err)
		return &verify.GetVerifyRsp{Error: RPCFailed, Email: email}
	}
	defer c.pool.Release(stub)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	rsp, err := stub.Conn.GetVerifyCode(ctx, &verify.GetVerifyReq{Email: email})
	if err != nil {
		log.Warnf("GetVerifyCode %s from %s: %v", email, c.pool.Addr(), err)
		return &verify.GetVerifyRsp{Error: RPCFailed, Email: email}
	}
	return rsp
}
