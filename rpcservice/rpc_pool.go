package rpcservice

import (
	"net"

	"gateserver/pool"
	"gateserver/rpcservice/verify"
)

const (
	POOL_SIZE = 5
)

// RPConPool is a fixed set of verify stubs. Unlike the mysql pool it never
// probes or replaces a stub; a failing call hands the stub back untouched.
type RPConPool struct {
	*pool.Pool[*verify.ServiceClient]
	addr string
}

func NewRPConPool(poolSize int, host, port string) (*RPConPool, error) {
	if poolSize <= 0 {
		poolSize = POOL_SIZE
	}
	addr := net.JoinHostPort(host, port)
	p, err := pool.New(poolSize, func() (*verify.ServiceClient, error) {
		return verify.Dial(addr)
	}, pool.WithDestroyer(closeStub))
	if err != nil {
		return nil, err
	}
	return &RPConPool{Pool: p, addr: addr}, nil
}

func closeStub(c *verify.ServiceClient) error {
	return c.Close()
}

func (p *RPConPool) Addr() string {
	return p.addr
}
