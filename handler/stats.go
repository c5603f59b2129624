package handler

import (
	"context"
)

type TestHandler struct {
	Params map[string]string
}

func (h *TestHandler) Handle(ctx context.Context) *GateResp {
	return &GateResp{Error: Success, Params: h.Params}
}

type HealthHandler struct {
	d *Dispatcher
}

func (h *HealthHandler) Handle(ctx context.Context) *GateResp {
	resp := &GateResp{Error: Success}
	if h.d.cpu != nil {
		usage := h.d.cpu.Usage()
		resp.Cpu = &usage
	}
	if len(h.d.pools) > 0 {
		resp.Pools = make(map[string]PoolStats, len(h.d.pools))
		for name, p := range h.d.pools {
			resp.Pools[name] = PoolStats{Idle: p.NumIdle(), Total: p.NumTotal()}
		}
	}
	return resp
}
