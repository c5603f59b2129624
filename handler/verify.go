package handler

import (
	"context"

	"gateserver/util/log"
)

type VerifyCodeHandler struct {
	d      *Dispatcher
	Params map[string]string
}

func (h *VerifyCodeHandler) Handle(ctx context.Context) *GateResp {
	values, ok := requireParams(h.Params, "email")
	if !ok {
		return &GateResp{Error: Error_Json}
	}
	email := values[0]
	if h.d.cooldown != nil && !h.d.cooldown.allow(email) {
		log.Infof("verify code for %s requested too frequently", email)
		return &GateResp{Error: VarifyTooFrequent, Email: email}
	}

	rsp := h.d.verifier.GetVerifyCode(ctx, email)
	if rsp.Error != Success && h.d.cooldown != nil {
		h.d.cooldown.forget(email)
	}
	log.Infof("get verify code for %s error %d", email, rsp.Error)
	return &GateResp{Error: int(rsp.Error), Email: email}
}
