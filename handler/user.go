package handler

import (
	"context"
	"errors"

	"gateserver/redis"
	"gateserver/util/log"
)

// checkVerifyCode compares code against the one the verify service stored
// for email.
func (d *Dispatcher) checkVerifyCode(ctx context.Context, email, code string) int {
	stored, err := d.codes.GetVerifyCode(ctx, email)
	if err != nil {
		if !errors.Is(err, redis.ErrCodeNotFound) {
			log.Warnf("read verify code of %s: %v", email, err)
		}
		return VarifyExpired
	}
	if stored != code {
		return VarifyCodeErr
	}
	return Success
}

type RegisterHandler struct {
	d      *Dispatcher
	Params map[string]string
}

func (h *RegisterHandler) Handle(ctx context.Context) *GateResp {
	values, ok := requireParams(h.Params, "user", "email", "passwd", "confirm", "varifycode")
	if !ok {
		return &GateResp{Error: Error_Json}
	}
	name, email, pwd, confirm, code := values[0], values[1], values[2], values[3], values[4]
	if pwd != confirm {
		return &GateResp{Error: PasswdErr}
	}
	if rc := h.d.checkVerifyCode(ctx, email, code); rc != Success {
		return &GateResp{Error: rc}
	}

	uid, err := h.d.users.RegUserTransaction(ctx, name, email, pwd)
	if err != nil {
		log.Errorf("register user %s: %v", name, err)
	}
	if uid <= 0 {
		log.Infof("user %s or email %s exists, uid %d", name, email, uid)
		return &GateResp{Error: UserExist}
	}
	return &GateResp{Error: Success, Uid: uid, User: name, Email: email}
}

type ResetPwdHandler struct {
	d      *Dispatcher
	Params map[string]string
}

func (h *ResetPwdHandler) Handle(ctx context.Context) *GateResp {
	values, ok := requireParams(h.Params, "user", "email", "passwd", "varifycode")
	if !ok {
		return &GateResp{Error: Error_Json}
	}
	name, email, pwd, code := values[0], values[1], values[2], values[3]
	if rc := h.d.checkVerifyCode(ctx, email, code); rc != Success {
		return &GateResp{Error: rc}
	}

	match, err := h.d.users.CheckEmail(ctx, name, email)
	if err != nil {
		log.Errorf("check email of %s: %v", name, err)
	}
	if !match {
		return &GateResp{Error: EmailNotMatch}
	}
	updated, err := h.d.users.UpdatePwd(ctx, name, pwd)
	if err != nil {
		log.Errorf("update passwd of %s: %v", name, err)
	}
	if !updated {
		return &GateResp{Error: PasswdUpFailed}
	}
	return &GateResp{Error: Success, User: name, Email: email}
}

type LoginHandler struct {
	d      *Dispatcher
	Params map[string]string
}

func (h *LoginHandler) Handle(ctx context.Context) *GateResp {
	values, ok := requireParams(h.Params, "user", "passwd")
	if !ok {
		return &GateResp{Error: Error_Json}
	}
	info, ok, err := h.d.users.CheckPwd(ctx, values[0], values[1])
	if err != nil {
		log.Errorf("check passwd of %s: %v", values[0], err)
	}
	if !ok {
		return &GateResp{Error: PasswdInvalid}
	}
	return &GateResp{Error: Success, Uid: info.Uid, User: info.Name, Email: info.Email}
}
