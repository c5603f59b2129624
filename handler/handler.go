package handler

import (
	"context"
	"net/http"
	"time"

	"gateserver/metrics"
	"gateserver/mysql"
	"gateserver/rpcservice/verify"
	"gateserver/util/log"

	jsoniter "github.com/json-iterator/go"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Request is a parsed GET request: the path and its query parameters.
type Request struct {
	Method string
	Url    string
	Params map[string]string
}

type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// GateResp is the JSON body every handler answers with.
type GateResp struct {
	Error  int                  `json:"error"`
	Uid    int                  `json:"uid,omitempty"`
	User   string               `json:"user,omitempty"`
	Email  string               `json:"email,omitempty"`
	Params map[string]string    `json:"params,omitempty"`
	Cpu    *int64               `json:"cpu,omitempty"`
	Pools  map[string]PoolStats `json:"pools,omitempty"`
}

type PoolStats struct {
	Idle  int `json:"idle"`
	Total int `json:"total"`
}

type Handler interface {
	Handle(ctx context.Context) *GateResp
}

type UserStore interface {
	RegUserTransaction(ctx context.Context, name, email, pwd string) (int, error)
	CheckEmail(ctx context.Context, name, email string) (bool, error)
	UpdatePwd(ctx context.Context, name, newpwd string) (bool, error)
	CheckPwd(ctx context.Context, name, pwd string) (mysql.UserInfo, bool, error)
}

type Verifier interface {
	GetVerifyCode(ctx context.Context, email string) *verify.GetVerifyRsp
}

type CodeStore interface {
	GetVerifyCode(ctx context.Context, email string) (string, error)
}

type CPUReader interface {
	Usage() int64
}

type PoolCounter interface {
	NumIdle() int
	NumTotal() int
}

// Dispatcher maps a parsed request onto one of the gate's handlers.
type Dispatcher struct {
	users    UserStore
	verifier Verifier
	codes    CodeStore
	cooldown *cooldown
	cpu      CPUReader
	pools    map[string]PoolCounter
}

type Option func(*Dispatcher) error

// WithCooldown refuses a second verify code request for the same email
// within window.
func WithCooldown(window time.Duration) Option {
	return func(d *Dispatcher) error {
		if window <= 0 {
			return nil
		}
		c, err := newCooldown(window)
		if err != nil {
			return err
		}
		d.cooldown = c
		return nil
	}
}

func WithCPU(cpu CPUReader) Option {
	return func(d *Dispatcher) error {
		d.cpu = cpu
		return nil
	}
}

func WithPool(name string, p PoolCounter) Option {
	return func(d *Dispatcher) error {
		d.pools[name] = p
		return nil
	}
}

func NewDispatcher(users UserStore, verifier Verifier, codes CodeStore, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		users:    users,
		verifier: verifier,
		codes:    codes,
		pools:    make(map[string]PoolCounter),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dispatcher) NewHandler(req *Request) (Handler, bool) {
	if req.Method != http.MethodGet {
		return nil, false
	}
	switch req.Url {
	case "/get_test":
		return &TestHandler{Params: req.Params}, true
	case "/get_varifycode":
		return &VerifyCodeHandler{d: d, Params: req.Params}, true
	case "/user_register":
		return &RegisterHandler{d: d, Params: req.Params}, true
	case "/reset_pwd":
		return &ResetPwdHandler{d: d, Params: req.Params}, true
	case "/user_login":
		return &LoginHandler{d: d, Params: req.Params}, true
	case "/health_check":
		return &HealthHandler{d: d}, true
	default:
		return nil, false
	}
}

// Dispatch runs the handler for req and renders its JSON body. Unknown
// paths and methods get a plain 404.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	start := time.Now()
	hdr, ok := d.NewHandler(req)
	if !ok {
		metrics.ObserveRequest("unknown", http.StatusNotFound, time.Since(start).Seconds())
		return &Response{
			Status:      http.StatusNotFound,
			ContentType: "text/plain",
			Body:        []byte("url not found\r\n"),
		}
	}

	resp := hdr.Handle(ctx)
	b, err := json.Marshal(resp)
	if err != nil {
		log.Error("json.Marshal", err)
		resp = &GateResp{Error: Error_Json}
		b, _ = json.Marshal(resp)
	}
	metrics.ObserveRequest(req.Url, resp.Error, time.Since(start).Seconds())
	return &Response{
		Status:      http.StatusOK,
		ContentType: "text/json",
		Body:        b,
	}
}

func (d *Dispatcher) Close() error {
	if d.cooldown != nil {
		return d.cooldown.Close()
	}
	return nil
}

// requireParams returns the values of keys, or false if any is empty.
func requireParams(params map[string]string, keys ...string) ([]string, bool) {
	values := make([]string, len(keys))
	for i, k := range keys {
		v := params[k]
		if v == "" {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}
