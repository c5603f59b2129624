package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"gateserver/mysql"
	"gateserver/redis"
	"gateserver/rpcservice/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	nextUid    int
	regErr     error
	emailMatch bool
	updated    bool
	login      mysql.UserInfo
	loginOk    bool
	registered []string
}

func (f *fakeUsers) RegUserTransaction(ctx context.Context, name, email, pwd string) (int, error) {
	f.registered = append(f.registered, name)
	return f.nextUid, f.regErr
}

func (f *fakeUsers) CheckEmail(ctx context.Context, name, email string) (bool, error) {
	return f.emailMatch, nil
}

func (f *fakeUsers) UpdatePwd(ctx context.Context, name, newpwd string) (bool, error) {
	return f.updated, nil
}

func (f *fakeUsers) CheckPwd(ctx context.Context, name, pwd string) (mysql.UserInfo, bool, error) {
	return f.login, f.loginOk, nil
}

type fakeVerifier struct {
	errCode int32
	calls   int
}

func (f *fakeVerifier) GetVerifyCode(ctx context.Context, email string) *verify.GetVerifyRsp {
	f.calls++
	return &verify.GetVerifyRsp{Error: f.errCode, Email: email}
}

type fakeCodes map[string]string

func (f fakeCodes) GetVerifyCode(ctx context.Context, email string) (string, error) {
	code, ok := f[email]
	if !ok {
		return "", redis.ErrCodeNotFound
	}
	return code, nil
}

type fakeCPU int64

func (c fakeCPU) Usage() int64 { return int64(c) }

type fakeCounter struct{ idle, total int }

func (c fakeCounter) NumIdle() int  { return c.idle }
func (c fakeCounter) NumTotal() int { return c.total }

func newDispatcher(t *testing.T, users *fakeUsers, v *fakeVerifier, codes fakeCodes, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(users, v, codes, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func get(d *Dispatcher, url string, params map[string]string) (*Response, map[string]interface{}) {
	resp := d.Dispatch(context.Background(), &Request{Method: http.MethodGet, Url: url, Params: params})
	body := map[string]interface{}{}
	if resp.ContentType == "text/json" {
		_ = json.Unmarshal(resp.Body, &body)
	}
	return resp, body
}

func TestDispatchUnknown(t *testing.T) {
	d := newDispatcher(t, &fakeUsers{}, &fakeVerifier{}, fakeCodes{})

	resp, _ := get(d, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "url not found\r\n", string(resp.Body))

	resp = d.Dispatch(context.Background(), &Request{Method: http.MethodPost, Url: "/get_test"})
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestGetTest(t *testing.T) {
	d := newDispatcher(t, &fakeUsers{}, &fakeVerifier{}, fakeCodes{})

	resp, body := get(d, "/get_test", map[string]string{"a": "1", "b": ""})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.EqualValues(t, Success, body["error"])
	assert.Equal(t, map[string]interface{}{"a": "1", "b": ""}, body["params"])
}

func TestVerifyCode(t *testing.T) {
	v := &fakeVerifier{}
	d := newDispatcher(t, &fakeUsers{}, v, fakeCodes{})

	_, body := get(d, "/get_varifycode", nil)
	assert.EqualValues(t, Error_Json, body["error"])
	assert.Equal(t, 0, v.calls)

	_, body = get(d, "/get_varifycode", map[string]string{"email": "a@b.c"})
	assert.EqualValues(t, Success, body["error"])
	assert.Equal(t, "a@b.c", body["email"])

	v.errCode = RPCFailed
	_, body = get(d, "/get_varifycode", map[string]string{"email": "a@b.c"})
	assert.EqualValues(t, RPCFailed, body["error"])
	assert.Equal(t, 2, v.calls)
}

func TestVerifyCodeCooldown(t *testing.T) {
	v := &fakeVerifier{}
	d := newDispatcher(t, &fakeUsers{}, v, fakeCodes{}, WithCooldown(time.Minute))
	now := time.Unix(1700000000, 0)
	d.cooldown.now = func() time.Time { return now }

	params := map[string]string{"email": "a@b.c"}
	_, body := get(d, "/get_varifycode", params)
	assert.EqualValues(t, Success, body["error"])

	_, body = get(d, "/get_varifycode", params)
	assert.EqualValues(t, VarifyTooFrequent, body["error"])
	assert.Equal(t, 1, v.calls)

	// other emails are independent
	_, body = get(d, "/get_varifycode", map[string]string{"email": "x@y.z"})
	assert.EqualValues(t, Success, body["error"])

	now = now.Add(time.Minute)
	_, body = get(d, "/get_varifycode", params)
	assert.EqualValues(t, Success, body["error"])
	assert.Equal(t, 3, v.calls)
}

func TestVerifyCodeCooldownForgetsFailures(t *testing.T) {
	v := &fakeVerifier{errCode: RPCFailed}
	d := newDispatcher(t, &fakeUsers{}, v, fakeCodes{}, WithCooldown(time.Minute))

	params := map[string]string{"email": "a@b.c"}
	_, body := get(d, "/get_varifycode", params)
	assert.EqualValues(t, RPCFailed, body["error"])

	v.errCode = Success
	_, body = get(d, "/get_varifycode", params)
	assert.EqualValues(t, Success, body["error"])
	assert.Equal(t, 2, v.calls)
}

func TestRegister(t *testing.T) {
	params := func() map[string]string {
		return map[string]string{
			"user":       "alice",
			"email":      "alice@example.com",
			"passwd":     "secret",
			"confirm":    "secret",
			"varifycode": "1234",
		}
	}

	tests := []struct {
		name   string
		modify func(map[string]string)
		codes  fakeCodes
		uid    int
		regErr error
		want   int
	}{
		{name: "missing field", modify: func(p map[string]string) { delete(p, "confirm") }, want: Error_Json},
		{name: "confirm mismatch", modify: func(p map[string]string) { p["confirm"] = "other" }, want: PasswdErr},
		{name: "code expired", codes: fakeCodes{}, want: VarifyExpired},
		{name: "code mismatch", codes: fakeCodes{"alice@example.com": "9999"}, want: VarifyCodeErr},
		{name: "user exists", codes: fakeCodes{"alice@example.com": "1234"}, uid: 0, want: UserExist},
		{name: "db failure", codes: fakeCodes{"alice@example.com": "1234"}, uid: -1, regErr: errors.New("broken"), want: UserExist},
		{name: "success", codes: fakeCodes{"alice@example.com": "1234"}, uid: 7, want: Success},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsers{nextUid: tt.uid, regErr: tt.regErr}
			d := newDispatcher(t, users, &fakeVerifier{}, tt.codes)
			p := params()
			if tt.modify != nil {
				tt.modify(p)
			}
			_, body := get(d, "/user_register", p)
			assert.EqualValues(t, tt.want, body["error"])
			if tt.want == Success {
				assert.EqualValues(t, tt.uid, body["uid"])
				assert.Equal(t, "alice", body["user"])
				assert.Equal(t, "alice@example.com", body["email"])
			}
		})
	}
}

func TestResetPwd(t *testing.T) {
	codes := fakeCodes{"alice@example.com": "1234"}
	params := map[string]string{"user": "alice", "email": "alice@example.com", "passwd": "n", "varifycode": "1234"}

	d := newDispatcher(t, &fakeUsers{}, &fakeVerifier{}, codes)
	_, body := get(d, "/reset_pwd", params)
	assert.EqualValues(t, EmailNotMatch, body["error"])

	d = newDispatcher(t, &fakeUsers{emailMatch: true}, &fakeVerifier{}, codes)
	_, body = get(d, "/reset_pwd", params)
	assert.EqualValues(t, PasswdUpFailed, body["error"])

	d = newDispatcher(t, &fakeUsers{emailMatch: true, updated: true}, &fakeVerifier{}, codes)
	_, body = get(d, "/reset_pwd", params)
	assert.EqualValues(t, Success, body["error"])

	_, body = get(d, "/reset_pwd", map[string]string{"user": "alice", "email": "alice@example.com", "passwd": "n", "varifycode": "0000"})
	assert.EqualValues(t, VarifyCodeErr, body["error"])
}

func TestLogin(t *testing.T) {
	users := &fakeUsers{}
	d := newDispatcher(t, users, &fakeVerifier{}, fakeCodes{})

	_, body := get(d, "/user_login", map[string]string{"user": "alice"})
	assert.EqualValues(t, Error_Json, body["error"])

	_, body = get(d, "/user_login", map[string]string{"user": "alice", "passwd": "x"})
	assert.EqualValues(t, PasswdInvalid, body["error"])

	users.loginOk = true
	users.login = mysql.UserInfo{Uid: 3, Name: "alice", Email: "alice@example.com", Pwd: "x"}
	resp, body := get(d, "/user_login", map[string]string{"user": "alice", "passwd": "x"})
	assert.EqualValues(t, Success, body["error"])
	assert.EqualValues(t, 3, body["uid"])
	assert.NotContains(t, string(resp.Body), "pwd")
}

func TestHealthCheck(t *testing.T) {
	d := newDispatcher(t, &fakeUsers{}, &fakeVerifier{}, fakeCodes{},
		WithCPU(fakeCPU(12)),
		WithPool("mysql", fakeCounter{idle: 4, total: 5}),
		WithPool("rpc", fakeCounter{idle: 5, total: 5}),
	)
	_, body := get(d, "/health_check", nil)
	assert.EqualValues(t, Success, body["error"])
	assert.EqualValues(t, 12, body["cpu"])
	pools := body["pools"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"idle": float64(4), "total": float64(5)}, pools["mysql"])
	assert.Equal(t, map[string]interface{}{"idle": float64(5), "total": float64(5)}, pools["rpc"])
}
