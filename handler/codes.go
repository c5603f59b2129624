package handler

const (
	Success           = 0
	Error_Json        = 1001 // Json解析错误
	RPCFailed         = 1002 // RPC请求错误
	VarifyExpired     = 1003 // 验证码过期
	VarifyCodeErr     = 1004 // 验证码错误
	UserExist         = 1005 // 用户已经存在
	PasswdErr         = 1006 // 密码错误
	EmailNotMatch     = 1007 // 邮箱不匹配
	PasswdUpFailed    = 1008 // 更新密码失败
	PasswdInvalid     = 1009 // 密码校验失败
	VarifyTooFrequent = 1010 // 验证码请求过于频繁
)
