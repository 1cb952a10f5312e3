package strategy

import "errors"

var (
	// ErrInvalidConfig 表示策略参数非法。
	ErrInvalidConfig = errors.New("invalid strategy config")
	// ErrUnknownStrategy 表示请求了未注册的策略。
	ErrUnknownStrategy = errors.New("unknown strategy")
)
