package relay

import "errors"

// 定义错误
var (
	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("router already started")

	// ErrNotStarted 服务未启动
	ErrNotStarted = errors.New("router not started")

	// ErrInvalidURL URL 不符合 http(s) 绝对地址形态
	ErrInvalidURL = errors.New("invalid url")

	// ErrPeerNotConnected 指定身份没有任何活跃会话
	ErrPeerNotConnected = errors.New("peer not connected")

	// ErrNoExecutor 没有可用的执行者
	ErrNoExecutor = errors.New("no peer available")

	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("session closed")

	// ErrEmptyIdentity 身份为空
	ErrEmptyIdentity = errors.New("peer identity is empty")

	// ErrUnknownSelector 未知的选择策略名称
	ErrUnknownSelector = errors.New("unknown selector strategy")
)
