package peerproxy

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 中继未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 中继已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 中继已关闭
	ErrNodeClosed = errors.New("node closed")
)
