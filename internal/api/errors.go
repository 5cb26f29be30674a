package api

import "errors"

var (
	// ErrAlreadyStarted 服务已经启动
	ErrAlreadyStarted = errors.New("api server already started")

	// ErrNotStarted 服务尚未启动
	ErrNotStarted = errors.New("api server not started")
)
