package services

import (
	"errors"
)

// 周期级错误：中止当前监控周期，但不影响调度器状态
var (
	// ErrNotAuthenticated 没有可用的 YouTube 凭证
	ErrNotAuthenticated = errors.New("youtube credential not available")
	// ErrStorageUnavailable 数据库连接不可用
	ErrStorageUnavailable = errors.New("storage unavailable")
)
