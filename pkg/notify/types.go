package notify

import (
	"fmt"
	"time"
)

// Level 提示级别
type Level string

const (
	LevelError   Level = "error"   // 操作失败
	LevelWarning Level = "warning" // 操作被拒绝或部分生效
	LevelInfo    Level = "info"    // 普通提示
)

// Notice 面向玩家的一条提示（平台无关）
type Notice struct {
	Level     Level
	Operation string // summon/upgrade/refresh/deck...
	Message   string // 一句话，可直接展示
	Err       error  // 原始错误，可为空
	At        time.Time
	Labels    map[string]string
}

// String 渲染为单行文本
func (n *Notice) String() string {
	if n.Operation == "" {
		return fmt.Sprintf("[%s] %s", n.Level, n.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Level, n.Operation, n.Message)
}
