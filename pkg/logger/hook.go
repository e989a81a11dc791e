package logger

import (
	"go.uber.org/zap/zapcore"
)

// Redacted 脱敏后的占位值
const Redacted = "***"

// Hook 写入前回调，返回 false 丢弃该条日志
// fields 可以原地修改，修改只影响本次写入
type Hook interface {
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

// HookFunc 函数式 Hook
type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

type hookedCore struct {
	zapcore.Core
	hooks []Hook
}

func newHookedCore(core zapcore.Core, hooks []Hook) zapcore.Core {
	if len(hooks) == 0 {
		return core
	}
	return &hookedCore{Core: core, hooks: hooks}
}

func (h *hookedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !h.Enabled(entry.Level) {
		return ce
	}
	return ce.AddCore(entry, h)
}

func (h *hookedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// 复制一份，避免钩子改到调用方复用的切片
	own := append([]zapcore.Field(nil), fields...)
	for _, hook := range h.hooks {
		if !hook.OnWrite(entry, own) {
			return nil
		}
	}
	return h.Core.Write(entry, own)
}

func (h *hookedCore) With(fields []zapcore.Field) zapcore.Core {
	return &hookedCore{Core: h.Core.With(redactAll(h.hooks, fields)), hooks: h.hooks}
}

// redactAll 让 WithFields 派生的固定字段同样经过钩子
func redactAll(hooks []Hook, fields []zapcore.Field) []zapcore.Field {
	own := append([]zapcore.Field(nil), fields...)
	for _, hook := range hooks {
		hook.OnWrite(zapcore.Entry{}, own)
	}
	return own
}

// RedactHook 把指定键的值替换为 Redacted，比如 player_id
func RedactHook(keys ...string) Hook {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	return HookFunc(func(_ zapcore.Entry, fields []zapcore.Field) bool {
		for i := range fields {
			if _, ok := set[fields[i].Key]; ok {
				fields[i] = zapcore.Field{Key: fields[i].Key, Type: zapcore.StringType, String: Redacted}
			}
		}
		return true
	})
}
