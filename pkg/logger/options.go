package logger

import "io"

// Option 配置选项
type Option func(*BaseLogger)

// WithName 设置 logger 名称
func WithName(name string) Option {
	return func(l *BaseLogger) {
		l.name = name
	}
}

// WithGlobalFields 添加全局字段
func WithGlobalFields(fields ...interface{}) Option {
	return func(l *BaseLogger) {
		if len(fields)%2 != 0 {
			return
		}
		for i := 0; i < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			l.globalFields[key] = fields[i+1]
		}
	}
}

// WithOutput 追加一个额外的输出目标（测试中常用 bytes.Buffer）
func WithOutput(w io.Writer) Option {
	return func(l *BaseLogger) {
		l.extraWriters = append(l.extraWriters, w)
	}
}
