package logger

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidOutputPath 开启文件输出但没有路径
	ErrInvalidOutputPath = errors.New("logger: output_path is required when enable_file is set")

	// ErrInvalidLevel 未知的日志等级
	ErrInvalidLevel = errors.New("logger: invalid level")

	// ErrNoOutputEnabled 控制台、文件和额外 writer 都没有
	ErrNoOutputEnabled = errors.New("logger: no output enabled")
)
