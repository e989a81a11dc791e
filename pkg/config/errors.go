package config

import "github.com/cockroachdb/errors"

var (
	// ErrConfigFileNotFound 显式指定的配置文件不存在
	ErrConfigFileNotFound = errors.New("config: file not found")

	// ErrValidationFailed 结构体标签校验失败
	ErrValidationFailed = errors.New("config: validation failed")

	// ErrNilConfig 传入了 nil
	ErrNilConfig = errors.New("config: nil config")
)
