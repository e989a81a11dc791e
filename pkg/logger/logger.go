package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的日志记录器实现
type BaseLogger struct {
	zl               *zap.Logger
	level            zap.AtomicLevel
	config           *Config
	name             string
	globalFields     map[string]interface{}
	hooks            []Hook
	extraWriters     []io.Writer
	contextExtractor ContextFieldExtractor
}

// New 创建新的 BaseLogger
// cfg 可以只填部分字段，其余使用 DefaultConfig
func New(cfg *Config, opts ...Option) (*BaseLogger, error) {
	mergedConfig, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	if err := mergedConfig.Validate(); err != nil {
		return nil, err
	}

	l := &BaseLogger{
		level:            zap.NewAtomicLevelAt(parseLevel(mergedConfig.Level)),
		config:           mergedConfig,
		globalFields:     make(map[string]interface{}),
		contextExtractor: mergedConfig.ContextExtractor,
	}
	if l.contextExtractor == nil {
		l.contextExtractor = DefaultContextExtractor
	}

	for _, opt := range opts {
		opt(l)
	}

	for k, v := range mergedConfig.GlobalFields {
		l.globalFields[k] = v
	}

	zl, err := l.build()
	if err != nil {
		return nil, err
	}
	l.zl = zl

	return l, nil
}

// build 构建 zap logger
func (l *BaseLogger) build() (*zap.Logger, error) {
	encoderConfig := l.buildEncoderConfig()

	var encoder zapcore.Encoder
	switch l.config.Format {
	case ConsoleFormat:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writers := make([]zapcore.WriteSyncer, 0, 2+len(l.extraWriters))
	if l.config.EnableConsole {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if l.config.EnableFile {
		fileWriter, err := newRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create rotation writer: %w", err)
		}
		writers = append(writers, zapcore.AddSync(fileWriter))
	}
	for _, w := range l.extraWriters {
		writers = append(writers, zapcore.AddSync(w))
	}
	if len(writers) == 0 {
		return nil, ErrNoOutputEnabled
	}

	hooks := l.hooks
	if len(l.config.RedactKeys) > 0 {
		hooks = append([]Hook{RedactHook(l.config.RedactKeys...)}, hooks...)
	}
	core := newHookedCore(zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), l.level), hooks)

	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	}
	if l.config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(parseLevel(l.config.StacktraceLevel)))
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	zl := zap.New(core, options...)

	if len(l.globalFields) > 0 {
		fields := make([]zap.Field, 0, len(l.globalFields))
		for k, v := range l.globalFields {
			fields = append(fields, zap.Any(k, v))
		}
		zl = zl.With(fields...)
	}

	if l.name != "" {
		zl = zl.Named(l.name)
	}

	return zl, nil
}

// buildEncoderConfig 构建 encoder 配置
func (l *BaseLogger) buildEncoderConfig() zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if l.config.TimeFormat != "" {
		ec.EncodeTime = zapcore.TimeEncoderOfLayout(l.config.TimeFormat)
	} else {
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if l.config.Development && l.config.Format == ConsoleFormat {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return ec
}

// parseLevel 解析日志等级
func parseLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, l.withContext(ctx, keysAndValues)...)
}

// Named 创建具名 logger
func (l *BaseLogger) Named(name string) Logger {
	child := l.clone()
	child.zl = l.zl.Named(name)
	child.name = name
	return child
}

// WithFields 添加字段
func (l *BaseLogger) WithFields(keysAndValues ...interface{}) Logger {
	fields := toZapFields(keysAndValues...)
	if len(fields) == 0 {
		return l
	}
	child := l.clone()
	child.zl = l.zl.With(fields...)
	return child
}

// Sync 同步日志
func (l *BaseLogger) Sync() error {
	return l.zl.Sync()
}

// SetLevel 运行时调整等级，派生出的子 logger 一同生效
func (l *BaseLogger) SetLevel(level Level) error {
	switch level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
	default:
		return errors.Wrapf(ErrInvalidLevel, "level %q", level)
	}
	l.level.SetLevel(parseLevel(level))
	return nil
}

// GetLevel 当前等级
func (l *BaseLogger) GetLevel() Level {
	return Level(l.level.Level().String())
}

func (l *BaseLogger) clone() *BaseLogger {
	return &BaseLogger{
		zl:               l.zl,
		level:            l.level,
		config:           l.config,
		name:             l.name,
		globalFields:     l.globalFields,
		hooks:            l.hooks,
		extraWriters:     l.extraWriters,
		contextExtractor: l.contextExtractor,
	}
}

func (l *BaseLogger) withContext(ctx context.Context, keysAndValues []interface{}) []zap.Field {
	return append(l.contextExtractor(ctx), toZapFields(keysAndValues...)...)
}

// toZapFields 将 key-value 对转换为 zap.Field
// 也接受直接传入的 zap.Field
func toZapFields(keysAndValues ...interface{}) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}

	if _, ok := keysAndValues[0].(zap.Field); ok {
		fields := make([]zap.Field, 0, len(keysAndValues))
		for _, v := range keysAndValues {
			if f, ok := v.(zap.Field); ok {
				fields = append(fields, f)
			}
		}
		return fields
	}

	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
