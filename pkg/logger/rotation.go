package logger

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultRotationTime = 24 * time.Hour
	defaultRetention    = 7 * 24 * time.Hour
	defaultPattern      = ".%Y%m%d"
)

// newRotationWriter 按配置选择轮换方式，默认按大小
func newRotationWriter(cfg *RotationConfig, path string) (io.Writer, error) {
	if cfg.Type != RotationByTime {
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}, nil
	}

	every, err := durationOr(cfg.RotationTime, defaultRotationTime)
	if err != nil {
		return nil, errors.Wrap(err, "rotation_time")
	}
	keep, err := durationOr(cfg.MaxAgeTime, defaultRetention)
	if err != nil {
		return nil, errors.Wrap(err, "max_age_time")
	}
	pattern := cfg.RotationPattern
	if pattern == "" {
		pattern = defaultPattern
	}

	w, err := rotatelogs.New(path+pattern,
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(every),
		rotatelogs.WithMaxAge(keep),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "time rotation for %s", path)
	}
	return w, nil
}

// durationOr 空字符串取默认值，格式错误直接报错
func durationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.Newf("duration must be positive, got %s", s)
	}
	return d, nil
}
