package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"go.uber.org/zap"
)

// Notifier 通知器接口
type Notifier interface {
	// Send 发送一条提示
	Send(ctx context.Context, n *Notice) error

	// Name 返回通知器名称（用于日志）
	Name() string
}

// LogNotifier 把提示写入日志，客户端默认通知器
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &LogNotifier{log: log.Named("notice")}
}

func (l *LogNotifier) Send(ctx context.Context, n *Notice) error {
	if n == nil {
		return ErrNilNotice
	}
	fields := []any{
		zap.String("op", n.Operation),
		zap.String("message", n.Message),
	}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
	}
	for k, v := range n.Labels {
		fields = append(fields, zap.String(k, v))
	}

	switch n.Level {
	case LevelError:
		l.log.ErrorContext(ctx, "notice", fields...)
	case LevelWarning:
		l.log.WarnContext(ctx, "notice", fields...)
	default:
		l.log.InfoContext(ctx, "notice", fields...)
	}
	return nil
}

func (l *LogNotifier) Name() string { return "log" }

// Recorder 把提示保存在内存中，供 CLI 输出和测试断言
type Recorder struct {
	mu      sync.Mutex
	notices []*Notice
}

// NewRecorder 创建记录器
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, n *Notice) error {
	if n == nil {
		return ErrNilNotice
	}
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Name() string { return "recorder" }

// Notices 返回已记录提示的副本
func (r *Recorder) Notices() []*Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Drain 取出并清空已记录的提示
func (r *Recorder) Drain() []*Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// Multi 扇出到多个通知器，单个失败不影响其他
type Multi struct {
	notifiers []Notifier
}

// NewMulti 创建扇出通知器
func NewMulti(notifiers ...Notifier) (*Multi, error) {
	var list []Notifier
	for _, n := range notifiers {
		if n != nil {
			list = append(list, n)
		}
	}
	if len(list) == 0 {
		return nil, ErrNoNotifiers
	}
	return &Multi{notifiers: list}, nil
}

func (m *Multi) Send(ctx context.Context, n *Notice) error {
	if n == nil {
		return ErrNilNotice
	}
	if n.At.IsZero() {
		n.At = time.Now()
	}
	var errs error
	for _, target := range m.notifiers {
		if err := target.Send(ctx, n); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "notifier %s", target.Name()))
		}
	}
	return errs
}

func (m *Multi) Name() string { return "multi" }
