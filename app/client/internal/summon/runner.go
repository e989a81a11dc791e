package summon

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Runner 用时钟驱动序列器，直到全部揭晓
type Runner struct {
	seq   *Sequencer
	clock clockwork.Clock
}

// NewRunner 创建驱动器，clock 应与序列器使用同一个
func NewRunner(seq *Sequencer, clock clockwork.Clock) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{seq: seq, clock: clock}
}

// Run 阻塞直到批次全部揭晓或 ctx 结束
func (r *Runner) Run(ctx context.Context) error {
	for {
		r.seq.Update()
		if r.seq.State() != InProgress {
			return nil
		}

		// 没有自动转换时只等点击或跳过
		var timeout <-chan time.Time
		if deadline, ok := r.seq.NextDeadline(); ok {
			timeout = r.clock.After(deadline.Sub(r.clock.Now()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.seq.Wake():
		case <-timeout:
		}
	}
}
