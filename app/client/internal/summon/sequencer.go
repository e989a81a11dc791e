package summon

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/pkg/logger"
)

type item struct {
	result   model.SummonResult
	class    model.Classification
	state    ItemState
	appearAt time.Time
	revealAt time.Time
	doneAt   time.Time
	skipped  bool
}

type event struct {
	state ItemState
	view  ItemView
}

// Option 序列器选项
type Option func(*Sequencer)

// WithClock 注入时钟，测试中使用 FakeClock
func WithClock(c clockwork.Clock) Option {
	return func(s *Sequencer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTiming 设置时间轴
func WithTiming(t Timing) Option {
	return func(s *Sequencer) { s.timing = t }
}

// WithHooks 设置回调
func WithHooks(h Hooks) Option {
	return func(s *Sequencer) { s.hooks = h }
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Sequencer 抽卡结果揭晓状态机
// 单个结果: Dropping -> Waiting -> Revealing -> Done
// 批次: InProgress -> AllRevealed -> Closed
type Sequencer struct {
	id        string
	clock     clockwork.Clock
	timing    Timing
	hooks     Hooks
	committer Committer
	logger    logger.Logger

	mu      sync.Mutex
	items   []*item
	state   BatchState
	start   time.Time
	skipped bool
	pending []model.SummonResult

	wake chan struct{}
}

// New 创建序列器
// 分类在构造时对提交前的收藏快照执行一次
func New(results []model.SummonResult, classifier Classifier, committer Committer, opts ...Option) (*Sequencer, error) {
	if !model.ValidSummonCount(len(results)) {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "got %d", len(results))
	}
	if classifier == nil || committer == nil {
		return nil, errors.New("summon: classifier and committer are required")
	}

	s := &Sequencer{
		id:        uuid.NewString(),
		clock:     clockwork.NewRealClock(),
		timing:    DefaultTiming(),
		committer: committer,
		logger:    logger.NewNoop(),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("summon").WithFields("batch_id", s.id)

	s.start = s.clock.Now()
	s.items = make([]*item, len(results))
	for i, r := range results {
		s.items[i] = &item{
			result:   r,
			class:    classifier.Classify(r.DiceID),
			state:    Dropping,
			appearAt: s.start.Add(s.timing.AppearOffset(i, len(results))),
		}
	}

	s.logger.Debug("summon batch created", "count", len(results))
	return s, nil
}

// ID 批次 ID
func (s *Sequencer) ID() string { return s.id }

// State 批次状态
func (s *Sequencer) State() BatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Results 原始顺序的全部结果
func (s *Sequencer) Results() []model.SummonResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SummonResult, len(s.items))
	for i, it := range s.items {
		out[i] = it.result
	}
	return out
}

// Pending 已揭晓、等待关闭时提交的结果（按揭晓顺序）
func (s *Sequencer) Pending() []model.SummonResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SummonResult, len(s.pending))
	copy(out, s.pending)
	return out
}

// Items 全部结果视图
func (s *Sequencer) Items() []ItemView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ItemView, len(s.items))
	for i := range s.items {
		out[i] = s.viewLocked(i)
	}
	return out
}

// Wake 点击或跳过时发出信号，供驱动器重新计算截止时间
func (s *Sequencer) Wake() <-chan struct{} { return s.wake }

func (s *Sequencer) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sequencer) viewLocked(i int) ItemView {
	it := s.items[i]
	return ItemView{
		Index:  i,
		Result: it.result,
		Class:  it.class,
		State:  it.state,
		Appear: it.appearAt.Sub(s.start),
	}
}

// advanceLocked 应用 now 之前到期的所有状态转换
func (s *Sequencer) advanceLocked(now time.Time) (events []event, allRevealed bool) {
	if s.state != InProgress {
		return nil, false
	}

	for i, it := range s.items {
		if it.state == Dropping {
			if !now.Before(it.appearAt) || (it.skipped && !now.Before(it.revealAt)) {
				it.state = Waiting
				events = append(events, event{Waiting, s.viewLocked(i)})
			}
		}
		if it.state == Waiting && it.skipped && !now.Before(it.revealAt) {
			it.state = Revealing
			it.doneAt = it.revealAt.Add(s.timing.RevealDuration)
			events = append(events, event{Revealing, s.viewLocked(i)})
		}
		if it.state == Revealing && !now.Before(it.doneAt) {
			it.state = Done
			s.pending = append(s.pending, it.result)
			events = append(events, event{Done, s.viewLocked(i)})
		}
	}

	for _, it := range s.items {
		if it.state != Done {
			return events, false
		}
	}
	s.state = AllRevealed
	return events, true
}

func (s *Sequencer) fire(events []event, allRevealed bool) {
	for _, ev := range events {
		var fn func(ItemView)
		switch ev.state {
		case Waiting:
			fn = s.hooks.OnAppeared
		case Revealing:
			fn = s.hooks.OnRevealed
		case Done:
			fn = s.hooks.OnDone
		}
		if fn != nil {
			fn(ev.view)
		}
	}
	if allRevealed {
		s.logger.Debug("summon batch all revealed")
		if s.hooks.OnAllRevealed != nil {
			s.hooks.OnAllRevealed(s.id)
		}
	}
}

// Update 按当前时间推进状态机，返回发生的转换数
func (s *Sequencer) Update() int {
	now := s.clock.Now()

	s.mu.Lock()
	events, all := s.advanceLocked(now)
	s.mu.Unlock()

	s.fire(events, all)
	return len(events)
}

// Click 点击第 i 个结果，仅在其已出现且等待点击时生效
// 出现前的点击直接忽略，不排队
func (s *Sequencer) Click(i int) bool {
	now := s.clock.Now()

	s.mu.Lock()
	events, all := s.advanceLocked(now)
	ok := s.state == InProgress && i >= 0 && i < len(s.items) && s.items[i].state == Waiting
	if ok {
		it := s.items[i]
		it.state = Revealing
		it.revealAt = now
		it.doneAt = now.Add(s.timing.RevealDuration)
		events = append(events, event{Revealing, s.viewLocked(i)})
	}
	s.mu.Unlock()

	s.fire(events, all)
	if ok {
		s.poke()
	}
	return ok
}

// Skip 按原始顺序、以 SkipStagger 间隔揭晓所有未揭晓的结果
// 已在翻面中的不受影响，重复调用无效；返回被安排的数量
func (s *Sequencer) Skip() int {
	now := s.clock.Now()

	s.mu.Lock()
	events, all := s.advanceLocked(now)
	if s.skipped || s.state != InProgress {
		s.mu.Unlock()
		s.fire(events, all)
		return 0
	}
	s.skipped = true

	scheduled := 0
	for _, it := range s.items {
		if it.state != Dropping && it.state != Waiting {
			continue
		}
		it.skipped = true
		it.revealAt = now.Add(time.Duration(scheduled) * s.timing.SkipStagger)
		scheduled++
	}
	more, all := s.advanceLocked(now)
	events = append(events, more...)
	s.mu.Unlock()

	s.logger.Debug("summon batch skipped", "scheduled", scheduled)
	s.fire(events, all)
	s.poke()
	return scheduled
}

// NextDeadline 下一次自动转换的时间，没有待定的自动转换时返回 false
func (s *Sequencer) NextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != InProgress {
		return time.Time{}, false
	}

	var (
		next  time.Time
		found bool
	)
	consider := func(t time.Time) {
		if !found || t.Before(next) {
			next, found = t, true
		}
	}
	for _, it := range s.items {
		switch it.state {
		case Dropping:
			consider(it.appearAt)
			if it.skipped {
				consider(it.revealAt)
			}
		case Waiting:
			if it.skipped {
				consider(it.revealAt)
			}
		case Revealing:
			consider(it.doneAt)
		}
	}
	return next, found
}

// Close 玩家关闭结果界面，提交完整批次
func (s *Sequencer) Close(ctx context.Context) error {
	now := s.clock.Now()

	s.mu.Lock()
	events, all := s.advanceLocked(now)
	switch s.state {
	case Closed:
		s.mu.Unlock()
		return ErrClosed
	case InProgress:
		s.mu.Unlock()
		s.fire(events, all)
		return ErrNotAllRevealed
	}
	s.state = Closed
	results := make([]model.SummonResult, len(s.items))
	for i, it := range s.items {
		results[i] = it.result
	}
	s.mu.Unlock()

	s.fire(events, all)
	s.logger.Debug("summon batch closed", "count", len(results))

	if err := s.committer(ctx, s.id, results); err != nil {
		return errors.Wrapf(err, "commit batch %s", s.id)
	}
	return nil
}
