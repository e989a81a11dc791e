package summon

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
)

var (
	// ErrInvalidBatchSize 批次大小只能是 1 或 11
	ErrInvalidBatchSize = errors.New("summon: batch size must be 1 or 11")

	// ErrNotAllRevealed 还有未揭晓的结果
	ErrNotAllRevealed = errors.New("summon: not all items revealed")

	// ErrClosed 批次已关闭
	ErrClosed = errors.New("summon: batch already closed")
)

// ItemState 单个结果的揭晓状态
type ItemState int

const (
	Dropping  ItemState = iota // 入场动画中
	Waiting                    // 已出现，等待点击
	Revealing                  // 翻面中
	Done                       // 已揭晓
)

func (s ItemState) String() string {
	switch s {
	case Dropping:
		return "dropping"
	case Waiting:
		return "waiting"
	case Revealing:
		return "revealing"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// BatchState 批次状态
type BatchState int

const (
	InProgress  BatchState = iota
	AllRevealed            // 全部揭晓，等待玩家关闭
	Closed                 // 已关闭并提交
)

func (s BatchState) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case AllRevealed:
		return "all_revealed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Timing 揭晓时间轴参数
type Timing struct {
	SingleDelay    time.Duration `mapstructure:"single_delay"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	RowStride      time.Duration `mapstructure:"row_stride"`
	ItemStride     time.Duration `mapstructure:"item_stride"`
	Columns        int           `mapstructure:"columns"`
	RevealDuration time.Duration `mapstructure:"reveal_duration"`
	SkipStagger    time.Duration `mapstructure:"skip_stagger"`
}

// DefaultTiming 默认时间轴，十连抽按 4 列排布
func DefaultTiming() Timing {
	return Timing{
		SingleDelay:    600 * time.Millisecond,
		BaseDelay:      300 * time.Millisecond,
		RowStride:      250 * time.Millisecond,
		ItemStride:     80 * time.Millisecond,
		Columns:        4,
		RevealDuration: 400 * time.Millisecond,
		SkipStagger:    100 * time.Millisecond,
	}
}

// AppearOffset 第 i 个结果相对批次开始的出现时间
func (t Timing) AppearOffset(i, total int) time.Duration {
	if total == 1 {
		return t.SingleDelay
	}
	cols := t.Columns
	if cols < 1 {
		cols = 1
	}
	row, col := i/cols, i%cols
	return t.BaseDelay + time.Duration(row)*t.RowStride + time.Duration(col)*t.ItemStride
}

// Classifier 判断结果是否首次获得
type Classifier interface {
	Classify(id string) model.Classification
}

// Committer 批次关闭时提交完整结果
type Committer func(ctx context.Context, batchID string, results []model.SummonResult) error

// ItemView 单个结果的只读视图
type ItemView struct {
	Index  int
	Result model.SummonResult
	Class  model.Classification
	State  ItemState
	Appear time.Duration
}

// Hooks 揭晓过程回调，均在释放锁后调用
type Hooks struct {
	OnAppeared    func(ItemView)
	OnRevealed    func(ItemView)
	OnDone        func(ItemView)
	OnAllRevealed func(batchID string)
}
