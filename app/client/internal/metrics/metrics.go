package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/pkg/pool/bytebuff"
	promclient "github.com/lk2023060901/dicedeck/pkg/prometheus"
)

// 结果标签
const (
	ResultSuccess  = "success"
	ResultNetwork  = "network"
	ResultRejected = "rejected"
	ResultLocal    = "local" // 本地校验拒绝，未发请求
	ResultError    = "error"
)

// ClientMetrics 客户端指标
// 所有方法对 nil 接收者安全，未启用指标时直接传 nil
type ClientMetrics struct {
	// 网关指标
	GatewayRequests *promclient.CounterVec   // 网关请求总数（按操作、结果）
	GatewayDuration *promclient.HistogramVec // 网关请求延迟

	// 玩法指标
	Summons         *promclient.CounterVec // 抽卡次数（按批次大小、结果）
	SummonSkips     *promclient.CounterVec // 跳过动画次数
	Upgrades        *promclient.CounterVec // 升级次数（按结果）
	DeckAssignments *promclient.CounterVec // 卡组调整（按结果）
	UnlockedDice    *promclient.GaugeVec   // 已解锁骰子种类数
	Notices         *promclient.CounterVec // 玩家提示（按级别）

	// 编码缓冲池，采集时读取 bytebuff 默认池统计
	BufferGets   promclient.CounterFunc
	BufferMisses promclient.CounterFunc
	BufferDrops  promclient.CounterFunc
}

// New 在指标客户端上注册全部指标
func New(c *promclient.Client) (*ClientMetrics, error) {
	var (
		m   ClientMetrics
		err error
	)
	register := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}

	register(func() (e error) {
		m.GatewayRequests, e = c.NewCounter("gateway_requests_total", "网关请求总数", []string{"op", "result"})
		return
	})
	register(func() (e error) {
		m.GatewayDuration, e = c.NewHistogram("gateway_request_duration_seconds", "网关请求延迟", []string{"op"},
			[]float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5})
		return
	})
	register(func() (e error) {
		m.Summons, e = c.NewCounter("summons_total", "抽卡次数", []string{"count", "result"})
		return
	})
	register(func() (e error) {
		m.SummonSkips, e = c.NewCounter("summon_skips_total", "跳过揭晓动画次数", nil)
		return
	})
	register(func() (e error) {
		m.Upgrades, e = c.NewCounter("upgrades_total", "升级次数", []string{"result"})
		return
	})
	register(func() (e error) {
		m.DeckAssignments, e = c.NewCounter("deck_assignments_total", "卡组调整次数", []string{"result"})
		return
	})
	register(func() (e error) {
		m.UnlockedDice, e = c.NewGauge("unlocked_dice", "已解锁骰子种类数", nil)
		return
	})
	register(func() (e error) {
		m.Notices, e = c.NewCounter("notices_total", "玩家提示数", []string{"level"})
		return
	})
	register(func() (e error) {
		m.BufferGets, e = c.NewCounterFunc("buffer_pool_gets_total", "编码缓冲取用次数",
			func() float64 { return float64(bytebuff.DefaultStats().Gets) })
		return
	})
	register(func() (e error) {
		m.BufferMisses, e = c.NewCounterFunc("buffer_pool_misses_total", "编码缓冲容量不足需扩容的次数",
			func() float64 { return float64(bytebuff.DefaultStats().Misses) })
		return
	})
	register(func() (e error) {
		m.BufferDrops, e = c.NewCounterFunc("buffer_pool_drops_total", "过大未回收的编码缓冲数",
			func() float64 { return float64(bytebuff.DefaultStats().Drops) })
		return
	})

	if err != nil {
		return nil, errors.Wrap(err, "register client metrics")
	}
	return &m, nil
}

// ObserveGateway 记录一次网关调用
func (m *ClientMetrics) ObserveGateway(op, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(op, result).Inc()
	m.GatewayDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Summon 记录一次抽卡
func (m *ClientMetrics) Summon(count, result string) {
	if m == nil {
		return
	}
	m.Summons.WithLabelValues(count, result).Inc()
}

// Skip 记录一次跳过
func (m *ClientMetrics) Skip() {
	if m == nil {
		return
	}
	m.SummonSkips.WithLabelValues().Inc()
}

// Upgrade 记录一次升级
func (m *ClientMetrics) Upgrade(result string) {
	if m == nil {
		return
	}
	m.Upgrades.WithLabelValues(result).Inc()
}

// DeckAssign 记录一次卡组调整
func (m *ClientMetrics) DeckAssign(result string) {
	if m == nil {
		return
	}
	m.DeckAssignments.WithLabelValues(result).Inc()
}

// SetUnlocked 更新已解锁种类数
func (m *ClientMetrics) SetUnlocked(n int32) {
	if m == nil {
		return
	}
	m.UnlockedDice.WithLabelValues().Set(float64(n))
}

// Notice 记录一条提示
func (m *ClientMetrics) Notice(level string) {
	if m == nil {
		return
	}
	m.Notices.WithLabelValues(level).Inc()
}
