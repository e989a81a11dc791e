package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/dicedeck/app/client/internal/gateway"
	"github.com/lk2023060901/dicedeck/app/client/internal/manager"
	"github.com/lk2023060901/dicedeck/app/client/internal/metrics"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/app/client/internal/progression"
	"github.com/lk2023060901/dicedeck/app/client/internal/summon"
	"github.com/lk2023060901/dicedeck/pkg/config"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/lk2023060901/dicedeck/pkg/notify"
	"golang.org/x/sync/errgroup"
)

// 提示中使用的操作名
const (
	OpRefresh = "refresh"
	OpSummon  = "summon"
	OpUpgrade = "upgrade"
	OpDeck    = "deck"
)

// Config 会话配置
type Config struct {
	PlayerID        string        `mapstructure:"player_id" json:"player_id" validate:"required"`
	SaveDeckTimeout time.Duration `mapstructure:"save_deck_timeout" json:"save_deck_timeout" validate:"gt=0"`
	Sequencer       summon.Timing `mapstructure:"sequencer" json:"sequencer"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		SaveDeckTimeout: 3 * time.Second,
		Sequencer:       summon.DefaultTiming(),
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	return config.NewValidator().Validate(c)
}

// Session 单个玩家的游戏会话，持有收藏、卡组、货币和当前抽卡批次
type Session struct {
	config     *Config
	logger     logger.Logger
	gateway    gateway.SyncGateway
	collection *manager.CollectionManager
	deck       *manager.DeckManager
	notifier   notify.Notifier
	metrics    *metrics.ClientMetrics
	clock      clockwork.Clock

	mu        sync.Mutex
	timing    summon.Timing
	resources *model.Resources
	active    *summon.Sequencer
	summoning bool

	saves sync.WaitGroup
}

// NewSession 组装会话并连接各组件的回调
func NewSession(
	cfg *Config,
	l logger.Logger,
	gw gateway.SyncGateway,
	coll *manager.CollectionManager,
	deck *manager.DeckManager,
	n notify.Notifier,
	m *metrics.ClientMetrics,
	clock clockwork.Clock,
) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Session{
		config:     cfg,
		logger:     l.Named("service.session"),
		gateway:    gw,
		collection: coll,
		deck:       deck,
		notifier:   n,
		metrics:    m,
		clock:      clock,
		timing:     cfg.Sequencer,
	}

	// 收藏变化后重新校验卡组，卡组变化后异步保存
	coll.OnChanged(func(uint64) {
		deck.Revalidate()
		m.SetUnlocked(coll.Stats().UnlockedTypes)
	})
	deck.OnDeckChanged(s.saveDeckAsync)
	return s
}

// Collection 收藏
func (s *Session) Collection() *manager.CollectionManager { return s.collection }

// Deck 卡组
func (s *Session) Deck() *manager.DeckManager { return s.deck }

// Clock 会话时钟，驱动抽卡序列器
func (s *Session) Clock() clockwork.Clock { return s.clock }

// Timing 当前揭晓时间轴
func (s *Session) Timing() summon.Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing
}

// SetTiming 调整之后批次的揭晓时间轴，进行中的批次不受影响
func (s *Session) SetTiming(t summon.Timing) {
	s.mu.Lock()
	s.timing = t
	s.mu.Unlock()
}

// Resources 货币快照，未加载时返回 false
func (s *Session) Resources() (model.Resources, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resources == nil {
		return model.Resources{}, false
	}
	return *s.resources, true
}

// notice 每个失败只产生一条玩家提示，同时留下日志
func (s *Session) notice(ctx context.Context, op string, err error) {
	level := notify.LevelWarning
	if errors.Is(err, gateway.ErrNetworkFailure) {
		level = notify.LevelError
	}

	n := &notify.Notice{
		Level:     level,
		Operation: op,
		Message:   gateway.Detail(err),
		Err:       err,
		At:        s.clock.Now(),
	}
	s.metrics.Notice(string(level))
	s.logger.WarnContext(ctx, "operation failed", "op", op, "error", err)
	if s.notifier == nil {
		return
	}
	if nerr := s.notifier.Send(ctx, n); nerr != nil {
		s.logger.ErrorContext(ctx, "failed to deliver notice", "notifier", s.notifier.Name(), "error", nerr)
	}
}

// Init 首次加载：刷新收藏和货币，再恢复服务端保存的卡组
func (s *Session) Init(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}

	slots, err := s.gateway.FetchDeck(ctx, s.config.PlayerID)
	if err != nil {
		s.notice(ctx, OpDeck, err)
		return errors.Wrap(err, "fetch deck")
	}
	if dropped := s.deck.Restore(slots); len(dropped) > 0 {
		s.logger.InfoContext(ctx, "saved deck cleaned on restore", "dropped", dropped)
	}
	return nil
}

// Refresh 并发拉取收藏和货币，两者都成功才替换本地状态
func (s *Session) Refresh(ctx context.Context) error {
	var (
		dice []*model.Dice
		res  *model.Resources
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		dice, err = s.gateway.FetchCollection(gctx, s.config.PlayerID)
		return err
	})
	g.Go(func() (err error) {
		res, err = s.gateway.FetchResources(gctx, s.config.PlayerID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.notice(ctx, OpRefresh, err)
		return errors.Wrap(err, "refresh")
	}

	if err := s.collection.ReplaceAll(dice); err != nil {
		s.notice(ctx, OpRefresh, err)
		return errors.Wrap(err, "refresh")
	}

	s.mu.Lock()
	s.resources = res
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session refreshed", "dice", len(dice), "gems", res.Gems, "gold", res.Gold)
	return nil
}

// Active 当前抽卡批次，没有时返回 nil
func (s *Session) Active() *summon.Sequencer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Summon 抽卡并创建揭晓序列器
// 网关失败时不创建序列器，也不改动收藏
func (s *Session) Summon(ctx context.Context, count int, hooks summon.Hooks) (*summon.Sequencer, error) {
	label := strconv.Itoa(count)

	// 1. 本地校验
	if !model.ValidSummonCount(count) {
		err := errors.Wrapf(gateway.ErrInvalidSummonCount, "got %d", count)
		s.metrics.Summon(label, metrics.ResultLocal)
		s.notice(ctx, OpSummon, err)
		return nil, err
	}

	s.mu.Lock()
	if s.summoning || (s.active != nil && s.active.State() != summon.Closed) {
		s.mu.Unlock()
		s.metrics.Summon(label, metrics.ResultLocal)
		s.notice(ctx, OpSummon, ErrSummonInProgress)
		return nil, ErrSummonInProgress
	}
	s.summoning = true
	timing := s.timing
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.summoning = false
		s.mu.Unlock()
	}()

	// 2. 请求服务端
	results, err := s.gateway.Summon(ctx, s.config.PlayerID, count)
	if err != nil {
		s.metrics.Summon(label, gateway.ResultOf(err))
		s.notice(ctx, OpSummon, err)
		return nil, err
	}

	// 3. 以提交前的收藏分类并开始揭晓
	seq, err := summon.New(results, s.collection, s.commitBatch,
		summon.WithClock(s.clock),
		summon.WithTiming(timing),
		summon.WithHooks(hooks),
		summon.WithLogger(s.logger),
	)
	if err != nil {
		s.metrics.Summon(label, metrics.ResultError)
		s.notice(ctx, OpSummon, err)
		return nil, err
	}

	s.mu.Lock()
	s.active = seq
	s.mu.Unlock()

	s.metrics.Summon(label, metrics.ResultSuccess)
	s.logger.InfoContext(ctx, "summon started", "batch_id", seq.ID(), "count", count)
	return seq, nil
}

// SkipSummon 跳过当前批次的揭晓动画
func (s *Session) SkipSummon() (int, error) {
	seq := s.Active()
	if seq == nil {
		return 0, ErrNoActiveSummon
	}
	n := seq.Skip()
	if n > 0 {
		s.metrics.Skip()
	}
	return n, nil
}

// CloseSummon 玩家关闭结果界面，提交批次并刷新
func (s *Session) CloseSummon(ctx context.Context) error {
	seq := s.Active()
	if seq == nil {
		return ErrNoActiveSummon
	}
	return seq.Close(ctx)
}

// commitBatch 序列器关闭时调用：本地入账，然后以服务端数据为准整体刷新
func (s *Session) commitBatch(ctx context.Context, batchID string, results []model.SummonResult) error {
	applied := s.collection.Commit(results)

	s.mu.Lock()
	if s.active != nil && s.active.ID() == batchID {
		s.active = nil
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "summon batch committed", "batch_id", batchID, "applied", applied)
	return s.Refresh(ctx)
}

// Upgrade 升级骰子，本地预检后请求服务端，成功后整体刷新
func (s *Session) Upgrade(ctx context.Context, diceID string) (model.OwnedDiceState, error) {
	// 1. 本地预检，不满足时不发请求
	if err := s.checkUpgrade(diceID); err != nil {
		s.metrics.Upgrade(metrics.ResultLocal)
		s.notice(ctx, OpUpgrade, err)
		return model.OwnedDiceState{}, err
	}

	// 2. 服务端权威校验并扣除
	if _, err := s.gateway.Upgrade(ctx, s.config.PlayerID, diceID); err != nil {
		s.metrics.Upgrade(gateway.ResultOf(err))
		s.notice(ctx, OpUpgrade, err)
		return model.OwnedDiceState{}, err
	}
	s.metrics.Upgrade(metrics.ResultSuccess)

	// 3. 不信任部分响应，重新拉取
	if err := s.Refresh(ctx); err != nil {
		return model.OwnedDiceState{}, err
	}
	st, _ := s.collection.Get(diceID)
	s.logger.InfoContext(ctx, "dice upgraded", "dice_id", diceID, "level", st.ClassLevel)
	return st, nil
}

func (s *Session) checkUpgrade(diceID string) error {
	res, ok := s.Resources()
	if !ok || !s.collection.Loaded() {
		return ErrNotLoaded
	}
	def, ok := s.collection.Definition(diceID)
	if !ok {
		return errors.Wrapf(manager.ErrNotOwned, "dice %q", diceID)
	}
	owned, ok := s.collection.Get(diceID)
	if !ok {
		return errors.Wrapf(manager.ErrNotOwned, "dice %q", diceID)
	}

	q := progression.NextUpgrade(def, &owned, res.Gold)
	switch {
	case q.Max:
		return errors.Wrapf(progression.ErrMaxLevel, "dice %q", diceID)
	case q.Err != nil:
		return q.Err
	case !q.Eligible:
		return errors.Wrapf(ErrNotEligible, "dice %q needs %d cards and %d gold", diceID, q.Cost.CardsRequired, q.Cost.GoldRequired)
	}
	return nil
}

// SelectSlot 选中或取消选中卡组槽位
func (s *Session) SelectSlot(ctx context.Context, slot int) error {
	if err := s.deck.Select(slot); err != nil {
		s.metrics.DeckAssign(metrics.ResultLocal)
		s.notice(ctx, OpDeck, err)
		return err
	}
	return nil
}

// AssignDice 把骰子放入选中的槽位，本地拒绝时不发请求
func (s *Session) AssignDice(ctx context.Context, diceID string) error {
	if err := s.deck.Assign(diceID); err != nil {
		s.metrics.DeckAssign(metrics.ResultLocal)
		s.notice(ctx, OpDeck, err)
		return err
	}
	s.metrics.DeckAssign(metrics.ResultSuccess)
	return nil
}

// saveDeckAsync 卡组保存不阻塞调用方，失败只记日志
func (s *Session) saveDeckAsync(slots model.DeckSlots) {
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()

		ctx, cancel := context.WithTimeout(logger.WithPlayerID(context.Background(), s.config.PlayerID), s.config.SaveDeckTimeout)
		defer cancel()
		if err := s.gateway.SaveDeck(ctx, s.config.PlayerID, slots); err != nil {
			s.logger.WarnContext(ctx, "deck save failed", "slots", slots, "error", err)
			return
		}
		s.logger.DebugContext(ctx, "deck saved", "slots", slots)
	}()
}

// Flush 等待所有异步保存结束
func (s *Session) Flush() {
	s.saves.Wait()
}
