package gateway

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/metrics"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/app/client/internal/progression"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"gonum.org/v1/gonum/stat/distuv"
)

// 本地网关业务错误码
const (
	CodeUnknownDice      = 1001
	CodeNotOwned         = 1002
	CodeMaxLevel         = 1003
	CodeNotEligible      = 1004
	CodeInsufficientGems = 1005
	CodeInvalidDeck      = 1006
	CodeBadConfig        = 1099
)

type playerState struct {
	owned     map[string]*model.OwnedDiceState
	resources model.Resources
	deck      model.DeckSlots
}

// LocalGateway 进程内的权威服务端，用于离线模式和测试
type LocalGateway struct {
	catalog  *Catalog
	defs     map[string]*model.DiceDefinition
	byRarity map[model.Rarity][]string
	rarities []model.Rarity
	logger   logger.Logger
	metrics  *metrics.ClientMetrics

	mu      sync.Mutex
	rng     *rand.Rand
	draw    distuv.Categorical
	players map[string]*playerState
}

// NewLocalGateway 创建本地网关，seed 决定抽卡序列
func NewLocalGateway(c *Catalog, seed uint64, l logger.Logger, m *metrics.ClientMetrics) (*LocalGateway, error) {
	if c == nil {
		return nil, errors.Wrap(ErrInvalidCatalog, "nil catalog")
	}

	g := &LocalGateway{
		catalog:  c,
		defs:     make(map[string]*model.DiceDefinition, len(c.Dice)),
		byRarity: make(map[model.Rarity][]string),
		logger:   l.Named("gateway.local"),
		metrics:  m,
		players:  make(map[string]*playerState),
	}
	for i := range c.Dice {
		d := &c.Dice[i]
		g.defs[d.ID] = d
		g.byRarity[d.Rarity] = append(g.byRarity[d.Rarity], d.ID)
	}

	// 1. 按稀有度从低到高固定权重顺序，保证同一 seed 结果可复现
	var weights []float64
	for _, r := range model.Rarities {
		if w := c.Summon.RarityWeights[r]; w > 0 {
			g.rarities = append(g.rarities, r)
			weights = append(weights, w)
		}
	}
	if len(weights) == 0 {
		return nil, errors.Wrap(ErrInvalidCatalog, "no positive rarity weight")
	}

	// 2. 同一个 PCG 源同时驱动稀有度和骰子选择
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	g.rng = rand.New(src)
	g.draw = distuv.NewCategorical(weights, src)
	return g, nil
}

// player 取玩家状态，首次访问时按初始配置创建；调用方持有锁
func (g *LocalGateway) player(id string) *playerState {
	if p, ok := g.players[id]; ok {
		return p
	}
	p := &playerState{
		owned:     make(map[string]*model.OwnedDiceState, len(g.catalog.Starting.Owned)),
		resources: g.catalog.Starting.Resources,
	}
	for diceID, st := range g.catalog.Starting.Owned {
		s := st
		p.owned[diceID] = &s
	}
	copy(p.deck[:], g.catalog.Starting.Deck)
	g.players[id] = p
	return p
}

func (g *LocalGateway) observe(ctx context.Context, op string, start time.Time, err error) {
	g.metrics.ObserveGateway(op, ResultOf(err), time.Since(start))
	if err != nil {
		g.logger.WarnContext(ctx, "local gateway rejected call", "op", op, "error", err)
	}
}

func (g *LocalGateway) FetchCollection(ctx context.Context, playerID string) (out []*model.Dice, err error) {
	defer func(start time.Time) { g.observe(ctx, OpFetchCollection, start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, networkFailure(err, "fetch collection")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.player(playerID)
	out = make([]*model.Dice, 0, len(g.catalog.Dice))
	for i := range g.catalog.Dice {
		d := &model.Dice{Definition: *g.catalog.Dice[i].Clone()}
		if st, ok := p.owned[d.Definition.ID]; ok {
			s := *st
			d.Owned = &s
		}
		out = append(out, d)
	}
	return out, nil
}

func (g *LocalGateway) Summon(ctx context.Context, playerID string, count int) (out []model.SummonResult, err error) {
	defer func(start time.Time) { g.observe(ctx, OpSummon, start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, networkFailure(err, "summon")
	}
	if !model.ValidSummonCount(count) {
		return nil, errors.Wrapf(ErrInvalidSummonCount, "got %d", count)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// 1. 扣钻石
	p := g.player(playerID)
	cost := g.catalog.Summon.GemCost[count]
	if p.resources.Gems < cost {
		return nil, Rejected(0, CodeInsufficientGems, "not enough gems: need "+strconv.FormatInt(cost, 10))
	}
	p.resources.Gems -= cost

	// 2. 抽取并入账
	out = make([]model.SummonResult, count)
	for i := range out {
		rarity := g.rarities[int(g.draw.Rand())]
		ids := g.byRarity[rarity]
		def := g.defs[ids[g.rng.IntN(len(ids))]]

		st, ok := p.owned[def.ID]
		if !ok {
			st = &model.OwnedDiceState{}
			p.owned[def.ID] = st
		}
		st.Quantity++
		out[i] = model.SummonResult{DiceID: def.ID, Rarity: def.Rarity, DisplayName: def.Name}
	}

	g.logger.DebugContext(ctx, "local summon", "count", count, "gems_left", p.resources.Gems)
	return out, nil
}

func (g *LocalGateway) Upgrade(ctx context.Context, playerID, diceID string) (out *model.OwnedDiceState, err error) {
	defer func(start time.Time) { g.observe(ctx, OpUpgrade, start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, networkFailure(err, "upgrade")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// 1. 服务端重新校验
	def, ok := g.defs[diceID]
	if !ok {
		return nil, Rejected(0, CodeUnknownDice, "unknown dice "+diceID)
	}
	p := g.player(playerID)
	st, ok := p.owned[diceID]
	if !ok {
		return nil, Rejected(0, CodeNotOwned, "dice not owned")
	}
	cost, cerr := progression.UpgradeCost(def, st.ClassLevel)
	switch {
	case errors.Is(cerr, progression.ErrMaxLevel):
		return nil, Rejected(0, CodeMaxLevel, "dice already at max level")
	case cerr != nil:
		return nil, Rejected(0, CodeBadConfig, cerr.Error())
	}
	if !progression.IsUpgradeEligible(*st, cost, p.resources.Gold) {
		return nil, Rejected(0, CodeNotEligible, "not enough cards or gold")
	}

	// 2. 扣除卡牌和金币
	st.Quantity -= cost.CardsRequired
	p.resources.Gold -= cost.GoldRequired
	st.ClassLevel++

	g.logger.DebugContext(ctx, "local upgrade", "dice_id", diceID, "level", st.ClassLevel)
	s := *st
	return &s, nil
}

func (g *LocalGateway) FetchResources(ctx context.Context, playerID string) (out *model.Resources, err error) {
	defer func(start time.Time) { g.observe(ctx, OpFetchResources, start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, networkFailure(err, "fetch resources")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	res := g.player(playerID).resources
	return &res, nil
}

func (g *LocalGateway) FetchDeck(ctx context.Context, playerID string) (out model.DeckSlots, err error) {
	defer func(start time.Time) { g.observe(ctx, OpFetchDeck, start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return out, networkFailure(err, "fetch deck")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.player(playerID).deck, nil
}

func (g *LocalGateway) SaveDeck(ctx context.Context, playerID string, slots model.DeckSlots) (err error) {
	defer func(start time.Time) { g.observe(ctx, OpSaveDeck, start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return networkFailure(err, "save deck")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.player(playerID)
	seen := make(map[string]bool, model.DeckSize)
	for _, id := range slots {
		if id == "" {
			continue
		}
		st, ok := p.owned[id]
		if seen[id] || !ok || !st.Unlocked() {
			return Rejected(0, CodeInvalidDeck, "invalid deck entry "+id)
		}
		seen[id] = true
	}
	p.deck = slots
	return nil
}
