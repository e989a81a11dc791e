package manager

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/app/client/internal/progression"
	"github.com/lk2023060901/dicedeck/pkg/logger"
)

// SortType 收藏列表排序方式
type SortType int32

const (
	SortRarity SortType = iota // 稀有度降序 -> 等级降序 -> ID
	SortLevel                  // 等级降序 -> 稀有度降序 -> ID
	SortName                   // 名称升序
)

type collectionEntry struct {
	def   *model.DiceDefinition
	owned *model.OwnedDiceState
}

// CollectionManager 玩家收藏的本地镜像
// 所有写入只经过 ReplaceAll 和 Commit 两个入口
type CollectionManager struct {
	logger logger.Logger

	mu      sync.RWMutex
	entries map[string]*collectionEntry
	order   []string
	loaded  bool
	version uint64

	hookMu sync.Mutex
	hooks  []func(version uint64)
}

// NewCollectionManager 创建收藏管理器
func NewCollectionManager(l logger.Logger) *CollectionManager {
	return &CollectionManager{
		logger:  l.Named("manager.collection"),
		entries: make(map[string]*collectionEntry),
	}
}

// OnChanged 注册变更回调，回调在释放锁后执行
func (m *CollectionManager) OnChanged(fn func(version uint64)) {
	if fn == nil {
		return
	}
	m.hookMu.Lock()
	m.hooks = append(m.hooks, fn)
	m.hookMu.Unlock()
}

func (m *CollectionManager) fireChanged(version uint64) {
	m.hookMu.Lock()
	hooks := make([]func(uint64), len(m.hooks))
	copy(hooks, m.hooks)
	m.hookMu.Unlock()

	for _, fn := range hooks {
		fn(version)
	}
}

// ReplaceAll 用服务端快照整体替换本地收藏
// 先校验整份快照，任何一项不合法都不会修改现有数据
func (m *CollectionManager) ReplaceAll(dice []*model.Dice) error {
	// 1. 校验并深拷贝
	entries := make(map[string]*collectionEntry, len(dice))
	order := make([]string, 0, len(dice))
	for i, d := range dice {
		if err := validateDice(d); err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
		id := d.Definition.ID
		if _, dup := entries[id]; dup {
			return errors.Wrapf(ErrInvalidSnapshot, "duplicate dice id %q", id)
		}
		c := d.Clone()
		entries[id] = &collectionEntry{def: &c.Definition, owned: c.Owned}
		order = append(order, id)
	}

	// 2. 一次性替换
	m.mu.Lock()
	m.entries = entries
	m.order = order
	m.loaded = true
	m.version++
	version := m.version
	m.mu.Unlock()

	m.logger.Debug("collection replaced", "dice", len(order), "version", version)
	m.fireChanged(version)
	return nil
}

func validateDice(d *model.Dice) error {
	if d == nil {
		return errors.Wrap(ErrInvalidSnapshot, "nil dice")
	}
	def := &d.Definition
	if def.ID == "" {
		return errors.Wrap(ErrInvalidSnapshot, "empty dice id")
	}
	if !def.Rarity.Valid() {
		return errors.Wrapf(ErrInvalidSnapshot, "dice %s: unknown rarity %q", def.ID, def.Rarity)
	}
	if d.Owned == nil {
		return nil
	}
	if d.Owned.ClassLevel < 0 || d.Owned.ClassLevel > model.MaxLevel {
		return errors.Wrapf(ErrInvalidSnapshot, "dice %s: class level %d out of range", def.ID, d.Owned.ClassLevel)
	}
	if d.Owned.Quantity < 0 {
		return errors.Wrapf(ErrInvalidSnapshot, "dice %s: negative quantity %d", def.ID, d.Owned.Quantity)
	}
	return nil
}

// Commit 把抽卡结果计入本地收藏（服务端刷新前的临时状态）
// 只增加卡牌数量，不改变等级；未知 ID 记录日志后跳过
func (m *CollectionManager) Commit(results []model.SummonResult) int {
	applied := 0

	m.mu.Lock()
	for _, r := range results {
		e, ok := m.entries[r.DiceID]
		if !ok {
			m.logger.Warn("summon result for unknown dice skipped", "dice_id", r.DiceID)
			continue
		}
		if e.owned == nil {
			e.owned = &model.OwnedDiceState{}
		}
		e.owned.Quantity++
		applied++
	}
	var version uint64
	if applied > 0 {
		m.version++
		version = m.version
	}
	m.mu.Unlock()

	if applied > 0 {
		m.logger.Debug("summon results committed", "applied", applied, "version", version)
		m.fireChanged(version)
	}
	return applied
}

// Get 返回持有状态，未拥有返回 false
func (m *CollectionManager) Get(id string) (model.OwnedDiceState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok || e.owned == nil {
		return model.OwnedDiceState{}, false
	}
	return *e.owned, true
}

// Definition 返回配置副本
func (m *CollectionManager) Definition(id string) (*model.DiceDefinition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.def.Clone(), true
}

// Classify 未拥有或未解锁为 NEW
func (m *CollectionManager) Classify(id string) model.Classification {
	st, ok := m.Get(id)
	if !ok || st.ClassLevel == 0 {
		return model.ClassNew
	}
	return model.ClassKnown
}

// Loaded 是否加载过快照，用来区分"尚未加载"和"加载失败"
func (m *CollectionManager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Version 每次变更递增
func (m *CollectionManager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Len 配置种类数
func (m *CollectionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// SpecialView 附加属性展示
type SpecialView struct {
	Key   string
	Value progression.StatValue
	Text  string
}

// DiceView 单个骰子的派生展示数据
type DiceView struct {
	ID            string
	Name          string
	Rarity        model.Rarity
	TargetMode    string
	Owned         bool
	Quantity      int32
	ClassLevel    int32
	Attack        progression.StatValue
	AttackSpeed   progression.StatValue
	PoweredAttack progression.StatValue // 战斗内强化到最高档时的攻击
	Specials      []SpecialView
	Next          progression.Quote
	Class         model.Classification
}

// Views 生成排序后的展示列表，gold 用于计算升级条件
func (m *CollectionManager) Views(sortType SortType, gold int64) []DiceView {
	m.mu.RLock()
	views := make([]DiceView, 0, len(m.order))
	for _, id := range m.order {
		views = append(views, buildView(m.entries[id], gold))
	}
	m.mu.RUnlock()

	sortViews(views, sortType)
	return views
}

func buildView(e *collectionEntry, gold int64) DiceView {
	var st model.OwnedDiceState
	if e.owned != nil {
		st = *e.owned
	}

	v := DiceView{
		ID:            e.def.ID,
		Name:          e.def.Name,
		Rarity:        e.def.Rarity,
		TargetMode:    e.def.TargetMode,
		Owned:         e.owned != nil,
		Quantity:      st.Quantity,
		ClassLevel:    st.ClassLevel,
		Attack:        progression.CurrentStat(e.def.Attack, st.ClassLevel),
		AttackSpeed:   progression.CurrentStat(e.def.AttackSpeed, st.ClassLevel),
		PoweredAttack: progression.PoweredStat(e.def.Attack, st.ClassLevel, model.MaxPowerTier),
		Next:          progression.NextUpgrade(e.def, e.owned, gold),
		Class:         model.ClassKnown,
	}
	if st.ClassLevel == 0 {
		v.Class = model.ClassNew
	}
	for _, sp := range e.def.Specials {
		val := progression.CurrentStat(&sp.Stat, st.ClassLevel)
		v.Specials = append(v.Specials, SpecialView{
			Key:   sp.Key,
			Value: val,
			Text:  progression.FormatStat(val, sp.DisplayFormat),
		})
	}
	return v
}

func sortViews(views []DiceView, sortType SortType) {
	switch sortType {
	case SortLevel:
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].ClassLevel != views[j].ClassLevel {
				return views[i].ClassLevel > views[j].ClassLevel
			}
			if views[i].Rarity.Rank() != views[j].Rarity.Rank() {
				return views[i].Rarity.Rank() > views[j].Rarity.Rank()
			}
			return views[i].ID < views[j].ID
		})

	case SortName:
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].Name != views[j].Name {
				return views[i].Name < views[j].Name
			}
			return views[i].ID < views[j].ID
		})

	default:
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].Rarity.Rank() != views[j].Rarity.Rank() {
				return views[i].Rarity.Rank() > views[j].Rarity.Rank()
			}
			if views[i].ClassLevel != views[j].ClassLevel {
				return views[i].ClassLevel > views[j].ClassLevel
			}
			return views[i].ID < views[j].ID
		})
	}
}

// CollectionStats 图鉴统计
type CollectionStats struct {
	TotalTypes    int32                  // 骰子种类总数
	UnlockedTypes int32                  // 已解锁种类数
	TotalCards    int32                  // 持有卡牌总数
	RarityOwned   map[model.Rarity]int32 // 稀有度 -> 已解锁种类数
	RarityTotal   map[model.Rarity]int32 // 稀有度 -> 总种类数
}

// Stats 统计图鉴完成度
func (m *CollectionManager) Stats() CollectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := CollectionStats{
		TotalTypes:  int32(len(m.order)),
		RarityOwned: make(map[model.Rarity]int32),
		RarityTotal: make(map[model.Rarity]int32),
	}
	for _, e := range m.entries {
		stats.RarityTotal[e.def.Rarity]++
		if e.owned == nil {
			continue
		}
		stats.TotalCards += e.owned.Quantity
		if e.owned.Unlocked() {
			stats.UnlockedTypes++
			stats.RarityOwned[e.def.Rarity]++
		}
	}
	return stats
}
